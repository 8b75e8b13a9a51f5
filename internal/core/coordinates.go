package core

import (
	"context"

	"campuscore/pkg/domain"
)

var coordinatesSortFields = map[string]comparator[domain.Coordinates]{
	"id": func(a, b domain.Coordinates) int { return compareInt64(a.ID, b.ID) },
	"x":  func(a, b domain.Coordinates) int { return compareInt64(a.X, b.X) },
	"y":  func(a, b domain.Coordinates) int { return compareFloat64(float64(a.Y), float64(b.Y)) },
	"createdAt": func(a, b domain.Coordinates) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	},
}

// CreateCoordinates persists a new coordinates row. The (x, y) pair must be
// unique across all rows.
func (s *Service) CreateCoordinates(ctx context.Context, in CoordinatesInput) (domain.Coordinates, error) {
	if err := validateCoordinatesInput(in); err != nil {
		return domain.Coordinates{}, err
	}
	var created domain.Coordinates
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = createCoordinatesTx(tx, in)
		return err
	})
	if err != nil {
		return domain.Coordinates{}, err
	}
	s.logger.Info("coordinates created", "id", created.ID)
	return created, nil
}

// createCoordinatesTx inserts a coordinates row inside an open transaction,
// enforcing pair uniqueness against the transaction's view.
func createCoordinatesTx(tx domain.Transaction, in CoordinatesInput) (domain.Coordinates, error) {
	for _, existing := range tx.ListCoordinates() {
		if existing.X == in.X && existing.Y == in.Y {
			return domain.Coordinates{}, domain.NewValidation("coordinates", "pair (%d, %g) already exists", in.X, in.Y)
		}
	}
	return tx.CreateCoordinates(domain.Coordinates{X: in.X, Y: in.Y})
}

// GetCoordinates fetches a coordinates row by id.
func (s *Service) GetCoordinates(ctx context.Context, id int64) (domain.Coordinates, error) {
	var out domain.Coordinates
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		c, ok := view.FindCoordinates(id)
		if !ok {
			return domain.NewNotFound(domain.EntityCoordinates, id)
		}
		out = c
		return nil
	})
	return out, err
}

// ListCoordinates returns a deterministic page of coordinates rows.
func (s *Service) ListCoordinates(ctx context.Context, req PageRequest) (Page[domain.Coordinates], error) {
	var items []domain.Coordinates
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		items = view.ListCoordinates()
		return nil
	}); err != nil {
		return Page[domain.Coordinates]{}, err
	}
	return listPage(domain.EntityCoordinates, items, req, coordinatesSortFields, func(c domain.Coordinates) int64 { return c.ID })
}

// UpdateCoordinates applies a partial update, re-checking pair uniqueness.
func (s *Service) UpdateCoordinates(ctx context.Context, id int64, update CoordinatesUpdate) (domain.Coordinates, error) {
	var updated domain.Coordinates
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = updateCoordinatesTx(tx, id, update)
		return err
	})
	return updated, err
}

// updateCoordinatesTx applies the partial update inside an open transaction.
func updateCoordinatesTx(tx domain.Transaction, id int64, update CoordinatesUpdate) (domain.Coordinates, error) {
	return tx.UpdateCoordinates(id, func(c *domain.Coordinates) error {
		if update.X != nil {
			c.X = *update.X
		}
		if update.Y != nil {
			c.Y = *update.Y
		}
		for _, existing := range tx.ListCoordinates() {
			if existing.ID != id && existing.X == c.X && existing.Y == c.Y {
				return domain.NewValidation("coordinates", "pair (%d, %g) already exists", c.X, c.Y)
			}
		}
		return nil
	})
}

// DeleteCoordinates removes a coordinates row. When study groups still
// reference it, the call fails with ReferencedEntityError unless replacement
// names a different existing row; then every referencing group is re-pointed
// and the row deleted, all in one transaction.
func (s *Service) DeleteCoordinates(ctx context.Context, id int64, replacement *int64) error {
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindCoordinates(id); !ok {
			return domain.NewNotFound(domain.EntityCoordinates, id)
		}
		refs := coordinatesReferences(tx, id)
		if replacement == nil {
			if len(refs) > 0 {
				return &domain.ReferencedEntityError{
					Entity:         domain.EntityCoordinates,
					ID:             id,
					Referencing:    domain.EntityStudyGroup,
					ReferencingIDs: refs,
				}
			}
			return tx.DeleteCoordinates(id)
		}
		if *replacement == id {
			return &domain.InvalidReplacementError{Message: "replacement must differ from the id being deleted"}
		}
		if _, ok := tx.FindCoordinates(*replacement); !ok {
			return domain.NewNotFound(domain.EntityCoordinates, *replacement)
		}
		for _, groupID := range refs {
			if _, err := tx.UpdateStudyGroup(groupID, func(g *domain.StudyGroup) error {
				g.CoordinatesID = *replacement
				return nil
			}); err != nil {
				return err
			}
		}
		return tx.DeleteCoordinates(id)
	})
	if err == nil {
		s.logger.Info("coordinates deleted", "id", id)
	}
	return err
}

// coordinatesReferences lists the study groups pointing at the coordinates
// row, id ascending. The view already orders groups by id.
func coordinatesReferences(view domain.TransactionView, id int64) []int64 {
	var refs []int64
	for _, g := range view.ListStudyGroups() {
		if g.CoordinatesID == id {
			refs = append(refs, g.ID)
		}
	}
	return refs
}
