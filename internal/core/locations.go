package core

import (
	"context"
	"strings"

	"campuscore/pkg/domain"
)

var locationSortFields = map[string]comparator[domain.Location]{
	"id":   func(a, b domain.Location) int { return compareInt64(a.ID, b.ID) },
	"name": func(a, b domain.Location) int { return compareString(a.Name, b.Name) },
	"x":    func(a, b domain.Location) int { return compareInt32(a.X, b.X) },
	"y":    func(a, b domain.Location) int { return compareFloat64(a.Y, b.Y) },
	"z":    func(a, b domain.Location) int { return compareFloat64(a.Z, b.Z) },
	"createdAt": func(a, b domain.Location) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	},
}

// CreateLocation persists a new location row.
func (s *Service) CreateLocation(ctx context.Context, in LocationInput) (domain.Location, error) {
	if err := validateLocationInput(in); err != nil {
		return domain.Location{}, err
	}
	var created domain.Location
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = tx.CreateLocation(domain.Location{Name: in.Name, X: in.X, Y: in.Y, Z: in.Z})
		return err
	})
	if err != nil {
		return domain.Location{}, err
	}
	s.logger.Info("location created", "id", created.ID, "name", created.Name)
	return created, nil
}

// GetLocation fetches a location row by id.
func (s *Service) GetLocation(ctx context.Context, id int64) (domain.Location, error) {
	var out domain.Location
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		l, ok := view.FindLocation(id)
		if !ok {
			return domain.NewNotFound(domain.EntityLocation, id)
		}
		out = l
		return nil
	})
	return out, err
}

// ListLocations returns a deterministic page of location rows.
func (s *Service) ListLocations(ctx context.Context, req PageRequest) (Page[domain.Location], error) {
	var items []domain.Location
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		items = view.ListLocations()
		return nil
	}); err != nil {
		return Page[domain.Location]{}, err
	}
	return listPage(domain.EntityLocation, items, req, locationSortFields, func(l domain.Location) int64 { return l.ID })
}

// UpdateLocation applies a partial update.
func (s *Service) UpdateLocation(ctx context.Context, id int64, update LocationUpdate) (domain.Location, error) {
	var updated domain.Location
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = updateLocationTx(tx, id, update)
		return err
	})
	return updated, err
}

// updateLocationTx applies the partial update inside an open transaction.
func updateLocationTx(tx domain.Transaction, id int64, update LocationUpdate) (domain.Location, error) {
	return tx.UpdateLocation(id, func(l *domain.Location) error {
		if update.Name != nil {
			if strings.TrimSpace(*update.Name) == "" {
				return domain.NewValidation("name", "must not be blank")
			}
			l.Name = *update.Name
		}
		if update.X != nil {
			l.X = *update.X
		}
		if update.Y != nil {
			l.Y = *update.Y
		}
		if update.Z != nil {
			l.Z = *update.Z
		}
		return nil
	})
}

// DeleteLocation removes a location row, re-pointing referencing persons at
// the replacement when one is supplied.
func (s *Service) DeleteLocation(ctx context.Context, id int64, replacement *int64) error {
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindLocation(id); !ok {
			return domain.NewNotFound(domain.EntityLocation, id)
		}
		refs := locationReferences(tx, id)
		if replacement == nil {
			if len(refs) > 0 {
				return &domain.ReferencedEntityError{
					Entity:         domain.EntityLocation,
					ID:             id,
					Referencing:    domain.EntityPerson,
					ReferencingIDs: refs,
				}
			}
			return tx.DeleteLocation(id)
		}
		if *replacement == id {
			return &domain.InvalidReplacementError{Message: "replacement must differ from the id being deleted"}
		}
		if _, ok := tx.FindLocation(*replacement); !ok {
			return domain.NewNotFound(domain.EntityLocation, *replacement)
		}
		for _, personID := range refs {
			if _, err := tx.UpdatePerson(personID, func(p *domain.Person) error {
				target := *replacement
				p.LocationID = &target
				return nil
			}); err != nil {
				return err
			}
		}
		return tx.DeleteLocation(id)
	})
	if err == nil {
		s.logger.Info("location deleted", "id", id)
	}
	return err
}

// locationReferences lists the persons pointing at the location, id ascending.
func locationReferences(view domain.TransactionView, id int64) []int64 {
	var refs []int64
	for _, p := range view.ListPersons() {
		if p.LocationID != nil && *p.LocationID == id {
			refs = append(refs, p.ID)
		}
	}
	return refs
}
