package core

import (
	"context"
	"strconv"
	"strings"

	"campuscore/pkg/domain"
)

// Batch operations over explicit id lists. Lookups skip ids that do not
// exist; updates and deletes require every id to be present and apply
// atomically in one transaction.

// dedupeIDs drops repeated ids while keeping first-seen order.
func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// requireAllPresent fails with NotFoundError listing every id the lookup
// cannot satisfy, in request order.
func requireAllPresent(entity domain.EntityType, ids []int64, found func(int64) bool) error {
	var missing []string
	for _, id := range ids {
		if !found(id) {
			missing = append(missing, strconv.FormatInt(id, 10))
		}
	}
	if len(missing) > 0 {
		return domain.NewNotFound(entity, strings.Join(missing, ","))
	}
	return nil
}

// GetCoordinatesByIDs returns the coordinates rows matching ids. Missing ids
// are skipped rather than reported.
func (s *Service) GetCoordinatesByIDs(ctx context.Context, ids []int64) ([]domain.Coordinates, error) {
	out := []domain.Coordinates{}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, id := range dedupeIDs(ids) {
			if c, ok := view.FindCoordinates(id); ok {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

// GetLocationsByIDs returns the locations matching ids, skipping missing ones.
func (s *Service) GetLocationsByIDs(ctx context.Context, ids []int64) ([]domain.Location, error) {
	out := []domain.Location{}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, id := range dedupeIDs(ids) {
			if l, ok := view.FindLocation(id); ok {
				out = append(out, l)
			}
		}
		return nil
	})
	return out, err
}

// GetPersonsByIDs returns the persons matching ids, skipping missing ones.
func (s *Service) GetPersonsByIDs(ctx context.Context, ids []int64) ([]domain.Person, error) {
	out := []domain.Person{}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, id := range dedupeIDs(ids) {
			if p, ok := view.FindPerson(id); ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

// GetStudyGroupsByIDs returns the groups matching ids, skipping missing ones.
func (s *Service) GetStudyGroupsByIDs(ctx context.Context, ids []int64) ([]domain.StudyGroup, error) {
	out := []domain.StudyGroup{}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, id := range dedupeIDs(ids) {
			if g, ok := view.FindStudyGroup(id); ok {
				out = append(out, g)
			}
		}
		return nil
	})
	return out, err
}

// UpdateCoordinatesMany applies the same partial update to every id. All ids
// must exist; nothing is persisted when any of them fails.
func (s *Service) UpdateCoordinatesMany(ctx context.Context, ids []int64, update CoordinatesUpdate) ([]domain.Coordinates, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []domain.Coordinates{}, nil
	}
	updated := make([]domain.Coordinates, 0, len(ids))
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		updated = updated[:0]
		if err := requireAllPresent(domain.EntityCoordinates, ids, func(id int64) bool {
			_, ok := tx.FindCoordinates(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			c, err := updateCoordinatesTx(tx, id, update)
			if err != nil {
				return err
			}
			updated = append(updated, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("coordinates batch updated", "count", len(updated))
	return updated, nil
}

// UpdateLocationsMany applies the same partial update to every id.
func (s *Service) UpdateLocationsMany(ctx context.Context, ids []int64, update LocationUpdate) ([]domain.Location, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []domain.Location{}, nil
	}
	updated := make([]domain.Location, 0, len(ids))
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		updated = updated[:0]
		if err := requireAllPresent(domain.EntityLocation, ids, func(id int64) bool {
			_, ok := tx.FindLocation(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			l, err := updateLocationTx(tx, id, update)
			if err != nil {
				return err
			}
			updated = append(updated, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("locations batch updated", "count", len(updated))
	return updated, nil
}

// UpdatePersonsMany applies the same partial update to every id.
func (s *Service) UpdatePersonsMany(ctx context.Context, ids []int64, update PersonUpdate) ([]domain.Person, error) {
	if err := validatePersonUpdate(update); err != nil {
		return nil, err
	}
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []domain.Person{}, nil
	}
	updated := make([]domain.Person, 0, len(ids))
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		updated = updated[:0]
		if err := requireAllPresent(domain.EntityPerson, ids, func(id int64) bool {
			_, ok := tx.FindPerson(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			p, err := updatePersonTx(tx, id, update)
			if err != nil {
				return err
			}
			updated = append(updated, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("persons batch updated", "count", len(updated))
	return updated, nil
}

// UpdateStudyGroupsMany applies the same partial update to every id.
func (s *Service) UpdateStudyGroupsMany(ctx context.Context, ids []int64, update StudyGroupUpdate) ([]domain.StudyGroup, error) {
	if err := validateStudyGroupUpdate(update); err != nil {
		return nil, err
	}
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return []domain.StudyGroup{}, nil
	}
	updated := make([]domain.StudyGroup, 0, len(ids))
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		updated = updated[:0]
		if err := requireAllPresent(domain.EntityStudyGroup, ids, func(id int64) bool {
			_, ok := tx.FindStudyGroup(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			g, err := updateStudyGroupTx(tx, id, update)
			if err != nil {
				return err
			}
			updated = append(updated, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("study groups batch updated", "count", len(updated))
	return updated, nil
}

// DeleteCoordinatesMany removes every id in one transaction. All ids must
// exist, and a row still referenced by a study group blocks the whole batch.
func (s *Service) DeleteCoordinatesMany(ctx context.Context, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		if err := requireAllPresent(domain.EntityCoordinates, ids, func(id int64) bool {
			_, ok := tx.FindCoordinates(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			if refs := coordinatesReferences(tx, id); len(refs) > 0 {
				return &domain.ReferencedEntityError{
					Entity:         domain.EntityCoordinates,
					ID:             id,
					Referencing:    domain.EntityStudyGroup,
					ReferencingIDs: refs,
				}
			}
			if err := tx.DeleteCoordinates(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Info("coordinates batch deleted", "count", len(ids))
	}
	return err
}

// DeleteLocationsMany removes every id in one transaction, refusing rows
// still referenced by persons.
func (s *Service) DeleteLocationsMany(ctx context.Context, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		if err := requireAllPresent(domain.EntityLocation, ids, func(id int64) bool {
			_, ok := tx.FindLocation(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			if refs := locationReferences(tx, id); len(refs) > 0 {
				return &domain.ReferencedEntityError{
					Entity:         domain.EntityLocation,
					ID:             id,
					Referencing:    domain.EntityPerson,
					ReferencingIDs: refs,
				}
			}
			if err := tx.DeleteLocation(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Info("locations batch deleted", "count", len(ids))
	}
	return err
}

// DeletePersonsMany removes every id in one transaction, refusing persons
// still administering a study group.
func (s *Service) DeletePersonsMany(ctx context.Context, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		if err := requireAllPresent(domain.EntityPerson, ids, func(id int64) bool {
			_, ok := tx.FindPerson(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			if refs := personReferences(tx, id); len(refs) > 0 {
				return &domain.ReferencedEntityError{
					Entity:         domain.EntityPerson,
					ID:             id,
					Referencing:    domain.EntityStudyGroup,
					ReferencingIDs: refs,
				}
			}
			if err := tx.DeletePerson(id); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Info("persons batch deleted", "count", len(ids))
	}
	return err
}

// DeleteStudyGroupsMany removes every id in one transaction, sweeping
// coordinates rows orphaned along the way.
func (s *Service) DeleteStudyGroupsMany(ctx context.Context, ids []int64) error {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		if err := requireAllPresent(domain.EntityStudyGroup, ids, func(id int64) bool {
			_, ok := tx.FindStudyGroup(id)
			return ok
		}); err != nil {
			return err
		}
		for _, id := range ids {
			g, ok := tx.FindStudyGroup(id)
			if !ok {
				return domain.NewNotFound(domain.EntityStudyGroup, id)
			}
			if err := tx.DeleteStudyGroup(id); err != nil {
				return err
			}
			if err := cleanupOrphanCoordinates(tx, g.CoordinatesID); err != nil {
				return err
			}
		}
		return nil
	})
	if err == nil {
		s.logger.Info("study groups batch deleted", "count", len(ids))
	}
	return err
}
