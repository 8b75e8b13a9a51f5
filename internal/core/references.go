package core

import (
	"context"

	"campuscore/pkg/domain"
)

// ReferenceReport describes who still points at an entity.
type ReferenceReport struct {
	Entity         domain.EntityType `json:"entity"`
	ID             int64             `json:"id"`
	Referencing    domain.EntityType `json:"referencing"`
	ReferencingIDs []int64           `json:"referencingIds"`
}

// CheckReferences reports the entities referencing the given row without
// mutating anything. Only entity types that can be referenced are accepted.
func (s *Service) CheckReferences(ctx context.Context, entity domain.EntityType, id int64) (ReferenceReport, error) {
	report := ReferenceReport{Entity: entity, ID: id}
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		switch entity {
		case domain.EntityCoordinates:
			if _, ok := view.FindCoordinates(id); !ok {
				return domain.NewNotFound(domain.EntityCoordinates, id)
			}
			report.Referencing = domain.EntityStudyGroup
			report.ReferencingIDs = coordinatesReferences(view, id)
		case domain.EntityPerson:
			if _, ok := view.FindPerson(id); !ok {
				return domain.NewNotFound(domain.EntityPerson, id)
			}
			report.Referencing = domain.EntityStudyGroup
			report.ReferencingIDs = personReferences(view, id)
		case domain.EntityLocation:
			if _, ok := view.FindLocation(id); !ok {
				return domain.NewNotFound(domain.EntityLocation, id)
			}
			report.Referencing = domain.EntityPerson
			report.ReferencingIDs = locationReferences(view, id)
		default:
			return domain.NewValidation("entity", "%q cannot be referenced", entity)
		}
		return nil
	})
	if err != nil {
		return ReferenceReport{}, err
	}
	if report.ReferencingIDs == nil {
		report.ReferencingIDs = []int64{}
	}
	return report, nil
}
