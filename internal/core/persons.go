package core

import (
	"context"
	"strings"

	"campuscore/pkg/domain"
)

var personSortFields = map[string]comparator[domain.Person]{
	"id":     func(a, b domain.Person) int { return compareInt64(a.ID, b.ID) },
	"name":   func(a, b domain.Person) int { return compareString(a.Name, b.Name) },
	"height": func(a, b domain.Person) int { return compareInt64(a.Height, b.Height) },
	"weight": func(a, b domain.Person) int { return compareFloat64(float64(a.Weight), float64(b.Weight)) },
	"hairColor": func(a, b domain.Person) int {
		return compareString(string(a.HairColor), string(b.HairColor))
	},
	"eyeColor": func(a, b domain.Person) int {
		return comparePtr(a.EyeColor, b.EyeColor, func(x, y domain.Color) int { return compareString(string(x), string(y)) })
	},
	"nationality": func(a, b domain.Person) int {
		return comparePtr(a.Nationality, b.Nationality, func(x, y domain.Country) int { return compareString(string(x), string(y)) })
	},
	"createdAt": func(a, b domain.Person) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	},
}

// CreatePerson persists a new person row, creating an inline location first
// when the selector carries one.
func (s *Service) CreatePerson(ctx context.Context, in PersonInput) (domain.Person, error) {
	if err := validatePersonInput(in); err != nil {
		return domain.Person{}, err
	}
	var created domain.Person
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = createPersonTx(tx, in)
		return err
	})
	if err != nil {
		return domain.Person{}, err
	}
	s.logger.Info("person created", "id", created.ID, "name", created.Name)
	return created, nil
}

// createPersonTx inserts a person row inside an open transaction, resolving
// the location selector first.
func createPersonTx(tx domain.Transaction, in PersonInput) (domain.Person, error) {
	person := domain.Person{
		Name:        in.Name,
		EyeColor:    in.EyeColor,
		HairColor:   in.HairColor,
		Height:      in.Height,
		Weight:      in.Weight,
		Nationality: in.Nationality,
	}
	if in.Location != nil {
		locationID, err := resolveLocation(tx, *in.Location)
		if err != nil {
			return domain.Person{}, err
		}
		person.LocationID = &locationID
	}
	return tx.CreatePerson(person)
}

func resolveLocation(tx domain.Transaction, sel LocationSelector) (int64, error) {
	if sel.ExistingID != nil {
		if _, ok := tx.FindLocation(*sel.ExistingID); !ok {
			return 0, domain.NewNotFound(domain.EntityLocation, *sel.ExistingID)
		}
		return *sel.ExistingID, nil
	}
	created, err := tx.CreateLocation(domain.Location{Name: sel.New.Name, X: sel.New.X, Y: sel.New.Y, Z: sel.New.Z})
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// GetPerson fetches a person row by id.
func (s *Service) GetPerson(ctx context.Context, id int64) (domain.Person, error) {
	var out domain.Person
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		p, ok := view.FindPerson(id)
		if !ok {
			return domain.NewNotFound(domain.EntityPerson, id)
		}
		out = p
		return nil
	})
	return out, err
}

// ListPersons returns a deterministic page of person rows.
func (s *Service) ListPersons(ctx context.Context, req PageRequest) (Page[domain.Person], error) {
	var items []domain.Person
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		items = view.ListPersons()
		return nil
	}); err != nil {
		return Page[domain.Person]{}, err
	}
	return listPage(domain.EntityPerson, items, req, personSortFields, func(p domain.Person) int64 { return p.ID })
}

// UpdatePerson applies a partial update with tri-state semantics for the
// nullable fields.
func (s *Service) UpdatePerson(ctx context.Context, id int64, update PersonUpdate) (domain.Person, error) {
	if err := validatePersonUpdate(update); err != nil {
		return domain.Person{}, err
	}
	var updated domain.Person
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = updatePersonTx(tx, id, update)
		return err
	})
	return updated, err
}

// validatePersonUpdate rejects set-and-clear conflicts before any
// transaction is opened.
func validatePersonUpdate(update PersonUpdate) error {
	if update.EyeColor != nil && update.ClearEyeColor {
		return domain.NewValidation("eyeColor", "cannot set and clear in the same request")
	}
	if update.Location != nil && update.ClearLocation {
		return domain.NewValidation("location", "cannot set and clear in the same request")
	}
	if update.Nationality != nil && update.ClearNationality {
		return domain.NewValidation("nationality", "cannot set and clear in the same request")
	}
	return nil
}

// updatePersonTx applies the partial update inside an open transaction.
func updatePersonTx(tx domain.Transaction, id int64, update PersonUpdate) (domain.Person, error) {
	return tx.UpdatePerson(id, func(p *domain.Person) error {
		if update.Name != nil {
			if strings.TrimSpace(*update.Name) == "" {
				return domain.NewValidation("name", "must not be blank")
			}
			p.Name = *update.Name
		}
		if update.HairColor != nil {
			if !update.HairColor.Valid() {
				return domain.NewValidation("hairColor", "unknown color %q", *update.HairColor)
			}
			p.HairColor = *update.HairColor
		}
		if update.EyeColor != nil {
			if !update.EyeColor.Valid() {
				return domain.NewValidation("eyeColor", "unknown color %q", *update.EyeColor)
			}
			p.EyeColor = update.EyeColor
		}
		if update.ClearEyeColor {
			p.EyeColor = nil
		}
		if update.Nationality != nil {
			if !update.Nationality.Valid() {
				return domain.NewValidation("nationality", "unknown country %q", *update.Nationality)
			}
			p.Nationality = update.Nationality
		}
		if update.ClearNationality {
			p.Nationality = nil
		}
		if update.Height != nil {
			if *update.Height <= 0 {
				return domain.NewValidation("height", "must be positive")
			}
			p.Height = *update.Height
		}
		if update.Weight != nil {
			if *update.Weight <= 0 {
				return domain.NewValidation("weight", "must be positive")
			}
			p.Weight = *update.Weight
		}
		if update.Location != nil {
			if err := validateSelector("location", update.Location.ExistingID, update.Location.New); err != nil {
				return err
			}
			if update.Location.New != nil {
				if err := validateLocationInput(*update.Location.New); err != nil {
					return err
				}
			}
			locationID, err := resolveLocation(tx, *update.Location)
			if err != nil {
				return err
			}
			p.LocationID = &locationID
		}
		if update.ClearLocation {
			p.LocationID = nil
		}
		return nil
	})
}

// DeletePerson removes a person row, re-pointing study groups that name the
// person as admin at the replacement when one is supplied.
func (s *Service) DeletePerson(ctx context.Context, id int64, replacement *int64) error {
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		if _, ok := tx.FindPerson(id); !ok {
			return domain.NewNotFound(domain.EntityPerson, id)
		}
		refs := personReferences(tx, id)
		if replacement == nil {
			if len(refs) > 0 {
				return &domain.ReferencedEntityError{
					Entity:         domain.EntityPerson,
					ID:             id,
					Referencing:    domain.EntityStudyGroup,
					ReferencingIDs: refs,
				}
			}
			return tx.DeletePerson(id)
		}
		if *replacement == id {
			return &domain.InvalidReplacementError{Message: "replacement must differ from the id being deleted"}
		}
		if _, ok := tx.FindPerson(*replacement); !ok {
			return domain.NewNotFound(domain.EntityPerson, *replacement)
		}
		if adminInUse(tx, *replacement, 0) {
			return &domain.InvalidReplacementError{Message: "replacement person already administers a study group"}
		}
		for _, groupID := range refs {
			if _, err := tx.UpdateStudyGroup(groupID, func(g *domain.StudyGroup) error {
				target := *replacement
				g.GroupAdminID = &target
				return nil
			}); err != nil {
				return err
			}
		}
		return tx.DeletePerson(id)
	})
	if err == nil {
		s.logger.Info("person deleted", "id", id)
	}
	return err
}

// personReferences lists the study groups administered by the person.
func personReferences(view domain.TransactionView, id int64) []int64 {
	var refs []int64
	for _, g := range view.ListStudyGroups() {
		if g.GroupAdminID != nil && *g.GroupAdminID == id {
			refs = append(refs, g.ID)
		}
	}
	return refs
}
