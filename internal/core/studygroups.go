package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"campuscore/pkg/domain"
)

var studyGroupSortFields = map[string]comparator[domain.StudyGroup]{
	"id":   func(a, b domain.StudyGroup) int { return compareInt64(a.ID, b.ID) },
	"name": func(a, b domain.StudyGroup) int { return compareString(a.Name, b.Name) },
	"creationDate": func(a, b domain.StudyGroup) int {
		return a.CreationDate.Compare(b.CreationDate)
	},
	"studentsCount": func(a, b domain.StudyGroup) int {
		return comparePtr(a.StudentsCount, b.StudentsCount, compareInt64)
	},
	"expelledStudents": func(a, b domain.StudyGroup) int {
		return compareInt64(a.ExpelledStudents, b.ExpelledStudents)
	},
	"transferredStudents": func(a, b domain.StudyGroup) int {
		return compareInt64(a.TransferredStudents, b.TransferredStudents)
	},
	"formOfEducation": func(a, b domain.StudyGroup) int {
		return comparePtr(a.FormOfEducation, b.FormOfEducation, func(x, y domain.FormOfEducation) int {
			return compareString(string(x), string(y))
		})
	},
	"course": func(a, b domain.StudyGroup) int { return compareInt32(a.Course, b.Course) },
	"shouldBeExpelled": func(a, b domain.StudyGroup) int {
		return compareInt64(a.ShouldBeExpelled, b.ShouldBeExpelled)
	},
	"averageMark": func(a, b domain.StudyGroup) int {
		return comparePtr(a.AverageMark, b.AverageMark, compareInt32)
	},
	"semesterEnum": func(a, b domain.StudyGroup) int {
		return compareString(string(a.Semester), string(b.Semester))
	},
}

// Name prefixes by education form for generated group names.
var formPrefixes = map[domain.FormOfEducation]string{
	domain.FormDistance: "DE",
	domain.FormFullTime: "FTE",
	domain.FormEvening:  "EV",
}

// CreateStudyGroup persists a new study group, resolving coordinates and
// admin selectors and generating a name when none is given.
func (s *Service) CreateStudyGroup(ctx context.Context, in StudyGroupInput) (domain.StudyGroup, error) {
	if err := validateStudyGroupInput(in); err != nil {
		return domain.StudyGroup{}, err
	}
	var created domain.StudyGroup
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		created, err = createStudyGroupTx(tx, in)
		return err
	})
	if err != nil {
		return domain.StudyGroup{}, err
	}
	s.logger.Info("study group created", "id", created.ID, "name", created.Name)
	return created, nil
}

// createStudyGroupTx inserts a study group inside an open transaction. Input
// must already be validated.
func createStudyGroupTx(tx domain.Transaction, in StudyGroupInput) (domain.StudyGroup, error) {
	if err := validateStudentsBounds(in.FormOfEducation, in.StudentsCount, true); err != nil {
		return domain.StudyGroup{}, err
	}
	coordinatesID, err := resolveCoordinates(tx, in.Coordinates)
	if err != nil {
		return domain.StudyGroup{}, err
	}
	group := domain.StudyGroup{
		Name:                in.Name,
		CoordinatesID:       coordinatesID,
		StudentsCount:       in.StudentsCount,
		ExpelledStudents:    in.ExpelledStudents,
		TransferredStudents: in.TransferredStudents,
		FormOfEducation:     in.FormOfEducation,
		Course:              in.Course,
		ShouldBeExpelled:    in.ShouldBeExpelled,
		AverageMark:         in.AverageMark,
		Semester:            in.Semester,
	}
	if strings.TrimSpace(in.Name) == "" {
		group.Name, group.SequenceNumber = generateGroupName(tx, *in.FormOfEducation, in.Course)
	}
	if in.GroupAdmin != nil {
		adminID, err := resolveGroupAdmin(tx, *in.GroupAdmin)
		if err != nil {
			return domain.StudyGroup{}, err
		}
		if adminInUse(tx, adminID, 0) {
			return domain.StudyGroup{}, domain.NewValidation("groupAdmin", "person %d already administers another group", adminID)
		}
		group.GroupAdminID = &adminID
	}
	return tx.CreateStudyGroup(group)
}

func resolveCoordinates(tx domain.Transaction, sel CoordinatesSelector) (int64, error) {
	if sel.ExistingID != nil {
		if _, ok := tx.FindCoordinates(*sel.ExistingID); !ok {
			return 0, domain.NewNotFound(domain.EntityCoordinates, *sel.ExistingID)
		}
		return *sel.ExistingID, nil
	}
	created, err := createCoordinatesTx(tx, *sel.New)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func resolveGroupAdmin(tx domain.Transaction, sel PersonSelector) (int64, error) {
	if sel.ExistingID != nil {
		if _, ok := tx.FindPerson(*sel.ExistingID); !ok {
			return 0, domain.NewNotFound(domain.EntityPerson, *sel.ExistingID)
		}
		return *sel.ExistingID, nil
	}
	created, err := createPersonTx(tx, *sel.New)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

// generateGroupName builds a name of the form PREFIX-COURSE-NN where NN is
// one past the highest sequence number among groups sharing the same form
// and course.
func generateGroupName(view domain.TransactionView, form domain.FormOfEducation, course int32) (string, int32) {
	var max int32
	for _, g := range view.ListStudyGroups() {
		if g.FormOfEducation == nil || *g.FormOfEducation != form || g.Course != course {
			continue
		}
		if g.SequenceNumber > max {
			max = g.SequenceNumber
		}
	}
	seq := max + 1
	return fmt.Sprintf("%s-%d-%02d", formPrefixes[form], course, seq), seq
}

// adminInUse reports whether the person administers any group other than
// excludeGroup.
func adminInUse(view domain.TransactionView, personID, excludeGroup int64) bool {
	for _, g := range view.ListStudyGroups() {
		if g.ID == excludeGroup {
			continue
		}
		if g.GroupAdminID != nil && *g.GroupAdminID == personID {
			return true
		}
	}
	return false
}

// GetStudyGroup fetches a study group by id.
func (s *Service) GetStudyGroup(ctx context.Context, id int64) (domain.StudyGroup, error) {
	var out domain.StudyGroup
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		g, ok := view.FindStudyGroup(id)
		if !ok {
			return domain.NewNotFound(domain.EntityStudyGroup, id)
		}
		out = g
		return nil
	})
	return out, err
}

// ListStudyGroups returns a deterministic page of study groups.
func (s *Service) ListStudyGroups(ctx context.Context, req PageRequest) (Page[domain.StudyGroup], error) {
	var items []domain.StudyGroup
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		items = view.ListStudyGroups()
		return nil
	}); err != nil {
		return Page[domain.StudyGroup]{}, err
	}
	return listPage(domain.EntityStudyGroup, items, req, studyGroupSortFields, func(g domain.StudyGroup) int64 { return g.ID })
}

// UpdateStudyGroup applies a partial update. A generated name is rebuilt when
// the form or course changes; setting an explicit name turns generation off
// for the group.
func (s *Service) UpdateStudyGroup(ctx context.Context, id int64, update StudyGroupUpdate) (domain.StudyGroup, error) {
	if err := validateStudyGroupUpdate(update); err != nil {
		return domain.StudyGroup{}, err
	}
	var updated domain.StudyGroup
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		var err error
		updated, err = updateStudyGroupTx(tx, id, update)
		return err
	})
	return updated, err
}

// validateStudyGroupUpdate rejects set-and-clear conflicts before any
// transaction is opened.
func validateStudyGroupUpdate(update StudyGroupUpdate) error {
	if update.StudentsCount != nil && update.ClearStudentsCount {
		return domain.NewValidation("studentsCount", "cannot set and clear in the same request")
	}
	if update.FormOfEducation != nil && update.ClearFormOfEducation {
		return domain.NewValidation("formOfEducation", "cannot set and clear in the same request")
	}
	if update.AverageMark != nil && update.ClearAverageMark {
		return domain.NewValidation("averageMark", "cannot set and clear in the same request")
	}
	if update.GroupAdmin != nil && update.RemoveGroupAdmin {
		return domain.NewValidation("groupAdmin", "cannot set and remove in the same request")
	}
	return nil
}

// updateStudyGroupTx applies the partial update inside an open transaction.
func updateStudyGroupTx(tx domain.Transaction, id int64, update StudyGroupUpdate) (domain.StudyGroup, error) {
	return tx.UpdateStudyGroup(id, func(g *domain.StudyGroup) error {
		if update.Name != nil {
			if strings.TrimSpace(*update.Name) == "" {
				return domain.NewValidation("name", "must not be blank")
			}
			g.Name = *update.Name
			g.SequenceNumber = 0
		}
		if update.Coordinates != nil {
			if err := validateSelector("coordinates", update.Coordinates.ExistingID, update.Coordinates.New); err != nil {
				return err
			}
			coordinatesID, err := resolveCoordinates(tx, *update.Coordinates)
			if err != nil {
				return err
			}
			g.CoordinatesID = coordinatesID
		}
		if update.StudentsCount != nil {
			if *update.StudentsCount <= 0 {
				return domain.NewValidation("studentsCount", "must be positive")
			}
			g.StudentsCount = update.StudentsCount
		}
		if update.ClearStudentsCount {
			g.StudentsCount = nil
		}
		if update.ExpelledStudents != nil {
			if *update.ExpelledStudents <= 0 {
				return domain.NewValidation("expelledStudents", "must be positive")
			}
			g.ExpelledStudents = *update.ExpelledStudents
		}
		if update.TransferredStudents != nil {
			if *update.TransferredStudents <= 0 {
				return domain.NewValidation("transferredStudents", "must be positive")
			}
			g.TransferredStudents = *update.TransferredStudents
		}
		formOrCourseChanged := false
		if update.FormOfEducation != nil {
			if !update.FormOfEducation.Valid() {
				return domain.NewValidation("formOfEducation", "unknown form %q", *update.FormOfEducation)
			}
			if g.FormOfEducation == nil || *g.FormOfEducation != *update.FormOfEducation {
				formOrCourseChanged = true
			}
			g.FormOfEducation = update.FormOfEducation
		}
		if update.ClearFormOfEducation {
			if g.SequenceNumber > 0 {
				return domain.NewValidation("formOfEducation", "cannot be cleared while the name is generated; set a name in the same request")
			}
			g.FormOfEducation = nil
		}
		if update.Course != nil {
			if *update.Course < 1 {
				return domain.NewValidation("course", "must be at least 1")
			}
			if g.Course != *update.Course {
				formOrCourseChanged = true
			}
			g.Course = *update.Course
		}
		if update.ShouldBeExpelled != nil {
			if *update.ShouldBeExpelled <= 0 {
				return domain.NewValidation("shouldBeExpelled", "must be positive")
			}
			g.ShouldBeExpelled = *update.ShouldBeExpelled
		}
		if update.AverageMark != nil {
			if *update.AverageMark <= 0 {
				return domain.NewValidation("averageMark", "must be positive")
			}
			g.AverageMark = update.AverageMark
		}
		if update.ClearAverageMark {
			g.AverageMark = nil
		}
		if update.Semester != nil {
			if !update.Semester.Valid() {
				return domain.NewValidation("semesterEnum", "unknown semester %q", *update.Semester)
			}
			g.Semester = *update.Semester
		}
		if update.GroupAdmin != nil {
			if err := validateSelector("groupAdmin", update.GroupAdmin.ExistingID, update.GroupAdmin.New); err != nil {
				return err
			}
			if update.GroupAdmin.New != nil {
				if err := validatePersonInput(*update.GroupAdmin.New); err != nil {
					return err
				}
			}
			adminID, err := resolveGroupAdmin(tx, *update.GroupAdmin)
			if err != nil {
				return err
			}
			if adminInUse(tx, adminID, id) {
				return domain.NewValidation("groupAdmin", "person %d already administers another group", adminID)
			}
			g.GroupAdminID = &adminID
		}
		if update.RemoveGroupAdmin {
			g.GroupAdminID = nil
		}
		if formOrCourseChanged && g.SequenceNumber > 0 {
			g.Name, g.SequenceNumber = generateGroupName(tx, *g.FormOfEducation, g.Course)
		}
		return validateStudentsBounds(g.FormOfEducation, g.StudentsCount, false)
	})
}

// DeleteStudyGroup removes a study group. Nothing references groups, so the
// delete always proceeds; coordinates rows left without any referencing
// group are removed in the same transaction.
func (s *Service) DeleteStudyGroup(ctx context.Context, id int64) error {
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		g, ok := tx.FindStudyGroup(id)
		if !ok {
			return domain.NewNotFound(domain.EntityStudyGroup, id)
		}
		if err := tx.DeleteStudyGroup(id); err != nil {
			return err
		}
		return cleanupOrphanCoordinates(tx, g.CoordinatesID)
	})
	if err == nil {
		s.logger.Info("study group deleted", "id", id)
	}
	return err
}

// cleanupOrphanCoordinates deletes the coordinates row when no remaining
// group references it.
func cleanupOrphanCoordinates(tx domain.Transaction, coordinatesID int64) error {
	if len(coordinatesReferences(tx, coordinatesID)) > 0 {
		return nil
	}
	if _, ok := tx.FindCoordinates(coordinatesID); !ok {
		return nil
	}
	return tx.DeleteCoordinates(coordinatesID)
}

// DeleteStudyGroupsBySemester removes every group in the semester and
// returns how many were deleted. It fails with NotFoundError when the
// semester has no groups.
func (s *Service) DeleteStudyGroupsBySemester(ctx context.Context, semester domain.Semester) (int, error) {
	if !semester.Valid() {
		return 0, domain.NewValidation("semesterEnum", "unknown semester %q", semester)
	}
	var deleted int
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		deleted = 0
		matches := groupsBySemester(tx, semester)
		if len(matches) == 0 {
			return domain.NewNotFound(domain.EntityStudyGroup, string(semester))
		}
		for _, g := range matches {
			if err := tx.DeleteStudyGroup(g.ID); err != nil {
				return err
			}
			if err := cleanupOrphanCoordinates(tx, g.CoordinatesID); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("study groups deleted by semester", "semester", semester, "count", deleted)
	return deleted, nil
}

// DeleteOneStudyGroupBySemester removes the lowest-id group in the semester
// and returns it. It fails with NotFoundError when the semester has no
// groups.
func (s *Service) DeleteOneStudyGroupBySemester(ctx context.Context, semester domain.Semester) (domain.StudyGroup, error) {
	if !semester.Valid() {
		return domain.StudyGroup{}, domain.NewValidation("semesterEnum", "unknown semester %q", semester)
	}
	var removed domain.StudyGroup
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		matches := groupsBySemester(tx, semester)
		if len(matches) == 0 {
			return domain.NewNotFound(domain.EntityStudyGroup, string(semester))
		}
		removed = matches[0]
		if err := tx.DeleteStudyGroup(removed.ID); err != nil {
			return err
		}
		return cleanupOrphanCoordinates(tx, removed.CoordinatesID)
	})
	if err != nil {
		return domain.StudyGroup{}, err
	}
	s.logger.Info("study group deleted by semester", "semester", semester, "id", removed.ID)
	return removed, nil
}

// groupsBySemester returns the semester's groups, id ascending.
func groupsBySemester(view domain.TransactionView, semester domain.Semester) []domain.StudyGroup {
	var matches []domain.StudyGroup
	for _, g := range view.ListStudyGroups() {
		if g.Semester == semester {
			matches = append(matches, g)
		}
	}
	return matches
}

// ShouldBeExpelledBucket is one row of the should-be-expelled grouping.
type ShouldBeExpelledBucket struct {
	ShouldBeExpelled int64 `json:"shouldBeExpelled"`
	Count            int64 `json:"count"`
}

// StatsShouldBeExpelled groups study groups by their shouldBeExpelled value
// and counts the groups in each bucket, ascending by value.
func (s *Service) StatsShouldBeExpelled(ctx context.Context) ([]ShouldBeExpelledBucket, error) {
	counts := map[int64]int64{}
	if err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, g := range view.ListStudyGroups() {
			counts[g.ShouldBeExpelled]++
		}
		return nil
	}); err != nil {
		return nil, err
	}
	buckets := make([]ShouldBeExpelledBucket, 0, len(counts))
	for value, count := range counts {
		buckets = append(buckets, ShouldBeExpelledBucket{ShouldBeExpelled: value, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].ShouldBeExpelled < buckets[j].ShouldBeExpelled })
	return buckets, nil
}

// StatsExpelledTotal sums expelledStudents over all study groups.
func (s *Service) StatsExpelledTotal(ctx context.Context) (int64, error) {
	var total int64
	err := s.store.View(ctx, func(view domain.TransactionView) error {
		for _, g := range view.ListStudyGroups() {
			total += g.ExpelledStudents
		}
		return nil
	})
	return total, err
}

// CreateStudyGroupsBulk inserts every input in one transaction. Validation
// failures identify the offending record by index and nothing is persisted.
func (s *Service) CreateStudyGroupsBulk(ctx context.Context, inputs []StudyGroupInput) ([]domain.StudyGroup, error) {
	for i, in := range inputs {
		if err := validateStudyGroupInput(in); err != nil {
			return nil, &domain.ImportValidationError{Index: i, Message: err.Error()}
		}
	}
	created := make([]domain.StudyGroup, 0, len(inputs))
	err := s.runAndPublish(ctx, func(tx domain.Transaction) error {
		created = created[:0]
		for i, in := range inputs {
			g, err := createStudyGroupTx(tx, in)
			if err != nil {
				return &domain.ImportValidationError{Index: i, Message: err.Error()}
			}
			created = append(created, g)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("study groups bulk created", "count", len(created))
	return created, nil
}
