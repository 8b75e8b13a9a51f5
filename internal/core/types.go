package core

import (
	"strings"

	"campuscore/pkg/domain"
)

// CoordinatesInput carries the writable fields of a coordinates row.
type CoordinatesInput struct {
	X int64
	Y float32
}

// LocationInput carries the writable fields of a location row.
type LocationInput struct {
	Name string
	X    int32
	Y    float64
	Z    float64
}

// PersonInput carries the writable fields of a person row. Location picks an
// existing row or creates one inline; nil means no location.
type PersonInput struct {
	Name        string
	EyeColor    *domain.Color
	HairColor   domain.Color
	Location    *LocationSelector
	Height      int64
	Weight      float32
	Nationality *domain.Country
}

// StudyGroupInput carries the writable fields of a study group. Name may be
// left empty when FormOfEducation is set, in which case the service generates
// one from the form prefix, course, and a per-(form, course) sequence.
type StudyGroupInput struct {
	Name                string
	Coordinates         CoordinatesSelector
	StudentsCount       *int64
	ExpelledStudents    int64
	TransferredStudents int64
	FormOfEducation     *domain.FormOfEducation
	Course              int32
	ShouldBeExpelled    int64
	AverageMark         *int32
	Semester            domain.Semester
	GroupAdmin          *PersonSelector
}

// CoordinatesSelector picks an existing coordinates row by id or describes a
// new one to create inline. Exactly one side must be set.
type CoordinatesSelector struct {
	ExistingID *int64
	New        *CoordinatesInput
}

// LocationSelector picks an existing location row or an inline new one.
type LocationSelector struct {
	ExistingID *int64
	New        *LocationInput
}

// PersonSelector picks an existing person row or an inline new one.
type PersonSelector struct {
	ExistingID *int64
	New        *PersonInput
}

// CoordinatesUpdate describes a partial update. Nil fields stay unchanged.
type CoordinatesUpdate struct {
	X *int64
	Y *float32
}

// LocationUpdate describes a partial update. Nil fields stay unchanged.
type LocationUpdate struct {
	Name *string
	X    *int32
	Y    *float64
	Z    *float64
}

// PersonUpdate describes a partial update. Nil fields stay unchanged; the
// paired Clear flags null optional fields out. Setting and clearing the same
// field in one request is rejected.
type PersonUpdate struct {
	Name             *string
	EyeColor         *domain.Color
	ClearEyeColor    bool
	HairColor        *domain.Color
	Location         *LocationSelector
	ClearLocation    bool
	Height           *int64
	Weight           *float32
	Nationality      *domain.Country
	ClearNationality bool
}

// StudyGroupUpdate describes a partial update with the same tri-state
// semantics as PersonUpdate.
type StudyGroupUpdate struct {
	Name                 *string
	Coordinates          *CoordinatesSelector
	StudentsCount        *int64
	ClearStudentsCount   bool
	ExpelledStudents     *int64
	TransferredStudents  *int64
	FormOfEducation      *domain.FormOfEducation
	ClearFormOfEducation bool
	Course               *int32
	ShouldBeExpelled     *int64
	AverageMark          *int32
	ClearAverageMark     bool
	Semester             *domain.Semester
	GroupAdmin           *PersonSelector
	RemoveGroupAdmin     bool
}

func validateCoordinatesInput(in CoordinatesInput) error {
	// X and Y carry no bound constraints; uniqueness of the pair is
	// enforced transactionally at write time.
	return nil
}

func validateLocationInput(in LocationInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidation("name", "must not be blank")
	}
	return nil
}

func validatePersonInput(in PersonInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return domain.NewValidation("name", "must not be blank")
	}
	if !in.HairColor.Valid() {
		return domain.NewValidation("hairColor", "unknown color %q", in.HairColor)
	}
	if in.EyeColor != nil && !in.EyeColor.Valid() {
		return domain.NewValidation("eyeColor", "unknown color %q", *in.EyeColor)
	}
	if in.Nationality != nil && !in.Nationality.Valid() {
		return domain.NewValidation("nationality", "unknown country %q", *in.Nationality)
	}
	if in.Height <= 0 {
		return domain.NewValidation("height", "must be positive")
	}
	if in.Weight <= 0 {
		return domain.NewValidation("weight", "must be positive")
	}
	if in.Location != nil {
		if err := validateSelector("location", in.Location.ExistingID, in.Location.New); err != nil {
			return err
		}
		if in.Location.New != nil {
			return validateLocationInput(*in.Location.New)
		}
	}
	return nil
}

func validateStudyGroupInput(in StudyGroupInput) error {
	if err := validateSelector("coordinates", in.Coordinates.ExistingID, in.Coordinates.New); err != nil {
		return err
	}
	if in.Coordinates.New != nil {
		if err := validateCoordinatesInput(*in.Coordinates.New); err != nil {
			return err
		}
	}
	if in.StudentsCount != nil && *in.StudentsCount <= 0 {
		return domain.NewValidation("studentsCount", "must be positive")
	}
	if in.ExpelledStudents <= 0 {
		return domain.NewValidation("expelledStudents", "must be positive")
	}
	if in.TransferredStudents <= 0 {
		return domain.NewValidation("transferredStudents", "must be positive")
	}
	if in.FormOfEducation != nil && !in.FormOfEducation.Valid() {
		return domain.NewValidation("formOfEducation", "unknown form %q", *in.FormOfEducation)
	}
	if in.Course < 1 {
		return domain.NewValidation("course", "must be at least 1")
	}
	if in.ShouldBeExpelled <= 0 {
		return domain.NewValidation("shouldBeExpelled", "must be positive")
	}
	if in.AverageMark != nil && *in.AverageMark <= 0 {
		return domain.NewValidation("averageMark", "must be positive")
	}
	if !in.Semester.Valid() {
		return domain.NewValidation("semesterEnum", "unknown semester %q", in.Semester)
	}
	if strings.TrimSpace(in.Name) == "" && in.FormOfEducation == nil {
		return domain.NewValidation("name", "must be set when formOfEducation is absent")
	}
	if in.GroupAdmin != nil {
		if err := validateSelector("groupAdmin", in.GroupAdmin.ExistingID, in.GroupAdmin.New); err != nil {
			return err
		}
		if in.GroupAdmin.New != nil {
			return validatePersonInput(*in.GroupAdmin.New)
		}
	}
	return nil
}

func validateSelector[T any](field string, existing *int64, inline *T) error {
	if existing == nil && inline == nil {
		return domain.NewValidation(field, "either an existing id or an inline value is required")
	}
	if existing != nil && inline != nil {
		return domain.NewValidation(field, "existing id and inline value are mutually exclusive")
	}
	return nil
}

// Per-form student count bounds. The minimum applies on create only, the
// maximum on every write that leaves both fields set.
var (
	minStudentsByForm = map[domain.FormOfEducation]int64{
		domain.FormDistance: 20,
		domain.FormEvening:  6,
		domain.FormFullTime: 10,
	}
	maxStudentsByForm = map[domain.FormOfEducation]int64{
		domain.FormDistance: 100,
		domain.FormEvening:  25,
		domain.FormFullTime: 30,
	}
)

func validateStudentsBounds(form *domain.FormOfEducation, count *int64, create bool) error {
	if form == nil || count == nil {
		return nil
	}
	if max, ok := maxStudentsByForm[*form]; ok && *count > max {
		return domain.NewValidation("studentsCount", "must not exceed %d for %s", max, *form)
	}
	if !create {
		return nil
	}
	if min, ok := minStudentsByForm[*form]; ok && *count < min {
		return domain.NewValidation("studentsCount", "must be at least %d for %s", min, *form)
	}
	return nil
}
