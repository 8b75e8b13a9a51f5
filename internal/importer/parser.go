package importer

import (
	"io"

	"gopkg.in/yaml.v3"

	"campuscore/internal/core"
	"campuscore/pkg/domain"
)

// importFile is the YAML document shape accepted by the runner.
type importFile struct {
	Groups []groupRecord `yaml:"groups"`
}

type groupRecord struct {
	Name                string                  `yaml:"name"`
	CoordinatesID       *int64                  `yaml:"coordinatesId"`
	Coordinates         *coordinatesRecord      `yaml:"coordinates"`
	StudentsCount       *int64                  `yaml:"studentsCount"`
	ExpelledStudents    int64                   `yaml:"expelledStudents"`
	TransferredStudents int64                   `yaml:"transferredStudents"`
	FormOfEducation     *domain.FormOfEducation `yaml:"formOfEducation"`
	Course              int32                   `yaml:"course"`
	ShouldBeExpelled    int64                   `yaml:"shouldBeExpelled"`
	AverageMark         *int32                  `yaml:"averageMark"`
	Semester            domain.Semester         `yaml:"semesterEnum"`
	GroupAdminID        *int64                  `yaml:"groupAdminId"`
	GroupAdmin          *personRecord           `yaml:"groupAdmin"`
}

type coordinatesRecord struct {
	X int64   `yaml:"x"`
	Y float32 `yaml:"y"`
}

type personRecord struct {
	Name        string          `yaml:"name"`
	EyeColor    *domain.Color   `yaml:"eyeColor"`
	HairColor   domain.Color    `yaml:"hairColor"`
	LocationID  *int64          `yaml:"locationId"`
	Location    *locationRecord `yaml:"location"`
	Height      int64           `yaml:"height"`
	Weight      float32         `yaml:"weight"`
	Nationality *domain.Country `yaml:"nationality"`
}

type locationRecord struct {
	Name string  `yaml:"name"`
	X    int32   `yaml:"x"`
	Y    float64 `yaml:"y"`
	Z    float64 `yaml:"z"`
}

// parseStudyGroups decodes a YAML upload into study group inputs. Structural
// problems come back as ImportParseError; an upload with no groups is an
// ImportValidationError.
func parseStudyGroups(r io.Reader) ([]core.StudyGroupInput, error) {
	var file importFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, &domain.ImportParseError{Err: err}
	}
	if len(file.Groups) == 0 {
		return nil, &domain.ImportValidationError{Index: -1, Message: "file contains no groups"}
	}
	inputs := make([]core.StudyGroupInput, 0, len(file.Groups))
	for _, rec := range file.Groups {
		inputs = append(inputs, rec.toInput())
	}
	return inputs, nil
}

func (rec groupRecord) toInput() core.StudyGroupInput {
	in := core.StudyGroupInput{
		Name:                rec.Name,
		StudentsCount:       rec.StudentsCount,
		ExpelledStudents:    rec.ExpelledStudents,
		TransferredStudents: rec.TransferredStudents,
		FormOfEducation:     rec.FormOfEducation,
		Course:              rec.Course,
		ShouldBeExpelled:    rec.ShouldBeExpelled,
		AverageMark:         rec.AverageMark,
		Semester:            rec.Semester,
	}
	in.Coordinates = core.CoordinatesSelector{ExistingID: rec.CoordinatesID}
	if rec.Coordinates != nil {
		in.Coordinates.New = &core.CoordinatesInput{X: rec.Coordinates.X, Y: rec.Coordinates.Y}
	}
	if rec.GroupAdminID != nil || rec.GroupAdmin != nil {
		sel := &core.PersonSelector{ExistingID: rec.GroupAdminID}
		if rec.GroupAdmin != nil {
			sel.New = rec.GroupAdmin.toInput()
		}
		in.GroupAdmin = sel
	}
	return in
}

func (rec personRecord) toInput() *core.PersonInput {
	in := &core.PersonInput{
		Name:        rec.Name,
		EyeColor:    rec.EyeColor,
		HairColor:   rec.HairColor,
		Height:      rec.Height,
		Weight:      rec.Weight,
		Nationality: rec.Nationality,
	}
	if rec.LocationID != nil || rec.Location != nil {
		sel := &core.LocationSelector{ExistingID: rec.LocationID}
		if rec.Location != nil {
			sel.New = &core.LocationInput{Name: rec.Location.Name, X: rec.Location.X, Y: rec.Location.Y, Z: rec.Location.Z}
		}
		in.Location = sel
	}
	return in
}
