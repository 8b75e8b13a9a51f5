// Package domain defines the core persistent entities, enumerations, and
// persistence primitives used by campuscore.
package domain

import "time"

// EntityType identifies the type of record stored in the core domain.
// Values match the wire form used in change events.
type EntityType string

// Supported entity type identifiers used in Change records, persistence
// buckets, and change events.
const (
	// EntityCoordinates identifies a coordinates record.
	EntityCoordinates EntityType = "COORDINATES"
	// EntityLocation identifies a location record.
	EntityLocation EntityType = "LOCATION"
	// EntityPerson identifies a person record.
	EntityPerson EntityType = "PERSON"
	// EntityStudyGroup identifies a study group record.
	EntityStudyGroup EntityType = "STUDY_GROUP"
	// EntityImportJob identifies a bulk import job record.
	EntityImportJob EntityType = "IMPORT_JOB"
)

// Color enumerates supported eye and hair colors.
type Color string

// Canonical color values.
const (
	ColorBlack  Color = "BLACK"
	ColorYellow Color = "YELLOW"
	ColorOrange Color = "ORANGE"
)

// Valid reports whether the color is one of the canonical values.
func (c Color) Valid() bool {
	switch c {
	case ColorBlack, ColorYellow, ColorOrange:
		return true
	}
	return false
}

// Country enumerates supported nationalities.
type Country string

// Canonical country values.
const (
	CountryUnitedKingdom Country = "UNITED_KINGDOM"
	CountryFrance        Country = "FRANCE"
	CountryIndia         Country = "INDIA"
	CountryVatican       Country = "VATICAN"
)

// Valid reports whether the country is one of the canonical values.
func (c Country) Valid() bool {
	switch c {
	case CountryUnitedKingdom, CountryFrance, CountryIndia, CountryVatican:
		return true
	}
	return false
}

// FormOfEducation enumerates study group education forms.
type FormOfEducation string

// Canonical education forms.
const (
	FormDistance FormOfEducation = "DISTANCE_EDUCATION"
	FormFullTime FormOfEducation = "FULL_TIME_EDUCATION"
	FormEvening  FormOfEducation = "EVENING_CLASSES"
)

// Valid reports whether the form is one of the canonical values.
func (f FormOfEducation) Valid() bool {
	switch f {
	case FormDistance, FormFullTime, FormEvening:
		return true
	}
	return false
}

// Semester enumerates the semesters a study group may belong to.
type Semester string

// Canonical semester values.
const (
	SemesterFirst   Semester = "FIRST"
	SemesterSecond  Semester = "SECOND"
	SemesterFourth  Semester = "FOURTH"
	SemesterSixth   Semester = "SIXTH"
	SemesterSeventh Semester = "SEVENTH"
)

// Valid reports whether the semester is one of the canonical values.
func (s Semester) Valid() bool {
	switch s {
	case SemesterFirst, SemesterSecond, SemesterFourth, SemesterSixth, SemesterSeventh:
		return true
	}
	return false
}

// ImportStatus enumerates import job lifecycle states.
type ImportStatus string

// Import job statuses. IN_PROGRESS transitions exactly once to either
// COMPLETED or FAILED; both are terminal.
const (
	ImportInProgress ImportStatus = "IN_PROGRESS"
	ImportCompleted  ImportStatus = "COMPLETED"
	ImportFailed     ImportStatus = "FAILED"
)

// Terminal reports whether the status is a final state.
func (s ImportStatus) Terminal() bool {
	return s == ImportCompleted || s == ImportFailed
}

// Base contains common fields for identified domain records.
type Base struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Coordinates is a pair of map coordinates referenced by study groups.
// The (X, Y) pair is unique across all rows.
type Coordinates struct {
	Base
	X int64   `json:"x"`
	Y float32 `json:"y"`
}

// Location is a named point optionally referenced by persons.
type Location struct {
	Base
	Name string  `json:"name"`
	X    int32   `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// Person may administer at most one study group and may live at a location.
type Person struct {
	Base
	Name        string   `json:"name"`
	EyeColor    *Color   `json:"eyeColor,omitempty"`
	HairColor   Color    `json:"hairColor"`
	LocationID  *int64   `json:"locationId,omitempty"`
	Height      int64    `json:"height"`
	Weight      float32  `json:"weight"`
	Nationality *Country `json:"nationality,omitempty"`
}

// StudyGroup is the central record of the system. It always references
// exactly one Coordinates row and optionally a Person as group admin.
// CreationDate is assigned by the store and never changes afterwards.
type StudyGroup struct {
	ID                  int64            `json:"id"`
	Name                string           `json:"name"`
	CoordinatesID       int64            `json:"coordinatesId"`
	CreationDate        time.Time        `json:"creationDate"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	StudentsCount       *int64           `json:"studentsCount,omitempty"`
	ExpelledStudents    int64            `json:"expelledStudents"`
	TransferredStudents int64            `json:"transferredStudents"`
	FormOfEducation     *FormOfEducation `json:"formOfEducation,omitempty"`
	Course              int32            `json:"course"`
	ShouldBeExpelled    int64            `json:"shouldBeExpelled"`
	AverageMark         *int32           `json:"averageMark,omitempty"`
	Semester            Semester         `json:"semesterEnum"`
	GroupAdminID        *int64           `json:"groupAdminId,omitempty"`
	// SequenceNumber is nonzero when Name was generated by the store from
	// the form prefix, course, and a per-(form, course) counter.
	SequenceNumber int32 `json:"sequenceNumber,omitempty"`
}

// ImportJob tracks one bulk-file ingestion attempt.
type ImportJob struct {
	ID           string       `json:"id"`
	EntityType   EntityType   `json:"entityType"`
	Status       ImportStatus `json:"status"`
	Filename     string       `json:"filename"`
	ContentType  string       `json:"contentType,omitempty"`
	FileSize     int64        `json:"fileSize,omitempty"`
	StorageKey   string       `json:"storageKey,omitempty"`
	DownloadURL  string       `json:"downloadUrl,omitempty"`
	TotalRecords *int         `json:"totalRecords,omitempty"`
	SuccessCount *int         `json:"successCount,omitempty"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	FinishedAt   *time.Time   `json:"finishedAt,omitempty"`
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported mutations. Values match the wire form
// delivered to change event subscribers.
const (
	// ActionCreated indicates an entity was created.
	ActionCreated Action = "CREATED"
	// ActionUpdated indicates an entity was updated.
	ActionUpdated Action = "UPDATED"
	// ActionDeleted indicates an entity was deleted.
	ActionDeleted Action = "DELETED"
)

// Change captures a single entity mutation performed within a transaction.
// Before/After hold entity value copies where applicable.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}
