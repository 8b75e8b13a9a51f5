package httpapi

import (
	"net/http"
	"strconv"

	"campuscore/internal/core"
	"campuscore/pkg/domain"
)

// Add-request bodies. Nested entities may be referenced by id or supplied
// inline; exactly one of the pair must be set.

type coordinatesRequest struct {
	X int64   `json:"x"`
	Y float32 `json:"y"`
}

func (req coordinatesRequest) toInput() core.CoordinatesInput {
	return core.CoordinatesInput{X: req.X, Y: req.Y}
}

type locationRequest struct {
	Name string  `json:"name"`
	X    int32   `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

func (req locationRequest) toInput() core.LocationInput {
	return core.LocationInput{Name: req.Name, X: req.X, Y: req.Y, Z: req.Z}
}

type personRequest struct {
	Name        string           `json:"name"`
	EyeColor    *domain.Color    `json:"eyeColor"`
	HairColor   domain.Color     `json:"hairColor"`
	LocationID  *int64           `json:"locationId"`
	Location    *locationRequest `json:"location"`
	Height      int64            `json:"height"`
	Weight      float32          `json:"weight"`
	Nationality *domain.Country  `json:"nationality"`
}

func (req personRequest) toInput() core.PersonInput {
	in := core.PersonInput{
		Name:        req.Name,
		EyeColor:    req.EyeColor,
		HairColor:   req.HairColor,
		Height:      req.Height,
		Weight:      req.Weight,
		Nationality: req.Nationality,
	}
	if req.LocationID != nil || req.Location != nil {
		sel := &core.LocationSelector{ExistingID: req.LocationID}
		if req.Location != nil {
			inline := req.Location.toInput()
			sel.New = &inline
		}
		in.Location = sel
	}
	return in
}

type studyGroupRequest struct {
	Name                string                  `json:"name"`
	CoordinatesID       *int64                  `json:"coordinatesId"`
	Coordinates         *coordinatesRequest     `json:"coordinates"`
	StudentsCount       *int64                  `json:"studentsCount"`
	ExpelledStudents    int64                   `json:"expelledStudents"`
	TransferredStudents int64                   `json:"transferredStudents"`
	FormOfEducation     *domain.FormOfEducation `json:"formOfEducation"`
	Course              int32                   `json:"course"`
	ShouldBeExpelled    int64                   `json:"shouldBeExpelled"`
	AverageMark         *int32                  `json:"averageMark"`
	Semester            domain.Semester         `json:"semesterEnum"`
	GroupAdminID        *int64                  `json:"groupAdminId"`
	GroupAdmin          *personRequest          `json:"groupAdmin"`
}

func (req studyGroupRequest) toInput() core.StudyGroupInput {
	in := core.StudyGroupInput{
		Name:                req.Name,
		StudentsCount:       req.StudentsCount,
		ExpelledStudents:    req.ExpelledStudents,
		TransferredStudents: req.TransferredStudents,
		FormOfEducation:     req.FormOfEducation,
		Course:              req.Course,
		ShouldBeExpelled:    req.ShouldBeExpelled,
		AverageMark:         req.AverageMark,
		Semester:            req.Semester,
	}
	in.Coordinates = core.CoordinatesSelector{ExistingID: req.CoordinatesID}
	if req.Coordinates != nil {
		inline := req.Coordinates.toInput()
		in.Coordinates.New = &inline
	}
	if req.GroupAdminID != nil || req.GroupAdmin != nil {
		sel := &core.PersonSelector{ExistingID: req.GroupAdminID}
		if req.GroupAdmin != nil {
			inline := req.GroupAdmin.toInput()
			sel.New = &inline
		}
		in.GroupAdmin = sel
	}
	return in
}

// Update-request bodies are tri-state: an absent field stays unchanged, a
// value sets it, and the paired clear/remove flag nulls it out.

type coordinatesUpdateRequest struct {
	X *int64   `json:"x"`
	Y *float32 `json:"y"`
}

func (req coordinatesUpdateRequest) toUpdate() core.CoordinatesUpdate {
	return core.CoordinatesUpdate{X: req.X, Y: req.Y}
}

type locationUpdateRequest struct {
	Name *string  `json:"name"`
	X    *int32   `json:"x"`
	Y    *float64 `json:"y"`
	Z    *float64 `json:"z"`
}

func (req locationUpdateRequest) toUpdate() core.LocationUpdate {
	return core.LocationUpdate{Name: req.Name, X: req.X, Y: req.Y, Z: req.Z}
}

type personUpdateRequest struct {
	Name             *string          `json:"name"`
	EyeColor         *domain.Color    `json:"eyeColor"`
	ClearEyeColor    bool             `json:"clearEyeColor"`
	HairColor        *domain.Color    `json:"hairColor"`
	LocationID       *int64           `json:"locationId"`
	Location         *locationRequest `json:"location"`
	ClearLocation    bool             `json:"clearLocation"`
	Height           *int64           `json:"height"`
	Weight           *float32         `json:"weight"`
	Nationality      *domain.Country  `json:"nationality"`
	ClearNationality bool             `json:"clearNationality"`
}

func (req personUpdateRequest) toUpdate() core.PersonUpdate {
	update := core.PersonUpdate{
		Name:             req.Name,
		EyeColor:         req.EyeColor,
		ClearEyeColor:    req.ClearEyeColor,
		HairColor:        req.HairColor,
		Height:           req.Height,
		Weight:           req.Weight,
		Nationality:      req.Nationality,
		ClearNationality: req.ClearNationality,
		ClearLocation:    req.ClearLocation,
	}
	if req.LocationID != nil || req.Location != nil {
		sel := &core.LocationSelector{ExistingID: req.LocationID}
		if req.Location != nil {
			inline := req.Location.toInput()
			sel.New = &inline
		}
		update.Location = sel
	}
	return update
}

type studyGroupUpdateRequest struct {
	Name                 *string                 `json:"name"`
	CoordinatesID        *int64                  `json:"coordinatesId"`
	Coordinates          *coordinatesRequest     `json:"coordinates"`
	StudentsCount        *int64                  `json:"studentsCount"`
	ClearStudentsCount   bool                    `json:"clearStudentsCount"`
	ExpelledStudents     *int64                  `json:"expelledStudents"`
	TransferredStudents  *int64                  `json:"transferredStudents"`
	FormOfEducation      *domain.FormOfEducation `json:"formOfEducation"`
	ClearFormOfEducation bool                    `json:"clearFormOfEducation"`
	Course               *int32                  `json:"course"`
	ShouldBeExpelled     *int64                  `json:"shouldBeExpelled"`
	AverageMark          *int32                  `json:"averageMark"`
	ClearAverageMark     bool                    `json:"clearAverageMark"`
	Semester             *domain.Semester        `json:"semesterEnum"`
	GroupAdminID         *int64                  `json:"groupAdminId"`
	GroupAdmin           *personRequest          `json:"groupAdmin"`
	RemoveGroupAdmin     bool                    `json:"removeGroupAdmin"`
}

func (req studyGroupUpdateRequest) toUpdate() core.StudyGroupUpdate {
	update := core.StudyGroupUpdate{
		Name:                 req.Name,
		StudentsCount:        req.StudentsCount,
		ClearStudentsCount:   req.ClearStudentsCount,
		ExpelledStudents:     req.ExpelledStudents,
		TransferredStudents:  req.TransferredStudents,
		FormOfEducation:      req.FormOfEducation,
		ClearFormOfEducation: req.ClearFormOfEducation,
		Course:               req.Course,
		ShouldBeExpelled:     req.ShouldBeExpelled,
		AverageMark:          req.AverageMark,
		ClearAverageMark:     req.ClearAverageMark,
		Semester:             req.Semester,
		RemoveGroupAdmin:     req.RemoveGroupAdmin,
	}
	if req.CoordinatesID != nil || req.Coordinates != nil {
		sel := &core.CoordinatesSelector{ExistingID: req.CoordinatesID}
		if req.Coordinates != nil {
			inline := req.Coordinates.toInput()
			sel.New = &inline
		}
		update.Coordinates = sel
	}
	if req.GroupAdminID != nil || req.GroupAdmin != nil {
		sel := &core.PersonSelector{ExistingID: req.GroupAdminID}
		if req.GroupAdmin != nil {
			inline := req.GroupAdmin.toInput()
			sel.New = &inline
		}
		update.GroupAdmin = sel
	}
	return update
}

// pageRequest extracts pagination and sort parameters from the query string.
func pageRequest(r *http.Request) (core.PageRequest, error) {
	req := core.PageRequest{Page: core.DefaultPage, Size: core.DefaultSize}
	query := r.URL.Query()
	if raw := query.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return core.PageRequest{}, domain.NewValidation("page", "must be an integer")
		}
		req.Page = page
	}
	if raw := query.Get("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return core.PageRequest{}, domain.NewValidation("size", "must be an integer")
		}
		req.Size = size
	}
	req.SortBy = query.Get("sortBy")
	req.Direction = core.SortDirection(query.Get("direction"))
	return req, nil
}

func replacementID(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("replacementId")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domain.NewValidation("replacementId", "must be an integer")
	}
	return &id, nil
}
