package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{NewNotFound(EntityPerson, 9), "person 9 not found"},
		{NewValidation("name", "must not be blank"), "name: must not be blank"},
		{NewValidation("", "bad request"), "bad request"},
		{&InvalidSortFieldError{Entity: EntityLocation, Field: "bogus"}, `unknown sort field "bogus" for location`},
		{&ImportValidationError{Index: 2, Message: "missing coordinates"}, "record 2: missing coordinates"},
		{&ImportValidationError{Index: -1, Message: "file contains no groups"}, "file contains no groups"},
	}
	for _, tc := range cases {
		if got := tc.err.Error(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestReferencedEntityErrorMessage(t *testing.T) {
	err := &ReferencedEntityError{
		Entity:         EntityCoordinates,
		ID:             3,
		Referencing:    EntityStudyGroup,
		ReferencingIDs: []int64{1, 2},
	}
	msg := err.Error()
	if !strings.Contains(msg, "coordinates 3") || !strings.Contains(msg, "2 study_group") {
		t.Fatalf("message wrong: %q", msg)
	}
}

func TestWrappingErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection refused")

	storage := &StorageUnavailableError{Err: cause}
	if !errors.Is(storage, cause) {
		t.Fatal("StorageUnavailableError should unwrap its cause")
	}

	parse := &ImportParseError{Err: cause}
	if !errors.Is(fmt.Errorf("submit: %w", parse), cause) {
		t.Fatal("ImportParseError should unwrap through wrapping")
	}
}
