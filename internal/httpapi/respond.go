package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"campuscore/pkg/domain"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

// writeDomainError maps service errors onto HTTP statuses and the
// {"error": ...} body shape. Reference conflicts carry the blocking ids.
func writeDomainError(w http.ResponseWriter, err error) {
	var referenced *domain.ReferencedEntityError
	if errors.As(err, &referenced) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":          referenced.Error(),
			"referencingIds": referenced.ReferencingIDs,
		})
		return
	}
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	var (
		notFound           *domain.NotFoundError
		validation         *domain.ValidationError
		invalidReplacement *domain.InvalidReplacementError
		invalidSort        *domain.InvalidSortFieldError
		importParse        *domain.ImportParseError
		importValidation   *domain.ImportValidationError
		referenced         *domain.ReferencedEntityError
		storage            *domain.StorageUnavailableError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation),
		errors.As(err, &invalidReplacement),
		errors.As(err, &invalidSort),
		errors.As(err, &importParse),
		errors.As(err, &importValidation):
		return http.StatusBadRequest
	case errors.As(err, &referenced):
		return http.StatusConflict
	case errors.As(err, &storage):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody parses a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
