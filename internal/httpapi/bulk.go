package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"campuscore/pkg/domain"
)

// idsParam parses the required ids query parameter. Both repeated
// parameters and comma-separated values are accepted.
func idsParam(r *http.Request) ([]int64, error) {
	values, ok := r.URL.Query()["ids"]
	if !ok {
		return nil, domain.NewValidation("ids", "required")
	}
	var ids []int64
	for _, value := range values {
		for _, raw := range strings.Split(value, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, domain.NewValidation("ids", "must be a list of integers")
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (h *Handler) getCoordinatesByIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	found, err := h.service.GetCoordinatesByIDs(r.Context(), ids)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) updateCoordinatesMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var body coordinatesUpdateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updated, err := h.service.UpdateCoordinatesMany(r.Context(), ids, body.toUpdate())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteCoordinatesMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.service.DeleteCoordinatesMany(r.Context(), ids); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getLocationsByIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	found, err := h.service.GetLocationsByIDs(r.Context(), ids)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) updateLocationsMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var body locationUpdateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updated, err := h.service.UpdateLocationsMany(r.Context(), ids, body.toUpdate())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteLocationsMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.service.DeleteLocationsMany(r.Context(), ids); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getPersonsByIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	found, err := h.service.GetPersonsByIDs(r.Context(), ids)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) updatePersonsMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var body personUpdateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updated, err := h.service.UpdatePersonsMany(r.Context(), ids, body.toUpdate())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deletePersonsMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.service.DeletePersonsMany(r.Context(), ids); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getStudyGroupsByIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	found, err := h.service.GetStudyGroupsByIDs(r.Context(), ids)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func (h *Handler) updateStudyGroupsMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var body studyGroupUpdateRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updated, err := h.service.UpdateStudyGroupsMany(r.Context(), ids, body.toUpdate())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteStudyGroupsMany(w http.ResponseWriter, r *http.Request) {
	ids, err := idsParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.service.DeleteStudyGroupsMany(r.Context(), ids); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
