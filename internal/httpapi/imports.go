package httpapi

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"campuscore/internal/importer"
)

// maxImportBytes caps the in-memory portion of a multipart upload.
const maxImportBytes = 32 << 20

func (h *Handler) submitImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read uploaded file: "+err.Error())
		return
	}
	job, err := h.imports.Submit(r.Context(), importer.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Content:     content,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (h *Handler) listImports(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.imports.History(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (h *Handler) getImport(w http.ResponseWriter, r *http.Request) {
	job, err := h.imports.Job(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *Handler) downloadImport(w http.ResponseWriter, r *http.Request) {
	job, body, err := h.imports.File(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()
	contentType := job.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+job.Filename+`"`)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("import download interrupted", "job", job.ID, "error", err)
	}
}
