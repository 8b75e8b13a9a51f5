// Package httpapi exposes the campuscore service over REST, plus the
// WebSocket change feed and Prometheus metrics.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"campuscore/internal/core"
	"campuscore/internal/importer"
	"campuscore/internal/notify"
	"campuscore/internal/observability"
)

// Handler bundles the dependencies of the HTTP surface.
type Handler struct {
	service  *core.Service
	imports  *importer.Runner
	registry *notify.Registry
	metrics  *observability.Metrics
	logger   core.Logger
}

// New constructs a Handler. Metrics and logger may be nil.
func New(service *core.Service, imports *importer.Runner, registry *notify.Registry, metrics *observability.Metrics, logger core.Logger) *Handler {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Handler{
		service:  service,
		imports:  imports,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Router builds the full route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	if h.metrics != nil {
		r.Use(h.instrument)
		r.Handle("/metrics", h.metrics.Handler()).Methods(http.MethodGet)
	}
	r.Handle("/ws/entity", notify.WebsocketHandler(h.registry, h.logger)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/coordinates", h.listCoordinates).Methods(http.MethodGet)
	api.HandleFunc("/coordinates", h.createCoordinates).Methods(http.MethodPost)
	api.HandleFunc("/coordinates", h.updateCoordinatesMany).Methods(http.MethodPatch)
	api.HandleFunc("/coordinates", h.deleteCoordinatesMany).Methods(http.MethodDelete)
	api.HandleFunc("/coordinates/by-ids", h.getCoordinatesByIDs).Methods(http.MethodGet)
	api.HandleFunc("/coordinates/{id:[0-9]+}", h.getCoordinates).Methods(http.MethodGet)
	api.HandleFunc("/coordinates/{id:[0-9]+}", h.updateCoordinates).Methods(http.MethodPatch)
	api.HandleFunc("/coordinates/{id:[0-9]+}", h.deleteCoordinates).Methods(http.MethodDelete)

	api.HandleFunc("/locations", h.listLocations).Methods(http.MethodGet)
	api.HandleFunc("/locations", h.createLocation).Methods(http.MethodPost)
	api.HandleFunc("/locations", h.updateLocationsMany).Methods(http.MethodPatch)
	api.HandleFunc("/locations", h.deleteLocationsMany).Methods(http.MethodDelete)
	api.HandleFunc("/locations/by-ids", h.getLocationsByIDs).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id:[0-9]+}", h.getLocation).Methods(http.MethodGet)
	api.HandleFunc("/locations/{id:[0-9]+}", h.updateLocation).Methods(http.MethodPatch)
	api.HandleFunc("/locations/{id:[0-9]+}", h.deleteLocation).Methods(http.MethodDelete)

	api.HandleFunc("/persons", h.listPersons).Methods(http.MethodGet)
	api.HandleFunc("/persons", h.createPerson).Methods(http.MethodPost)
	api.HandleFunc("/persons", h.updatePersonsMany).Methods(http.MethodPatch)
	api.HandleFunc("/persons", h.deletePersonsMany).Methods(http.MethodDelete)
	api.HandleFunc("/persons/by-ids", h.getPersonsByIDs).Methods(http.MethodGet)
	api.HandleFunc("/persons/{id:[0-9]+}", h.getPerson).Methods(http.MethodGet)
	api.HandleFunc("/persons/{id:[0-9]+}", h.updatePerson).Methods(http.MethodPatch)
	api.HandleFunc("/persons/{id:[0-9]+}", h.deletePerson).Methods(http.MethodDelete)

	api.HandleFunc("/study-groups", h.listStudyGroups).Methods(http.MethodGet)
	api.HandleFunc("/study-groups", h.createStudyGroup).Methods(http.MethodPost)
	api.HandleFunc("/study-groups", h.updateStudyGroupsMany).Methods(http.MethodPatch)
	api.HandleFunc("/study-groups", h.deleteStudyGroupsMany).Methods(http.MethodDelete)
	api.HandleFunc("/study-groups/by-ids", h.getStudyGroupsByIDs).Methods(http.MethodGet)
	api.HandleFunc("/study-groups/by-semester", h.deleteStudyGroupsBySemester).Methods(http.MethodDelete)
	api.HandleFunc("/study-groups/by-semester/one", h.deleteOneStudyGroupBySemester).Methods(http.MethodDelete)
	api.HandleFunc("/study-groups/stats/should-be-expelled", h.statsShouldBeExpelled).Methods(http.MethodGet)
	api.HandleFunc("/study-groups/stats/expelled-total", h.statsExpelledTotal).Methods(http.MethodGet)
	api.HandleFunc("/study-groups/{id:[0-9]+}", h.getStudyGroup).Methods(http.MethodGet)
	api.HandleFunc("/study-groups/{id:[0-9]+}", h.updateStudyGroup).Methods(http.MethodPatch)
	api.HandleFunc("/study-groups/{id:[0-9]+}", h.deleteStudyGroup).Methods(http.MethodDelete)

	api.HandleFunc("/references/{entity}/{id:[0-9]+}", h.checkReferences).Methods(http.MethodGet)

	api.HandleFunc("/imports/study-groups", h.submitImport).Methods(http.MethodPost)
	api.HandleFunc("/imports/study-groups", h.listImports).Methods(http.MethodGet)
	api.HandleFunc("/imports/study-groups/{id}", h.getImport).Methods(http.MethodGet)
	api.HandleFunc("/imports/study-groups/{id}/file", h.downloadImport).Methods(http.MethodGet)

	return r
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (h *Handler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws/entity" {
			// Hijacked connections cannot go through the recorder.
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		h.metrics.ObserveHTTP(r.Method, route, rec.status, time.Since(start))
	})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}
