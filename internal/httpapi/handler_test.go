package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"campuscore/internal/blob"
	"campuscore/internal/core"
	"campuscore/internal/importer"
	"campuscore/internal/infra/persistence/memory"
	"campuscore/internal/notify"
	"campuscore/internal/observability"
	"campuscore/pkg/domain"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	registry := notify.NewRegistry()
	t.Cleanup(registry.Close)
	service := core.NewService(memory.NewStore(), core.WithPublisher(registry))
	runner := importer.NewRunner(service, blob.NewMemory())
	runner.Start()
	t.Cleanup(func() { _ = runner.Stop(t.Context()) })

	handler := New(service, runner, registry, observability.New(), nil)
	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)
	return &testServer{Server: server}
}

func (ts *testServer) request(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	payload, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp, payload
}

func decodeInto[T any](t *testing.T, payload []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		t.Fatalf("decode %s: %v", string(payload), err)
	}
	return out
}

func createCoordinatesHTTP(t *testing.T, ts *testServer, x int64, y float32) domain.Coordinates {
	t.Helper()
	resp, payload := ts.request(t, http.MethodPost, "/api/v1/coordinates", map[string]any{"x": x, "y": y})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create coordinates: %d %s", resp.StatusCode, payload)
	}
	return decodeInto[domain.Coordinates](t, payload)
}

func createGroupHTTP(t *testing.T, ts *testServer, name string, coordinatesID int64, semester domain.Semester) domain.StudyGroup {
	t.Helper()
	resp, payload := ts.request(t, http.MethodPost, "/api/v1/study-groups", map[string]any{
		"name":                name,
		"coordinatesId":       coordinatesID,
		"expelledStudents":    1,
		"transferredStudents": 1,
		"course":              1,
		"shouldBeExpelled":    1,
		"semesterEnum":        semester,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create group: %d %s", resp.StatusCode, payload)
	}
	return decodeInto[domain.StudyGroup](t, payload)
}

func TestCoordinatesCRUDOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	created := createCoordinatesHTTP(t, ts, 3, 1.5)
	if created.ID == 0 {
		t.Fatalf("no id assigned: %+v", created)
	}

	// Duplicate pair is a 400.
	resp, payload := ts.request(t, http.MethodPost, "/api/v1/coordinates", map[string]any{"x": 3, "y": 1.5})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate pair: %d %s", resp.StatusCode, payload)
	}
	body := decodeInto[map[string]string](t, payload)
	if body["error"] == "" {
		t.Fatalf("error body missing message: %s", payload)
	}

	resp, payload = ts.request(t, http.MethodGet, fmt.Sprintf("/api/v1/coordinates/%d", created.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: %d %s", resp.StatusCode, payload)
	}

	resp, payload = ts.request(t, http.MethodPatch, fmt.Sprintf("/api/v1/coordinates/%d", created.ID), map[string]any{"x": 4})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", resp.StatusCode, payload)
	}
	if patched := decodeInto[domain.Coordinates](t, payload); patched.X != 4 {
		t.Fatalf("patch not applied: %+v", patched)
	}

	resp, _ = ts.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/coordinates/%d", created.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = ts.request(t, http.MethodGet, fmt.Sprintf("/api/v1/coordinates/%d", created.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete: %d", resp.StatusCode)
	}
}

func TestReferencedDeleteReturnsConflictWithIDs(t *testing.T) {
	ts := newTestServer(t)
	c := createCoordinatesHTTP(t, ts, 1, 1)
	g := createGroupHTTP(t, ts, "G-1", c.ID, domain.SemesterFirst)

	resp, payload := ts.request(t, http.MethodDelete, fmt.Sprintf("/api/v1/coordinates/%d", c.ID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", resp.StatusCode, payload)
	}
	body := decodeInto[struct {
		Error          string  `json:"error"`
		ReferencingIDs []int64 `json:"referencingIds"`
	}](t, payload)
	if len(body.ReferencingIDs) != 1 || body.ReferencingIDs[0] != g.ID {
		t.Fatalf("conflict body wrong: %s", payload)
	}

	// With a replacement the delete goes through.
	replacement := createCoordinatesHTTP(t, ts, 2, 2)
	resp, payload = ts.request(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/coordinates/%d?replacementId=%d", c.ID, replacement.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete with replacement: %d %s", resp.StatusCode, payload)
	}
}

func TestListQueryParameters(t *testing.T) {
	ts := newTestServer(t)
	for i := 0; i < 25; i++ {
		createCoordinatesHTTP(t, ts, int64(i), float32(i))
	}

	resp, payload := ts.request(t, http.MethodGet, "/api/v1/coordinates?page=1&size=10&sortBy=x&direction=desc", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %s", resp.StatusCode, payload)
	}
	page := decodeInto[core.Page[domain.Coordinates]](t, payload)
	if page.Page != 1 || page.Size != 10 || page.TotalElements != 25 || page.TotalPages != 3 {
		t.Fatalf("envelope wrong: %+v", page)
	}
	if page.Content[0].X != 14 {
		t.Fatalf("desc second page should start at x=14, got %d", page.Content[0].X)
	}

	resp, _ = ts.request(t, http.MethodGet, "/api/v1/coordinates?sortBy=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown sort field: %d", resp.StatusCode)
	}
	resp, _ = ts.request(t, http.MethodGet, "/api/v1/coordinates?page=abc", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("non-numeric page: %d", resp.StatusCode)
	}
}

func TestPersonTriStatePatch(t *testing.T) {
	ts := newTestServer(t)

	resp, payload := ts.request(t, http.MethodPost, "/api/v1/persons", map[string]any{
		"name":      "Ada",
		"eyeColor":  "YELLOW",
		"hairColor": "BLACK",
		"height":    170,
		"weight":    60,
		"location":  map[string]any{"name": "dorm", "x": 1, "y": 2, "z": 3},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create person: %d %s", resp.StatusCode, payload)
	}
	person := decodeInto[domain.Person](t, payload)
	if person.LocationID == nil {
		t.Fatalf("inline location not linked: %s", payload)
	}

	resp, payload = ts.request(t, http.MethodPatch, fmt.Sprintf("/api/v1/persons/%d", person.ID), map[string]any{
		"clearEyeColor": true,
		"clearLocation": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch: %d %s", resp.StatusCode, payload)
	}
	patched := decodeInto[domain.Person](t, payload)
	if patched.EyeColor != nil || patched.LocationID != nil {
		t.Fatalf("clear flags not applied: %s", payload)
	}

	// Set and clear together is a 400.
	resp, _ = ts.request(t, http.MethodPatch, fmt.Sprintf("/api/v1/persons/%d", person.ID), map[string]any{
		"eyeColor":      "ORANGE",
		"clearEyeColor": true,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("set+clear: %d", resp.StatusCode)
	}

	// Unknown body fields are rejected.
	resp, _ = ts.request(t, http.MethodPatch, fmt.Sprintf("/api/v1/persons/%d", person.ID), map[string]any{
		"bogusField": 1,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown field: %d", resp.StatusCode)
	}
}

func TestStudyGroupGeneratedNameOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	c := createCoordinatesHTTP(t, ts, 1, 1)

	resp, payload := ts.request(t, http.MethodPost, "/api/v1/study-groups", map[string]any{
		"coordinatesId":       c.ID,
		"expelledStudents":    1,
		"transferredStudents": 1,
		"formOfEducation":     "EVENING_CLASSES",
		"course":              3,
		"shouldBeExpelled":    1,
		"semesterEnum":        "SIXTH",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: %d %s", resp.StatusCode, payload)
	}
	group := decodeInto[domain.StudyGroup](t, payload)
	if group.Name != "EV-3-01" {
		t.Fatalf("generated name wrong: %q", group.Name)
	}
}

func TestBySemesterEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := createCoordinatesHTTP(t, ts, 1, 1)
	createGroupHTTP(t, ts, "G-1", c.ID, domain.SemesterFirst)
	createGroupHTTP(t, ts, "G-2", c.ID, domain.SemesterFirst)
	g3 := createGroupHTTP(t, ts, "G-3", c.ID, domain.SemesterSeventh)

	resp, payload := ts.request(t, http.MethodDelete, "/api/v1/study-groups/by-semester/one?semesterEnum=SEVENTH", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete one: %d %s", resp.StatusCode, payload)
	}
	removed := decodeInto[domain.StudyGroup](t, payload)
	if removed.ID != g3.ID {
		t.Fatalf("wrong group removed: %+v", removed)
	}

	resp, payload = ts.request(t, http.MethodDelete, "/api/v1/study-groups/by-semester?semesterEnum=FIRST", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete all: %d %s", resp.StatusCode, payload)
	}
	result := decodeInto[map[string]int](t, payload)
	if result["deleted"] != 2 {
		t.Fatalf("expected 2 deleted, got %s", payload)
	}

	resp, _ = ts.request(t, http.MethodDelete, "/api/v1/study-groups/by-semester?semesterEnum=FIRST", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("empty semester: %d", resp.StatusCode)
	}
}

func TestStatsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	c := createCoordinatesHTTP(t, ts, 1, 1)
	createGroupHTTP(t, ts, "G-1", c.ID, domain.SemesterFirst)
	createGroupHTTP(t, ts, "G-2", c.ID, domain.SemesterFirst)

	resp, payload := ts.request(t, http.MethodGet, "/api/v1/study-groups/stats/should-be-expelled", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("grouped stats: %d %s", resp.StatusCode, payload)
	}
	grouped := decodeInto[struct {
		Groups []core.ShouldBeExpelledBucket `json:"groups"`
	}](t, payload)
	if len(grouped.Groups) != 1 || grouped.Groups[0].Count != 2 {
		t.Fatalf("grouped stats wrong: %s", payload)
	}

	resp, payload = ts.request(t, http.MethodGet, "/api/v1/study-groups/stats/expelled-total", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("total stats: %d %s", resp.StatusCode, payload)
	}
	total := decodeInto[map[string]int64](t, payload)
	if total["total"] != 2 {
		t.Fatalf("total wrong: %s", payload)
	}
}

func TestImportEndpoints(t *testing.T) {
	ts := newTestServer(t)

	upload := `groups:
  - coordinates:
      x: 1
      y: 1
    expelledStudents: 1
    transferredStudents: 1
    formOfEducation: DISTANCE_EDUCATION
    course: 1
    shouldBeExpelled: 1
    semesterEnum: FIRST
`
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "groups.yaml")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(upload)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	writer.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/imports/study-groups", &body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	payload, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("submit status: %d %s", resp.StatusCode, payload)
	}
	job := decodeInto[domain.ImportJob](t, payload)
	if job.Status != domain.ImportInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", job.Status)
	}

	// Poll until the worker finishes.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, payload = ts.request(t, http.MethodGet, "/api/v1/imports/study-groups/"+job.ID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get job: %d %s", resp.StatusCode, payload)
		}
		current := decodeInto[domain.ImportJob](t, payload)
		if current.Status == domain.ImportCompleted {
			break
		}
		if current.Status == domain.ImportFailed {
			t.Fatalf("import failed: %s", current.ErrorMessage)
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for import")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, payload = ts.request(t, http.MethodGet, "/api/v1/imports/study-groups", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("history: %d %s", resp.StatusCode, payload)
	}
	history := decodeInto[struct {
		Jobs []domain.ImportJob `json:"jobs"`
	}](t, payload)
	if len(history.Jobs) != 1 {
		t.Fatalf("history wrong: %s", payload)
	}

	resp, payload = ts.request(t, http.MethodGet, "/api/v1/imports/study-groups/"+job.ID+"/file", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: %d", resp.StatusCode)
	}
	if string(payload) != upload {
		t.Fatalf("downloaded file differs from upload")
	}

	// Missing file part is a 400.
	resp, _ = ts.request(t, http.MethodPost, "/api/v1/imports/study-groups", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing multipart: %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	createCoordinatesHTTP(t, ts, 1, 1)

	resp, payload := ts.request(t, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics: %d", resp.StatusCode)
	}
	if !strings.Contains(string(payload), "campuscore_http_request_duration_seconds") {
		t.Fatalf("http histogram missing from exposition")
	}
}

func TestReferencesEndpoint(t *testing.T) {
	ts := newTestServer(t)
	c := createCoordinatesHTTP(t, ts, 1, 1)
	g := createGroupHTTP(t, ts, "G-1", c.ID, domain.SemesterFirst)

	resp, payload := ts.request(t, http.MethodGet, fmt.Sprintf("/api/v1/references/coordinates/%d", c.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("references: %d %s", resp.StatusCode, payload)
	}
	report := decodeInto[core.ReferenceReport](t, payload)
	if len(report.ReferencingIDs) != 1 || report.ReferencingIDs[0] != g.ID {
		t.Fatalf("report wrong: %s", payload)
	}

	resp, _ = ts.request(t, http.MethodGet, "/api/v1/references/bogus/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown entity: %d", resp.StatusCode)
	}
}
