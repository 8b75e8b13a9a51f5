package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"campuscore/pkg/domain"
)

func TestBatchEndpointsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	first := createCoordinatesHTTP(t, ts, 1, 1)
	second := createCoordinatesHTTP(t, ts, 2, 2)

	// by-ids skips missing ids and accepts comma-separated values.
	resp, payload := ts.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/coordinates/by-ids?ids=%d,%d,999", first.ID, second.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("by-ids: %d %s", resp.StatusCode, payload)
	}
	found := decodeInto[[]domain.Coordinates](t, payload)
	if len(found) != 2 {
		t.Fatalf("expected 2 rows, got %s", payload)
	}

	// Repeated ids parameters work too.
	resp, payload = ts.request(t, http.MethodGet,
		fmt.Sprintf("/api/v1/coordinates/by-ids?ids=%d&ids=%d", first.ID, second.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("by-ids repeated: %d %s", resp.StatusCode, payload)
	}

	// Missing ids parameter is a 400.
	resp, payload = ts.request(t, http.MethodGet, "/api/v1/coordinates/by-ids", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("by-ids without ids: %d %s", resp.StatusCode, payload)
	}

	// One PATCH body applied to every id.
	resp, payload = ts.request(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/coordinates?ids=%d", first.ID), map[string]any{"y": 7.5})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("batch patch: %d %s", resp.StatusCode, payload)
	}
	updated := decodeInto[[]domain.Coordinates](t, payload)
	if len(updated) != 1 || updated[0].Y != 7.5 {
		t.Fatalf("patch not applied: %s", payload)
	}

	// A missing id fails the whole batch with a 404 naming it.
	resp, payload = ts.request(t, http.MethodPatch,
		fmt.Sprintf("/api/v1/coordinates?ids=%d&ids=999", first.ID), map[string]any{"y": 8.5})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("batch patch with missing id: %d %s", resp.StatusCode, payload)
	}
	if body := decodeInto[map[string]string](t, payload); !strings.Contains(body["error"], "999") {
		t.Fatalf("missing id not reported: %s", payload)
	}

	// Batch delete removes every id.
	resp, payload = ts.request(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/coordinates?ids=%d,%d", first.ID, second.ID), nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("batch delete: %d %s", resp.StatusCode, payload)
	}
	resp, _ = ts.request(t, http.MethodGet, fmt.Sprintf("/api/v1/coordinates/%d", first.ID), nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("row survived batch delete: %d", resp.StatusCode)
	}
}

func TestBatchDeleteBlockedByReferences(t *testing.T) {
	ts := newTestServer(t)

	used := createCoordinatesHTTP(t, ts, 5, 5)
	createGroupHTTP(t, ts, "G-REF", used.ID, domain.SemesterFirst)

	resp, payload := ts.request(t, http.MethodDelete,
		fmt.Sprintf("/api/v1/coordinates?ids=%d", used.ID), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("referenced batch delete: %d %s", resp.StatusCode, payload)
	}

	resp, _ = ts.request(t, http.MethodGet, fmt.Sprintf("/api/v1/coordinates/%d", used.ID), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("referenced row removed: %d", resp.StatusCode)
	}
}
