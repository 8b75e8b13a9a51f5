package fs

import (
	"errors"
	"io"
	"strings"
	"testing"

	"campuscore/internal/blob/core"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	info, err := s.Put(ctx, "imports/a/groups.yaml", strings.NewReader("payload"), core.PutOptions{
		ContentType: "application/yaml",
		Metadata:    map[string]string{"job": "a"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len("payload")) || info.ETag == "" {
		t.Fatalf("put info wrong: %+v", info)
	}

	got, body, err := s.Get(ctx, "imports/a/groups.yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer body.Close()
	content, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(content) != "payload" {
		t.Fatalf("content mismatch: %q", content)
	}
	if got.ContentType != "application/yaml" || got.Metadata["job"] != "a" {
		t.Fatalf("metadata lost: %+v", got)
	}
}

func TestPutRejectsExistingKey(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	if _, err := s.Put(ctx, "k", strings.NewReader("one"), core.PutOptions{}); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("two"), core.PutOptions{}); err == nil {
		t.Fatal("second put should fail")
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := newStore(t)

	_, _, err := s.Get(t.Context(), "absent")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Head(t.Context(), "absent"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("head expected ErrNotFound, got %v", err)
	}
}

func TestDeleteReportsExistence(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	if _, err := s.Put(ctx, "k", strings.NewReader("v"), core.PutOptions{}); err != nil {
		t.Fatalf("put: %v", err)
	}
	existed, err := s.Delete(ctx, "k")
	if err != nil || !existed {
		t.Fatalf("delete existing: existed=%v err=%v", existed, err)
	}
	existed, err = s.Delete(ctx, "k")
	if err != nil || existed {
		t.Fatalf("delete missing: existed=%v err=%v", existed, err)
	}
}

func TestListFiltersByPrefix(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	for _, key := range []string{"imports/a/f", "imports/b/f", "other/f"} {
		if _, err := s.Put(ctx, key, strings.NewReader("v"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}
	infos, err := s.List(ctx, "imports/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "imports/a/f" || infos[1].Key != "imports/b/f" {
		t.Fatalf("list wrong: %+v", infos)
	}
}

func TestKeySanitization(t *testing.T) {
	s := newStore(t)
	ctx := t.Context()

	for _, key := range []string{"", "  ", "../escape", "/absolute", "a/../../b"} {
		if _, err := s.Put(ctx, key, strings.NewReader("v"), core.PutOptions{}); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}

func TestPresignOnlySupportsGet(t *testing.T) {
	s := newStore(t)

	url, err := s.PresignURL(t.Context(), "k", core.SignedURLOptions{})
	if err != nil || url == "" {
		t.Fatalf("presign get: %q %v", url, err)
	}
	if _, err := s.PresignURL(t.Context(), "k", core.SignedURLOptions{Method: "PUT"}); !errors.Is(err, core.ErrUnsupported) {
		t.Fatalf("presign put: %v", err)
	}
}
