package memory

import (
	"errors"
	"io"
	"strings"
	"testing"

	"campuscore/internal/blob/core"
)

func TestPutGetIsolated(t *testing.T) {
	s := New()
	ctx := t.Context()

	if _, err := s.Put(ctx, "k", strings.NewReader("value"), core.PutOptions{ContentType: "text/plain"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := s.Put(ctx, "k", strings.NewReader("other"), core.PutOptions{}); err == nil {
		t.Fatal("duplicate key should fail")
	}

	info, body, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer body.Close()
	content, _ := io.ReadAll(body)
	if string(content) != "value" || info.ContentType != "text/plain" {
		t.Fatalf("round trip wrong: %q %+v", content, info)
	}

	if _, _, err := s.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAndList(t *testing.T) {
	s := New()
	ctx := t.Context()

	for _, key := range []string{"a/1", "a/2", "b/1"} {
		if _, err := s.Put(ctx, key, strings.NewReader("v"), core.PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	existed, err := s.Delete(ctx, "a/1")
	if err != nil || !existed {
		t.Fatalf("delete: existed=%v err=%v", existed, err)
	}
	existed, _ = s.Delete(ctx, "a/1")
	if existed {
		t.Fatal("second delete should report missing")
	}

	infos, err := s.List(ctx, "a/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "a/2" {
		t.Fatalf("list wrong: %+v", infos)
	}
}
