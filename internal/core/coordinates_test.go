package core

import (
	"context"
	"errors"
	"testing"

	"campuscore/pkg/domain"
)

func TestCreateCoordinatesRejectsDuplicatePair(t *testing.T) {
	s := newTestService(t)
	mustCreateCoordinates(t, s, 10, 2.5)

	_, err := s.CreateCoordinates(context.Background(), CoordinatesInput{X: 10, Y: 2.5})
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// A different pair is fine.
	mustCreateCoordinates(t, s, 10, 2.6)
}

func TestUpdateCoordinatesChecksPairAgainstOthers(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	mustCreateCoordinates(t, s, 1, 1)
	second := mustCreateCoordinates(t, s, 2, 2)

	x := int64(1)
	y := float32(1)
	if _, err := s.UpdateCoordinates(ctx, second.ID, CoordinatesUpdate{X: &x, Y: &y}); err == nil {
		t.Fatalf("expected collision with first pair")
	}

	// Updating a row onto its own pair is a no-op, not a collision.
	x2 := int64(2)
	if _, err := s.UpdateCoordinates(ctx, second.ID, CoordinatesUpdate{X: &x2}); err != nil {
		t.Fatalf("self update: %v", err)
	}
}

func TestDeleteCoordinatesBlockedByReferences(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)
	g := mustCreateGroup(t, s, namedGroupInput("G-1", c.ID))

	err := s.DeleteCoordinates(ctx, c.ID, nil)
	var referenced *domain.ReferencedEntityError
	if !errors.As(err, &referenced) {
		t.Fatalf("expected ReferencedEntityError, got %v", err)
	}
	if len(referenced.ReferencingIDs) != 1 || referenced.ReferencingIDs[0] != g.ID {
		t.Fatalf("wrong referencing ids %v", referenced.ReferencingIDs)
	}
	if referenced.Referencing != domain.EntityStudyGroup {
		t.Fatalf("wrong referencing entity %s", referenced.Referencing)
	}

	// The row must still exist after the blocked delete.
	if _, err := s.GetCoordinates(ctx, c.ID); err != nil {
		t.Fatalf("blocked delete removed the row: %v", err)
	}
}

func TestDeleteCoordinatesWithReplacementRepoints(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	old := mustCreateCoordinates(t, s, 1, 1)
	replacement := mustCreateCoordinates(t, s, 2, 2)
	g1 := mustCreateGroup(t, s, namedGroupInput("G-1", old.ID))
	g2 := mustCreateGroup(t, s, namedGroupInput("G-2", old.ID))

	if err := s.DeleteCoordinates(ctx, old.ID, &replacement.ID); err != nil {
		t.Fatalf("delete with replacement: %v", err)
	}
	for _, id := range []int64{g1.ID, g2.ID} {
		g, err := s.GetStudyGroup(ctx, id)
		if err != nil {
			t.Fatalf("get group %d: %v", id, err)
		}
		if g.CoordinatesID != replacement.ID {
			t.Fatalf("group %d not re-pointed: %d", id, g.CoordinatesID)
		}
	}
	if _, err := s.GetCoordinates(ctx, old.ID); err == nil {
		t.Fatalf("old row survived the delete")
	}
}

func TestDeleteCoordinatesReplacementValidation(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)

	// Self replacement is invalid even without references.
	err := s.DeleteCoordinates(ctx, c.ID, &c.ID)
	var invalid *domain.InvalidReplacementError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidReplacementError, got %v", err)
	}

	// Missing replacement row.
	missing := int64(404)
	err = s.DeleteCoordinates(ctx, c.ID, &missing)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	// Valid replacement with zero references still deletes.
	other := mustCreateCoordinates(t, s, 2, 2)
	if err := s.DeleteCoordinates(ctx, c.ID, &other.ID); err != nil {
		t.Fatalf("delete without references: %v", err)
	}
}

func TestDeleteCoordinatesNotFound(t *testing.T) {
	s := newTestService(t)
	err := s.DeleteCoordinates(context.Background(), 42, nil)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
