package core

import (
	"context"
	"errors"
	"testing"

	"campuscore/pkg/domain"
)

func generatedGroupInput(form domain.FormOfEducation, course int32, coordinatesID int64) StudyGroupInput {
	return StudyGroupInput{
		Coordinates:         CoordinatesSelector{ExistingID: &coordinatesID},
		ExpelledStudents:    1,
		TransferredStudents: 1,
		FormOfEducation:     &form,
		Course:              course,
		ShouldBeExpelled:    1,
		Semester:            domain.SemesterFirst,
	}
}

func TestGeneratedNamesSequencePerFormAndCourse(t *testing.T) {
	s := newTestService(t)
	c := mustCreateCoordinates(t, s, 1, 1)

	g1 := mustCreateGroup(t, s, generatedGroupInput(domain.FormDistance, 2, c.ID))
	if g1.Name != "DE-2-01" {
		t.Fatalf("first generated name: %q", g1.Name)
	}
	g2 := mustCreateGroup(t, s, generatedGroupInput(domain.FormDistance, 2, c.ID))
	if g2.Name != "DE-2-02" {
		t.Fatalf("second generated name: %q", g2.Name)
	}

	// A different course or form starts its own sequence.
	g3 := mustCreateGroup(t, s, generatedGroupInput(domain.FormDistance, 3, c.ID))
	if g3.Name != "DE-3-01" {
		t.Fatalf("new course name: %q", g3.Name)
	}
	g4 := mustCreateGroup(t, s, generatedGroupInput(domain.FormFullTime, 2, c.ID))
	if g4.Name != "FTE-2-01" {
		t.Fatalf("full time name: %q", g4.Name)
	}
	g5 := mustCreateGroup(t, s, generatedGroupInput(domain.FormEvening, 2, c.ID))
	if g5.Name != "EV-2-01" {
		t.Fatalf("evening name: %q", g5.Name)
	}
}

func TestBlankNameRequiresForm(t *testing.T) {
	s := newTestService(t)
	c := mustCreateCoordinates(t, s, 1, 1)
	in := generatedGroupInput(domain.FormDistance, 1, c.ID)
	in.FormOfEducation = nil

	_, err := s.CreateStudyGroup(context.Background(), in)
	var validation *domain.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExplicitNameDisablesGeneration(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)
	g := mustCreateGroup(t, s, namedGroupInput("custom", c.ID))
	if g.SequenceNumber != 0 {
		t.Fatalf("explicit name carries sequence %d", g.SequenceNumber)
	}

	// Changing course must not rename a manually named group.
	course := int32(5)
	updated, err := s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{Course: &course})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "custom" {
		t.Fatalf("manual name regenerated: %q", updated.Name)
	}
}

func TestGeneratedNameFollowsFormAndCourseChanges(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)
	g := mustCreateGroup(t, s, generatedGroupInput(domain.FormDistance, 2, c.ID))

	course := int32(4)
	updated, err := s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{Course: &course})
	if err != nil {
		t.Fatalf("update course: %v", err)
	}
	if updated.Name != "DE-4-01" {
		t.Fatalf("name after course change: %q", updated.Name)
	}

	form := domain.FormEvening
	updated, err = s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{FormOfEducation: &form})
	if err != nil {
		t.Fatalf("update form: %v", err)
	}
	if updated.Name != "EV-4-01" {
		t.Fatalf("name after form change: %q", updated.Name)
	}

	// An explicit rename stops regeneration from then on.
	name := "manual"
	updated, err = s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{Name: &name})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	course = 7
	updated, err = s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{Course: &course})
	if err != nil {
		t.Fatalf("update after rename: %v", err)
	}
	if updated.Name != "manual" {
		t.Fatalf("renamed group regenerated: %q", updated.Name)
	}
}

func TestClearFormOnGeneratedGroupRejected(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)
	g := mustCreateGroup(t, s, generatedGroupInput(domain.FormDistance, 1, c.ID))

	_, err := s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{ClearFormOfEducation: true})
	if err == nil {
		t.Fatalf("expected rejection while name is generated")
	}

	// Naming the group in the same request makes clearing legal.
	name := "named"
	if _, err := s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{Name: &name, ClearFormOfEducation: true}); err != nil {
		t.Fatalf("clear with rename: %v", err)
	}
}

func TestStudentsCountBounds(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)

	below := int64(19)
	in := generatedGroupInput(domain.FormDistance, 1, c.ID)
	in.StudentsCount = &below
	if _, err := s.CreateStudyGroup(ctx, in); err == nil {
		t.Fatalf("expected minimum bound rejection on create")
	}

	ok := int64(20)
	in.StudentsCount = &ok
	g := mustCreateGroup(t, s, in)

	// The minimum does not apply on update: shrinking an existing group is
	// allowed as long as the maximum holds.
	small := int64(5)
	if _, err := s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{StudentsCount: &small}); err != nil {
		t.Fatalf("shrink below minimum: %v", err)
	}
	huge := int64(101)
	if _, err := s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{StudentsCount: &huge}); err == nil {
		t.Fatalf("expected maximum bound rejection")
	}

	// Evening classes cap at 25.
	evening := int64(26)
	inEv := generatedGroupInput(domain.FormEvening, 1, c.ID)
	inEv.StudentsCount = &evening
	if _, err := s.CreateStudyGroup(ctx, inEv); err == nil {
		t.Fatalf("expected evening maximum rejection")
	}
}

func TestSingleAdminPerGroup(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)
	admin := mustCreatePerson(t, s, "Admin")

	in := namedGroupInput("G-1", c.ID)
	in.GroupAdmin = &PersonSelector{ExistingID: &admin.ID}
	mustCreateGroup(t, s, in)

	in2 := namedGroupInput("G-2", c.ID)
	in2.GroupAdmin = &PersonSelector{ExistingID: &admin.ID}
	if _, err := s.CreateStudyGroup(ctx, in2); err == nil {
		t.Fatalf("expected second group with same admin to be rejected")
	}

	// Assigning the same admin on update fails too.
	g2 := mustCreateGroup(t, s, namedGroupInput("G-2", c.ID))
	if _, err := s.UpdateStudyGroup(ctx, g2.ID, StudyGroupUpdate{GroupAdmin: &PersonSelector{ExistingID: &admin.ID}}); err == nil {
		t.Fatalf("expected admin reuse rejection on update")
	}
}

func TestDeleteStudyGroupCleansOrphanCoordinates(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	shared := mustCreateCoordinates(t, s, 1, 1)
	own := mustCreateCoordinates(t, s, 2, 2)
	g1 := mustCreateGroup(t, s, namedGroupInput("G-1", shared.ID))
	mustCreateGroup(t, s, namedGroupInput("G-2", shared.ID))
	g3 := mustCreateGroup(t, s, namedGroupInput("G-3", own.ID))

	// Shared coordinates survive the delete of one referent.
	if err := s.DeleteStudyGroup(ctx, g1.ID); err != nil {
		t.Fatalf("delete g1: %v", err)
	}
	if _, err := s.GetCoordinates(ctx, shared.ID); err != nil {
		t.Fatalf("shared coordinates removed: %v", err)
	}

	// Exclusive coordinates go with their last group.
	if err := s.DeleteStudyGroup(ctx, g3.ID); err != nil {
		t.Fatalf("delete g3: %v", err)
	}
	if _, err := s.GetCoordinates(ctx, own.ID); err == nil {
		t.Fatalf("orphan coordinates survived")
	}
}

func TestDeleteBySemester(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)

	first := namedGroupInput("G-1", c.ID)
	mustCreateGroup(t, s, first)
	second := namedGroupInput("G-2", c.ID)
	mustCreateGroup(t, s, second)
	third := namedGroupInput("G-3", c.ID)
	third.Semester = domain.SemesterSeventh
	g3 := mustCreateGroup(t, s, third)

	count, err := s.DeleteStudyGroupsBySemester(ctx, domain.SemesterFirst)
	if err != nil {
		t.Fatalf("delete by semester: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deletions, got %d", count)
	}
	page, _ := s.ListStudyGroups(ctx, PageRequest{})
	if page.TotalElements != 1 || page.Content[0].ID != g3.ID {
		t.Fatalf("wrong survivors %+v", page.Content)
	}

	// Empty semester is a 404-class error.
	_, err = s.DeleteStudyGroupsBySemester(ctx, domain.SemesterSecond)
	var notFound *domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	// Unknown semester value is a validation error.
	if _, err := s.DeleteStudyGroupsBySemester(ctx, "THIRD"); err == nil {
		t.Fatalf("expected unknown semester rejection")
	}
}

func TestDeleteOneBySemesterTakesLowestID(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)
	g1 := mustCreateGroup(t, s, namedGroupInput("G-1", c.ID))
	g2 := mustCreateGroup(t, s, namedGroupInput("G-2", c.ID))

	removed, err := s.DeleteOneStudyGroupBySemester(ctx, domain.SemesterFirst)
	if err != nil {
		t.Fatalf("delete one: %v", err)
	}
	if removed.ID != g1.ID {
		t.Fatalf("expected lowest id %d, removed %d", g1.ID, removed.ID)
	}
	if _, err := s.GetStudyGroup(ctx, g2.ID); err != nil {
		t.Fatalf("wrong group removed: %v", err)
	}
}

func TestStats(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)

	for _, spec := range []struct {
		name     string
		should   int64
		expelled int64
	}{
		{"G-1", 3, 10},
		{"G-2", 3, 5},
		{"G-3", 8, 1},
	} {
		in := namedGroupInput(spec.name, c.ID)
		in.ShouldBeExpelled = spec.should
		in.ExpelledStudents = spec.expelled
		mustCreateGroup(t, s, in)
	}

	buckets, err := s.StatsShouldBeExpelled(ctx)
	if err != nil {
		t.Fatalf("grouped stats: %v", err)
	}
	if len(buckets) != 2 {
		t.Fatalf("expected 2 buckets, got %+v", buckets)
	}
	if buckets[0].ShouldBeExpelled != 3 || buckets[0].Count != 2 {
		t.Fatalf("first bucket wrong: %+v", buckets[0])
	}
	if buckets[1].ShouldBeExpelled != 8 || buckets[1].Count != 1 {
		t.Fatalf("second bucket wrong: %+v", buckets[1])
	}

	total, err := s.StatsExpelledTotal(ctx)
	if err != nil {
		t.Fatalf("total stats: %v", err)
	}
	if total != 16 {
		t.Fatalf("expected 16 expelled, got %d", total)
	}
}

func TestCreateStudyGroupsBulkAllOrNothing(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)

	bad := namedGroupInput("G-2", c.ID)
	bad.ShouldBeExpelled = 0
	_, err := s.CreateStudyGroupsBulk(ctx, []StudyGroupInput{namedGroupInput("G-1", c.ID), bad})
	var importErr *domain.ImportValidationError
	if !errors.As(err, &importErr) {
		t.Fatalf("expected ImportValidationError, got %v", err)
	}
	if importErr.Index != 1 {
		t.Fatalf("wrong record index %d", importErr.Index)
	}
	page, _ := s.ListStudyGroups(ctx, PageRequest{})
	if page.TotalElements != 0 {
		t.Fatalf("partial bulk insert leaked rows")
	}

	created, err := s.CreateStudyGroupsBulk(ctx, []StudyGroupInput{
		namedGroupInput("G-1", c.ID),
		namedGroupInput("G-2", c.ID),
	})
	if err != nil {
		t.Fatalf("bulk create: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected 2 created, got %d", len(created))
	}
}

func TestUpdateStudyGroupInlineCoordinates(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	c := mustCreateCoordinates(t, s, 1, 1)
	g := mustCreateGroup(t, s, namedGroupInput("G-1", c.ID))

	updated, err := s.UpdateStudyGroup(ctx, g.ID, StudyGroupUpdate{
		Coordinates: &CoordinatesSelector{New: &CoordinatesInput{X: 9, Y: 9}},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.CoordinatesID == c.ID {
		t.Fatalf("inline coordinates not created")
	}
	if _, err := s.GetCoordinates(ctx, updated.CoordinatesID); err != nil {
		t.Fatalf("inline coordinates missing: %v", err)
	}
}
