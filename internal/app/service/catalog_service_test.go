package service

import (
	"context"
	"errors"
	"testing"

	"xcourses_bot/internal/common"
)

func TestCreateCourseSlug(t *testing.T) {
	f := newFixture()
	course, err := f.catalog.CreateCourse(context.Background(), CourseDraft{Title: "Algebra I: Basics"})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if course.Slug != "algebra-i-basics" {
		t.Errorf("slug = %q, want %q", course.Slug, "algebra-i-basics")
	}
}

func TestCreateCourseDuplicateTitle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.catalog.CreateCourse(ctx, CourseDraft{Title: "Algebra"}); err != nil {
		t.Fatalf("first CreateCourse: %v", err)
	}
	_, err := f.catalog.CreateCourse(ctx, CourseDraft{Title: "Algebra"})
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("duplicate CreateCourse err = %v, want ErrConflict", err)
	}
}

func TestCreateCourseEmptyTitle(t *testing.T) {
	f := newFixture()
	_, err := f.catalog.CreateCourse(context.Background(), CourseDraft{Title: ""})
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("empty title err = %v, want ErrValidation", err)
	}
}

func TestCreateModuleInMissingCourse(t *testing.T) {
	f := newFixture()
	_, err := f.catalog.CreateModule(context.Background(), ModuleDraft{CourseID: 999, Title: "Orphan"})
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("CreateModule err = %v, want ErrNotFound", err)
	}
}

func TestChooseCourseBySlug(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	courseID, _, _ := f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}

	course, err := f.catalog.ChooseCourseBySlug(ctx, 1001, "algebra")
	if err != nil {
		t.Fatalf("ChooseCourseBySlug: %v", err)
	}
	if course.ID != courseID {
		t.Errorf("course ID = %d, want %d", course.ID, courseID)
	}

	current, err := f.catalog.CurrentCourse(ctx, 1001)
	if err != nil {
		t.Fatalf("CurrentCourse: %v", err)
	}
	if current == nil || current.ID != courseID {
		t.Errorf("current course = %+v, want id %d", current, courseID)
	}
}

func TestChooseCourseBySlugUnknown(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}
	_, err := f.catalog.ChooseCourseBySlug(ctx, 1001, "no-such-course")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCurrentCourseNoneChosen(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}
	course, err := f.catalog.CurrentCourse(ctx, 1001)
	if err != nil {
		t.Fatalf("CurrentCourse: %v", err)
	}
	if course != nil {
		t.Errorf("current course = %+v, want nil", course)
	}
}

func TestDeleteCourseCascadesAndNotifies(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	courseID, moduleID, taskID := f.seedTask("Algebra")
	for _, id := range []int64{1001, 1002} {
		if _, err := f.reg.Register(ctx, id, "Ivan Petrov"); err != nil {
			t.Fatal(err)
		}
		if _, err := f.catalog.ChooseCourse(ctx, id, courseID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.subs.Submit(ctx, 1001, taskID, strPtr("x = 4"), nil); err != nil {
		t.Fatal(err)
	}
	f.notifier.calls = nil

	course, affected, err := f.catalog.DeleteCourse(ctx, courseID)
	if err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}
	if course.Title != "Algebra" || affected != 2 {
		t.Errorf("deleted %q affecting %d users, want Algebra affecting 2", course.Title, affected)
	}

	// Everything under the course is gone.
	if _, err := f.catalog.GetModule(ctx, moduleID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("module survived deletion: %v", err)
	}
	if _, err := f.catalog.GetTask(ctx, taskID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("task survived deletion: %v", err)
	}
	if _, err := f.subs.Get(ctx, 1001, taskID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("submission survived deletion: %v", err)
	}

	// Both learners lose their selection and get a notice.
	for _, id := range []int64{1001, 1002} {
		current, err := f.catalog.CurrentCourse(ctx, id)
		if err != nil {
			t.Fatalf("CurrentCourse(%d): %v", id, err)
		}
		if current != nil {
			t.Errorf("user %d still has a course after deletion", id)
		}
	}
	if len(f.notifier.calls) != 2 {
		t.Fatalf("got %d notices, want 2", len(f.notifier.calls))
	}
	for _, call := range f.notifier.calls {
		if call.kind != "course_deleted" || call.courseTitle != "Algebra" {
			t.Errorf("unexpected notice %+v", call)
		}
	}
}

func TestDeleteCourseSurvivesNotifierFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	courseID, _, _ := f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.catalog.ChooseCourse(ctx, 1001, courseID); err != nil {
		t.Fatal(err)
	}

	f.notifier.err = errors.New("queue down")
	if _, _, err := f.catalog.DeleteCourse(ctx, courseID); err != nil {
		t.Fatalf("DeleteCourse must not fail on notifier errors: %v", err)
	}
	if _, err := f.catalog.GetCourse(ctx, courseID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("course survived deletion: %v", err)
	}
}

func strPtr(s string) *string { return &s }
