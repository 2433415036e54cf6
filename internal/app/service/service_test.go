package service

import (
	"context"

	"go.uber.org/zap"

	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
)

// fakeNotifier records notices instead of queueing them, and can be
// told to fail so tests can assert that delivery problems never fail
// the triggering operation.
type fakeNotifier struct {
	err   error
	calls []noticeCall
}

type noticeCall struct {
	kind        string
	userID      int64
	taskID      int64
	status      model.SubmissionStatus
	score       *int
	courseTitle string
}

func (f *fakeNotifier) SubmissionReceived(_ context.Context, taskID, userID int64) error {
	f.calls = append(f.calls, noticeCall{kind: "new_submission", taskID: taskID, userID: userID})
	return f.err
}

func (f *fakeNotifier) ReviewDecided(_ context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) error {
	f.calls = append(f.calls, noticeCall{kind: "review_decided", taskID: taskID, userID: userID, status: status, score: score})
	return f.err
}

func (f *fakeNotifier) CourseDeleted(_ context.Context, userID int64, courseTitle string) error {
	f.calls = append(f.calls, noticeCall{kind: "course_deleted", userID: userID, courseTitle: courseTitle})
	return f.err
}

// fixture wires every service against one shared in-memory store.
type fixture struct {
	mem      *repository.Memory
	notifier *fakeNotifier

	reg     *RegistrationService
	catalog *CatalogService
	subs    *SubmissionService
	review  *ReviewService
	stats   *StatsService
}

func newFixture() *fixture {
	mem := repository.NewMemory()
	notifier := &fakeNotifier{}
	log := zap.NewNop()
	return &fixture{
		mem:      mem,
		notifier: notifier,
		reg:      NewRegistrationService(mem, log),
		catalog:  NewCatalogService(mem, mem, mem, mem, notifier, log),
		subs:     NewSubmissionService(mem, notifier, log),
		review:   NewReviewService(mem, notifier, 100, log),
		stats:    NewStatsService(mem, mem),
	}
}

// seedTask creates a course, a module and a task, returning their ids.
func (f *fixture) seedTask(title string) (courseID, moduleID, taskID int64) {
	ctx := context.Background()
	course, err := f.catalog.CreateCourse(ctx, CourseDraft{Title: title, Description: "desc"})
	if err != nil {
		panic(err)
	}
	module, err := f.catalog.CreateModule(ctx, ModuleDraft{CourseID: course.ID, Title: "Module 1"})
	if err != nil {
		panic(err)
	}
	task, err := f.catalog.CreateTask(ctx, TaskDraft{ModuleID: module.ID, Title: "Task 1", Content: "Solve it"})
	if err != nil {
		panic(err)
	}
	return course.ID, module.ID, task.ID
}
