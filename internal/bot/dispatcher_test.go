package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"xcourses_bot/internal/app/service"
	"xcourses_bot/internal/app/worker"
	"xcourses_bot/internal/bot/handler"
	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/gateway"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
	"xcourses_bot/internal/platform/session"
)

const (
	adminID   int64 = 42
	learnerID int64 = 1001
)

// syncNotifier delivers notices inline through the worker instead of
// a queue, so a test sees the resulting chat traffic immediately.
type syncNotifier struct {
	w *worker.NotifyWorker
}

func (n *syncNotifier) SubmissionReceived(ctx context.Context, taskID, userID int64) error {
	n.w.Process(ctx, worker.Notice{ID: "t", Kind: worker.KindNewSubmission, UserID: userID, TaskID: taskID})
	return nil
}

func (n *syncNotifier) ReviewDecided(ctx context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) error {
	n.w.Process(ctx, worker.Notice{ID: "t", Kind: worker.KindReviewDecided, UserID: userID, TaskID: taskID, Status: status, Score: score})
	return nil
}

func (n *syncNotifier) CourseDeleted(ctx context.Context, userID int64, courseTitle string) error {
	n.w.Process(ctx, worker.Notice{ID: "t", Kind: worker.KindCourseDeleted, UserID: userID, CourseTitle: courseTitle})
	return nil
}

type env struct {
	mem        *repository.Memory
	rec        *gateway.Recorder
	dispatcher *Dispatcher
}

func newEnv() *env {
	mem := repository.NewMemory()
	rec := gateway.NewRecorder()
	sessions := session.NewMemoryStore()
	log := zap.NewNop()

	notifier := &syncNotifier{w: worker.NewNotifyWorker(nil, "notify_queue", rec, mem, mem, mem, adminID, log)}

	regService := service.NewRegistrationService(mem, log)
	catalogService := service.NewCatalogService(mem, mem, mem, mem, notifier, log)
	submissionService := service.NewSubmissionService(mem, notifier, log)
	reviewService := service.NewReviewService(mem, notifier, 100, log)
	statsService := service.NewStatsService(mem, mem)

	userHandler := handler.NewUserHandler(regService, catalogService, submissionService, sessions, rec, adminID, log)
	adminHandler := handler.NewAdminHandler(catalogService, reviewService, statsService, sessions, rec, adminID, log)

	return &env{
		mem:        mem,
		rec:        rec,
		dispatcher: NewDispatcher(rec, sessions, userHandler, adminHandler, adminID, log),
	}
}

func (e *env) text(userID int64, text string) {
	e.dispatcher.Dispatch(context.Background(), gateway.Event{UserID: userID, Text: text})
}

func (e *env) command(userID int64, cmd, arg string) {
	e.dispatcher.Dispatch(context.Background(), gateway.Event{UserID: userID, Command: cmd, CommandArg: arg})
}

func (e *env) callback(userID int64, data string) {
	e.dispatcher.Dispatch(context.Background(), gateway.Event{
		UserID:   userID,
		Callback: &gateway.Callback{ID: "cb", MessageID: 1, Data: data},
	})
}

func (e *env) lastTo(t *testing.T, userID int64) gateway.RecordedMessage {
	t.Helper()
	sent := e.rec.SentTo(userID)
	if len(sent) == 0 {
		t.Fatalf("no messages sent to %d", userID)
	}
	return sent[len(sent)-1]
}

// TestFullCourseLifecycle walks the bot end to end: the admin authors
// a course, a learner registers, navigates to the task, submits, and
// the admin accepts the submission.
func TestFullCourseLifecycle(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	// Admin authors a course.
	e.command(adminID, "admin", "")
	e.text(adminID, handler.LabelAddCourse)
	e.text(adminID, "Algebra I")
	e.text(adminID, "Linear equations from scratch.")
	e.command(adminID, "skip", "")

	courses, err := e.mem.ListCourses(ctx)
	if err != nil || len(courses) != 1 {
		t.Fatalf("courses = %v (%v), want exactly one", courses, err)
	}
	course := courses[0]
	if course.Slug != "algebra-i" {
		t.Errorf("slug = %q, want algebra-i", course.Slug)
	}

	// Then a module.
	e.text(adminID, handler.LabelAddModule)
	e.callback(adminID, model.Action{Kind: model.ActionAddModuleCourse, CourseID: course.ID}.Encode())
	e.text(adminID, "Equations")

	modules, _ := e.mem.ListModulesByCourse(ctx, course.ID)
	if len(modules) != 1 {
		t.Fatalf("modules = %v, want exactly one", modules)
	}
	module := modules[0]

	// Then a task.
	e.text(adminID, handler.LabelAddTask)
	e.callback(adminID, model.Action{Kind: model.ActionAddTaskCourse, CourseID: course.ID}.Encode())
	e.callback(adminID, model.Action{Kind: model.ActionAddTaskModule, ModuleID: module.ID}.Encode())
	e.text(adminID, "Warm-up")
	e.text(adminID, "Solve x + 2 = 6.")
	e.command(adminID, "skip", "")

	tasks, _ := e.mem.ListTasksByModule(ctx, module.ID)
	if len(tasks) != 1 {
		t.Fatalf("tasks = %v, want exactly one", tasks)
	}
	task := tasks[0]

	// Learner registers.
	e.command(learnerID, "start", "")
	if msg := e.lastTo(t, learnerID); !strings.Contains(msg.Text, "full name") {
		t.Fatalf("expected registration prompt, got %q", msg.Text)
	}
	e.text(learnerID, "Ivan Petrov")

	// Learner navigates to the task and submits.
	e.text(learnerID, handler.LabelCourses)
	e.callback(learnerID, model.Action{Kind: model.ActionCourse, CourseID: course.ID}.Encode())
	e.callback(learnerID, model.Action{Kind: model.ActionModule, ModuleID: module.ID}.Encode())
	e.callback(learnerID, model.Action{Kind: model.ActionTask, TaskID: task.ID}.Encode())
	if msg := e.lastTo(t, learnerID); !strings.Contains(msg.Text, "Solve x + 2 = 6.") {
		t.Fatalf("expected task content, got %q", msg.Text)
	}
	e.text(learnerID, "x = 4")
	if msg := e.lastTo(t, learnerID); !strings.Contains(msg.Text, "sent for review") {
		t.Fatalf("expected submission confirmation, got %q", msg.Text)
	}

	// The reviewer notice carries accept/reject controls.
	adminMsgs := e.rec.SentTo(adminID)
	review := adminMsgs[len(adminMsgs)-1]
	if !strings.Contains(review.Text, "Ivan Petrov") || !strings.Contains(review.Text, "x = 4") {
		t.Fatalf("review notice = %q, want submitter and answer", review.Text)
	}
	if len(review.Keyboard) != 1 || len(review.Keyboard[0]) != 2 {
		t.Fatalf("review keyboard = %+v, want accept/reject row", review.Keyboard)
	}

	// Admin accepts via the button.
	e.callback(adminID, review.Keyboard[0][0].Action)

	sub, err := e.mem.GetSubmissionForUserTask(ctx, learnerID, task.ID)
	if err != nil {
		t.Fatalf("submission lookup: %v", err)
	}
	if sub.Status != model.StatusAccepted || sub.Score == nil || *sub.Score != 100 {
		t.Fatalf("submission = %+v, want accepted with score 100", sub)
	}
	if msg := e.lastTo(t, learnerID); !strings.Contains(msg.Text, "accepted") {
		t.Fatalf("expected acceptance notice, got %q", msg.Text)
	}

	// A second press changes nothing.
	e.callback(adminID, review.Keyboard[0][1].Action)
	sub, _ = e.mem.GetSubmissionForUserTask(ctx, learnerID, task.ID)
	if sub.Status != model.StatusAccepted {
		t.Errorf("second press flipped status to %q", sub.Status)
	}
}

func TestDuplicateSubmissionViaChat(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	course := &model.Course{Title: "Algebra", Slug: "algebra"}
	_ = e.mem.CreateCourse(ctx, course)
	module := &model.Module{CourseID: course.ID, Title: "M1"}
	_ = e.mem.CreateModule(ctx, module)
	task := &model.Task{ModuleID: module.ID, Title: "T1", Content: "Solve"}
	_ = e.mem.CreateTask(ctx, task)

	e.command(learnerID, "start", "")
	e.text(learnerID, "Ivan Petrov")

	e.callback(learnerID, model.Action{Kind: model.ActionTask, TaskID: task.ID}.Encode())
	e.text(learnerID, "first answer")

	// Re-opening the task shows the pending verdict, not an intake
	// prompt, and a repeat submit path reports the duplicate.
	e.callback(learnerID, model.Action{Kind: model.ActionTask, TaskID: task.ID}.Encode())
	if msg := e.lastTo(t, learnerID); !strings.Contains(msg.Text, "awaiting review") {
		t.Fatalf("expected pending verdict, got %q", msg.Text)
	}

	sub, err := e.mem.GetSubmissionForUserTask(ctx, learnerID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Content == nil || *sub.Content != "first answer" {
		t.Errorf("stored content = %v, want the first answer", sub.Content)
	}
}

func TestNonAdminIsSilentlyIgnored(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	course := &model.Course{Title: "Algebra", Slug: "algebra"}
	_ = e.mem.CreateCourse(ctx, course)

	e.command(learnerID, "start", "")
	e.text(learnerID, "Ivan Petrov")
	before := len(e.rec.SentTo(learnerID))

	// Admin entry points produce no feedback for anyone else.
	e.command(learnerID, "admin", "")
	e.text(learnerID, handler.LabelAddCourse)
	e.text(learnerID, handler.LabelStats)
	e.callback(learnerID, model.Action{Kind: model.ActionDeleteCourse, CourseID: course.ID}.Encode())
	e.callback(learnerID, model.Action{Kind: model.ActionAccept, TaskID: 1, UserID: learnerID}.Encode())

	if after := len(e.rec.SentTo(learnerID)); after != before {
		t.Errorf("non-admin got %d extra messages", after-before)
	}
	if _, err := e.mem.GetCourseByID(ctx, course.ID); err != nil {
		t.Error("course was deleted by a non-admin")
	}
}

func TestCourseDeletionNotifiesEnrolled(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	course := &model.Course{Title: "Algebra", Slug: "algebra"}
	_ = e.mem.CreateCourse(ctx, course)

	e.command(learnerID, "start", "")
	e.text(learnerID, "Ivan Petrov")
	e.callback(learnerID, model.Action{Kind: model.ActionCourse, CourseID: course.ID}.Encode())

	e.text(adminID, handler.LabelDeleteCourse)
	e.callback(adminID, model.Action{Kind: model.ActionDeleteCourse, CourseID: course.ID}.Encode())
	e.callback(adminID, model.Action{Kind: model.ActionConfirmDelete, CourseID: course.ID}.Encode())

	if _, err := e.mem.GetCourseByID(ctx, course.ID); err == nil {
		t.Fatal("course still exists after confirmed deletion")
	}
	if msg := e.lastTo(t, learnerID); !strings.Contains(msg.Text, "no longer available") {
		t.Errorf("learner notice = %q, want deletion notice", msg.Text)
	}
}

func TestDeepLinkSelectsCourse(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	course := &model.Course{Title: "Algebra", Slug: "algebra"}
	_ = e.mem.CreateCourse(ctx, course)

	// The slug arrives with /start before the user is registered; it
	// must apply right after registration completes.
	e.command(learnerID, "start", "algebra")
	e.text(learnerID, "Ivan Petrov")

	user, err := e.mem.GetUserByID(ctx, learnerID)
	if err != nil {
		t.Fatal(err)
	}
	if user.CurrentCourse == nil || *user.CurrentCourse != course.ID {
		t.Errorf("current course = %v, want %d", user.CurrentCourse, course.ID)
	}
}

func TestDispatchSerializesPerUser(t *testing.T) {
	e := newEnv()

	e.command(learnerID, "start", "")
	e.text(learnerID, "Ivan Petrov")

	// Concurrent events for one user must not corrupt session state;
	// the per-user lock serializes them.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.text(learnerID, fmt.Sprintf("message %d", i))
		}(i)
	}
	wg.Wait()
}

// TestAddTaskToModulelessCourseAborts: a task needs a module, so
// picking a course without any must explain that and re-offer the
// course list instead of arming the task intake.
func TestAddTaskToModulelessCourseAborts(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	course := &model.Course{Title: "Algebra", Slug: "algebra"}
	_ = e.mem.CreateCourse(ctx, course)

	e.text(adminID, handler.LabelAddTask)
	e.callback(adminID, model.Action{Kind: model.ActionAddTaskCourse, CourseID: course.ID}.Encode())

	sent := e.rec.SentTo(adminID)
	if len(sent) < 3 {
		t.Fatalf("admin got %d messages, want prompt, guidance and a fresh prompt", len(sent))
	}
	if guidance := sent[len(sent)-2]; !strings.Contains(guidance.Text, "no modules yet") {
		t.Fatalf("guidance = %q, want the no-modules hint", guidance.Text)
	}
	reoffer := sent[len(sent)-1]
	if !strings.Contains(reoffer.Text, "Which course gets the new task?") {
		t.Fatalf("follow-up = %q, want course selection again", reoffer.Text)
	}
	if len(reoffer.Keyboard) == 0 || len(reoffer.Keyboard[0]) == 0 {
		t.Fatal("follow-up carries no course keyboard")
	}
	action, err := model.ParseAction(reoffer.Keyboard[0][0].Action)
	if err != nil || action.Kind != model.ActionAddTaskCourse || action.CourseID != course.ID {
		t.Fatalf("follow-up button = %+v (%v), want a course pick for the task workflow", action, err)
	}

	// No intake step was armed.
	state, err := e.dispatcher.sessions.Get(ctx, adminID)
	if err != nil {
		t.Fatal(err)
	}
	if state.Step != model.StepIdle {
		t.Errorf("session step = %q, want idle", state.Step)
	}
}

// TestMenuTapDuringSolutionIntake: a persistent menu button pressed
// while a solution prompt is open navigates, it is not a solution. The
// prompt stays armed for the next real answer.
func TestMenuTapDuringSolutionIntake(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	course := &model.Course{Title: "Algebra", Slug: "algebra"}
	_ = e.mem.CreateCourse(ctx, course)
	module := &model.Module{CourseID: course.ID, Title: "M1"}
	_ = e.mem.CreateModule(ctx, module)
	task := &model.Task{ModuleID: module.ID, Title: "T1", Content: "Solve"}
	_ = e.mem.CreateTask(ctx, task)

	e.command(learnerID, "start", "")
	e.text(learnerID, "Ivan Petrov")
	e.callback(learnerID, model.Action{Kind: model.ActionTask, TaskID: task.ID}.Encode())

	e.text(learnerID, handler.LabelCourses)
	if msg := e.lastTo(t, learnerID); !strings.Contains(msg.Text, "Available courses") {
		t.Fatalf("menu tap answered %q, want the course list", msg.Text)
	}
	if _, err := e.mem.GetSubmissionForUserTask(ctx, learnerID, task.ID); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("menu label was stored as a solution (err = %v)", err)
	}

	e.text(learnerID, "x = 4")
	sub, err := e.mem.GetSubmissionForUserTask(ctx, learnerID, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Content == nil || *sub.Content != "x = 4" {
		t.Errorf("stored content = %v, want the real answer", sub.Content)
	}
}

func TestCancelAbortsWorkflow(t *testing.T) {
	e := newEnv()

	e.text(adminID, handler.LabelAddCourse)
	e.callback(adminID, model.Action{Kind: model.ActionCancel}.Encode())
	// After cancel the next text is a plain idle message, not a course
	// title; no course may appear.
	e.text(adminID, "Algebra")

	courses, _ := e.mem.ListCourses(context.Background())
	if len(courses) != 0 {
		t.Errorf("cancelled workflow still created %v", courses)
	}
}
