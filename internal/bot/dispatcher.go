// Package bot routes normalized gateway events to the user and admin
// handlers. Routing order is: callback actions, slash commands, active
// workflow step, then menu labels; a menu label wins over an open
// solution prompt. Anything that matches none of those is dropped.
package bot

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"xcourses_bot/internal/bot/handler"
	"xcourses_bot/internal/domain/gateway"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/platform/session"
)

type Dispatcher struct {
	gw       gateway.Gateway
	sessions session.Store
	user     *handler.UserHandler
	admin    *handler.AdminHandler
	adminID  int64
	log      *zap.Logger

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewDispatcher(
	gw gateway.Gateway,
	sessions session.Store,
	user *handler.UserHandler,
	admin *handler.AdminHandler,
	adminID int64,
	log *zap.Logger,
) *Dispatcher {
	return &Dispatcher{
		gw:       gw,
		sessions: sessions,
		user:     user,
		admin:    admin,
		adminID:  adminID,
		log:      log,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// userLock returns the mutex serializing one user's events. Events for
// different users run concurrently; two events from the same user
// never interleave, which keeps step transitions race-free.
func (d *Dispatcher) userLock(userID int64) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()
	lock, ok := d.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		d.locks[userID] = lock
	}
	return lock
}

// Dispatch handles one event to completion. A panicking handler is
// contained: it loses its own event only.
func (d *Dispatcher) Dispatch(ctx context.Context, ev gateway.Event) {
	if ev.UserID == 0 {
		return
	}

	lock := d.userLock(ev.UserID)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panicked",
				zap.Int64("user_id", ev.UserID),
				zap.Any("panic", r))
		}
	}()

	switch {
	case ev.Callback != nil:
		d.dispatchCallback(ctx, ev)
	case ev.Command != "":
		d.dispatchCommand(ctx, ev)
	default:
		d.dispatchMessage(ctx, ev)
	}
}

func (d *Dispatcher) dispatchCallback(ctx context.Context, ev gateway.Event) {
	action, err := model.ParseAction(ev.Callback.Data)
	if err != nil {
		d.log.Warn("dropping unparseable callback",
			zap.Int64("user_id", ev.UserID),
			zap.String("data", ev.Callback.Data))
		d.answer(ctx, ev, "")
		return
	}

	// Admin-only buttons pressed by anyone else are ignored without
	// feedback; the button should never have been visible to them.
	if action.IsAdminOnly() && ev.UserID != d.adminID {
		return
	}

	// Review buttons answer with their outcome; everything else gets a
	// bare acknowledgement up front to stop the client spinner.
	if action.Kind != model.ActionAccept && action.Kind != model.ActionReject {
		d.answer(ctx, ev, "")
	}

	switch action.Kind {
	case model.ActionNoop:
	case model.ActionCancel:
		d.cancel(ctx, ev)
	case model.ActionCourseList:
		d.user.ShowCourseList(ctx, ev)
	case model.ActionCourse:
		d.user.ChooseCourse(ctx, ev, action.CourseID)
	case model.ActionBackModules:
		d.user.ShowModules(ctx, ev, action.CourseID)
	case model.ActionModule:
		d.user.ShowModule(ctx, ev, action.ModuleID)
	case model.ActionTask:
		d.user.ShowTask(ctx, ev, action.TaskID)
	case model.ActionAddModuleCourse:
		d.admin.HandleAddModuleCourse(ctx, action.CourseID)
	case model.ActionAddTaskCourse:
		d.admin.HandleAddTaskCourse(ctx, ev, action.CourseID)
	case model.ActionAddTaskModule:
		d.admin.HandleAddTaskModule(ctx, action.ModuleID)
	case model.ActionDeleteCourse:
		d.admin.HandleDeleteCourse(ctx, ev, action.CourseID)
	case model.ActionConfirmDelete:
		d.admin.HandleConfirmDelete(ctx, ev, action.CourseID)
	case model.ActionAccept, model.ActionReject:
		d.admin.HandleReview(ctx, ev, action)
	}
}

// cancel aborts whatever workflow is active and returns the user to
// their menu.
func (d *Dispatcher) cancel(ctx context.Context, ev gateway.Event) {
	if err := d.sessions.Clear(ctx, ev.UserID); err != nil {
		d.log.Error("session clear failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}
	ref := gateway.MessageRef{ChatID: ev.UserID, MessageID: ev.Callback.MessageID}
	if err := d.gw.Edit(ctx, ref, "❌ Action cancelled.", nil); err != nil {
		// The pressed message may be a media caption; strip the
		// buttons instead.
		if err := d.gw.EditMarkup(ctx, ref, nil); err != nil {
			d.log.Error("cancel edit failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		}
	}
	if ev.UserID == d.adminID {
		d.admin.Menu(ctx)
		return
	}
	d.user.MainMenu(ctx, ev.UserID)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, ev gateway.Event) {
	switch ev.Command {
	case "start":
		d.user.Start(ctx, ev)
	case "admin":
		if ev.UserID != d.adminID {
			return
		}
		d.admin.Menu(ctx)
	case "skip":
		if ev.UserID != d.adminID {
			return
		}
		state, err := d.sessions.Get(ctx, ev.UserID)
		if err != nil {
			d.log.Error("session read failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
			return
		}
		d.admin.SkipMedia(ctx, state)
	}
}

func (d *Dispatcher) dispatchMessage(ctx context.Context, ev gateway.Event) {
	state, err := d.sessions.Get(ctx, ev.UserID)
	if err != nil {
		d.log.Error("session read failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		return
	}

	if state.Step != model.StepIdle {
		d.dispatchStep(ctx, ev, state)
		return
	}
	d.dispatchLabel(ctx, ev)
}

func (d *Dispatcher) dispatchStep(ctx context.Context, ev gateway.Event, state session.State) {
	workflow, _, _ := strings.Cut(string(state.Step), ":")
	switch workflow {
	case "registration":
		d.user.HandleFullName(ctx, ev)
	case "submission":
		// A menu tap while the solution prompt is open is navigation,
		// not a solution; the prompt stays armed.
		if ev.Attachment == nil && handler.IsMenuLabel(ev.Text) {
			d.dispatchLabel(ctx, ev)
			return
		}
		d.user.HandleSolution(ctx, ev, state)
	case "course_create", "module_create", "task_create":
		if ev.UserID != d.adminID {
			return
		}
		d.admin.HandleStep(ctx, ev, state)
	default:
		d.log.Warn("unknown workflow step",
			zap.Int64("user_id", ev.UserID),
			zap.String("step", string(state.Step)))
	}
}

func (d *Dispatcher) dispatchLabel(ctx context.Context, ev gateway.Event) {
	switch ev.Text {
	case handler.LabelCourses:
		d.user.ShowCourseList(ctx, ev)
	case handler.LabelMyCourse:
		d.user.MyCourse(ctx, ev)
	case handler.LabelSupport:
		d.user.Support(ctx, ev)
	case handler.LabelMainMenu:
		d.user.MainMenu(ctx, ev.UserID)
	case handler.LabelAddCourse, handler.LabelDeleteCourse, handler.LabelAddModule,
		handler.LabelAddTask, handler.LabelStats, handler.LabelUsers:
		if ev.UserID != d.adminID {
			return
		}
		switch ev.Text {
		case handler.LabelAddCourse:
			d.admin.StartAddCourse(ctx)
		case handler.LabelDeleteCourse:
			d.admin.StartDeleteCourse(ctx)
		case handler.LabelAddModule:
			d.admin.StartAddModule(ctx)
		case handler.LabelAddTask:
			d.admin.StartAddTask(ctx)
		case handler.LabelStats:
			d.admin.Stats(ctx)
		case handler.LabelUsers:
			d.admin.Users(ctx)
		}
	}
}

func (d *Dispatcher) answer(ctx context.Context, ev gateway.Event, text string) {
	if err := d.gw.Answer(ctx, ev.Callback.ID, text); err != nil {
		d.log.Error("callback answer failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}
}
