package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"xcourses_bot/internal/app/service"
	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/gateway"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/platform/session"
)

// AdminHandler drives the authoring and review flows. The dispatcher
// guarantees only the configured administrator ever reaches these
// methods.
type AdminHandler struct {
	catalog  *service.CatalogService
	review   *service.ReviewService
	stats    *service.StatsService
	sessions session.Store
	gw       gateway.Gateway
	adminID  int64
	log      *zap.Logger
}

func NewAdminHandler(
	catalog *service.CatalogService,
	review *service.ReviewService,
	stats *service.StatsService,
	sessions session.Store,
	gw gateway.Gateway,
	adminID int64,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		catalog:  catalog,
		review:   review,
		stats:    stats,
		sessions: sessions,
		gw:       gw,
		adminID:  adminID,
		log:      log,
	}
}

func (h *AdminHandler) Menu(ctx context.Context) {
	if err := h.gw.SendMenu(ctx, h.adminID, "🛠 Admin panel:", adminMenu()); err != nil {
		h.log.Error("failed to send admin menu", zap.Error(err))
	}
}

// StartAddCourse begins the course creation workflow.
func (h *AdminHandler) StartAddCourse(ctx context.Context) {
	h.send(ctx, "Enter the title of the new course:", cancelKeyboard())
	h.setStep(ctx, model.StepCourseTitle)
}

// StartAddModule asks which course the new module belongs to.
func (h *AdminHandler) StartAddModule(ctx context.Context) {
	h.offerCourses(ctx, "Which course gets the new module?", model.ActionAddModuleCourse)
}

// StartAddTask asks which course, then which module, the new task
// belongs to.
func (h *AdminHandler) StartAddTask(ctx context.Context) {
	h.offerCourses(ctx, "Which course gets the new task?", model.ActionAddTaskCourse)
}

// StartDeleteCourse asks which course to delete.
func (h *AdminHandler) StartDeleteCourse(ctx context.Context) {
	h.offerCourses(ctx, "Which course should be deleted?", model.ActionDeleteCourse)
}

func (h *AdminHandler) offerCourses(ctx context.Context, prompt string, kind model.ActionKind) {
	courses, err := h.catalog.ListCourses(ctx)
	if err != nil {
		h.log.Error("course list failed", zap.Error(err))
		h.send(ctx, "⚠️ Could not load courses.", nil)
		return
	}
	if len(courses) == 0 {
		h.send(ctx, "ℹ️ There are no courses yet.", nil)
		return
	}
	h.send(ctx, prompt, courseKeyboard(courses, kind))
}

// HandleStep advances whichever authoring workflow is active.
func (h *AdminHandler) HandleStep(ctx context.Context, ev gateway.Event, state session.State) {
	switch state.Step {
	case model.StepCourseTitle:
		h.collectText(ctx, ev, model.FieldTitle, "Enter the course description:", model.StepCourseDescription)
	case model.StepCourseDescription:
		h.collectText(ctx, ev, model.FieldDescription, "Send a cover image or document, or /skip:", model.StepCourseMedia)
	case model.StepCourseMedia:
		if ev.Attachment == nil {
			h.send(ctx, "Send a photo or document, or /skip.", cancelKeyboard())
			return
		}
		media := model.EncodeAttachments([]model.Attachment{*ev.Attachment})
		h.finishCourse(ctx, state, &media)
	case model.StepModuleTitle:
		h.finishModule(ctx, ev, state)
	case model.StepTaskTitle:
		h.collectText(ctx, ev, model.FieldTitle, "Enter the task content:", model.StepTaskContent)
	case model.StepTaskContent:
		h.collectText(ctx, ev, model.FieldContent, "Send a task attachment, or /skip:", model.StepTaskMedia)
	case model.StepTaskMedia:
		if ev.Attachment == nil {
			h.send(ctx, "Send a photo or document, or /skip.", cancelKeyboard())
			return
		}
		media := model.EncodeAttachments([]model.Attachment{*ev.Attachment})
		h.finishTask(ctx, state, &media)
	default:
		h.log.Warn("unhandled admin step", zap.String("step", string(state.Step)))
	}
}

// SkipMedia handles /skip on the optional media steps.
func (h *AdminHandler) SkipMedia(ctx context.Context, state session.State) {
	switch state.Step {
	case model.StepCourseMedia:
		h.finishCourse(ctx, state, nil)
	case model.StepTaskMedia:
		h.finishTask(ctx, state, nil)
	}
}

func (h *AdminHandler) collectText(ctx context.Context, ev gateway.Event, field, nextPrompt string, next model.Step) {
	if strings.TrimSpace(ev.Text) == "" {
		h.send(ctx, "❌ This step needs text.", cancelKeyboard())
		return
	}
	if err := h.sessions.UpdateData(ctx, h.adminID, map[string]string{field: ev.Text}); err != nil {
		h.log.Error("session update failed", zap.Error(err))
		return
	}
	h.send(ctx, nextPrompt, cancelKeyboard())
	h.setStep(ctx, next)
}

// finishCourse commits the accumulated draft. The workflow ends here
// whatever the outcome; a failed commit never leaves a half-armed
// state behind.
func (h *AdminHandler) finishCourse(ctx context.Context, state session.State, mediaID *string) {
	defer h.clear(ctx)

	course, err := h.catalog.CreateCourse(ctx, service.CourseDraft{
		Title:       state.Data[model.FieldTitle],
		Description: state.Data[model.FieldDescription],
		MediaID:     mediaID,
	})
	switch {
	case errors.Is(err, common.ErrConflict):
		h.send(ctx, "❌ A course with this title already exists.", nil)
	case errors.Is(err, common.ErrValidation):
		h.send(ctx, "❌ The course title must not be empty.", nil)
	case err != nil:
		h.log.Error("course creation failed", zap.Error(err))
		h.send(ctx, "⚠️ Could not create the course.", nil)
	default:
		h.send(ctx, fmt.Sprintf("✅ Course «%s» created!\nDeep link slug: %s", course.Title, course.Slug), nil)
	}
	h.Menu(ctx)
}

// HandleAddModuleCourse records the chosen course and asks for the
// module title.
func (h *AdminHandler) HandleAddModuleCourse(ctx context.Context, courseID int64) {
	if err := h.sessions.UpdateData(ctx, h.adminID, map[string]string{
		model.FieldCourseID: strconv.FormatInt(courseID, 10),
	}); err != nil {
		h.log.Error("session update failed", zap.Error(err))
		return
	}
	h.send(ctx, "Enter the module title:", cancelKeyboard())
	h.setStep(ctx, model.StepModuleTitle)
}

func (h *AdminHandler) finishModule(ctx context.Context, ev gateway.Event, state session.State) {
	defer h.clear(ctx)

	courseID, err := strconv.ParseInt(state.Data[model.FieldCourseID], 10, 64)
	if err != nil {
		h.log.Error("module workflow without course id")
		h.send(ctx, "⚠️ Something went wrong, start over.", nil)
		h.Menu(ctx)
		return
	}
	_, err = h.catalog.CreateModule(ctx, service.ModuleDraft{CourseID: courseID, Title: ev.Text})
	switch {
	case errors.Is(err, common.ErrValidation):
		h.send(ctx, "❌ The module title must not be empty.", nil)
	case errors.Is(err, common.ErrNotFound):
		h.send(ctx, "❌ This course no longer exists.", nil)
	case err != nil:
		h.log.Error("module creation failed", zap.Error(err))
		h.send(ctx, "⚠️ Could not create the module.", nil)
	default:
		h.send(ctx, "✅ Module created!", nil)
	}
	h.Menu(ctx)
}

// HandleAddTaskCourse narrows the task destination to a module. A
// course with no modules aborts back to course selection, since a task
// must live in a module.
func (h *AdminHandler) HandleAddTaskCourse(ctx context.Context, ev gateway.Event, courseID int64) {
	modules, err := h.catalog.ListModules(ctx, courseID)
	if err != nil {
		h.log.Error("module list failed", zap.Int64("course_id", courseID), zap.Error(err))
		h.send(ctx, "⚠️ Could not load modules.", nil)
		return
	}
	if len(modules) == 0 {
		h.send(ctx, "❌ This course has no modules yet. Add a module first.", nil)
		h.StartAddTask(ctx)
		return
	}

	text := "Which module gets the new task?"
	kb := moduleKeyboard(modules, model.ActionAddTaskModule, "")
	if ev.Callback != nil {
		if err := h.gw.Edit(ctx, callbackRef(ev), text, kb); err == nil {
			return
		}
	}
	h.send(ctx, text, kb)
}

// HandleAddTaskModule records the chosen module and starts collecting
// the task fields.
func (h *AdminHandler) HandleAddTaskModule(ctx context.Context, moduleID int64) {
	if err := h.sessions.UpdateData(ctx, h.adminID, map[string]string{
		model.FieldModuleID: strconv.FormatInt(moduleID, 10),
	}); err != nil {
		h.log.Error("session update failed", zap.Error(err))
		return
	}
	h.send(ctx, "Enter the task title:", cancelKeyboard())
	h.setStep(ctx, model.StepTaskTitle)
}

func (h *AdminHandler) finishTask(ctx context.Context, state session.State, fileID *string) {
	defer h.clear(ctx)

	moduleID, err := strconv.ParseInt(state.Data[model.FieldModuleID], 10, 64)
	if err != nil {
		h.log.Error("task workflow without module id")
		h.send(ctx, "⚠️ Something went wrong, start over.", nil)
		h.Menu(ctx)
		return
	}
	_, err = h.catalog.CreateTask(ctx, service.TaskDraft{
		ModuleID: moduleID,
		Title:    state.Data[model.FieldTitle],
		Content:  state.Data[model.FieldContent],
		FileID:   fileID,
	})
	switch {
	case errors.Is(err, common.ErrValidation):
		h.send(ctx, "❌ The task needs both a title and content.", nil)
	case errors.Is(err, common.ErrNotFound):
		h.send(ctx, "❌ This module no longer exists.", nil)
	case err != nil:
		h.log.Error("task creation failed", zap.Error(err))
		h.send(ctx, "⚠️ Could not create the task.", nil)
	default:
		h.send(ctx, "✅ Task created!", nil)
	}
	h.Menu(ctx)
}

// HandleDeleteCourse asks for confirmation before anything is removed.
func (h *AdminHandler) HandleDeleteCourse(ctx context.Context, ev gateway.Event, courseID int64) {
	course, err := h.catalog.GetCourse(ctx, courseID)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, "❌ This course no longer exists.", nil)
		return
	}
	if err != nil {
		h.log.Error("course lookup failed", zap.Int64("course_id", courseID), zap.Error(err))
		return
	}

	text := fmt.Sprintf("⚠️ Delete course «%s»?\nAll of its modules, tasks and submissions will be removed.", course.Title)
	kb := gateway.Keyboard{
		{{Text: "🗑 Yes, delete", Action: model.Action{Kind: model.ActionConfirmDelete, CourseID: courseID}.Encode()}},
		cancelRow(),
	}
	if ev.Callback != nil {
		if err := h.gw.Edit(ctx, callbackRef(ev), text, kb); err == nil {
			return
		}
	}
	h.send(ctx, text, kb)
}

// HandleConfirmDelete performs the cascade. Affected learners are
// notified asynchronously by the worker.
func (h *AdminHandler) HandleConfirmDelete(ctx context.Context, ev gateway.Event, courseID int64) {
	course, affected, err := h.catalog.DeleteCourse(ctx, courseID)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, "❌ This course was already deleted.", nil)
		return
	}
	if err != nil {
		h.log.Error("course deletion failed", zap.Int64("course_id", courseID), zap.Error(err))
		h.send(ctx, "⚠️ Could not delete the course.", nil)
		return
	}

	text := fmt.Sprintf("🗑 Course «%s» deleted. %d learners will be notified.", course.Title, affected)
	if ev.Callback != nil {
		if err := h.gw.Edit(ctx, callbackRef(ev), text, nil); err == nil {
			h.Menu(ctx)
			return
		}
	}
	h.send(ctx, text, nil)
	h.Menu(ctx)
}

// HandleReview applies an accept or reject button press. The controls
// are stripped from the reviewed message on success so a double tap
// has nothing left to press; a race that loses anyway gets a toast
// instead of a second state change.
func (h *AdminHandler) HandleReview(ctx context.Context, ev gateway.Event, action model.Action) {
	var err error
	switch action.Kind {
	case model.ActionAccept:
		err = h.review.Accept(ctx, action.TaskID, action.UserID)
	case model.ActionReject:
		err = h.review.Reject(ctx, action.TaskID, action.UserID)
	}

	switch {
	case errors.Is(err, common.ErrAlreadyDecided):
		h.answer(ctx, ev, "This submission was already reviewed.")
	case errors.Is(err, common.ErrNotFound):
		h.answer(ctx, ev, "❌ This submission no longer exists.")
	case err != nil:
		h.log.Error("review failed",
			zap.Int64("task_id", action.TaskID),
			zap.Int64("user_id", action.UserID),
			zap.Error(err))
		h.answer(ctx, ev, "⚠️ Could not update the status.")
		return
	default:
		h.answer(ctx, ev, "✅ Status updated!")
	}

	if ev.Callback != nil {
		if err := h.gw.EditMarkup(ctx, callbackRef(ev), nil); err != nil {
			h.log.Error("failed to strip review controls", zap.Error(err))
		}
	}
}

// Stats renders the per-course rollup.
func (h *AdminHandler) Stats(ctx context.Context) {
	stats, err := h.stats.CourseStats(ctx)
	if err != nil {
		h.log.Error("stats query failed", zap.Error(err))
		h.send(ctx, "⚠️ Could not load statistics.", nil)
		return
	}
	if len(stats) == 0 {
		h.send(ctx, "ℹ️ There are no courses yet.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("📈 Course statistics:\n\n")
	for _, st := range stats {
		fmt.Fprintf(&b, "📚 %s\nModules: %d\nTasks: %d\nSubmissions: %d\n\n",
			st.Title, st.ModuleCount, st.TaskCount, st.SubmissionCount)
	}
	h.send(ctx, strings.TrimRight(b.String(), "\n"), nil)
}

// Users renders the learner roster.
func (h *AdminHandler) Users(ctx context.Context) {
	users, err := h.stats.UserOverview(ctx)
	if err != nil {
		h.log.Error("user overview query failed", zap.Error(err))
		h.send(ctx, "⚠️ Could not load users.", nil)
		return
	}
	if len(users) == 0 {
		h.send(ctx, "ℹ️ Nobody has registered yet.", nil)
		return
	}

	var b strings.Builder
	b.WriteString("📊 Users:\n\n")
	for _, u := range users {
		course := "not chosen"
		if u.CourseTitle != nil {
			course = *u.CourseTitle
		}
		fmt.Fprintf(&b, "👤 %s (%d)\nCourse: %s\nSubmissions: %d\n\n",
			u.FullName, u.UserID, course, u.SubmissionCount)
	}
	h.send(ctx, strings.TrimRight(b.String(), "\n"), nil)
}

func (h *AdminHandler) send(ctx context.Context, text string, kb gateway.Keyboard) {
	if _, err := h.gw.Send(ctx, h.adminID, text, kb); err != nil {
		h.log.Error("admin send failed", zap.Error(err))
	}
}

func (h *AdminHandler) answer(ctx context.Context, ev gateway.Event, text string) {
	if ev.Callback == nil {
		return
	}
	if err := h.gw.Answer(ctx, ev.Callback.ID, text); err != nil {
		h.log.Error("callback answer failed", zap.Error(err))
	}
}

func (h *AdminHandler) setStep(ctx context.Context, step model.Step) {
	if err := h.sessions.SetStep(ctx, h.adminID, step); err != nil {
		h.log.Error("session step update failed", zap.Error(err))
	}
}

func (h *AdminHandler) clear(ctx context.Context) {
	if err := h.sessions.Clear(ctx, h.adminID); err != nil {
		h.log.Error("session clear failed", zap.Error(err))
	}
}
