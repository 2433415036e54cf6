package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"xcourses_bot/internal/app/service"
	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/gateway"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/platform/session"
)

// UserHandler drives the learner-facing flows: registration, catalog
// navigation and solution intake.
type UserHandler struct {
	reg      *service.RegistrationService
	catalog  *service.CatalogService
	subs     *service.SubmissionService
	sessions session.Store
	gw       gateway.Gateway
	adminID  int64
	log      *zap.Logger
}

func NewUserHandler(
	reg *service.RegistrationService,
	catalog *service.CatalogService,
	subs *service.SubmissionService,
	sessions session.Store,
	gw gateway.Gateway,
	adminID int64,
	log *zap.Logger,
) *UserHandler {
	return &UserHandler{
		reg:      reg,
		catalog:  catalog,
		subs:     subs,
		sessions: sessions,
		gw:       gw,
		adminID:  adminID,
		log:      log,
	}
}

func callbackRef(ev gateway.Event) gateway.MessageRef {
	return gateway.MessageRef{ChatID: ev.UserID, MessageID: ev.Callback.MessageID}
}

// Start greets the user. A known user gets the main menu back; a
// stranger enters registration. The optional command argument is a
// course slug from a deep link and selects that course once the user
// is (or becomes) registered.
func (h *UserHandler) Start(ctx context.Context, ev gateway.Event) {
	user, err := h.reg.Lookup(ctx, ev.UserID)
	switch {
	case err == nil:
		if ev.CommandArg != "" {
			h.applyDeepLink(ctx, ev.UserID, ev.CommandArg)
			return
		}
		h.send(ctx, ev.UserID, fmt.Sprintf("Welcome back, %s!", user.FullName), nil)
		h.MainMenu(ctx, ev.UserID)
	case errors.Is(err, common.ErrNotFound):
		if ev.CommandArg != "" {
			if err := h.sessions.UpdateData(ctx, ev.UserID, map[string]string{model.FieldCourseSlug: ev.CommandArg}); err != nil {
				h.log.Error("failed to stash deep link slug", zap.Int64("user_id", ev.UserID), zap.Error(err))
			}
		}
		h.send(ctx, ev.UserID,
			"📝 Let's get acquainted! Send your full name so your mentor can review your work and give feedback.",
			nil)
		if err := h.sessions.SetStep(ctx, ev.UserID, model.StepAwaitingFullName); err != nil {
			h.log.Error("failed to start registration", zap.Int64("user_id", ev.UserID), zap.Error(err))
		}
	default:
		h.log.Error("user lookup failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		h.send(ctx, ev.UserID, "⚠️ Something went wrong, try again later.", nil)
	}
}

// HandleFullName finishes registration. An invalid name keeps the step
// active; a duplicate registration is reported and the workflow ends.
func (h *UserHandler) HandleFullName(ctx context.Context, ev gateway.Event) {
	state, err := h.sessions.Get(ctx, ev.UserID)
	if err != nil {
		h.log.Error("session read failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}

	_, err = h.reg.Register(ctx, ev.UserID, ev.Text)
	switch {
	case errors.Is(err, common.ErrValidation):
		h.send(ctx, ev.UserID, "❌ Please enter your full name (at least two words).", nil)
		return
	case errors.Is(err, common.ErrConflict):
		h.clear(ctx, ev.UserID)
		h.send(ctx, ev.UserID, "❌ You are already registered.", nil)
		h.MainMenu(ctx, ev.UserID)
		return
	case err != nil:
		h.log.Error("registration failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		h.send(ctx, ev.UserID, "⚠️ Something went wrong, try again later.", nil)
		return
	}

	h.clear(ctx, ev.UserID)
	h.send(ctx, ev.UserID, "✅ Registration complete!", nil)

	if slug := state.Data[model.FieldCourseSlug]; slug != "" {
		h.applyDeepLink(ctx, ev.UserID, slug)
		return
	}
	h.MainMenu(ctx, ev.UserID)
}

func (h *UserHandler) applyDeepLink(ctx context.Context, userID int64, courseSlug string) {
	course, err := h.catalog.ChooseCourseBySlug(ctx, userID, courseSlug)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, userID, "❌ That course link is no longer valid.", nil)
		h.MainMenu(ctx, userID)
		return
	}
	if err != nil {
		h.log.Error("deep link selection failed", zap.Int64("user_id", userID), zap.Error(err))
		h.send(ctx, userID, "⚠️ Something went wrong, try again later.", nil)
		return
	}
	h.showCourse(ctx, userID, course)
}

func (h *UserHandler) MainMenu(ctx context.Context, userID int64) {
	if err := h.gw.SendMenu(ctx, userID, "Main menu:", mainMenu()); err != nil {
		h.log.Error("failed to send main menu", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// ShowCourseList offers every course as a selection button. From a
// callback the list replaces the pressed message; from a menu tap it is
// sent fresh.
func (h *UserHandler) ShowCourseList(ctx context.Context, ev gateway.Event) {
	courses, err := h.catalog.ListCourses(ctx)
	if err != nil {
		h.log.Error("course list failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		h.send(ctx, ev.UserID, "⚠️ Could not load courses, try again later.", nil)
		return
	}
	if len(courses) == 0 {
		h.send(ctx, ev.UserID, "ℹ️ No courses are available yet.", nil)
		return
	}

	text := "📚 Available courses:"
	kb := courseKeyboard(courses, model.ActionCourse)
	if ev.Callback != nil {
		if err := h.gw.Edit(ctx, callbackRef(ev), text, kb); err == nil {
			return
		}
		// Editing fails when the pressed message was a media caption;
		// fall through to a fresh message.
	}
	h.send(ctx, ev.UserID, text, kb)
}

// ChooseCourse records the selection and opens the course.
func (h *UserHandler) ChooseCourse(ctx context.Context, ev gateway.Event, courseID int64) {
	course, err := h.catalog.ChooseCourse(ctx, ev.UserID, courseID)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, ev.UserID, "❌ This course no longer exists.", nil)
		return
	}
	if err != nil {
		h.log.Error("course selection failed",
			zap.Int64("user_id", ev.UserID), zap.Int64("course_id", courseID), zap.Error(err))
		h.send(ctx, ev.UserID, "⚠️ Something went wrong, try again later.", nil)
		return
	}
	h.showCourse(ctx, ev.UserID, course)
}

// MyCourse shows the user's current course, or a selection prompt when
// none is chosen (or the chosen one has been deleted).
func (h *UserHandler) MyCourse(ctx context.Context, ev gateway.Event) {
	course, err := h.catalog.CurrentCourse(ctx, ev.UserID)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, ev.UserID, "Please register first with /start.", nil)
		return
	}
	if err != nil {
		h.log.Error("current course lookup failed", zap.Int64("user_id", ev.UserID), zap.Error(err))
		h.send(ctx, ev.UserID, "⚠️ Something went wrong, try again later.", nil)
		return
	}
	if course == nil {
		h.send(ctx, ev.UserID, "You have not picked a course yet.", gateway.Keyboard{{
			{Text: "🎯 Choose a course", Action: model.Action{Kind: model.ActionCourseList}.Encode()},
		}})
		return
	}
	h.showCourse(ctx, ev.UserID, course)
}

func (h *UserHandler) showCourse(ctx context.Context, userID int64, course *model.Course) {
	modules, err := h.catalog.ListModules(ctx, course.ID)
	if err != nil {
		h.log.Error("module list failed", zap.Int64("course_id", course.ID), zap.Error(err))
		h.send(ctx, userID, "⚠️ Could not load the course, try again later.", nil)
		return
	}

	text := "📚 " + course.Title
	if course.Description != "" {
		text += "\n\n" + course.Description
	}
	if len(modules) == 0 {
		text += "\n\nℹ️ This course has no modules yet."
	} else {
		text += "\n\nPick a module:"
	}

	back := model.Action{Kind: model.ActionCourseList}.Encode()
	kb := moduleKeyboard(modules, model.ActionModule, back)

	if att := decodeStoredMedia(course.MediaID); att != nil {
		if _, err := h.gw.SendMedia(ctx, userID, *att, text, kb); err != nil {
			h.log.Error("course media send failed", zap.Int64("course_id", course.ID), zap.Error(err))
			h.send(ctx, userID, text, kb)
		}
		return
	}
	h.send(ctx, userID, text, kb)
}

// ShowModules re-opens the module list of a course, used by the back
// button under a task list.
func (h *UserHandler) ShowModules(ctx context.Context, ev gateway.Event, courseID int64) {
	course, err := h.catalog.GetCourse(ctx, courseID)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, ev.UserID, "❌ This course no longer exists.", nil)
		return
	}
	if err != nil {
		h.log.Error("course lookup failed", zap.Int64("course_id", courseID), zap.Error(err))
		return
	}
	modules, err := h.catalog.ListModules(ctx, courseID)
	if err != nil {
		h.log.Error("module list failed", zap.Int64("course_id", courseID), zap.Error(err))
		return
	}

	text := fmt.Sprintf("📚 Course: %s\nPick a module:", course.Title)
	back := model.Action{Kind: model.ActionCourseList}.Encode()
	kb := moduleKeyboard(modules, model.ActionModule, back)
	if ev.Callback != nil {
		if err := h.gw.Edit(ctx, callbackRef(ev), text, kb); err == nil {
			return
		}
	}
	h.send(ctx, ev.UserID, text, kb)
}

// ShowModule lists the tasks of one module.
func (h *UserHandler) ShowModule(ctx context.Context, ev gateway.Event, moduleID int64) {
	module, err := h.catalog.GetModule(ctx, moduleID)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, ev.UserID, "❌ This module no longer exists.", nil)
		return
	}
	if err != nil {
		h.log.Error("module lookup failed", zap.Int64("module_id", moduleID), zap.Error(err))
		return
	}
	tasks, err := h.catalog.ListTasks(ctx, moduleID)
	if err != nil {
		h.log.Error("task list failed", zap.Int64("module_id", moduleID), zap.Error(err))
		return
	}

	text := "📂 " + module.Title
	var kb gateway.Keyboard
	if len(tasks) == 0 {
		text += "\n\nℹ️ This module has no tasks yet."
	} else {
		text += "\nPick a task:"
		for _, t := range tasks {
			kb = append(kb, []gateway.Button{{
				Text:   "📝 " + t.Title,
				Action: model.Action{Kind: model.ActionTask, TaskID: t.ID}.Encode(),
			}})
		}
	}
	kb = append(kb, []gateway.Button{{
		Text:   "🔙 Back to modules",
		Action: model.Action{Kind: model.ActionBackModules, CourseID: module.CourseID}.Encode(),
	}})

	if ev.Callback != nil {
		if err := h.gw.Edit(ctx, callbackRef(ev), text, kb); err == nil {
			return
		}
	}
	h.send(ctx, ev.UserID, text, kb)
}

// ShowTask presents a task. Its attachment goes out first so the text
// that asks for a solution is the last thing on screen. A task the
// user already answered shows the verdict instead of an intake prompt.
func (h *UserHandler) ShowTask(ctx context.Context, ev gateway.Event, taskID int64) {
	task, err := h.catalog.GetTask(ctx, taskID)
	if errors.Is(err, common.ErrNotFound) {
		h.send(ctx, ev.UserID, "❌ This task no longer exists.", nil)
		return
	}
	if err != nil {
		h.log.Error("task lookup failed", zap.Int64("task_id", taskID), zap.Error(err))
		return
	}

	if att := decodeStoredMedia(task.FileID); att != nil {
		if _, err := h.gw.SendMedia(ctx, ev.UserID, *att, "", nil); err != nil {
			h.log.Error("task media send failed", zap.Int64("task_id", taskID), zap.Error(err))
		}
	}

	text := fmt.Sprintf("📝 %s\n\n%s", task.Title, task.Content)

	sub, err := h.subs.Get(ctx, ev.UserID, taskID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		h.log.Error("submission lookup failed",
			zap.Int64("user_id", ev.UserID), zap.Int64("task_id", taskID), zap.Error(err))
		h.send(ctx, ev.UserID, "⚠️ Something went wrong, try again later.", nil)
		return
	}
	if sub != nil {
		h.send(ctx, ev.UserID, text+"\n\n"+verdictLine(sub), nil)
		return
	}

	h.send(ctx, ev.UserID, text+"\n\n✍️ Send your solution as text, a photo or a document.", cancelKeyboard())
	if err := h.sessions.SetStep(ctx, ev.UserID, model.StepAwaitingSolution); err != nil {
		h.log.Error("failed to arm solution intake", zap.Int64("user_id", ev.UserID), zap.Error(err))
		return
	}
	if err := h.sessions.UpdateData(ctx, ev.UserID, map[string]string{
		model.FieldTaskID: strconv.FormatInt(taskID, 10),
	}); err != nil {
		h.log.Error("failed to record task for intake", zap.Int64("user_id", ev.UserID), zap.Error(err))
	}
}

func verdictLine(sub *model.Submission) string {
	switch sub.Status {
	case model.StatusAccepted:
		if sub.Score != nil {
			return fmt.Sprintf("✅ Accepted, score %d.", *sub.Score)
		}
		return "✅ Accepted."
	case model.StatusRejected:
		return "❌ Rejected. Review the materials and try reaching out to support."
	default:
		return "⏳ Your solution is awaiting review."
	}
}

// HandleSolution consumes the message sent while solution intake is
// armed and records it as the one and only submission for the task.
func (h *UserHandler) HandleSolution(ctx context.Context, ev gateway.Event, state session.State) {
	taskID, err := strconv.ParseInt(state.Data[model.FieldTaskID], 10, 64)
	if err != nil {
		h.log.Error("solution intake without task id", zap.Int64("user_id", ev.UserID))
		h.clear(ctx, ev.UserID)
		h.send(ctx, ev.UserID, "⚠️ Something went wrong, open the task again.", nil)
		return
	}

	var content *string
	if ev.Text != "" {
		content = &ev.Text
	}
	var atts []model.Attachment
	if ev.Attachment != nil {
		atts = append(atts, *ev.Attachment)
	}

	_, err = h.subs.Submit(ctx, ev.UserID, taskID, content, atts)
	switch {
	case errors.Is(err, common.ErrValidation):
		h.send(ctx, ev.UserID, "❌ Send your solution as text, a photo or a document.", cancelKeyboard())
		return
	case errors.Is(err, common.ErrConflict):
		h.clear(ctx, ev.UserID)
		h.send(ctx, ev.UserID, "❌ You have already submitted a solution for this task!", nil)
		return
	case errors.Is(err, common.ErrNotFound):
		h.clear(ctx, ev.UserID)
		h.send(ctx, ev.UserID, "❌ This task no longer exists.", nil)
		return
	case err != nil:
		h.log.Error("submission failed",
			zap.Int64("user_id", ev.UserID), zap.Int64("task_id", taskID), zap.Error(err))
		h.send(ctx, ev.UserID, "⚠️ Something went wrong, try again later.", nil)
		return
	}

	h.clear(ctx, ev.UserID)
	h.send(ctx, ev.UserID, "✅ Solution sent for review!", nil)
}

// Support points the user at a direct chat with the administrator.
func (h *UserHandler) Support(ctx context.Context, ev gateway.Event) {
	h.send(ctx, ev.UserID, "🆘 Questions? Write to your mentor directly:", gateway.Keyboard{{
		{Text: "Send a message", URL: fmt.Sprintf("tg://user?id=%d", h.adminID)},
	}})
}

func (h *UserHandler) send(ctx context.Context, userID int64, text string, kb gateway.Keyboard) {
	if _, err := h.gw.Send(ctx, userID, text, kb); err != nil {
		h.log.Error("send failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (h *UserHandler) clear(ctx context.Context, userID int64) {
	if err := h.sessions.Clear(ctx, userID); err != nil {
		h.log.Error("session clear failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

// decodeStoredMedia turns a stored "kind:file_id" media reference back
// into an attachment. A legacy bare file id is treated as a photo.
func decodeStoredMedia(stored *string) *model.Attachment {
	if stored == nil || *stored == "" {
		return nil
	}
	atts, err := model.DecodeAttachments(*stored)
	if err != nil || len(atts) == 0 {
		return &model.Attachment{Kind: model.AttachmentPhoto, FileID: *stored}
	}
	return &atts[0]
}
