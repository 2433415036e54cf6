package service

import (
	"context"
	"errors"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
)

// CatalogService owns the course/module/task tree: authoring commits,
// navigation reads and the cascading course deletion.
type CatalogService struct {
	courses  repository.CourseRepository
	modules  repository.ModuleRepository
	tasks    repository.TaskRepository
	users    repository.UserRepository
	notifier Notifier
	log      *zap.Logger
}

func NewCatalogService(
	courses repository.CourseRepository,
	modules repository.ModuleRepository,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	notifier Notifier,
	log *zap.Logger,
) *CatalogService {
	return &CatalogService{
		courses:  courses,
		modules:  modules,
		tasks:    tasks,
		users:    users,
		notifier: notifier,
		log:      log,
	}
}

func (s *CatalogService) CreateCourse(ctx context.Context, draft CourseDraft) (*model.Course, error) {
	if err := validate.Struct(draft); err != nil {
		return nil, common.Errorf("course title must not be empty: %w", common.ErrValidation)
	}
	course := &model.Course{
		Title:       draft.Title,
		Slug:        slug.Make(draft.Title),
		Description: draft.Description,
		MediaID:     draft.MediaID,
	}
	if err := s.courses.CreateCourse(ctx, course); err != nil {
		return nil, err
	}
	s.log.Info("course created", zap.Int64("course_id", course.ID), zap.String("slug", course.Slug))
	return course, nil
}

func (s *CatalogService) CreateModule(ctx context.Context, draft ModuleDraft) (*model.Module, error) {
	if err := validate.Struct(draft); err != nil {
		return nil, common.Errorf("module title must not be empty: %w", common.ErrValidation)
	}
	module := &model.Module{CourseID: draft.CourseID, Title: draft.Title}
	if err := s.modules.CreateModule(ctx, module); err != nil {
		return nil, err
	}
	s.log.Info("module created", zap.Int64("module_id", module.ID), zap.Int64("course_id", module.CourseID))
	return module, nil
}

func (s *CatalogService) CreateTask(ctx context.Context, draft TaskDraft) (*model.Task, error) {
	if err := validate.Struct(draft); err != nil {
		return nil, common.Errorf("task title and content must not be empty: %w", common.ErrValidation)
	}
	task := &model.Task{
		ModuleID: draft.ModuleID,
		Title:    draft.Title,
		Content:  draft.Content,
		FileID:   draft.FileID,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.log.Info("task created", zap.Int64("task_id", task.ID), zap.Int64("module_id", task.ModuleID))
	return task, nil
}

// DeleteCourse removes the course and everything under it, then sends
// a best-effort notice to every user whose current course it was. The
// deletion has already committed by the time notices go out, so a
// failed notice is logged and never unwinds anything.
func (s *CatalogService) DeleteCourse(ctx context.Context, courseID int64) (*model.Course, int, error) {
	course, err := s.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, 0, err
	}

	// Affected users must be collected before the delete nulls their
	// current_course pointers.
	affected, err := s.users.ListUserIDsByCourse(ctx, courseID)
	if err != nil {
		return nil, 0, err
	}

	if err := s.courses.DeleteCourse(ctx, courseID); err != nil {
		return nil, 0, err
	}
	s.log.Info("course deleted",
		zap.Int64("course_id", courseID),
		zap.String("title", course.Title),
		zap.Int("affected_users", len(affected)))

	for _, userID := range affected {
		if err := s.notifier.CourseDeleted(ctx, userID, course.Title); err != nil {
			s.log.Error("failed to queue course deletion notice",
				zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return course, len(affected), nil
}

// ChooseCourse points the user's current_course at the given course.
func (s *CatalogService) ChooseCourse(ctx context.Context, userID, courseID int64) (*model.Course, error) {
	course, err := s.courses.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetCurrentCourse(ctx, userID, courseID); err != nil {
		return nil, err
	}
	return course, nil
}

// ChooseCourseBySlug resolves a deep-link start parameter.
func (s *CatalogService) ChooseCourseBySlug(ctx context.Context, userID int64, courseSlug string) (*model.Course, error) {
	course, err := s.courses.GetCourseBySlug(ctx, courseSlug)
	if err != nil {
		return nil, err
	}
	return s.ChooseCourse(ctx, userID, course.ID)
}

// CurrentCourse returns the user's current course, or nil when none is
// selected.
func (s *CatalogService) CurrentCourse(ctx context.Context, userID int64) (*model.Course, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CurrentCourse == nil {
		return nil, nil
	}
	course, err := s.courses.GetCourseByID(ctx, *user.CurrentCourse)
	if errors.Is(err, common.ErrNotFound) {
		return nil, nil
	}
	return course, err
}

func (s *CatalogService) ListCourses(ctx context.Context) ([]model.Course, error) {
	return s.courses.ListCourses(ctx)
}

func (s *CatalogService) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	return s.courses.GetCourseByID(ctx, id)
}

func (s *CatalogService) GetModule(ctx context.Context, id int64) (*model.Module, error) {
	return s.modules.GetModuleByID(ctx, id)
}

func (s *CatalogService) ListModules(ctx context.Context, courseID int64) ([]model.Module, error) {
	return s.modules.ListModulesByCourse(ctx, courseID)
}

func (s *CatalogService) ModuleCount(ctx context.Context, courseID int64) (int, error) {
	return s.modules.CountModulesByCourse(ctx, courseID)
}

func (s *CatalogService) ListTasks(ctx context.Context, moduleID int64) ([]model.Task, error) {
	return s.tasks.ListTasksByModule(ctx, moduleID)
}

func (s *CatalogService) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	return s.tasks.GetTaskByID(ctx, id)
}
