package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

// Memory implements every repository interface against in-process
// maps, mirroring the postgres schema's constraints: title and
// (user, task) uniqueness, cascade deletes and set-null on
// current_course. Tests run the services against it; it is also the
// storage for local dry runs without a database.
type Memory struct {
	mu     sync.RWMutex
	nextID int64

	users   map[int64]*model.User
	courses map[int64]*model.Course
	modules map[int64]*model.Module
	tasks   map[int64]*model.Task
	subs    map[int64]*model.Submission
}

func NewMemory() *Memory {
	return &Memory{
		users:   make(map[int64]*model.User),
		courses: make(map[int64]*model.Course),
		modules: make(map[int64]*model.Module),
		tasks:   make(map[int64]*model.Task),
		subs:    make(map[int64]*model.Submission),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// --- UserRepository ---

func (m *Memory) CreateUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; ok {
		return fmt.Errorf("user %d already registered: %w", user.ID, common.ErrConflict)
	}
	user.RegisteredAt = time.Now()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *Memory) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *Memory) SetCurrentCourse(ctx context.Context, userID, courseID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return common.ErrNotFound
	}
	u.CurrentCourse = &courseID
	return nil
}

func (m *Memory) ListUserIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []int64
	for _, u := range m.users {
		if u.CurrentCourse != nil && *u.CurrentCourse == courseID {
			ids = append(ids, u.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *Memory) UserOverview(ctx context.Context) ([]model.UserOverview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.UserOverview
	for _, u := range m.users {
		o := model.UserOverview{UserID: u.ID, FullName: u.FullName}
		if u.CurrentCourse != nil {
			if c, ok := m.courses[*u.CurrentCourse]; ok {
				title := c.Title
				o.CourseTitle = &title
			}
		}
		for _, s := range m.subs {
			if s.UserID == u.ID {
				o.SubmissionCount++
			}
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// --- CourseRepository ---

func (m *Memory) CreateCourse(ctx context.Context, c *model.Course) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.courses {
		if existing.Title == c.Title || existing.Slug == c.Slug {
			return fmt.Errorf("course with this title already exists: %w", common.ErrConflict)
		}
	}
	c.ID = m.id()
	cp := *c
	m.courses[c.ID] = &cp
	return nil
}

func (m *Memory) GetCourseByID(ctx context.Context, id int64) (*model.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.courses[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *Memory) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.courses {
		if c.Slug == slug {
			cp := *c
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *Memory) ListCourses(ctx context.Context) ([]model.Course, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Course
	for _, c := range m.courses {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteCourse(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[id]; !ok {
		return common.ErrNotFound
	}
	delete(m.courses, id)
	for mid, mod := range m.modules {
		if mod.CourseID != id {
			continue
		}
		delete(m.modules, mid)
		for tid, t := range m.tasks {
			if t.ModuleID != mid {
				continue
			}
			delete(m.tasks, tid)
			for sid, s := range m.subs {
				if s.TaskID == tid {
					delete(m.subs, sid)
				}
			}
		}
	}
	for _, u := range m.users {
		if u.CurrentCourse != nil && *u.CurrentCourse == id {
			u.CurrentCourse = nil
		}
	}
	return nil
}

func (m *Memory) CourseStats(ctx context.Context) ([]model.CourseStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.CourseStats
	for _, c := range m.courses {
		st := model.CourseStats{CourseID: c.ID, Title: c.Title}
		for _, mod := range m.modules {
			if mod.CourseID != c.ID {
				continue
			}
			st.ModuleCount++
			for _, t := range m.tasks {
				if t.ModuleID != mod.ID {
					continue
				}
				st.TaskCount++
				for _, s := range m.subs {
					if s.TaskID == t.ID {
						st.SubmissionCount++
					}
				}
			}
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

// --- ModuleRepository ---

func (m *Memory) CreateModule(ctx context.Context, mod *model.Module) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[mod.CourseID]; !ok {
		return fmt.Errorf("course %d does not exist: %w", mod.CourseID, common.ErrNotFound)
	}
	mod.ID = m.id()
	cp := *mod
	m.modules[mod.ID] = &cp
	return nil
}

func (m *Memory) GetModuleByID(ctx context.Context, id int64) (*model.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mod, ok := m.modules[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *mod
	return &cp, nil
}

func (m *Memory) ListModulesByCourse(ctx context.Context, courseID int64) ([]model.Module, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Module
	for _, mod := range m.modules {
		if mod.CourseID == courseID {
			out = append(out, *mod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) CountModulesByCourse(ctx context.Context, courseID int64) (int, error) {
	mods, _ := m.ListModulesByCourse(ctx, courseID)
	return len(mods), nil
}

// --- TaskRepository ---

func (m *Memory) CreateTask(ctx context.Context, t *model.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.modules[t.ModuleID]; !ok {
		return fmt.Errorf("module %d does not exist: %w", t.ModuleID, common.ErrNotFound)
	}
	t.ID = m.id()
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *Memory) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *Memory) ListTasksByModule(ctx context.Context, moduleID int64) ([]model.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Task
	for _, t := range m.tasks {
		if t.ModuleID == moduleID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- SubmissionRepository ---

func (m *Memory) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[sub.UserID]; !ok {
		return fmt.Errorf("user %d does not exist: %w", sub.UserID, common.ErrNotFound)
	}
	if _, ok := m.tasks[sub.TaskID]; !ok {
		return fmt.Errorf("task %d does not exist: %w", sub.TaskID, common.ErrNotFound)
	}
	for _, s := range m.subs {
		if s.UserID == sub.UserID && s.TaskID == sub.TaskID {
			return fmt.Errorf("submission for user %d task %d already exists: %w",
				sub.UserID, sub.TaskID, common.ErrConflict)
		}
	}
	sub.ID = m.id()
	sub.Status = model.StatusPending
	sub.SubmittedAt = time.Now()
	cp := *sub
	m.subs[sub.ID] = &cp
	return nil
}

func (m *Memory) GetSubmissionForUserTask(ctx context.Context, userID, taskID int64) (*model.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.TaskID == taskID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *Memory) DecideSubmission(ctx context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.subs {
		if s.UserID == userID && s.TaskID == taskID {
			if s.Status != model.StatusPending {
				return false, nil
			}
			s.Status = status
			s.Score = score
			return true, nil
		}
	}
	return false, nil
}
