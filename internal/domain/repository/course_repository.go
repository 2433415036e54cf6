package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

type CourseRepository interface {
	CreateCourse(ctx context.Context, course *model.Course) error
	GetCourseByID(ctx context.Context, id int64) (*model.Course, error)
	GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
	DeleteCourse(ctx context.Context, id int64) error
	CourseStats(ctx context.Context) ([]model.CourseStats, error)
}

type pgCourseRepository struct {
	db *sql.DB
}

func NewPgCourseRepository(db *sql.DB) CourseRepository {
	return &pgCourseRepository{db: db}
}

func (r *pgCourseRepository) CreateCourse(ctx context.Context, c *model.Course) error {
	query := `INSERT INTO courses (title, slug, description, media_id)
	          VALUES ($1, $2, $3, $4)
	          RETURNING course_id`
	err := r.db.QueryRowContext(ctx, query, c.Title, c.Slug, c.Description, c.MediaID).Scan(&c.ID)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("course with this title already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgCourseRepository.CreateCourse: %w", err)
	}
	return nil
}

func (r *pgCourseRepository) GetCourseByID(ctx context.Context, id int64) (*model.Course, error) {
	return r.getCourse(ctx, `WHERE course_id = $1`, id)
}

func (r *pgCourseRepository) GetCourseBySlug(ctx context.Context, slug string) (*model.Course, error) {
	return r.getCourse(ctx, `WHERE slug = $1`, slug)
}

func (r *pgCourseRepository) getCourse(ctx context.Context, where string, arg interface{}) (*model.Course, error) {
	query := `SELECT course_id, title, slug, description, media_id FROM courses ` + where
	c := &model.Course{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.MediaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCourseRepository.getCourse: %w", err)
	}
	return c, nil
}

func (r *pgCourseRepository) ListCourses(ctx context.Context) ([]model.Course, error) {
	query := `SELECT course_id, title, slug, description, media_id
	          FROM courses ORDER BY course_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgCourseRepository.ListCourses: %w", err)
	}
	defer rows.Close()

	var out []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Slug, &c.Description, &c.MediaID); err != nil {
			return nil, fmt.Errorf("pgCourseRepository.ListCourses: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteCourse removes the course row. Modules, tasks and submissions
// go with it via ON DELETE CASCADE; users pointing at it are detached
// via ON DELETE SET NULL. The schema owns those semantics, not us.
func (r *pgCourseRepository) DeleteCourse(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE course_id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgCourseRepository.DeleteCourse: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgCourseRepository) CourseStats(ctx context.Context) ([]model.CourseStats, error) {
	query := `SELECT c.course_id, c.title,
	                 COUNT(DISTINCT m.module_id), COUNT(DISTINCT t.task_id), COUNT(DISTINCT s.submission_id)
	          FROM courses c
	          LEFT JOIN modules m ON c.course_id = m.course_id
	          LEFT JOIN tasks t ON m.module_id = t.module_id
	          LEFT JOIN submissions s ON t.task_id = s.task_id
	          GROUP BY c.course_id, c.title
	          ORDER BY c.course_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgCourseRepository.CourseStats: %w", err)
	}
	defer rows.Close()

	var out []model.CourseStats
	for rows.Next() {
		var st model.CourseStats
		if err := rows.Scan(&st.CourseID, &st.Title, &st.ModuleCount, &st.TaskCount, &st.SubmissionCount); err != nil {
			return nil, fmt.Errorf("pgCourseRepository.CourseStats: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
