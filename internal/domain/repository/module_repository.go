package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

type ModuleRepository interface {
	CreateModule(ctx context.Context, module *model.Module) error
	GetModuleByID(ctx context.Context, id int64) (*model.Module, error)
	ListModulesByCourse(ctx context.Context, courseID int64) ([]model.Module, error)
	CountModulesByCourse(ctx context.Context, courseID int64) (int, error)
}

type pgModuleRepository struct {
	db *sql.DB
}

func NewPgModuleRepository(db *sql.DB) ModuleRepository {
	return &pgModuleRepository{db: db}
}

func (r *pgModuleRepository) CreateModule(ctx context.Context, m *model.Module) error {
	query := `INSERT INTO modules (course_id, title, media_id)
	          VALUES ($1, $2, $3)
	          RETURNING module_id`
	err := r.db.QueryRowContext(ctx, query, m.CourseID, m.Title, m.MediaID).Scan(&m.ID)
	if err != nil {
		// 23503: the owning course is gone.
		if common.IsForeignKeyViolation(err) {
			return fmt.Errorf("course %d does not exist: %w", m.CourseID, common.ErrNotFound)
		}
		return fmt.Errorf("pgModuleRepository.CreateModule: %w", err)
	}
	return nil
}

func (r *pgModuleRepository) GetModuleByID(ctx context.Context, id int64) (*model.Module, error) {
	query := `SELECT module_id, course_id, title, media_id FROM modules WHERE module_id = $1`
	m := &model.Module{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.CourseID, &m.Title, &m.MediaID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgModuleRepository.GetModuleByID: %w", err)
	}
	return m, nil
}

func (r *pgModuleRepository) ListModulesByCourse(ctx context.Context, courseID int64) ([]model.Module, error) {
	query := `SELECT module_id, course_id, title, media_id
	          FROM modules WHERE course_id = $1 ORDER BY module_id`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("pgModuleRepository.ListModulesByCourse: %w", err)
	}
	defer rows.Close()

	var out []model.Module
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.MediaID); err != nil {
			return nil, fmt.Errorf("pgModuleRepository.ListModulesByCourse: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *pgModuleRepository) CountModulesByCourse(ctx context.Context, courseID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules WHERE course_id = $1`, courseID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("pgModuleRepository.CountModulesByCourse: %w", err)
	}
	return n, nil
}
