package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTaskByID(ctx context.Context, id int64) (*model.Task, error)
	ListTasksByModule(ctx context.Context, moduleID int64) ([]model.Task, error)
}

type pgTaskRepository struct {
	db *sql.DB
}

func NewPgTaskRepository(db *sql.DB) TaskRepository {
	return &pgTaskRepository{db: db}
}

func (r *pgTaskRepository) CreateTask(ctx context.Context, t *model.Task) error {
	query := `INSERT INTO tasks (module_id, title, content, file_id)
	          VALUES ($1, $2, $3, $4)
	          RETURNING task_id`
	err := r.db.QueryRowContext(ctx, query, t.ModuleID, t.Title, t.Content, t.FileID).Scan(&t.ID)
	if err != nil {
		if common.IsForeignKeyViolation(err) {
			return fmt.Errorf("module %d does not exist: %w", t.ModuleID, common.ErrNotFound)
		}
		return fmt.Errorf("pgTaskRepository.CreateTask: %w", err)
	}
	return nil
}

func (r *pgTaskRepository) GetTaskByID(ctx context.Context, id int64) (*model.Task, error) {
	query := `SELECT task_id, module_id, title, content, file_id FROM tasks WHERE task_id = $1`
	t := &model.Task{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.ModuleID, &t.Title, &t.Content, &t.FileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgTaskRepository.GetTaskByID: %w", err)
	}
	return t, nil
}

func (r *pgTaskRepository) ListTasksByModule(ctx context.Context, moduleID int64) ([]model.Task, error) {
	query := `SELECT task_id, module_id, title, content, file_id
	          FROM tasks WHERE module_id = $1 ORDER BY task_id`
	rows, err := r.db.QueryContext(ctx, query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("pgTaskRepository.ListTasksByModule: %w", err)
	}
	defer rows.Close()

	var out []model.Task
	for rows.Next() {
		var t model.Task
		if err := rows.Scan(&t.ID, &t.ModuleID, &t.Title, &t.Content, &t.FileID); err != nil {
			return nil, fmt.Errorf("pgTaskRepository.ListTasksByModule: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
