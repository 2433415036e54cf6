package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	SetCurrentCourse(ctx context.Context, userID, courseID int64) error
	ListUserIDsByCourse(ctx context.Context, courseID int64) ([]int64, error)
	UserOverview(ctx context.Context) ([]model.UserOverview, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (user_id, full_name)
	          VALUES ($1, $2)
	          RETURNING registered_at`
	err := r.db.QueryRowContext(ctx, query, user.ID, user.FullName).Scan(&user.RegisteredAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("user %d already registered: %w", user.ID, common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.CreateUser: %w", err)
	}
	return nil
}

func (r *pgUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT user_id, full_name, current_course, registered_at
	          FROM users WHERE user_id = $1`
	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.FullName, &user.CurrentCourse, &user.RegisteredAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.GetUserByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) SetCurrentCourse(ctx context.Context, userID, courseID int64) error {
	query := `UPDATE users SET current_course = $1 WHERE user_id = $2`
	res, err := r.db.ExecContext(ctx, query, courseID, userID)
	if err != nil {
		return fmt.Errorf("pgUserRepository.SetCurrentCourse: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) ListUserIDsByCourse(ctx context.Context, courseID int64) ([]int64, error) {
	query := `SELECT user_id FROM users WHERE current_course = $1`
	rows, err := r.db.QueryContext(ctx, query, courseID)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.ListUserIDsByCourse: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ListUserIDsByCourse: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgUserRepository) UserOverview(ctx context.Context) ([]model.UserOverview, error) {
	query := `SELECT u.user_id, u.full_name, c.title, COUNT(s.submission_id)
	          FROM users u
	          LEFT JOIN courses c ON u.current_course = c.course_id
	          LEFT JOIN submissions s ON u.user_id = s.user_id
	          GROUP BY u.user_id, u.full_name, c.title
	          ORDER BY u.registered_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgUserRepository.UserOverview: %w", err)
	}
	defer rows.Close()

	var out []model.UserOverview
	for rows.Next() {
		var o model.UserOverview
		if err := rows.Scan(&o.UserID, &o.FullName, &o.CourseTitle, &o.SubmissionCount); err != nil {
			return nil, fmt.Errorf("pgUserRepository.UserOverview: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
