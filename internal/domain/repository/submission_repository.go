package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

type SubmissionRepository interface {
	// CreateSubmission persists a new pending submission. It returns
	// common.ErrConflict when a submission for (user, task) already
	// exists, whether found by the in-transaction re-check or by the
	// unique constraint losing a race.
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionForUserTask(ctx context.Context, userID, taskID int64) (*model.Submission, error)
	// DecideSubmission moves a pending submission to status, setting
	// score when non-nil. It reports false when no pending submission
	// matched, i.e. the decision was already made or the row is gone.
	DecideSubmission(ctx context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) (bool, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, sub *model.Submission) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: begin: %w", err)
	}
	defer tx.Rollback()

	// Re-check inside the transaction; the unique index backs this up
	// if two inserts for the same pair race past the check.
	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM submissions WHERE user_id = $1 AND task_id = $2)`,
		sub.UserID, sub.TaskID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: recheck: %w", err)
	}
	if exists {
		return fmt.Errorf("submission for user %d task %d already exists: %w",
			sub.UserID, sub.TaskID, common.ErrConflict)
	}

	query := `INSERT INTO submissions (user_id, task_id, status, file_ids, content)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING submission_id, submitted_at`
	err = tx.QueryRowContext(ctx, query,
		sub.UserID, sub.TaskID, model.StatusPending,
		model.EncodeAttachments(sub.Attachments), sub.Content,
	).Scan(&sub.ID, &sub.SubmittedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("submission for user %d task %d already exists: %w",
				sub.UserID, sub.TaskID, common.ErrConflict)
		}
		if common.IsForeignKeyViolation(err) {
			return fmt.Errorf("task %d or user %d does not exist: %w",
				sub.TaskID, sub.UserID, common.ErrNotFound)
		}
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: commit: %w", err)
	}
	sub.Status = model.StatusPending
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionForUserTask(ctx context.Context, userID, taskID int64) (*model.Submission, error) {
	query := `SELECT submission_id, user_id, task_id, status, score, submitted_at, file_ids, content
	          FROM submissions WHERE user_id = $1 AND task_id = $2`
	sub := &model.Submission{}
	var fileIDs string
	err := r.db.QueryRowContext(ctx, query, userID, taskID).Scan(
		&sub.ID, &sub.UserID, &sub.TaskID, &sub.Status, &sub.Score,
		&sub.SubmittedAt, &fileIDs, &sub.Content,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionForUserTask: %w", err)
	}
	if sub.Attachments, err = model.DecodeAttachments(fileIDs); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionForUserTask: %w", err)
	}
	return sub, nil
}

func (r *pgSubmissionRepository) DecideSubmission(ctx context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) (bool, error) {
	query := `UPDATE submissions SET status = $1, score = $2
	          WHERE task_id = $3 AND user_id = $4 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, status, score, taskID, userID, model.StatusPending)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.DecideSubmission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.DecideSubmission: %w", err)
	}
	return n == 1, nil
}
