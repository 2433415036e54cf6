package service

import (
	"context"

	"go.uber.org/zap"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
)

// ReviewService moves submissions out of pending. Both transitions are
// terminal; re-deciding an already-decided submission is an idempotent
// no-op surfaced as common.ErrAlreadyDecided so the reviewer UI can
// say so without touching the row.
type ReviewService struct {
	subs     repository.SubmissionRepository
	notifier Notifier
	maxScore int
	log      *zap.Logger
}

func NewReviewService(subs repository.SubmissionRepository, notifier Notifier, maxScore int, log *zap.Logger) *ReviewService {
	return &ReviewService{subs: subs, notifier: notifier, maxScore: maxScore, log: log}
}

// Accept marks the submission accepted with the fixed maximum score.
func (s *ReviewService) Accept(ctx context.Context, taskID, userID int64) error {
	score := s.maxScore
	return s.decide(ctx, taskID, userID, model.StatusAccepted, &score)
}

// Reject marks the submission rejected; the score stays unset.
func (s *ReviewService) Reject(ctx context.Context, taskID, userID int64) error {
	return s.decide(ctx, taskID, userID, model.StatusRejected, nil)
}

func (s *ReviewService) decide(ctx context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) error {
	applied, err := s.subs.DecideSubmission(ctx, taskID, userID, status, score)
	if err != nil {
		return err
	}
	if !applied {
		return common.ErrAlreadyDecided
	}
	s.log.Info("submission decided",
		zap.Int64("task_id", taskID),
		zap.Int64("user_id", userID),
		zap.String("status", string(status)))

	// The status change is committed; an undeliverable outcome notice
	// must not roll it back.
	if err := s.notifier.ReviewDecided(ctx, taskID, userID, status, score); err != nil {
		s.log.Error("failed to queue review outcome notice",
			zap.Int64("task_id", taskID),
			zap.Int64("user_id", userID),
			zap.Error(err))
	}
	return nil
}
