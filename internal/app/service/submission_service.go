package service

import (
	"context"

	"go.uber.org/zap"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
)

// SubmissionService accepts learner answers. A submission is one-shot:
// once any submission exists for (user, task), later attempts are
// rejected with common.ErrConflict and nothing is overwritten.
type SubmissionService struct {
	subs     repository.SubmissionRepository
	notifier Notifier
	log      *zap.Logger
}

func NewSubmissionService(subs repository.SubmissionRepository, notifier Notifier, log *zap.Logger) *SubmissionService {
	return &SubmissionService{subs: subs, notifier: notifier, log: log}
}

// Get returns the existing submission for (user, task), or
// common.ErrNotFound when the learner has not submitted yet.
func (s *SubmissionService) Get(ctx context.Context, userID, taskID int64) (*model.Submission, error) {
	return s.subs.GetSubmissionForUserTask(ctx, userID, taskID)
}

// Submit persists the answer and queues the reviewer notice. The
// notice is strictly after the commit: a queue failure is logged and
// the submission stands.
func (s *SubmissionService) Submit(ctx context.Context, userID, taskID int64, content *string, atts []model.Attachment) (*model.Submission, error) {
	if (content == nil || *content == "") && len(atts) == 0 {
		return nil, common.Errorf("submission payload is empty: %w", common.ErrValidation)
	}

	sub := &model.Submission{
		UserID:      userID,
		TaskID:      taskID,
		Content:     content,
		Attachments: atts,
	}
	if err := s.subs.CreateSubmission(ctx, sub); err != nil {
		return nil, err
	}
	s.log.Info("submission created",
		zap.Int64("submission_id", sub.ID),
		zap.Int64("user_id", userID),
		zap.Int64("task_id", taskID))

	if err := s.notifier.SubmissionReceived(ctx, taskID, userID); err != nil {
		s.log.Error("failed to queue reviewer notice",
			zap.Int64("submission_id", sub.ID), zap.Error(err))
	}
	return sub, nil
}
