package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"xcourses_bot/internal/domain/gateway"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
)

// NotifyWorker drains the notify queue and performs the actual chat
// sends. Keeping sends here means no handler or service ever blocks on
// the chat platform. Delivery is at-most-once: a notice that fails to
// send is logged and dropped, never retried, since a stale "new
// submission" ping days later is worse than a missed one.
type NotifyWorker struct {
	rdb       *redis.Client
	queueName string
	gw        gateway.Gateway
	subs      repository.SubmissionRepository
	users     repository.UserRepository
	tasks     repository.TaskRepository
	adminID   int64
	log       *zap.Logger
}

func NewNotifyWorker(
	rdb *redis.Client,
	queueName string,
	gw gateway.Gateway,
	subs repository.SubmissionRepository,
	users repository.UserRepository,
	tasks repository.TaskRepository,
	adminID int64,
	log *zap.Logger,
) *NotifyWorker {
	return &NotifyWorker{
		rdb:       rdb,
		queueName: queueName,
		gw:        gw,
		subs:      subs,
		users:     users,
		tasks:     tasks,
		adminID:   adminID,
		log:       log,
	}
}

// Start blocks on the queue until ctx is cancelled.
func (w *NotifyWorker) Start(ctx context.Context) {
	w.log.Info("notify worker started", zap.String("queue", w.queueName))
	for {
		select {
		case <-ctx.Done():
			w.log.Info("notify worker stopping")
			return
		default:
			res, err := w.rdb.BRPop(ctx, 0, w.queueName).Result()
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if errors.Is(err, redis.Nil) {
					continue
				}
				w.log.Error("notify queue pop failed", zap.Error(err))
				time.Sleep(5 * time.Second)
				continue
			}
			// BRPop returns [queueName, value].
			if len(res) < 2 || res[1] == "" {
				continue
			}

			var notice Notice
			if err := json.Unmarshal([]byte(res[1]), &notice); err != nil {
				w.log.Error("dropping malformed notice", zap.String("raw", res[1]), zap.Error(err))
				continue
			}
			w.Process(ctx, notice)
		}
	}
}

// Process delivers one notice. Every failure path logs and returns;
// the queue entry is already consumed either way.
func (w *NotifyWorker) Process(ctx context.Context, n Notice) {
	var err error
	switch n.Kind {
	case KindNewSubmission:
		err = w.notifyReviewer(ctx, n)
	case KindReviewDecided:
		err = w.notifySubmitter(ctx, n)
	case KindCourseDeleted:
		_, err = w.gw.Send(ctx, n.UserID,
			fmt.Sprintf("⚠️ The course «%s» is no longer available. Use /start to pick another one.", n.CourseTitle),
			nil)
	default:
		w.log.Error("dropping notice of unknown kind",
			zap.String("notice_id", n.ID), zap.String("kind", n.Kind))
		return
	}
	if err != nil {
		w.log.Error("notice delivery failed",
			zap.String("notice_id", n.ID),
			zap.String("kind", n.Kind),
			zap.Int64("user_id", n.UserID),
			zap.Error(err))
	}
}

// notifyReviewer sends the submission to the administrator. The
// accept/reject controls ride on the first message so the decision
// buttons are always adjacent to the content; extra attachments follow
// as a plain album.
func (w *NotifyWorker) notifyReviewer(ctx context.Context, n Notice) error {
	sub, err := w.subs.GetSubmissionForUserTask(ctx, n.UserID, n.TaskID)
	if err != nil {
		return fmt.Errorf("load submission: %w", err)
	}
	user, err := w.users.GetUserByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("load submitter: %w", err)
	}
	task, err := w.tasks.GetTaskByID(ctx, n.TaskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	text := fmt.Sprintf("📬 New submission\nFrom: %s\nTask: %s", user.FullName, task.Title)
	if sub.Content != nil && *sub.Content != "" {
		text += "\n\n" + *sub.Content
	}

	kb := gateway.Keyboard{{
		{Text: "✅ Accept", Action: model.Action{Kind: model.ActionAccept, TaskID: n.TaskID, UserID: n.UserID}.Encode()},
		{Text: "❌ Reject", Action: model.Action{Kind: model.ActionReject, TaskID: n.TaskID, UserID: n.UserID}.Encode()},
	}}

	if len(sub.Attachments) == 0 {
		_, err := w.gw.Send(ctx, w.adminID, text, kb)
		return err
	}

	if _, err := w.gw.SendMedia(ctx, w.adminID, sub.Attachments[0], text, kb); err != nil {
		return err
	}
	if rest := sub.Attachments[1:]; len(rest) > 0 {
		if err := w.gw.SendMediaGroup(ctx, w.adminID, rest); err != nil {
			return err
		}
	}
	return nil
}

func (w *NotifyWorker) notifySubmitter(ctx context.Context, n Notice) error {
	task, err := w.tasks.GetTaskByID(ctx, n.TaskID)
	if err != nil {
		return fmt.Errorf("load task: %w", err)
	}

	var text string
	switch n.Status {
	case model.StatusAccepted:
		text = fmt.Sprintf("✅ Your solution for «%s» was accepted!", task.Title)
		if n.Score != nil {
			text += fmt.Sprintf(" Score: %d.", *n.Score)
		}
	case model.StatusRejected:
		text = fmt.Sprintf("❌ Your solution for «%s» was rejected. Review the materials and reach out to support if anything is unclear.", task.Title)
	default:
		return fmt.Errorf("notice %s: unexpected status %q", n.ID, n.Status)
	}

	_, err = w.gw.Send(ctx, n.UserID, text, nil)
	return err
}
