package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"xcourses_bot/internal/domain/model"
)

// Notice kinds carried on the notify queue.
const (
	KindNewSubmission = "new_submission"
	KindReviewDecided = "review_decided"
	KindCourseDeleted = "course_deleted"
)

// Notice is one queued delivery job. Which fields are meaningful
// depends on Kind; the worker re-reads current state from the
// repositories, so a Notice carries identifiers, not message text.
type Notice struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	UserID int64  `json:"user_id"`
	TaskID int64  `json:"task_id,omitempty"`

	Status model.SubmissionStatus `json:"status,omitempty"`
	Score  *int                   `json:"score,omitempty"`

	CourseTitle string `json:"course_title,omitempty"`
}

// Queue implements service.Notifier by pushing JSON notices onto a
// redis list. The worker drains it with BRPop.
type Queue struct {
	rdb       *redis.Client
	queueName string
}

func NewQueue(rdb *redis.Client, queueName string) *Queue {
	return &Queue{rdb: rdb, queueName: queueName}
}

func (q *Queue) SubmissionReceived(ctx context.Context, taskID, userID int64) error {
	return q.push(ctx, Notice{
		ID:     uuid.NewString(),
		Kind:   KindNewSubmission,
		UserID: userID,
		TaskID: taskID,
	})
}

func (q *Queue) ReviewDecided(ctx context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) error {
	return q.push(ctx, Notice{
		ID:     uuid.NewString(),
		Kind:   KindReviewDecided,
		UserID: userID,
		TaskID: taskID,
		Status: status,
		Score:  score,
	})
}

func (q *Queue) CourseDeleted(ctx context.Context, userID int64, courseTitle string) error {
	return q.push(ctx, Notice{
		ID:          uuid.NewString(),
		Kind:        KindCourseDeleted,
		UserID:      userID,
		CourseTitle: courseTitle,
	})
}

func (q *Queue) push(ctx context.Context, n Notice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queueName, payload).Err(); err != nil {
		return fmt.Errorf("enqueue notice %s: %w", n.ID, err)
	}
	return nil
}
