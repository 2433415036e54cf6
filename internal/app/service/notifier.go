package service

import (
	"context"

	"xcourses_bot/internal/domain/model"
)

// Notifier hands outbound notices to the delivery pipeline. Delivery
// is best-effort and decoupled from the operations that trigger it: a
// committed submission or review stands whether or not its notice ever
// reaches anyone.
type Notifier interface {
	// SubmissionReceived asks for the reviewer to be told about a new
	// submission identified by (task, user).
	SubmissionReceived(ctx context.Context, taskID, userID int64) error
	// ReviewDecided asks for the submitter to be told the outcome.
	ReviewDecided(ctx context.Context, taskID, userID int64, status model.SubmissionStatus, score *int) error
	// CourseDeleted asks for one affected user to be told their
	// current course is gone.
	CourseDeleted(ctx context.Context, userID int64, courseTitle string) error
}
