package service

import (
	"context"
	"errors"
	"testing"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

func (f *fixture) seedPendingSubmission(t *testing.T) (taskID int64) {
	t.Helper()
	ctx := context.Background()
	_, _, taskID = f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.subs.Submit(ctx, 1001, taskID, strPtr("x = 4"), nil); err != nil {
		t.Fatal(err)
	}
	f.notifier.calls = nil
	return taskID
}

func TestAcceptAssignsMaxScore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedPendingSubmission(t)

	if err := f.review.Accept(ctx, taskID, 1001); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	sub, err := f.subs.Get(ctx, 1001, taskID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sub.Status != model.StatusAccepted {
		t.Errorf("status = %q, want accepted", sub.Status)
	}
	if sub.Score == nil || *sub.Score != 100 {
		t.Errorf("score = %v, want 100", sub.Score)
	}

	if len(f.notifier.calls) != 1 {
		t.Fatalf("notices = %+v, want one review_decided", f.notifier.calls)
	}
	call := f.notifier.calls[0]
	if call.kind != "review_decided" || call.status != model.StatusAccepted || call.userID != 1001 {
		t.Errorf("unexpected notice %+v", call)
	}
}

func TestRejectLeavesScoreUnset(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedPendingSubmission(t)

	if err := f.review.Reject(ctx, taskID, 1001); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	sub, err := f.subs.Get(ctx, 1001, taskID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sub.Status != model.StatusRejected {
		t.Errorf("status = %q, want rejected", sub.Status)
	}
	if sub.Score != nil {
		t.Errorf("score = %v, want nil", sub.Score)
	}
}

func TestDecidingTwiceIsRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedPendingSubmission(t)

	if err := f.review.Accept(ctx, taskID, 1001); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	f.notifier.calls = nil

	// The second decision must not flip the verdict or notify again.
	if err := f.review.Reject(ctx, taskID, 1001); !errors.Is(err, common.ErrAlreadyDecided) {
		t.Fatalf("second decision err = %v, want ErrAlreadyDecided", err)
	}
	sub, _ := f.subs.Get(ctx, 1001, taskID)
	if sub.Status != model.StatusAccepted {
		t.Errorf("status flipped to %q", sub.Status)
	}
	if len(f.notifier.calls) != 0 {
		t.Errorf("learner notified again: %+v", f.notifier.calls)
	}
}

func TestReviewMissingSubmission(t *testing.T) {
	f := newFixture()
	err := f.review.Accept(context.Background(), 999, 999)
	if !errors.Is(err, common.ErrAlreadyDecided) {
		t.Fatalf("err = %v, want ErrAlreadyDecided", err)
	}
}

func TestAcceptSurvivesNotifierFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	taskID := f.seedPendingSubmission(t)

	f.notifier.err = errors.New("queue down")
	if err := f.review.Accept(ctx, taskID, 1001); err != nil {
		t.Fatalf("Accept must not fail on notifier errors: %v", err)
	}
	sub, _ := f.subs.Get(ctx, 1001, taskID)
	if sub.Status != model.StatusAccepted {
		t.Errorf("status = %q, want accepted", sub.Status)
	}
}
