package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
)

func TestSubmit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, taskID := f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}
	f.notifier.calls = nil

	sub, err := f.subs.Submit(ctx, 1001, taskID, strPtr("x = 4"), []model.Attachment{
		{Kind: model.AttachmentPhoto, FileID: "photo-1"},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if sub.Status != model.StatusPending {
		t.Errorf("status = %q, want pending", sub.Status)
	}
	if len(f.notifier.calls) != 1 || f.notifier.calls[0].kind != "new_submission" {
		t.Errorf("notices = %+v, want one new_submission", f.notifier.calls)
	}
}

func TestSubmitTwiceConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, taskID := f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.subs.Submit(ctx, 1001, taskID, strPtr("first"), nil); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	_, err := f.subs.Submit(ctx, 1001, taskID, strPtr("second"), nil)
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("second Submit err = %v, want ErrConflict", err)
	}

	// The original answer is untouched.
	sub, err := f.subs.Get(ctx, 1001, taskID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if sub.Content == nil || *sub.Content != "first" {
		t.Errorf("stored content = %v, want the first answer", sub.Content)
	}
}

// TestSubmitConcurrentDuplicates races many submits for one (user,
// task) pair. Exactly one may win; everyone else sees the conflict and
// only the winner's row is stored.
func TestSubmitConcurrentDuplicates(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, taskID := f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.subs.Submit(ctx, 1001, taskID, strPtr(fmt.Sprintf("attempt %d", i)), nil)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, common.ErrConflict):
			conflicts++
		default:
			t.Errorf("unexpected submit error: %v", err)
		}
	}
	if wins != 1 || conflicts != attempts-1 {
		t.Fatalf("wins = %d, conflicts = %d, want 1 and %d", wins, conflicts, attempts-1)
	}

	overview, err := f.stats.UserOverview(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(overview) != 1 || overview[0].SubmissionCount != 1 {
		t.Fatalf("overview = %+v, want one user with one submission", overview)
	}
}

func TestSubmitEmptyPayload(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, taskID := f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}

	if _, err := f.subs.Submit(ctx, 1001, taskID, nil, nil); !errors.Is(err, common.ErrValidation) {
		t.Errorf("nil payload err = %v, want ErrValidation", err)
	}
	empty := ""
	if _, err := f.subs.Submit(ctx, 1001, taskID, &empty, nil); !errors.Is(err, common.ErrValidation) {
		t.Errorf("empty text err = %v, want ErrValidation", err)
	}
}

func TestSubmitSurvivesNotifierFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, _, taskID := f.seedTask("Algebra")
	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatal(err)
	}

	f.notifier.err = errors.New("queue down")
	if _, err := f.subs.Submit(ctx, 1001, taskID, strPtr("x = 4"), nil); err != nil {
		t.Fatalf("Submit must not fail on notifier errors: %v", err)
	}
	if _, err := f.subs.Get(ctx, 1001, taskID); err != nil {
		t.Errorf("submission not stored: %v", err)
	}
}
