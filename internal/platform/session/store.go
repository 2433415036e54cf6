// Package session holds per-user conversation state: the active
// workflow step and the fields accumulated so far. Exactly one
// workflow is active per user; setting a step while another workflow
// is in flight replaces it. Nothing outside this package's four
// operations may touch the state.
package session

import (
	"context"

	"xcourses_bot/internal/domain/model"
)

// State is a snapshot of one user's conversation. An idle user has
// Step == model.StepIdle and no data.
type State struct {
	Step model.Step
	Data map[string]string
}

type Store interface {
	// SetStep overwrites the user's current step, starting or
	// advancing a workflow.
	SetStep(ctx context.Context, userID int64, step model.Step) error
	// UpdateData merges fields into the accumulator without clearing
	// existing keys.
	UpdateData(ctx context.Context, userID int64, data map[string]string) error
	// Get returns the current snapshot; an unknown user is idle.
	Get(ctx context.Context, userID int64) (State, error)
	// Clear resets the user to idle and discards accumulated fields.
	Clear(ctx context.Context, userID int64) error
}
