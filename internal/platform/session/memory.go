package session

import (
	"context"
	"sync"

	"xcourses_bot/internal/domain/model"
)

// memoryStore is the non-redis backend: a plain map guarded by a
// mutex. Conversation state carries no durability requirement, so
// losing it on restart is acceptable.
type memoryStore struct {
	mu     sync.RWMutex
	states map[int64]*State
}

func NewMemoryStore() Store {
	return &memoryStore{states: make(map[int64]*State)}
}

func (s *memoryStore) SetStep(ctx context.Context, userID int64, step model.Step) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		st = &State{Data: make(map[string]string)}
		s.states[userID] = st
	}
	st.Step = step
	return nil
}

func (s *memoryStore) UpdateData(ctx context.Context, userID int64, data map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[userID]
	if !ok {
		st = &State{Data: make(map[string]string)}
		s.states[userID] = st
	}
	for k, v := range data {
		st.Data[k] = v
	}
	return nil
}

func (s *memoryStore) Get(ctx context.Context, userID int64) (State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[userID]
	if !ok {
		return State{Step: model.StepIdle, Data: make(map[string]string)}, nil
	}
	out := State{Step: st.Step, Data: make(map[string]string, len(st.Data))}
	for k, v := range st.Data {
		out.Data[k] = v
	}
	return out, nil
}

func (s *memoryStore) Clear(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, userID)
	return nil
}
