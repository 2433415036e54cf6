package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"xcourses_bot/internal/common"
	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
)

type RegistrationService struct {
	users repository.UserRepository
	log   *zap.Logger
}

func NewRegistrationService(users repository.UserRepository, log *zap.Logger) *RegistrationService {
	return &RegistrationService{users: users, log: log}
}

// Lookup returns the user record or common.ErrNotFound for a stranger.
func (s *RegistrationService) Lookup(ctx context.Context, userID int64) (*model.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Register creates the user record exactly once. The name must hold at
// least two words; a duplicate registration (including a race from a
// repeated greeting) surfaces as common.ErrConflict, which callers
// treat as a non-fatal "already registered" outcome.
func (s *RegistrationService) Register(ctx context.Context, userID int64, fullName string) (*model.User, error) {
	fullName = strings.TrimSpace(fullName)
	if err := validate.Var(fullName, "required,fullname"); err != nil {
		return nil, common.Errorf("full name must contain at least two words: %w", common.ErrValidation)
	}

	user := &model.User{ID: userID, FullName: fullName}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("user registered", zap.Int64("user_id", userID))
	return user, nil
}
