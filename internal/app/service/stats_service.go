package service

import (
	"context"

	"xcourses_bot/internal/domain/model"
	"xcourses_bot/internal/domain/repository"
)

// StatsService backs the admin panel's read-only views.
type StatsService struct {
	courses repository.CourseRepository
	users   repository.UserRepository
}

func NewStatsService(courses repository.CourseRepository, users repository.UserRepository) *StatsService {
	return &StatsService{courses: courses, users: users}
}

func (s *StatsService) CourseStats(ctx context.Context) ([]model.CourseStats, error) {
	return s.courses.CourseStats(ctx)
}

func (s *StatsService) UserOverview(ctx context.Context) ([]model.UserOverview, error) {
	return s.users.UserOverview(ctx)
}
