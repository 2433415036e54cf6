package service

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// fullname: at least two whitespace-separated tokens.
	_ = v.RegisterValidation("fullname", func(fl validator.FieldLevel) bool {
		return len(strings.Fields(fl.Field().String())) >= 2
	})
	return v
}

// CourseDraft is the field set the course creation workflow
// accumulates before commit.
type CourseDraft struct {
	Title       string `validate:"required"`
	Description string
	MediaID     *string
}

// ModuleDraft is the module creation commit payload.
type ModuleDraft struct {
	CourseID int64  `validate:"required"`
	Title    string `validate:"required"`
}

// TaskDraft is the task creation commit payload.
type TaskDraft struct {
	ModuleID int64  `validate:"required"`
	Title    string `validate:"required"`
	Content  string `validate:"required"`
	FileID   *string
}
