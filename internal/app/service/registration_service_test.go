package service

import (
	"context"
	"errors"
	"testing"

	"xcourses_bot/internal/common"
)

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		fullName string
		wantErr  error
	}{
		{"two words", "Ivan Petrov", nil},
		{"three words", "Anna Maria Schmidt", nil},
		{"surrounding whitespace", "  Ivan Petrov  ", nil},
		{"single word", "Ivan", common.ErrValidation},
		{"empty", "", common.ErrValidation},
		{"whitespace only", "   ", common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			user, err := f.reg.Register(context.Background(), 1001, tt.fullName)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Register(%q) err = %v, want %v", tt.fullName, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Register(%q): %v", tt.fullName, err)
			}
			if user.ID != 1001 {
				t.Errorf("user ID = %d, want 1001", user.ID)
			}
		})
	}
}

func TestRegisterTrimsName(t *testing.T) {
	f := newFixture()
	user, err := f.reg.Register(context.Background(), 1001, "  Ivan Petrov ")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.FullName != "Ivan Petrov" {
		t.Errorf("full name = %q, want trimmed", user.FullName)
	}
}

func TestRegisterTwiceConflicts(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.reg.Register(ctx, 1001, "Ivan Petrov"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	_, err := f.reg.Register(ctx, 1001, "Ivan Petrov")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("second Register err = %v, want ErrConflict", err)
	}
}

func TestLookupStranger(t *testing.T) {
	f := newFixture()
	_, err := f.reg.Lookup(context.Background(), 404)
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("Lookup err = %v, want ErrNotFound", err)
	}
}
