package model

import "time"

// User is a learner known to the bot. The ID is the external chat
// identity, assigned by the messaging platform, never by us.
type User struct {
	ID            int64     `json:"user_id"`
	FullName      string    `json:"full_name"`
	CurrentCourse *int64    `json:"current_course,omitempty"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// UserOverview is the admin-facing roster line: who the user is, what
// course they are on and how many submissions they have sent.
type UserOverview struct {
	UserID          int64
	FullName        string
	CourseTitle     *string
	SubmissionCount int
}
