package model

// Course is the top of the catalog tree. Deleting a course cascades to
// its modules, tasks and submissions, and nulls users' current_course.
type Course struct {
	ID          int64   `json:"course_id"`
	Title       string  `json:"title"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	MediaID     *string `json:"media_id,omitempty"`
}

// Module groups tasks inside a course.
type Module struct {
	ID       int64   `json:"module_id"`
	CourseID int64   `json:"course_id"`
	Title    string  `json:"title"`
	MediaID  *string `json:"media_id,omitempty"`
}

// CourseStats is a per-course rollup for the admin panel.
type CourseStats struct {
	CourseID        int64
	Title           string
	ModuleCount     int
	TaskCount       int
	SubmissionCount int
}
