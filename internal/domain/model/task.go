package model

// Task is a single assignment inside a module. FileID is an optional
// attachment reference understood by the messaging platform.
type Task struct {
	ID       int64   `json:"task_id"`
	ModuleID int64   `json:"module_id"`
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	FileID   *string `json:"file_id,omitempty"`
}
