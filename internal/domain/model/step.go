package model

// Step is a position inside a conversation workflow. The empty step is
// idle: no workflow active. Steps are namespaced by workflow so a
// single dispatch table can route (step -> handler) without ambiguity.
type Step string

const (
	StepIdle Step = ""

	// Registration workflow.
	StepAwaitingFullName Step = "registration:full_name"

	// Course creation (admin).
	StepCourseTitle       Step = "course_create:title"
	StepCourseDescription Step = "course_create:description"
	StepCourseMedia       Step = "course_create:media"

	// Module creation (admin). Course choice happens via callback
	// before the first text step.
	StepModuleTitle Step = "module_create:title"

	// Task creation (admin).
	StepTaskTitle   Step = "task_create:title"
	StepTaskContent Step = "task_create:content"
	StepTaskMedia   Step = "task_create:media"

	// Submission intake.
	StepAwaitingSolution Step = "submission:solution"
)

// Accumulator keys shared between steps of one workflow.
const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldContent     = "content"
	FieldCourseID    = "course_id"
	FieldCourseSlug  = "course_slug"
	FieldModuleID    = "module_id"
	FieldTaskID      = "task_id"
)
