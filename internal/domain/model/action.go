package model

import (
	"fmt"
	"strconv"
	"strings"
)

// ActionKind names every button action the bot understands. All
// callback routing goes through Action: handlers never split callback
// payloads themselves.
type ActionKind string

const (
	ActionCancel      ActionKind = "cancel"
	ActionNoop        ActionKind = "noop"
	ActionCourseList  ActionKind = "crs_list"
	ActionCourse      ActionKind = "crs"
	ActionModule      ActionKind = "mod"
	ActionBackModules ActionKind = "back_mod"
	ActionTask        ActionKind = "task"

	ActionAddModuleCourse ActionKind = "addmod_crs"
	ActionAddTaskCourse   ActionKind = "addtask_crs"
	ActionAddTaskModule   ActionKind = "addtask_mod"
	ActionDeleteCourse    ActionKind = "del_crs"
	ActionConfirmDelete   ActionKind = "confirm_del"

	ActionAccept ActionKind = "accept"
	ActionReject ActionKind = "reject"
)

// Action is a typed button descriptor. Which ids are meaningful depends
// on Kind; Encode and ParseAction are the single serialization
// boundary for the wire form "kind[:id[:id]]".
type Action struct {
	Kind     ActionKind
	CourseID int64
	ModuleID int64
	TaskID   int64
	UserID   int64
}

func (a Action) Encode() string {
	switch a.Kind {
	case ActionCourse, ActionBackModules, ActionAddModuleCourse, ActionAddTaskCourse,
		ActionDeleteCourse, ActionConfirmDelete:
		return fmt.Sprintf("%s:%d", a.Kind, a.CourseID)
	case ActionModule, ActionAddTaskModule:
		return fmt.Sprintf("%s:%d", a.Kind, a.ModuleID)
	case ActionTask:
		return fmt.Sprintf("%s:%d", a.Kind, a.TaskID)
	case ActionAccept, ActionReject:
		return fmt.Sprintf("%s:%d:%d", a.Kind, a.TaskID, a.UserID)
	default:
		return string(a.Kind)
	}
}

// ParseAction decodes the wire form produced by Encode. Unknown kinds
// and wrong arity are errors: a stale or foreign payload must not be
// half-interpreted.
func ParseAction(data string) (Action, error) {
	parts := strings.Split(data, ":")
	kind := ActionKind(parts[0])
	args := parts[1:]

	ids := make([]int64, len(args))
	for i, arg := range args {
		n, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return Action{}, fmt.Errorf("action %q: bad id %q", kind, arg)
		}
		ids[i] = n
	}

	need := func(n int) error {
		if len(ids) != n {
			return fmt.Errorf("action %q: want %d ids, got %d", kind, n, len(ids))
		}
		return nil
	}

	a := Action{Kind: kind}
	switch kind {
	case ActionCancel, ActionNoop, ActionCourseList:
		return a, need(0)
	case ActionCourse, ActionBackModules, ActionAddModuleCourse, ActionAddTaskCourse,
		ActionDeleteCourse, ActionConfirmDelete:
		if err := need(1); err != nil {
			return Action{}, err
		}
		a.CourseID = ids[0]
		return a, nil
	case ActionModule, ActionAddTaskModule:
		if err := need(1); err != nil {
			return Action{}, err
		}
		a.ModuleID = ids[0]
		return a, nil
	case ActionTask:
		if err := need(1); err != nil {
			return Action{}, err
		}
		a.TaskID = ids[0]
		return a, nil
	case ActionAccept, ActionReject:
		if err := need(2); err != nil {
			return Action{}, err
		}
		a.TaskID, a.UserID = ids[0], ids[1]
		return a, nil
	default:
		return Action{}, fmt.Errorf("unknown action kind %q", kind)
	}
}

// IsAdminOnly reports whether the action may only be acted on by the
// configured administrator.
func (a Action) IsAdminOnly() bool {
	switch a.Kind {
	case ActionAddModuleCourse, ActionAddTaskCourse, ActionAddTaskModule,
		ActionDeleteCourse, ActionConfirmDelete, ActionAccept, ActionReject:
		return true
	}
	return false
}
