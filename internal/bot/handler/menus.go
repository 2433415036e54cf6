package handler

import (
	"xcourses_bot/internal/domain/gateway"
	"xcourses_bot/internal/domain/model"
)

// Persistent menu labels. The dispatcher routes on these exact strings,
// so they live in one place.
const (
	LabelCourses  = "📚 Courses"
	LabelMyCourse = "📖 My course"
	LabelSupport  = "🆘 Support"

	LabelAddCourse    = "📝 Add course"
	LabelDeleteCourse = "🗑 Delete course"
	LabelAddModule    = "➕ Add module"
	LabelAddTask      = "📌 Add task"
	LabelStats        = "📊 Statistics"
	LabelUsers        = "👥 Users"
	LabelMainMenu     = "🔙 Main menu"
)

// IsMenuLabel reports whether text is one of the persistent menu
// buttons above.
func IsMenuLabel(text string) bool {
	switch text {
	case LabelCourses, LabelMyCourse, LabelSupport, LabelMainMenu,
		LabelAddCourse, LabelDeleteCourse, LabelAddModule,
		LabelAddTask, LabelStats, LabelUsers:
		return true
	}
	return false
}

func mainMenu() gateway.Menu {
	return gateway.Menu{
		{LabelCourses, LabelMyCourse},
		{LabelSupport},
	}
}

func adminMenu() gateway.Menu {
	return gateway.Menu{
		{LabelAddCourse, LabelDeleteCourse},
		{LabelAddModule, LabelAddTask},
		{LabelStats, LabelUsers},
		{LabelMainMenu},
	}
}

func cancelRow() []gateway.Button {
	return []gateway.Button{{
		Text:   "❌ Cancel",
		Action: model.Action{Kind: model.ActionCancel}.Encode(),
	}}
}

func cancelKeyboard() gateway.Keyboard {
	return gateway.Keyboard{cancelRow()}
}

// courseKeyboard lists every course, one per row, each button carrying
// the given action kind. A cancel row closes the list.
func courseKeyboard(courses []model.Course, kind model.ActionKind) gateway.Keyboard {
	var kb gateway.Keyboard
	for _, c := range courses {
		kb = append(kb, []gateway.Button{{
			Text:   "📘 " + c.Title,
			Action: model.Action{Kind: kind, CourseID: c.ID}.Encode(),
		}})
	}
	kb = append(kb, cancelRow())
	return kb
}

func moduleKeyboard(modules []model.Module, kind model.ActionKind, backCourseAction string) gateway.Keyboard {
	var kb gateway.Keyboard
	for _, m := range modules {
		kb = append(kb, []gateway.Button{{
			Text:   "📂 " + m.Title,
			Action: model.Action{Kind: kind, ModuleID: m.ID}.Encode(),
		}})
	}
	if backCourseAction != "" {
		kb = append(kb, []gateway.Button{{Text: "🔙 Back to courses", Action: backCourseAction}})
	} else {
		kb = append(kb, cancelRow())
	}
	return kb
}
