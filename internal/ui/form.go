package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"

	"tododeck/internal/todo"
)

// form edits a draft. id is only meaningful when edit is set.
type form struct {
	id        int
	edit      bool
	title     textinput.Model
	completed bool
}

func newForm(width int) *form {
	ti := textinput.New()
	ti.Placeholder = "Todo title"
	ti.CharLimit = todo.MaxTitleLength
	ti.Width = width
	ti.Focus()
	return &form{title: ti}
}

func editForm(r todo.Record, width int) *form {
	f := newForm(width)
	d := todo.DraftOf(r)
	f.id = r.ID
	f.edit = true
	f.title.SetValue(d.Title)
	f.completed = d.Completed
	return f
}

func (f *form) editing() bool {
	return f.edit
}

func (f *form) draft() todo.Draft {
	return todo.Draft{Title: f.title.Value(), Completed: f.completed}
}

func (f *form) view() string {
	heading := "New todo"
	if f.editing() {
		heading = "Edit todo"
	}
	box := boxUnchecked
	if f.completed {
		box = boxChecked
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(heading))
	b.WriteString("\n")
	b.WriteString(f.title.View())
	b.WriteString("\n")
	b.WriteString(box + " Completed")
	return formStyle.Render(b.String())
}
