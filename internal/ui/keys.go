package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"tododeck/internal/config"
)

type keyMap struct {
	Quit       key.Binding
	Add        key.Binding
	Edit       key.Binding
	Up         key.Binding
	Down       key.Binding
	Toggle     key.Binding
	Delete     key.Binding
	Detail     key.Binding
	Sort       key.Binding
	NextTab    key.Binding
	PrevTab    key.Binding
	LoadMore   key.Binding
	Confirm    key.Binding
	Cancel     key.Binding
	Yes        key.Binding
	No         key.Binding
	FormToggle key.Binding
}

func newKeyMap(k config.Keymap) keyMap {
	return keyMap{
		Quit:       key.NewBinding(key.WithKeys(k.Quit, "ctrl+c"), key.WithHelp(k.Quit, "quit")),
		Add:        key.NewBinding(key.WithKeys(k.Add), key.WithHelp(k.Add, "add")),
		Edit:       key.NewBinding(key.WithKeys(k.Edit), key.WithHelp(k.Edit, "edit")),
		Up:         key.NewBinding(key.WithKeys(k.Up, "up"), key.WithHelp(k.Up+"/↑", "up")),
		Down:       key.NewBinding(key.WithKeys(k.Down, "down"), key.WithHelp(k.Down+"/↓", "down")),
		Toggle:     key.NewBinding(key.WithKeys(k.Toggle, keyLabel(k.Toggle)), key.WithHelp(keyLabel(k.Toggle), "toggle")),
		Delete:     key.NewBinding(key.WithKeys(k.Delete), key.WithHelp(k.Delete, "delete")),
		Detail:     key.NewBinding(key.WithKeys(k.Detail), key.WithHelp(k.Detail, "detail")),
		Sort:       key.NewBinding(key.WithKeys(k.Sort), key.WithHelp(k.Sort, "sort")),
		NextTab:    key.NewBinding(key.WithKeys(k.NextTab), key.WithHelp(k.NextTab, "next tab")),
		PrevTab:    key.NewBinding(key.WithKeys(k.PrevTab), key.WithHelp(k.PrevTab, "prev tab")),
		LoadMore:   key.NewBinding(key.WithKeys(k.LoadMore), key.WithHelp(k.LoadMore, "load more")),
		Confirm:    key.NewBinding(key.WithKeys(k.Confirm), key.WithHelp(k.Confirm, "save")),
		Cancel:     key.NewBinding(key.WithKeys(k.Cancel), key.WithHelp(k.Cancel, "cancel")),
		Yes:        key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "delete")),
		No:         key.NewBinding(key.WithKeys("n", "N", k.Cancel), key.WithHelp("n", "keep")),
		FormToggle: key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "completed")),
	}
}

func keyLabel(k string) string {
	if k == " " {
		return "space"
	}
	return k
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Add, k.Toggle, k.Delete, k.NextTab, k.Sort, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextTab, k.PrevTab},
		{k.Add, k.Edit, k.Toggle, k.Delete},
		{k.Detail, k.Sort, k.LoadMore, k.Quit},
	}
}

// formKeys is the help shown while the add/edit form is open.
type formKeys keyMap

func (k formKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.FormToggle, k.Cancel}
}

func (k formKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
