package storage

import (
	"fmt"

	"tododeck/internal/todo"
)

// Restore loads the cached snapshot into st through ReplaceAll and returns
// the saved cursor. ok is false when the cache holds no cursor yet.
func (s *Store) Restore(st *todo.Store) (c Cursor, ok bool, err error) {
	records, err := s.LoadTodos()
	if err != nil {
		return Cursor{}, false, fmt.Errorf("load todos: %w", err)
	}
	if err := st.ReplaceAll(records); err != nil {
		return Cursor{}, false, fmt.Errorf("restore todos: %w", err)
	}
	return s.LoadCursor()
}

// Mirror writes the snapshot and cursor back to the cache after every change
// to st. Write errors go to onErr. The returned func stops mirroring.
func (s *Store) Mirror(st *todo.Store, cursor func() Cursor, onErr func(error)) (cancel func()) {
	return st.Subscribe(func(todo.Change) {
		if err := s.SaveTodos(st.Snapshot()); err != nil {
			onErr(fmt.Errorf("save todos: %w", err))
			return
		}
		if cursor == nil {
			return
		}
		if err := s.SaveCursor(cursor()); err != nil {
			onErr(fmt.Errorf("save cursor: %w", err))
		}
	})
}
