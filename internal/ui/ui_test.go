package ui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tododeck/internal/config"
	"tododeck/internal/failure"
	"tododeck/internal/gate"
	"tododeck/internal/pager"
	"tododeck/internal/pager/mocks"
	"tododeck/internal/todo"
)

var base = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func seed() []todo.Record {
	return []todo.Record{
		{ID: 1, UserID: 1, Title: "one", Completed: true, CreatedAt: base, UpdatedAt: base},
		{ID: 2, UserID: 1, Title: "two", CreatedAt: base, UpdatedAt: base},
		{ID: 3, UserID: 2, Title: "three", CreatedAt: base, UpdatedAt: base},
	}
}

func newTestModel(t *testing.T, records []todo.Record) (Model, *todo.Store, *pager.Controller) {
	t.Helper()
	cfg, err := config.LoadOrCreate(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	cfg.DefaultFilter = "all"
	cfg.DefaultSort = "asc"
	cfg.UI.PrefetchThreshold = 1

	store := todo.NewStore()
	require.NoError(t, store.ReplaceAll(records))
	ctrl := gomock.NewController(t)
	p := pager.New(store, mocks.NewMockFetcher(ctrl), 10)

	m := New(context.Background(), Deps{
		Store:  store,
		Pager:  p,
		Gate:   gate.New(store, zerolog.Nop()),
		Config: cfg,
		Log:    zerolog.Nop(),
	})
	return m, store, p
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+t":
		return tea.KeyMsg{Type: tea.KeyCtrlT}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func send(m Model, msg tea.Msg) (Model, tea.Cmd) {
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		m, _ = send(m, keyMsg(k))
	}
	return m
}

func rowIDs(m Model) []int {
	ids := make([]int, 0, len(m.rows))
	for _, r := range m.rows {
		ids = append(ids, r.ID)
	}
	return ids
}

func page(from, n int) []todo.Record {
	out := make([]todo.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, todo.Record{ID: from + i, UserID: 1, Title: fmt.Sprintf("remote %d", from+i)})
	}
	return out
}

func TestModel_DeleteRequiresConfirmation(t *testing.T) {
	m, store, _ := newTestModel(t, seed())

	m = press(m, "d")
	r, ok := m.gate.Pending()
	require.True(t, ok)
	assert.Equal(t, 1, r.ID)
	assert.Equal(t, `Delete "one"? y/n`, m.status)

	m = press(m, "x", "j")
	assert.Equal(t, 3, store.Len(), "other keys neither delete nor dismiss")
	_, ok = m.gate.Pending()
	assert.True(t, ok)

	m = press(m, "n")
	assert.Equal(t, 3, store.Len())
	_, ok = m.gate.Pending()
	assert.False(t, ok)
	assert.Equal(t, "Delete cancelled", m.status)

	m = press(m, "d", "esc")
	assert.Equal(t, 3, store.Len())

	m = press(m, "d", "y")
	assert.Equal(t, 2, store.Len())
	_, found := store.Get(1)
	assert.False(t, found)
	assert.Equal(t, []int{2, 3}, rowIDs(m))
}

func TestModel_AddRejectsBlankTitle(t *testing.T) {
	m, store, _ := newTestModel(t, seed())

	m = press(m, "a", "enter")

	assert.Equal(t, 3, store.Len())
	assert.NotNil(t, m.form, "form stays open")
	assert.True(t, m.statusErr)
	assert.Equal(t, "Title cannot be empty", m.status)

	m = press(m, "esc")
	assert.Nil(t, m.form)
}

func TestModel_AddCreatesRecord(t *testing.T) {
	m, store, _ := newTestModel(t, seed())

	m = press(m, "a", "buy milk", "ctrl+t", "enter")

	require.Nil(t, m.form)
	assert.Equal(t, 4, store.Len())
	r, ok := m.selected()
	require.True(t, ok)
	assert.Equal(t, "buy milk", r.Title)
	assert.True(t, r.Completed)
	assert.Equal(t, todo.LocalUserID, r.UserID)
}

func TestModel_AddIgnoresListKeysWhileTyping(t *testing.T) {
	m, store, _ := newTestModel(t, seed())

	m = press(m, "a", "q")
	require.NotNil(t, m.form)
	assert.Equal(t, "q", m.form.title.Value())

	m = press(m, "enter")
	assert.Equal(t, 4, store.Len())
	r, _ := m.selected()
	assert.Equal(t, "q", r.Title)
}

func TestModel_EditKeepsIdentity(t *testing.T) {
	m, store, _ := newTestModel(t, seed())
	m = press(m, "j")

	m = press(m, "e")
	require.NotNil(t, m.form)
	assert.Equal(t, "two", m.form.title.Value())

	m = press(m, "ctrl+t", "enter")

	require.Nil(t, m.form)
	r, ok := store.Get(2)
	require.True(t, ok)
	assert.Equal(t, "two", r.Title)
	assert.True(t, r.Completed)
	assert.Equal(t, base, r.CreatedAt)
	assert.True(t, r.UpdatedAt.After(base))
	assert.Equal(t, 3, store.Len())
}

func TestModel_ToggleWithSpace(t *testing.T) {
	m, store, _ := newTestModel(t, seed())
	m = press(m, "j")

	m = press(m, " ")

	r, _ := store.Get(2)
	assert.True(t, r.Completed)

	press(m, " ")
	r, _ = store.Get(2)
	assert.False(t, r.Completed)
}

func TestModel_TabsFilterRows(t *testing.T) {
	m, _, _ := newTestModel(t, seed())
	assert.Equal(t, []int{1, 2, 3}, rowIDs(m))

	m = press(m, "tab")
	assert.Equal(t, todo.BucketActive, m.bucket)
	assert.Equal(t, []int{2, 3}, rowIDs(m))

	m = press(m, "tab")
	assert.Equal(t, []int{1}, rowIDs(m))

	m = press(m, "tab")
	assert.Equal(t, todo.BucketAll, m.bucket)

	m = press(m, "shift+tab")
	assert.Equal(t, todo.BucketDone, m.bucket)
}

func TestModel_SortFlips(t *testing.T) {
	m, _, _ := newTestModel(t, seed())
	assert.Contains(t, m.View(), "Show Oldest")

	m = press(m, "s")

	assert.Equal(t, []int{3, 2, 1}, rowIDs(m))
	assert.Contains(t, m.View(), "Show Latest")
}

func TestModel_ViewShowsCounts(t *testing.T) {
	m, _, _ := newTestModel(t, seed())

	out := m.View()

	assert.Contains(t, out, "All (3)")
	assert.Contains(t, out, "Active (2)")
	assert.Contains(t, out, "Done (1)")
	assert.Contains(t, out, "three")
}

func TestModel_InitFetchesOnlyWhenEmpty(t *testing.T) {
	m, _, p := newTestModel(t, seed())
	assert.Nil(t, m.Init())
	assert.False(t, p.State().IsLoading)

	empty, _, p := newTestModel(t, nil)
	assert.NotNil(t, empty.Init())
	assert.True(t, p.State().IsLoading)
}

func TestModel_PrefetchNearEndMergesPage(t *testing.T) {
	m, store, p := newTestModel(t, seed())

	m, cmd := send(m, keyMsg("j"))
	require.NotNil(t, cmd)
	require.True(t, p.State().IsLoading)
	assert.Contains(t, m.View(), "Loading page 1")

	m, _ = send(m, keyMsg("j"))
	assert.True(t, p.State().IsLoading, "no second fetch while loading")

	m, _ = send(m, pageLoadedMsg{page: 1, records: page(100, 10)})

	assert.Equal(t, 13, store.Len())
	assert.Len(t, m.rows, 13)
	assert.Equal(t, pager.State{Page: 2, HasMore: true}, p.State())
	assert.Equal(t, "Loaded page 1 (10 new)", m.status)
}

func TestModel_ShortPageEndsPaging(t *testing.T) {
	m, _, p := newTestModel(t, seed())

	m = press(m, "m")
	m, _ = send(m, pageLoadedMsg{page: 1, records: page(100, 4)})

	assert.False(t, p.State().HasMore)
	assert.Contains(t, m.View(), "No more todos")

	m = press(m, "m")
	assert.Equal(t, "No more todos to load", m.status)
}

func TestModel_FetchErrorKeepsCursor(t *testing.T) {
	m, store, p := newTestModel(t, seed())

	m = press(m, "m")
	m, _ = send(m, pageLoadedMsg{page: 1, err: failure.Network(errors.New("connection refused"))})

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, pager.State{Page: 1, HasMore: true}, p.State())
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "Could not reach the server")

	m = press(m, "m")
	assert.True(t, p.State().IsLoading, "same page can be retried")
}

func TestModel_DiscardsPageAfterClose(t *testing.T) {
	m, store, p := newTestModel(t, seed())

	m = press(m, "m")
	p.Close()
	m, _ = send(m, pageLoadedMsg{page: 1, records: page(100, 10)})

	assert.Equal(t, 3, store.Len())
	assert.Equal(t, "Loading more todos", m.status)
}

func TestModel_EditRecordWithZeroID(t *testing.T) {
	records := seed()
	records[0].ID = 0
	m, store, _ := newTestModel(t, records)

	m = press(m, "e")
	require.NotNil(t, m.form)
	m.form.title.SetValue("renamed")
	m = press(m, "enter")

	require.Nil(t, m.form)
	assert.Equal(t, 3, store.Len(), "editing must not create a record")
	r, ok := store.Get(0)
	require.True(t, ok)
	assert.Equal(t, "renamed", r.Title)
	assert.Equal(t, "Saved todo", m.status)
}

func TestModel_EditTargetRemovedMeanwhile(t *testing.T) {
	m, store, _ := newTestModel(t, seed())

	m = press(m, "e")
	require.True(t, store.Remove(1))
	m = press(m, "enter")

	assert.Nil(t, m.form)
	assert.True(t, m.statusErr)
	assert.Equal(t, "Todo no longer exists", m.status)
	assert.Equal(t, 2, store.Len())
}

func TestModel_QuitWhileDeletePending(t *testing.T) {
	m, store, _ := newTestModel(t, seed())
	m = press(m, "d")
	_, ok := m.gate.Pending()
	require.True(t, ok)

	m, cmd := send(m, tea.KeyMsg{Type: tea.KeyCtrlC})

	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	_, ok = m.gate.Pending()
	assert.False(t, ok)
	assert.Equal(t, 3, store.Len())
}
