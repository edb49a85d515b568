package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"tododeck/internal/config"
	"tododeck/internal/failure"
	"tododeck/internal/gate"
	"tododeck/internal/pager"
	"tododeck/internal/todo"
)

const dateLayout = "2006-01-02 15:04"

// Deps are the collaborators the shell drives. The store, pager and gate
// must not be touched by anything else while the program runs.
type Deps struct {
	Store  *todo.Store
	Pager  *pager.Controller
	Gate   *gate.Gate
	Config config.Config
	Log    zerolog.Logger
}

type pageLoadedMsg struct {
	page    int
	records []todo.Record
	err     error
}

type Model struct {
	ctx     context.Context
	store   *todo.Store
	pager   *pager.Controller
	gate    *gate.Gate
	cfg     config.Config
	log     zerolog.Logger
	keys    keyMap
	help    help.Model
	spinner spinner.Model

	bucket    todo.Bucket
	order     todo.Order
	rows      []todo.Record
	cursor    int
	form      *form
	status    string
	statusErr bool
	width     int
}

func New(ctx context.Context, d Deps) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle

	m := Model{
		ctx:     ctx,
		store:   d.Store,
		pager:   d.Pager,
		gate:    d.Gate,
		cfg:     d.Config,
		log:     d.Log,
		keys:    newKeyMap(d.Config.Keys),
		help:    help.New(),
		spinner: sp,
		bucket:  todo.ParseBucket(d.Config.DefaultFilter),
		order:   todo.ParseOrder(d.Config.DefaultSort),
		width:   60,
	}
	m.refresh()
	return m
}

// Run starts the terminal program and blocks until it exits. In-flight
// fetches are cancelled and the pager is closed on return.
func Run(ctx context.Context, d Deps) error {
	ctx, cancel := context.WithCancel(ctx)
	defer d.Pager.Close()
	defer cancel()

	_, err := tea.NewProgram(New(ctx, d)).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	if !m.pager.ShouldFetchOnMount() {
		return nil
	}
	return m.fetchNext()
}

// fetchNext begins the next page and returns the command that loads it, or
// nil when the pager refuses.
func (m Model) fetchNext() tea.Cmd {
	page, ok := m.pager.Begin()
	if !ok {
		return nil
	}
	load := m.pager.Load(m.ctx, page)
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		records, err := load()
		return pageLoadedMsg{page: page, records: records, err: err}
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.form != nil {
			return m.updateForm(msg)
		}
		if _, ok := m.gate.Pending(); ok {
			return m.updateDeleteConfirm(msg)
		}
		return m.updateList(msg)
	case pageLoadedMsg:
		return m.pageLoaded(msg)
	case spinner.TickMsg:
		if !m.pager.State().IsLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		if m.form != nil {
			m.form.title.Width = msg.Width - 10
		}
	}
	return m, nil
}

func (m Model) pageLoaded(msg pageLoadedMsg) (tea.Model, tea.Cmd) {
	res := m.pager.Complete(msg.page, msg.records, msg.err)
	if res.Discarded {
		return m, nil
	}
	if res.Err != nil {
		m.setError(fetchError(res.Err))
		return m, nil
	}
	m.refresh()
	m.setStatus(fmt.Sprintf("Loaded page %d (%d new)", res.Page, res.Added))
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Down):
		if len(m.rows) == 0 {
			return m, nil
		}
		m.cursor = clampCursor(m.cursor+1, len(m.rows))
		if m.pager.NearEnd(m.cursor, len(m.rows), m.cfg.UI.PrefetchThreshold) {
			return m, m.fetchNext()
		}
	case key.Matches(msg, m.keys.Up):
		m.cursor = clampCursor(m.cursor-1, len(m.rows))
	case key.Matches(msg, m.keys.NextTab):
		m.switchTab(1)
	case key.Matches(msg, m.keys.PrevTab):
		m.switchTab(-1)
	case key.Matches(msg, m.keys.Sort):
		m.order = m.order.Flip()
		m.refresh()
		m.setStatus("Sorted by id " + string(m.order))
	case key.Matches(msg, m.keys.LoadMore):
		if cmd := m.fetchNext(); cmd != nil {
			m.setStatus("Loading more todos")
			return m, cmd
		}
		if m.pager.State().IsLoading {
			m.setStatus("Already loading")
		} else {
			m.setStatus("No more todos to load")
		}
	case key.Matches(msg, m.keys.Add):
		m.form = newForm(m.width - 10)
		m.setStatus("Type a title and press " + m.cfg.Keys.Confirm)
	case key.Matches(msg, m.keys.Edit):
		r, ok := m.selected()
		if !ok {
			m.setStatus("No todo to edit")
			return m, nil
		}
		m.form = editForm(r, m.width-10)
		m.setStatus(fmt.Sprintf("Editing #%d", r.ID))
	case key.Matches(msg, m.keys.Toggle):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.store.ToggleCompleted(r.ID) {
			m.refresh()
			m.setStatus("Toggled #" + fmt.Sprint(r.ID))
		}
	case key.Matches(msg, m.keys.Delete):
		r, ok := m.selected()
		if !ok {
			return m, nil
		}
		if m.gate.Request(r.ID) {
			m.setStatus(m.gate.Question())
		}
	case key.Matches(msg, m.keys.Detail):
		r, ok := m.selected()
		if !ok {
			m.setStatus("No todos")
			return m, nil
		}
		m.setStatus(detail(r))
	}
	return m, nil
}

func (m Model) updateDeleteConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.gate.Cancel()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Yes):
		if m.gate.Confirm() {
			m.refresh()
			m.setStatus("Deleted todo")
		} else {
			m.setStatus("Nothing to delete")
		}
	case key.Matches(msg, m.keys.No):
		m.gate.Cancel()
		m.setStatus("Delete cancelled")
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.form = nil
		m.setStatus("Cancelled")
		return m, nil
	case key.Matches(msg, m.keys.FormToggle):
		m.form.completed = !m.form.completed
		return m, nil
	case key.Matches(msg, m.keys.Confirm):
		return m.submitForm()
	}
	var cmd tea.Cmd
	m.form.title, cmd = m.form.title.Update(msg)
	return m, cmd
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	f := m.form
	if !f.editing() {
		r, err := m.store.Create(f.draft())
		if err != nil {
			m.setError(formError(err))
			return m, nil
		}
		m.log.Info().Int("id", r.ID).Msg("todo added")
		m.form = nil
		m.refresh()
		m.selectID(r.ID)
		m.setStatus("Added todo")
		return m, nil
	}

	d, err := f.draft().Normalize()
	if err != nil {
		m.setError(formError(err))
		return m, nil
	}
	current, ok := m.store.Get(f.id)
	if !ok || !m.store.Update(d.Apply(current)) {
		err := failure.NotFound(f.id)
		m.log.Warn().Err(err).Msg("edit target missing")
		m.form = nil
		m.setError(formError(err))
		return m, nil
	}
	m.log.Info().Int("id", f.id).Msg("todo updated")
	m.form = nil
	m.refresh()
	m.selectID(f.id)
	m.setStatus("Saved todo")
	return m, nil
}

func (m *Model) switchTab(step int) {
	buckets := todo.Buckets()
	i := 0
	for j, b := range buckets {
		if b == m.bucket {
			i = j
		}
	}
	m.bucket = buckets[wrapIndex(i+step, len(buckets))]
	m.cursor = 0
	m.refresh()
}

// refresh recomputes the visible rows from the store.
func (m *Model) refresh() {
	m.rows = todo.View(m.store.Snapshot(), m.bucket, m.order)
	m.cursor = clampCursor(m.cursor, len(m.rows))
}

func (m *Model) selectID(id int) {
	for i, r := range m.rows {
		if r.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) selected() (todo.Record, bool) {
	if len(m.rows) == 0 {
		return todo.Record{}, false
	}
	return m.rows[clampCursor(m.cursor, len(m.rows))], true
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func fetchError(err error) string {
	switch {
	case failure.IsNetwork(err):
		return "Could not reach the server. Press load more to retry."
	case failure.IsParse(err):
		return "The server sent todos we could not read."
	default:
		return fmt.Sprintf("Fetch failed: %v", err)
	}
}

func formError(err error) string {
	switch {
	case errors.Is(err, failure.ErrNotFound):
		return "Todo no longer exists"
	case errors.Is(err, todo.ErrEmptyTitle):
		return "Title cannot be empty"
	case errors.Is(err, todo.ErrTitleLength):
		return fmt.Sprintf("Title is longer than %d characters", todo.MaxTitleLength)
	default:
		return fmt.Sprintf("save failed: %v", err)
	}
}

func detail(r todo.Record) string {
	return fmt.Sprintf("Todo #%d • user %d • %s • %s • created %s • updated %s",
		r.ID, r.UserID, r.Title, r.Status(), r.CreatedAt.Format(dateLayout), r.UpdatedAt.Format(dateLayout))
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Todos"))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n\n")

	if len(m.rows) == 0 {
		b.WriteString(mutedStyle.Render("No todos here. Press '" + m.cfg.Keys.Add + "' to add one."))
		b.WriteString("\n")
	} else {
		b.WriteString(m.renderRows())
	}
	b.WriteString(m.renderFooter())
	b.WriteString("\n")

	if m.form != nil {
		b.WriteString(m.form.view())
		b.WriteString("\n")
	}

	if m.status != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(m.status)
		}
		b.WriteString("\n")
	}
	if m.form != nil {
		b.WriteString(m.help.View(formKeys(m.keys)))
	} else {
		b.WriteString(m.help.View(m.keys))
	}
	return b.String()
}

func (m Model) renderTabs() string {
	counts := todo.CountBy(m.store.Snapshot())
	tabs := make([]string, 0, len(todo.Buckets())+1)
	for _, bucket := range todo.Buckets() {
		label := fmt.Sprintf("%s (%d)", bucket.Title(), counts.Of(bucket))
		if bucket == m.bucket {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	tabs = append(tabs, mutedStyle.Render(sortLabel(m.order)))
	return strings.Join(tabs, " ")
}

func sortLabel(o todo.Order) string {
	if o == todo.Ascending {
		return "Sort by ID: Show Oldest"
	}
	return "Sort by ID: Show Latest"
}

func (m Model) renderRows() string {
	height := m.cfg.UI.ListHeight
	if height < 1 {
		height = len(m.rows)
	}
	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.rows))

	var b strings.Builder
	for i := start; i < end; i++ {
		r := m.rows[i]
		cursor := " "
		if i == m.cursor {
			cursor = ">"
		}
		box := boxUnchecked
		if r.Completed {
			box = boxChecked
		}
		title := r.Title
		if r.Completed {
			title = doneStyle.Render(title)
		}
		line := fmt.Sprintf("%s %s #%-5d %s  %s", cursor, box, r.ID, title,
			mutedStyle.Render(fmt.Sprintf("user %d • created %s • updated %s",
				r.UserID, r.CreatedAt.Format(dateLayout), r.UpdatedAt.Format(dateLayout))))
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderFooter() string {
	st := m.pager.State()
	switch {
	case st.IsLoading:
		return m.spinner.View() + " Loading page " + fmt.Sprint(st.Page)
	case !st.HasMore:
		return mutedStyle.Render("No more todos")
	default:
		return ""
	}
}

func clampCursor(cur, n int) int {
	if n <= 0 || cur < 0 {
		return 0
	}
	if cur >= n {
		return n - 1
	}
	return cur
}

func wrapIndex(idx, n int) int {
	if n <= 0 {
		return 0
	}
	idx %= n
	if idx < 0 {
		idx += n
	}
	return idx
}
