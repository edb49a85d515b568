package todo

import (
	"time"
)

// Op names the mutation reported to subscribers.
type Op string

const (
	OpReplace Op = "replace"
	OpAdd     Op = "add"
	OpMerge   Op = "merge"
	OpRemove  Op = "remove"
	OpUpdate  Op = "update"
	OpToggle  Op = "toggle"
)

// Change describes a mutation that has already been applied.
type Change struct {
	Op  Op
	IDs []int
}

type Listener func(Change)

type Option func(*Store)

// WithClock overrides the time source used for timestamps and local ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store owns the todo collection. It is not safe for concurrent use; a
// single event loop is expected to own it.
type Store struct {
	records   []Record
	index     map[int]int
	listeners map[int]Listener
	nextSub   int
	now       func() time.Time
	closed    bool
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		index:     map[int]int{},
		listeners: map[int]Listener{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a copy of the collection in insertion order.
func (s *Store) Snapshot() []Record {
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

func (s *Store) Get(id int) (Record, bool) {
	i, ok := s.index[id]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

func (s *Store) Len() int {
	return len(s.records)
}

func (s *Store) Closed() bool {
	return s.closed
}

// Subscribe registers fn to be called after every mutation. The returned
// func removes the subscription.
func (s *Store) Subscribe(fn Listener) (cancel func()) {
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	return func() {
		delete(s.listeners, id)
	}
}

// Close disposes the store. Later mutations are rejected and listeners are dropped.
func (s *Store) Close() {
	s.closed = true
	s.listeners = map[int]Listener{}
}

// ReplaceAll swaps the whole collection. Input containing a repeated id is
// rejected and the collection is left unchanged.
func (s *Store) ReplaceAll(records []Record) error {
	if s.closed {
		return ErrClosed
	}
	now := s.now()
	next := make([]Record, 0, len(records))
	index := make(map[int]int, len(records))
	ids := make([]int, 0, len(records))
	for _, r := range records {
		if _, dup := index[r.ID]; dup {
			return ErrDuplicateID
		}
		index[r.ID] = len(next)
		next = append(next, normalizeTimes(r, now))
		ids = append(ids, r.ID)
	}
	s.records = next
	s.index = index
	s.notify(Change{Op: OpReplace, IDs: ids})
	return nil
}

// Add appends r. It fails with ErrDuplicateID if r.ID is already present.
func (s *Store) Add(r Record) error {
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.index[r.ID]; ok {
		return ErrDuplicateID
	}
	s.insert(normalizeTimes(r, s.now()))
	s.notify(Change{Op: OpAdd, IDs: []int{r.ID}})
	return nil
}

// Merge adds every record whose id is not yet present and reports how many
// were added. Listeners are notified once for the whole batch.
func (s *Store) Merge(records []Record) int {
	if s.closed {
		return 0
	}
	now := s.now()
	var added []int
	for _, r := range records {
		if _, ok := s.index[r.ID]; ok {
			continue
		}
		s.insert(normalizeTimes(r, now))
		added = append(added, r.ID)
	}
	if len(added) > 0 {
		s.notify(Change{Op: OpMerge, IDs: added})
	}
	return len(added)
}

// Create validates d and adds a locally created record with a time based id.
func (s *Store) Create(d Draft) (Record, error) {
	d, err := d.Normalize()
	if err != nil {
		return Record{}, err
	}
	if s.closed {
		return Record{}, ErrClosed
	}
	now := s.now()
	id := int(now.UnixMilli())
	for {
		if _, taken := s.index[id]; !taken {
			break
		}
		id++
	}
	r := Record{
		ID:        id,
		UserID:    LocalUserID,
		Title:     d.Title,
		Completed: d.Completed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Add(r); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Remove deletes the record with id. It reports whether anything was removed.
func (s *Store) Remove(id int) bool {
	if s.closed {
		return false
	}
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.records); j++ {
		s.index[s.records[j].ID] = j
	}
	s.notify(Change{Op: OpRemove, IDs: []int{id}})
	return true
}

// Update replaces the stored record with r's fields. CreatedAt is kept from
// the stored record and UpdatedAt is stamped. Unknown ids are ignored.
func (s *Store) Update(r Record) bool {
	if s.closed {
		return false
	}
	i, ok := s.index[r.ID]
	if !ok {
		return false
	}
	prev := s.records[i]
	r.CreatedAt = prev.CreatedAt
	r.UpdatedAt = s.stamp(prev.UpdatedAt)
	s.records[i] = r
	s.notify(Change{Op: OpUpdate, IDs: []int{r.ID}})
	return true
}

// ToggleCompleted flips Completed and stamps UpdatedAt. Unknown ids are ignored.
func (s *Store) ToggleCompleted(id int) bool {
	if s.closed {
		return false
	}
	i, ok := s.index[id]
	if !ok {
		return false
	}
	r := &s.records[i]
	r.Completed = !r.Completed
	r.UpdatedAt = s.stamp(r.UpdatedAt)
	s.notify(Change{Op: OpToggle, IDs: []int{id}})
	return true
}

func (s *Store) insert(r Record) {
	s.index[r.ID] = len(s.records)
	s.records = append(s.records, r)
}

// stamp returns the current time, nudged past prev so UpdatedAt always advances.
func (s *Store) stamp(prev time.Time) time.Time {
	now := s.now()
	if !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}

func (s *Store) notify(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}
