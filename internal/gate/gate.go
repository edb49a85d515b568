// Package gate guards record deletion behind an explicit confirmation.
package gate

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"tododeck/internal/failure"
	"tododeck/internal/todo"
)

//go:generate mockgen -destination=mocks/prompter.go -package=mocks tododeck/internal/gate Prompter

// Prompter asks the user a yes/no question and blocks until answered.
// Dismissing the prompt is reported as false.
type Prompter interface {
	Confirm(ctx context.Context, question string) (bool, error)
}

// Gate holds at most one pending deletion. Only Confirm removes anything.
type Gate struct {
	store   *todo.Store
	pending *todo.Record
	log     zerolog.Logger
}

func New(store *todo.Store, log zerolog.Logger) *Gate {
	return &Gate{store: store, log: log}
}

// Request stages id for deletion. It returns false when no such record
// exists, in which case nothing is staged.
func (g *Gate) Request(id int) bool {
	r, ok := g.store.Get(id)
	if !ok {
		g.pending = nil
		return false
	}
	g.pending = &r
	return true
}

// Pending returns the staged record, if any.
func (g *Gate) Pending() (todo.Record, bool) {
	if g.pending == nil {
		return todo.Record{}, false
	}
	return *g.pending, true
}

// Question is the text shown to the user for the staged record.
func (g *Gate) Question() string {
	if g.pending == nil {
		return ""
	}
	return Question(*g.pending)
}

func Question(r todo.Record) string {
	return fmt.Sprintf("Delete %q? y/n", r.Title)
}

// Confirm removes the staged record and clears the stage. It reports whether
// a record was removed.
func (g *Gate) Confirm() bool {
	if g.pending == nil {
		return false
	}
	id := g.pending.ID
	g.pending = nil
	if !g.store.Remove(id) {
		g.log.Debug().Err(failure.NotFound(id)).Msg("delete confirmed for missing todo")
		return false
	}
	g.log.Debug().Int("id", id).Msg("delete confirmed")
	return true
}

// Cancel drops the staged record without touching the store.
func (g *Gate) Cancel() {
	if g.pending != nil {
		g.log.Debug().Int("id", g.pending.ID).Msg("delete cancelled")
	}
	g.pending = nil
}

// Prompt runs the whole protocol with a blocking prompter: stage, ask, and
// delete only on an affirmative answer.
func (g *Gate) Prompt(ctx context.Context, id int, p Prompter) (bool, error) {
	if !g.Request(id) {
		return false, nil
	}
	ok, err := p.Confirm(ctx, g.Question())
	if err != nil || !ok {
		g.Cancel()
		return false, err
	}
	return g.Confirm(), nil
}
