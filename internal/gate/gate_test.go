package gate_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tododeck/internal/gate"
	"tododeck/internal/gate/mocks"
	"tododeck/internal/todo"
)

func seededStore(t *testing.T) *todo.Store {
	t.Helper()
	s := todo.NewStore()
	require.NoError(t, s.Add(todo.Record{ID: 1, UserID: 1, Title: "delectus aut autem"}))
	require.NoError(t, s.Add(todo.Record{ID: 2, UserID: 1, Title: "quis ut nam"}))
	return s
}

func TestGate_ConfirmRemoves(t *testing.T) {
	s := seededStore(t)
	g := gate.New(s, zerolog.Nop())

	require.True(t, g.Request(1))
	pending, ok := g.Pending()
	require.True(t, ok)
	assert.Equal(t, 1, pending.ID)
	assert.Equal(t, `Delete "delectus aut autem"? y/n`, g.Question())

	assert.True(t, g.Confirm())
	_, found := s.Get(1)
	assert.False(t, found)
	_, ok = g.Pending()
	assert.False(t, ok)
	assert.False(t, g.Confirm(), "a second confirm has nothing staged")
}

func TestGate_CancelLeavesStoreUnchanged(t *testing.T) {
	s := seededStore(t)
	before := s.Snapshot()
	g := gate.New(s, zerolog.Nop())

	require.True(t, g.Request(2))
	g.Cancel()

	assert.Equal(t, before, s.Snapshot())
	assert.False(t, g.Confirm())
	assert.Empty(t, g.Question())
}

func TestGate_RequestUnknownID(t *testing.T) {
	s := seededStore(t)
	g := gate.New(s, zerolog.Nop())
	require.True(t, g.Request(1))

	assert.False(t, g.Request(99))
	_, ok := g.Pending()
	assert.False(t, ok)
	assert.Equal(t, 2, s.Len())
}

func TestGate_ConfirmAfterRecordVanished(t *testing.T) {
	s := seededStore(t)
	g := gate.New(s, zerolog.Nop())
	require.True(t, g.Request(1))

	// removed elsewhere, e.g. by a bulk replace
	require.NoError(t, s.ReplaceAll([]todo.Record{{ID: 2, Title: "quis ut nam"}}))

	assert.False(t, g.Confirm())
	assert.Equal(t, 1, s.Len())
}

func TestGate_Prompt(t *testing.T) {
	tests := []struct {
		name        string
		id          int
		answer      bool
		answerErr   error
		expectAsk   bool
		wantRemoved bool
		wantErr     bool
		wantLen     int
	}{
		{name: "affirmed", id: 1, answer: true, expectAsk: true, wantRemoved: true, wantLen: 1},
		{name: "declined", id: 1, answer: false, expectAsk: true, wantLen: 2},
		{name: "dismissed with error", id: 2, answerErr: context.Canceled, expectAsk: true, wantErr: true, wantLen: 2},
		{name: "unknown id never asks", id: 42, wantLen: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			prompter := mocks.NewMockPrompter(ctrl)
			s := seededStore(t)
			g := gate.New(s, zerolog.Nop())

			if tt.expectAsk {
				prompter.EXPECT().
					Confirm(gomock.Any(), gomock.Any()).
					Return(tt.answer, tt.answerErr)
			}

			removed, err := g.Prompt(context.Background(), tt.id, prompter)

			if tt.wantErr {
				assert.True(t, errors.Is(err, tt.answerErr))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRemoved, removed)
			assert.Equal(t, tt.wantLen, s.Len())
			_, pending := g.Pending()
			assert.False(t, pending)
		})
	}
}
