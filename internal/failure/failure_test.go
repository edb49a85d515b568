package failure_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"tododeck/internal/failure"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want failure.Kind
	}{
		{name: "network", err: failure.Network(errors.New("dial tcp")), want: failure.KindNetwork},
		{name: "parse", err: failure.Parse(errors.New("bad json")), want: failure.KindParse},
		{name: "not found", err: failure.NotFound(7), want: failure.KindNotFound},
		{name: "wrapped", err: fmt.Errorf("page 2: %w", failure.Networkf("status %d", 502)), want: failure.KindNetwork},
		{name: "plain error", err: errors.New("boom"), want: failure.KindUnknown},
		{name: "nil", err: nil, want: failure.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, failure.KindOf(tt.err))
		})
	}
}

func TestFailure_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("fetch: %w", failure.Parse(errors.New("unexpected EOF")))

	assert.ErrorIs(t, err, failure.ErrParse)
	assert.NotErrorIs(t, err, failure.ErrNetwork)
	assert.True(t, failure.IsParse(err))
	assert.False(t, failure.IsNetwork(err))
	assert.ErrorIs(t, failure.NotFound(9), failure.ErrNotFound)
	assert.NotErrorIs(t, failure.NotFound(9), failure.ErrParse)
}

func TestFailure_Error(t *testing.T) {
	assert.Equal(t, "network failure: status 503", failure.Networkf("status %d", 503).Error())
	assert.Equal(t, "todo 3 not found", failure.NotFound(3).Error())
	assert.Nil(t, failure.Network(nil))
	assert.Nil(t, failure.Parse(nil))
}

func TestFailure_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := failure.Network(cause)

	assert.ErrorIs(t, err, cause)
}
