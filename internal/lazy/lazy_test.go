package lazy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OCAP2/portalview/pkg/core"
)

func TestZeroValueIsGhost(t *testing.T) {
	var s State
	assert.Equal(t, Ghost, s.Status())
	assert.Equal(t, "ghost", s.Status().String())
}

func TestRequestHydrate_OnlyOnce(t *testing.T) {
	var s State

	assert.True(t, s.RequestHydrate())
	assert.Equal(t, Loading, s.Status())
	assert.False(t, s.RequestHydrate(), "already loading")
	assert.False(t, s.RequestHydrate())
}

func TestHappyPath(t *testing.T) {
	var s State
	require.True(t, s.RequestHydrate())
	require.NoError(t, s.Complete())

	assert.Equal(t, Ready, s.Status())
	assert.False(t, s.RequestHydrate())
}

func TestFailAndRetry(t *testing.T) {
	var s State
	require.True(t, s.RequestHydrate())
	require.NoError(t, s.Fail(core.ErrorCodeLoadFailed))

	assert.Equal(t, Failed, s.Status())
	assert.Equal(t, core.ErrorCodeLoadFailed, s.FailureCode())
	assert.False(t, s.RequestHydrate(), "failed zones are not retried automatically")

	require.NoError(t, s.Retry())
	assert.Equal(t, Loading, s.Status())
	assert.Empty(t, s.FailureCode())

	require.NoError(t, s.Complete())
	assert.Equal(t, Ready, s.Status())
}

func TestRevert(t *testing.T) {
	var s State
	require.True(t, s.RequestHydrate())
	require.NoError(t, s.Revert())

	assert.Equal(t, Ghost, s.Status())
	assert.True(t, s.RequestHydrate(), "a reverted zone asks again")
}

func TestInvalidTransitions(t *testing.T) {
	tests := []struct {
		name string
		from func() State
		op   func(*State) error
	}{
		{"revert ghost", func() State { return State{} }, (*State).Revert},
		{"fail ghost", func() State { return State{} }, func(s *State) error { return s.Fail(core.ErrorCodeLoadFailed) }},
		{"retry ghost", func() State { return State{} }, (*State).Retry},
		{"complete ready", NewReady, (*State).Complete},
		{"fail ready", NewReady, func(s *State) error { return s.Fail(core.ErrorCodeLoadFailed) }},
		{"retry ready", NewReady, (*State).Retry},
		{"complete failed", func() State { return State{status: Failed} }, (*State).Complete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.from()
			before := s.Status()
			err := tt.op(&s)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, before, s.Status())
		})
	}
}

func TestComplete_FromGhost(t *testing.T) {
	var s State
	require.NoError(t, s.Complete())
	assert.Equal(t, Ready, s.Status())
}
