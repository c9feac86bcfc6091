package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebounce_FirstCandidateAccepted(t *testing.T) {
	t.Parallel()

	d := NewDebounce(time.Second)
	assert.True(t, d.Accept(time.Now()))
}

func TestDebounce_WithinWindow_Rejected(t *testing.T) {
	t.Parallel()

	d := NewDebounce(time.Second)
	t0 := time.Now()

	assert.True(t, d.Accept(t0))
	assert.False(t, d.Accept(t0.Add(200*time.Millisecond)))
	assert.False(t, d.Accept(t0.Add(999*time.Millisecond)))
}

func TestDebounce_AtWindowBoundary_Accepted(t *testing.T) {
	t.Parallel()

	d := NewDebounce(time.Second)
	t0 := time.Now()

	assert.True(t, d.Accept(t0))
	assert.True(t, d.Accept(t0.Add(time.Second)))
}

func TestDebounce_RejectionDoesNotResetWindow(t *testing.T) {
	t.Parallel()

	d := NewDebounce(time.Second)
	t0 := time.Now()

	assert.True(t, d.Accept(t0))

	// A burst of rejected candidates must not push acceptance further out.
	assert.False(t, d.Accept(t0.Add(300*time.Millisecond)))
	assert.False(t, d.Accept(t0.Add(600*time.Millisecond)))
	assert.False(t, d.Accept(t0.Add(900*time.Millisecond)))

	assert.True(t, d.Accept(t0.Add(1100*time.Millisecond)))
}

func TestDebounce_AcceptanceRestartsWindow(t *testing.T) {
	t.Parallel()

	d := NewDebounce(time.Second)
	t0 := time.Now()

	assert.True(t, d.Accept(t0))
	assert.True(t, d.Accept(t0.Add(1500*time.Millisecond)))
	assert.False(t, d.Accept(t0.Add(2400*time.Millisecond)))
	assert.True(t, d.Accept(t0.Add(2500*time.Millisecond)))
}
