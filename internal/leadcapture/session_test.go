package leadcapture

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionModeFollowsStep(t *testing.T) {
	s := NewSession("a")
	assert.Equal(t, ModeNormal, s.Mode())
	assert.False(t, s.InLeadCapture())

	s.Step = StepAwaitName
	assert.Equal(t, ModeLeadCapture, s.Mode())
	assert.True(t, s.InLeadCapture())
}

func TestSessionResetClearsEverything(t *testing.T) {
	sched := &manualScheduler{}
	s := NewSession("a")
	s.Step = StepAwaitContact
	s.Fields = Fields{Name: "Ana", Service: "CFTV"}
	s.History = []Turn{{Role: RoleUser, Text: "oi"}}
	s.ServiceSelectionAttempts = 2
	s.InvalidFieldAttempts = 1
	s.StartedAt = time.Now()
	s.deadline = sched.AfterFunc(time.Minute, func() {})

	s.reset()

	assert.Equal(t, StepNone, s.Step)
	assert.Equal(t, Fields{}, s.Fields)
	assert.Nil(t, s.History)
	assert.Zero(t, s.ServiceSelectionAttempts)
	assert.Zero(t, s.InvalidFieldAttempts)
	assert.True(t, s.StartedAt.IsZero())
	assert.False(t, s.HasDeadline())
	assert.Empty(t, sched.active())
}

func TestTakeExpiryNoticeIsOneShot(t *testing.T) {
	s := NewSession("a")
	_, ok := s.TakeExpiryNotice()
	assert.False(t, ok)

	s.expiryNotice = ExpiryNotice
	assert.Equal(t, ExpiryNotice, s.PendingExpiryNotice())

	notice, ok := s.TakeExpiryNotice()
	assert.True(t, ok)
	assert.Equal(t, ExpiryNotice, notice)

	_, ok = s.TakeExpiryNotice()
	assert.False(t, ok)
}

func TestStoreKeyedSessions(t *testing.T) {
	st := NewStore(StoreConfig{})
	a := st.Get("a")
	b := st.Get("b")
	assert.NotSame(t, a, b)
	assert.Same(t, a, st.Get("a"))
	assert.Same(t, st.Get(""), st.Get(DefaultSessionID))
	assert.Equal(t, 3, st.Len())
}

func TestStoreSingleMode(t *testing.T) {
	st := NewStore(StoreConfig{Single: true})
	a := st.Get("a")
	assert.Same(t, a, st.Get("b"))
	assert.Equal(t, DefaultSessionID, a.ID)
	assert.Equal(t, 1, st.Len())
}

func TestStoreSweep(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	st := NewStore(StoreConfig{IdleTTL: 30 * time.Minute, Now: func() time.Time { return now }})

	idle := st.Get("idle")
	capturing := st.Get("capturing")
	capturing.Step = StepAwaitService
	notified := st.Get("notified")
	notified.expiryNotice = ExpiryNotice
	busy := st.Get("busy")
	busy.Lock()
	defer busy.Unlock()
	fresh := st.Get("fresh")

	now = now.Add(time.Hour)
	fresh.Touch(now)
	_ = idle

	assert.Equal(t, 1, st.Sweep())
	assert.Equal(t, 4, st.Len())
	assert.NotSame(t, idle, st.Get("idle"), "evicted session is recreated on demand")
}

func TestStoreGetKeepsSessionAlive(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	st := NewStore(StoreConfig{IdleTTL: time.Minute, Now: func() time.Time { return now }})

	first := st.Get("abc")
	now = now.Add(2 * time.Minute)
	second := st.Get("abc")
	require.Same(t, first, second)

	assert.Zero(t, st.Sweep())
	assert.Same(t, first, st.Get("abc"), "next turn sees the same session")
}

func TestStoreSweepDisabled(t *testing.T) {
	st := NewStore(StoreConfig{})
	st.Get("a")
	assert.Zero(t, st.Sweep())
	assert.Equal(t, 1, st.Len())
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	st := NewStore(StoreConfig{IdleTTL: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "Run did not return after cancel")
	}
}
