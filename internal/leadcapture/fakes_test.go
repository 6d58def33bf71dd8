package leadcapture

import (
	"context"
	"sync"
	"time"

	"github.com/exa-engenharia/exa-chatbot/internal/notify"
)

type manualTimer struct {
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// manualScheduler records armed callbacks and fires them on demand.
type manualScheduler struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (m *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTimer{d: d, f: f}
	m.timers = append(m.timers, t)
	return t
}

func (m *manualScheduler) active() []*manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*manualTimer
	for _, t := range m.timers {
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
	}
	return out
}

// fire runs every pending callback. Callers must not hold the session lock.
func (m *manualScheduler) fire() int {
	pending := m.active()
	for _, t := range pending {
		t.fired = true
		t.f()
	}
	return len(pending)
}

type fakeAssistant struct {
	matches   map[string]ServiceMatch
	summary   string
	questions []string

	identifyCalls  int
	summarizeCalls int
}

func (f *fakeAssistant) IdentifyService(_ context.Context, message string) ServiceMatch {
	f.identifyCalls++
	return f.matches[message]
}

func (f *fakeAssistant) Summarize(_ context.Context, _ []Turn) string {
	f.summarizeCalls++
	if f.summary == "" {
		return SummaryUnavailable
	}
	return f.summary
}

func (f *fakeAssistant) SuggestQuestions(_ context.Context, _ string) []string {
	return f.questions
}

type fakeNotifier struct {
	leads []notify.LeadNotification
	err   error
	// ctxErr is returned when the delivery context is already done.
	ctxErr      bool
	hadDeadline bool
}

func (f *fakeNotifier) NotifyLead(ctx context.Context, lead notify.LeadNotification) error {
	_, f.hadDeadline = ctx.Deadline()
	if f.ctxErr && ctx.Err() != nil {
		return ctx.Err()
	}
	f.leads = append(f.leads, lead)
	return f.err
}
