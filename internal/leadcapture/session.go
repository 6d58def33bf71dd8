package leadcapture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

// Mode is derived from Step so that LEAD_CAPTURE holds exactly when a step is set.
type Mode string

const (
	ModeNormal      Mode = "NORMAL"
	ModeLeadCapture Mode = "LEAD_CAPTURE"
)

type Step string

const (
	StepNone                 Step = ""
	StepAwaitConfirm         Step = "AWAIT_CONFIRM"
	StepAwaitService         Step = "AWAIT_SERVICE"
	StepAwaitContact         Step = "AWAIT_CONTACT"
	StepAwaitName            Step = "AWAIT_NAME"
	StepAwaitFollowupConfirm Step = "AWAIT_FOLLOWUP_CONFIRM"
	StepAwaitFollowupText    Step = "AWAIT_FOLLOWUP_TEXT"
	StepReadyToSubmit        Step = "READY_TO_SUBMIT"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Fields are the lead data collected so far.
type Fields struct {
	Name             string
	Phone            string
	Email            string
	Service          string
	FollowupQuestion string
}

// Turn is one entry of the lead-capture transcript.
type Turn struct {
	Role string
	Text string
	At   time.Time
}

// Session is the conversation state of one visitor. Its mutex is the only
// synchronisation point between request handling and the deadline timer:
// callers hold it for the whole turn.
type Session struct {
	ID string

	mu sync.Mutex

	Step                     Step
	Fields                   Fields
	History                  []Turn
	ServiceSelectionAttempts int
	InvalidFieldAttempts     int
	StartedAt                time.Time

	// OffTopicStrikes belongs to the generic chat path.
	OffTopicStrikes int

	deadline     Timer
	deadlineGen  uint64
	expiryNotice string
	// lastSeen is written by Store.Get without the session lock.
	lastSeen atomic.Int64
}

func NewSession(id string) *Session {
	return &Session{ID: id}
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) Mode() Mode {
	if s.Step == StepNone {
		return ModeNormal
	}
	return ModeLeadCapture
}

func (s *Session) InLeadCapture() bool {
	return s.Step != StepNone
}

// HasDeadline reports whether a deadline timer is armed.
func (s *Session) HasDeadline() bool {
	return s.deadline != nil
}

// PendingExpiryNotice returns the queued notice without consuming it.
func (s *Session) PendingExpiryNotice() string {
	return s.expiryNotice
}

// TakeExpiryNotice consumes the queued expiry notice, if any.
func (s *Session) TakeExpiryNotice() (string, bool) {
	notice := s.expiryNotice
	s.expiryNotice = ""
	return notice, notice != ""
}

// Touch records activity for idle eviction.
func (s *Session) Touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) idleSince(cutoff time.Time) bool {
	return s.lastSeen.Load() < cutoff.UnixNano()
}

func (s *Session) appendTurn(role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, At: at})
}

// disarm stops the deadline and invalidates any callback already in flight.
func (s *Session) disarm() {
	if s.deadline != nil {
		s.deadline.Stop()
		s.deadline = nil
	}
	s.deadlineGen++
}

// reset returns the session to NORMAL, dropping every lead-capture datum.
func (s *Session) reset() {
	s.disarm()
	s.Step = StepNone
	s.Fields = Fields{}
	s.History = nil
	s.ServiceSelectionAttempts = 0
	s.InvalidFieldAttempts = 0
	s.StartedAt = time.Time{}
}

// DefaultSessionID is used for requests that carry no session identifier and
// for every request in single-session mode.
const DefaultSessionID = "default"

// StoreConfig configures a Store.
type StoreConfig struct {
	// Single maps every request to DefaultSessionID.
	Single  bool
	IdleTTL time.Duration
	Now     func() time.Time
	Logger  *logging.Logger
}

// Store owns the sessions of the process, keyed by session ID.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	single   bool
	idleTTL  time.Duration
	now      func() time.Time
	logger   *logging.Logger
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		single:   cfg.Single,
		idleTTL:  cfg.IdleTTL,
		now:      cfg.Now,
		logger:   cfg.Logger,
	}
}

// Get returns the session for id, creating it on first use. Every call
// counts as activity so a sweep cannot evict a session between Get and Lock.
func (st *Store) Get(id string) *Session {
	if st.single || id == "" {
		id = DefaultSessionID
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		s = NewSession(id)
		st.sessions[id] = s
	}
	s.Touch(st.now())
	return s
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts idle sessions. Sessions that are mid-capture, hold a pending
// expiry notice or are currently locked by a turn are kept.
func (st *Store) Sweep() int {
	if st.idleTTL <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.idleTTL)

	st.mu.Lock()
	defer st.mu.Unlock()
	evicted := 0
	for id, s := range st.sessions {
		if !s.mu.TryLock() {
			continue
		}
		idle := s.idleSince(cutoff) && !s.InLeadCapture() && s.expiryNotice == ""
		s.mu.Unlock()
		if idle {
			delete(st.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps periodically until ctx is cancelled.
func (st *Store) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.Sweep(); n > 0 {
				st.logger.Debug("evicted idle chat sessions", "count", n)
			}
		}
	}
}
