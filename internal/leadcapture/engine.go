package leadcapture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/exa-engenharia/exa-chatbot/internal/notify"
	"github.com/exa-engenharia/exa-chatbot/internal/observability/metrics"
	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

// Assistant is the Completion Service as the engine sees it. Every method
// degrades to a fallback value instead of failing.
type Assistant interface {
	ServiceIdentifier
	Summarize(ctx context.Context, transcript []Turn) string
	SuggestQuestions(ctx context.Context, service string) []string
}

// Notifier delivers a completed lead.
type Notifier interface {
	NotifyLead(ctx context.Context, lead notify.LeadNotification) error
}

// Config holds the dialogue limits.
type Config struct {
	Timeout            time.Duration
	MaxServiceAttempts int
	MaxFieldAttempts   int
	ContactInfo        string
	// SubmitTimeout bounds the summary and notification calls. They run
	// detached from the visitor's request so a disconnect cannot drop the lead.
	SubmitTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 240 * time.Second
	}
	if c.MaxServiceAttempts <= 0 {
		c.MaxServiceAttempts = 3
	}
	if c.MaxFieldAttempts <= 0 {
		c.MaxFieldAttempts = 3
	}
	if c.ContactInfo == "" {
		c.ContactInfo = DefaultContactInfo
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = 60 * time.Second
	}
	return c
}

// Outcomes reported to metrics and logs.
const (
	OutcomeStarted        = "started"
	OutcomeSubmitted      = "submitted"
	OutcomeDeliveryFailed = "delivery_failed"
	OutcomeDeclined       = "declined"
	OutcomeAbandoned      = "abandoned"
	OutcomeExpired        = "expired"
)

// Engine is the lead-capture state machine. It consumes one message per
// call and never blocks on anything but the Completion and Notification
// collaborators.
type Engine struct {
	cfg        Config
	classifier *Classifier
	assistant  Assistant
	notifier   Notifier
	scheduler  Scheduler
	metrics    *metrics.ChatMetrics
	logger     *logging.Logger
	now        func() time.Time
}

type Option func(*Engine)

func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.scheduler = s }
}

func WithMetrics(m *metrics.ChatMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(cfg Config, assistant Assistant, notifier Notifier, opts ...Option) *Engine {
	if notifier == nil {
		panic("leadcapture: notifier is required")
	}
	e := &Engine{
		cfg:        cfg.withDefaults(),
		classifier: NewClassifier(assistant),
		assistant:  assistant,
		notifier:   notifier,
		scheduler:  SystemScheduler{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = logging.Default()
	}
	return e
}

// Handle advances s by one message. The caller must hold s's lock. It
// returns false when the message belongs to the generic chat path.
func (e *Engine) Handle(ctx context.Context, s *Session, message string) (Reply, bool) {
	if notice, ok := s.TakeExpiryNotice(); ok {
		return newReply(notice), true
	}

	text := strings.TrimSpace(message)
	now := e.now()

	if !s.InLeadCapture() {
		if e.classifier.Classify(text, s) != IntentBudgetRequest {
			return Reply{}, false
		}
		s.StartedAt = now
		s.appendTurn(RoleUser, text, now)
		e.enter(s, StepAwaitConfirm)
		e.metrics.ObserveLeadOutcome(OutcomeStarted)
		e.logger.Info("lead capture started", "session_id", s.ID)
		reply := newReply(msgConfirm, yesNo...)
		e.record(s, reply)
		return reply, true
	}

	s.appendTurn(RoleUser, text, now)

	var reply Reply
	switch s.Step {
	case StepAwaitConfirm:
		reply = e.onConfirm(s, text)
	case StepAwaitService:
		reply = e.onService(ctx, s, text)
	case StepAwaitContact:
		reply = e.onContact(s, text)
	case StepAwaitName:
		reply = e.onName(s, text)
	case StepAwaitFollowupConfirm:
		reply = e.onFollowupConfirm(ctx, s, text)
	case StepAwaitFollowupText:
		s.Fields.FollowupQuestion = text
		reply = e.submit(ctx, s)
	default:
		e.logger.Warn("lead capture in unexpected step, resetting", "session_id", s.ID, "step", string(s.Step))
		s.reset()
		return Reply{}, false
	}

	e.record(s, reply)
	return reply, true
}

// record appends the reply to the transcript and re-arms the deadline while
// the capture is still open.
func (e *Engine) record(s *Session, reply Reply) {
	if !s.InLeadCapture() {
		return
	}
	s.appendTurn(RoleAssistant, reply.Text, e.now())
	e.arm(s)
}

func (e *Engine) enter(s *Session, step Step) {
	s.Step = step
	e.metrics.ObserveLeadStep(string(step))
	e.logger.Debug("lead capture step", "session_id", s.ID, "step", string(step))
}

func (e *Engine) finish(s *Session, outcome string) {
	e.metrics.ObserveLeadOutcome(outcome)
	e.logger.Info("lead capture finished", "session_id", s.ID, "outcome", outcome, "step", string(s.Step))
	s.reset()
}

func (e *Engine) onConfirm(s *Session, text string) Reply {
	switch e.classifier.Classify(text, s) {
	case IntentNegation:
		e.finish(s, OutcomeDeclined)
		return newReply(withContactInfo(msgDeclined, e.cfg.ContactInfo))
	case IntentAffirmation, IntentServiceSelection:
		e.enter(s, StepAwaitService)
		return serviceListing(msgChooseService)
	default:
		return newReply(msgConfirmAgain, yesNo...)
	}
}

func (e *Engine) onService(ctx context.Context, s *Session, text string) Reply {
	match := e.classifier.IdentifyService(ctx, text)
	switch {
	case match.Confirmed != "":
		s.Fields.Service = match.Confirmed
		s.ServiceSelectionAttempts = 0
		e.enter(s, StepAwaitContact)
		return askContact(match.Confirmed)
	case len(match.Suggestions) > 0:
		return suggestionListing(match.Suggestions)
	}

	s.ServiceSelectionAttempts++
	if s.ServiceSelectionAttempts >= e.cfg.MaxServiceAttempts {
		e.finish(s, OutcomeAbandoned)
		return newReply(withContactInfo(msgServiceAbandoned, e.cfg.ContactInfo))
	}
	return serviceListing(msgServiceNotFound)
}

func (e *Engine) onContact(s *Session, text string) Reply {
	input := ClassifyContact(text)
	switch input.Kind {
	case ContactPhone:
		s.Fields.Phone = input.Value
	case ContactEmail:
		s.Fields.Email = input.Value
	case ContactInvalidEmail:
		return newReply(msgInvalidEmail).withHint(hintContact)
	case ContactInvalidPhone:
		return newReply(msgInvalidPhone).withHint(hintContact)
	case ContactLowInformation:
		s.InvalidFieldAttempts++
		if s.InvalidFieldAttempts >= e.cfg.MaxFieldAttempts {
			e.finish(s, OutcomeAbandoned)
			return newReply(withContactInfo(msgContactAbandoned, e.cfg.ContactInfo))
		}
		return newReply(msgContactAgain).withHint(hintContact)
	default:
		return newReply(msgContactAgain).withHint(hintContact)
	}

	s.InvalidFieldAttempts = 0
	e.enter(s, StepAwaitName)
	return newReply(msgAskName).withHint(hintName)
}

func (e *Engine) onName(s *Session, text string) Reply {
	if !IsValidName(text) {
		return newReply(msgInvalidName).withHint(hintName)
	}
	s.Fields.Name = CleanName(text)
	e.enter(s, StepAwaitFollowupConfirm)
	return newReply(fmt.Sprintf(msgAskFollowup, s.Fields.Name, s.Fields.Service), yesNo...)
}

func (e *Engine) onFollowupConfirm(ctx context.Context, s *Session, text string) Reply {
	switch e.classifier.Classify(text, s) {
	case IntentAffirmation:
		e.enter(s, StepAwaitFollowupText)
		var suggestions []string
		if e.assistant != nil {
			suggestions = e.assistant.SuggestQuestions(ctx, s.Fields.Service)
		}
		return newReply(msgAskFollowupText, suggestions...)
	case IntentNegation:
		s.Fields.FollowupQuestion = NoFollowupQuestion
	default:
		s.Fields.FollowupQuestion = text
	}
	return e.submit(ctx, s)
}

// submit runs READY_TO_SUBMIT: summary, delivery, then an unconditional reset.
func (e *Engine) submit(ctx context.Context, s *Session) Reply {
	e.enter(s, StepReadyToSubmit)
	s.disarm()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.SubmitTimeout)
	defer cancel()

	summary := SummaryUnavailable
	if e.assistant != nil {
		summary = e.assistant.Summarize(ctx, s.History)
	}

	lead := notify.LeadNotification{
		Nome:      s.Fields.Name,
		Telefone:  s.Fields.Phone,
		Email:     s.Fields.Email,
		Servico:   s.Fields.Service,
		Duvida:    s.Fields.FollowupQuestion,
		Resumo:    summary,
		Historico: historyEntries(s.History),
	}
	err := e.notifier.NotifyLead(ctx, lead)
	e.metrics.ObserveNotification(err)

	name, service := s.Fields.Name, s.Fields.Service
	if err != nil {
		e.logger.Error("lead notification failed", "session_id", s.ID, "error", err)
		e.finish(s, OutcomeDeliveryFailed)
		return newReply(withContactInfo(msgSubmitFailed, e.cfg.ContactInfo))
	}
	e.finish(s, OutcomeSubmitted)
	return newReply(fmt.Sprintf(msgSubmitted, name, service))
}

// SummaryUnavailable is used when no summary could be produced.
const SummaryUnavailable = "Resumo indisponível."

func historyEntries(turns []Turn) []notify.HistoryEntry {
	out := make([]notify.HistoryEntry, 0, len(turns))
	for _, t := range turns {
		out = append(out, notify.HistoryEntry{Papel: t.Role, Texto: t.Text, Horario: t.At})
	}
	return out
}

// arm replaces any armed deadline with a fresh one.
func (e *Engine) arm(s *Session) {
	s.disarm()
	gen := s.deadlineGen
	s.deadline = e.scheduler.AfterFunc(e.cfg.Timeout, func() {
		e.expire(s, gen)
	})
}

// expire runs on the scheduler's goroutine. A stale generation means the
// deadline was re-armed or disarmed after this callback was scheduled.
func (e *Engine) expire(s *Session, gen uint64) {
	s.Lock()
	defer s.Unlock()
	if s.deadlineGen != gen || !s.InLeadCapture() {
		return
	}
	s.deadline = nil
	e.finish(s, OutcomeExpired)
	s.expiryNotice = ExpiryNotice
}
