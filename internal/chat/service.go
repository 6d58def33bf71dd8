// Package chat is the request-layer facade of the chatbot. It owns the
// visitor sessions and routes every message either to the lead-capture
// engine or to the generic chat path.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/exa-engenharia/exa-chatbot/internal/assistant"
	"github.com/exa-engenharia/exa-chatbot/internal/completion"
	"github.com/exa-engenharia/exa-chatbot/internal/leadcapture"
	"github.com/exa-engenharia/exa-chatbot/internal/observability/metrics"
	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

// ErrEmptyMessage is returned for blank messages.
var ErrEmptyMessage = errors.New("chat: empty message")

// Turn paths reported to metrics.
const (
	PathLead           = "lead"
	PathChat           = "chat"
	PathOffTopicClosed = "off_topic_closed"
)

// Replier produces generic chat replies.
type Replier interface {
	Reply(ctx context.Context, history []completion.ChatMessage, message string) (completion.ChatPayload, error)
}

// Responder answers one visitor message.
type Responder interface {
	Respond(ctx context.Context, sessionID, message string) (leadcapture.Reply, error)
}

type Config struct {
	OffTopicLimit int
}

type Service struct {
	sessions      *leadcapture.Store
	engine        *leadcapture.Engine
	replier       Replier
	history       HistoryStore
	offTopicLimit int
	metrics       *metrics.ChatMetrics
	logger        *logging.Logger
	now           func() time.Time
}

func NewService(cfg Config, sessions *leadcapture.Store, engine *leadcapture.Engine, replier Replier, history HistoryStore, m *metrics.ChatMetrics, logger *logging.Logger) *Service {
	if sessions == nil || engine == nil || replier == nil {
		panic("chat: sessions, engine and replier are required")
	}
	if history == nil {
		history = NewMemoryHistoryStore(HistoryOptions{})
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.OffTopicLimit <= 0 {
		cfg.OffTopicLimit = 3
	}
	return &Service{
		sessions:      sessions,
		engine:        engine,
		replier:       replier,
		history:       history,
		offTopicLimit: cfg.OffTopicLimit,
		metrics:       m,
		logger:        logger,
		now:           time.Now,
	}
}

// Respond runs one turn for sessionID. The session stays locked for the
// whole turn, outbound calls included.
func (s *Service) Respond(ctx context.Context, sessionID, message string) (leadcapture.Reply, error) {
	text := strings.TrimSpace(message)
	if text == "" {
		return leadcapture.Reply{}, ErrEmptyMessage
	}

	sess := s.sessions.Get(sessionID)
	sess.Lock()
	defer sess.Unlock()
	sess.Touch(s.now())

	if reply, handled := s.engine.Handle(ctx, sess, text); handled {
		s.metrics.ObserveTurn(PathLead)
		return reply, nil
	}
	return s.chat(ctx, sess, text)
}

func (s *Service) chat(ctx context.Context, sess *leadcapture.Session, text string) (leadcapture.Reply, error) {
	history, err := s.history.Load(ctx, sess.ID)
	if err != nil {
		s.logger.Warn("chat history unavailable", "session_id", sess.ID, "error", err)
		history = nil
	}

	payload, err := s.replier.Reply(ctx, history, text)
	if err != nil {
		return leadcapture.Reply{}, fmt.Errorf("chat: reply: %w", err)
	}

	if assistant.IsOffTopic(payload.Resposta) {
		sess.OffTopicStrikes++
		if sess.OffTopicStrikes >= s.offTopicLimit {
			sess.OffTopicStrikes = 0
			if err := s.history.Clear(ctx, sess.ID); err != nil {
				s.logger.Warn("failed to clear chat history", "session_id", sess.ID, "error", err)
			}
			s.metrics.ObserveTurn(PathOffTopicClosed)
			s.logger.Info("conversation closed after off-topic insistence", "session_id", sess.ID)
			return leadcapture.Reply{Text: assistant.OffTopicClosing, Options: []string{}}, nil
		}
	} else {
		sess.OffTopicStrikes = 0
	}

	if err := s.history.Append(ctx, sess.ID,
		completion.ChatMessage{Role: completion.ChatRoleUser, Content: text},
		completion.ChatMessage{Role: completion.ChatRoleAssistant, Content: payload.Resposta},
	); err != nil {
		s.logger.Warn("failed to store chat history", "session_id", sess.ID, "error", err)
	}

	s.metrics.ObserveTurn(PathChat)
	options := payload.PerguntasDinamicas
	if options == nil {
		options = []string{}
	}
	return leadcapture.Reply{Text: payload.Resposta, Options: options}, nil
}

var _ Responder = (*Service)(nil)
