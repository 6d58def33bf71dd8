package webchat

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/exa-engenharia/exa-chatbot/internal/chat"
	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type               string   `json:"type"` // "session", "typing", "reply", "pong", "error"
	SessionID          string   `json:"session_id,omitempty"`
	Resposta           string   `json:"resposta,omitempty"`
	PerguntasDinamicas []string `json:"perguntasDinamicas,omitempty"`
	SugestaoDigitar    string   `json:"sugestaoDigitar,omitempty"`
	Text               string   `json:"text,omitempty"`
	Timestamp          string   `json:"timestamp,omitempty"`
}

const (
	errGeneric   = "Erro ao processar a solicitação."
	replyTimeout = 60 * time.Second
)

// Handler serves the WebSocket chat channel. It shares sessions with
// POST /chatbot through the same chat.Responder.
type Handler struct {
	service chat.Responder
	logger  *logging.Logger
}

// NewHandler creates a web chat handler.
func NewHandler(service chat.Responder, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := chat.CleanSessionID(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID, _ = chat.SessionIDFrom(r)
	}

	_ = websocket.JSON.Send(conn, OutboundMessage{
		Type:      "session",
		SessionID: sessionID,
	})

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}

		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		if err := websocket.JSON.Send(conn, h.processMessage(r.Context(), sessionID, msg.Text)); err != nil {
			h.logger.Debug("webchat: send failed", "session_id", sessionID, "error", err)
			return
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, sessionID, text string) OutboundMessage {
	ctx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	reply, err := h.service.Respond(ctx, sessionID, text)
	if err != nil {
		if !errors.Is(err, chat.ErrEmptyMessage) {
			h.logger.Error("webchat: failed to process message", "session_id", sessionID, "error", err)
		}
		return OutboundMessage{Type: "error", Text: errGeneric}
	}

	options := reply.Options
	if options == nil {
		options = []string{}
	}
	return OutboundMessage{
		Type:               "reply",
		Resposta:           reply.Text,
		PerguntasDinamicas: options,
		SugestaoDigitar:    reply.TypingHint,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
	}
}
