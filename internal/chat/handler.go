package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

const (
	// SessionHeader carries the session ID in both directions.
	SessionHeader = "X-Session-Id"
	// SessionCookie is set for browsers that do not echo the header.
	SessionCookie = "exa_session"

	// WelcomeText is served on GET /.
	WelcomeText = "Bem-vindo ao Chatbot da Exa Engenharia!"

	maxBodyBytes    = 64 << 10
	maxSessionIDLen = 128
)

const (
	errProcessing   = "Erro ao processar a solicitação."
	errInvalidBody  = "Requisição inválida."
	errEmptyMessage = "O campo mensagem é obrigatório."
)

// ChatRequest is the body of POST /chatbot.
type ChatRequest struct {
	Mensagem string `json:"mensagem"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler wires HTTP requests to the chat service.
type Handler struct {
	service      Responder
	logger       *logging.Logger
	secureCookie bool
}

// NewHandler creates a chat handler. secureCookie marks the session cookie
// Secure, which browsers require outside localhost.
func NewHandler(service Responder, logger *logging.Logger, secureCookie bool) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger, secureCookie: secureCookie}
}

// Chatbot handles POST /chatbot.
func (h *Handler) Chatbot(w http.ResponseWriter, r *http.Request) {
	sessionID, fresh := SessionIDFrom(r)
	w.Header().Set(SessionHeader, sessionID)
	if fresh {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sessionID,
			Path:     "/",
			HttpOnly: true,
			Secure:   h.secureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}

	var req ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: errInvalidBody})
		return
	}

	reply, err := h.service.Respond(r.Context(), sessionID, req.Mensagem)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: errEmptyMessage})
			return
		}
		h.logger.Error("failed to process chat message", "session_id", sessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errProcessing})
		return
	}

	if reply.Options == nil {
		reply.Options = []string{}
	}
	writeJSON(w, http.StatusOK, reply)
}

// Welcome handles GET /.
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(WelcomeText))
}

// SessionIDFrom resolves the caller's session: header first, then cookie,
// then a new random ID (fresh is true only in that last case).
func SessionIDFrom(r *http.Request) (id string, fresh bool) {
	if id := CleanSessionID(r.Header.Get(SessionHeader)); id != "" {
		return id, false
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		if id := CleanSessionID(c.Value); id != "" {
			return id, false
		}
	}
	return uuid.NewString(), true
}

// CleanSessionID returns raw trimmed, or "" when it is longer than 128 bytes
// or holds anything but letters, digits, '.', '_' and '-'.
func CleanSessionID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" || len(id) > maxSessionIDLen {
		return ""
	}
	for _, r := range id {
		if !(r == '-' || r == '_' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return ""
		}
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
