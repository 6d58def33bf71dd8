// Package assistant holds the prompts and the completion tasks used by the
// chatbot: chat replies, service identification, lead summaries and
// follow-up question suggestions.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/exa-engenharia/exa-chatbot/internal/catalog"
	"github.com/exa-engenharia/exa-chatbot/internal/completion"
	"github.com/exa-engenharia/exa-chatbot/internal/leadcapture"
	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

const (
	maxSuggestions     = 3
	identifyMaxTokens  = 120
	summaryMaxTokens   = 300
	questionsMaxTokens = 150
)

// Config carries the chat-path generation parameters.
type Config struct {
	Model       string
	MaxTokens   int32
	Temperature float32
}

type Assistant struct {
	client completion.Client
	cfg    Config
	logger *logging.Logger
}

func New(client completion.Client, cfg Config, logger *logging.Logger) *Assistant {
	if client == nil {
		panic("assistant: completion client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 250
	}
	return &Assistant{client: client, cfg: cfg, logger: logger}
}

// Reply answers a generic chat message. The error is non-nil only when the
// completion call itself fails; unparseable output degrades to the raw text
// with best-effort suggestions.
func (a *Assistant) Reply(ctx context.Context, history []completion.ChatMessage, message string) (completion.ChatPayload, error) {
	messages := make([]completion.ChatMessage, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, completion.ChatMessage{Role: completion.ChatRoleUser, Content: message})

	resp, err := a.client.Complete(ctx, completion.Request{
		Model:       a.cfg.Model,
		System:      []string{systemPrompt(), chatFormatInstruction},
		Messages:    messages,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		return completion.ChatPayload{}, fmt.Errorf("assistant: chat completion: %w", err)
	}

	parsed := completion.Decode[completion.ChatPayload](resp.Text)
	if parsed.OK() {
		payload := parsed.Value
		payload.PerguntasDinamicas = capList(payload.PerguntasDinamicas)
		return payload, nil
	}

	a.logger.Warn("chat reply was not valid JSON, using raw text", "error", parsed.Err)
	return completion.ChatPayload{
		Resposta:           strings.TrimSpace(resp.Text),
		PerguntasDinamicas: a.SuggestQuestions(ctx, message),
	}, nil
}

// IdentifyService asks the model to map free text to the catalog. Any
// failure yields an empty match.
func (a *Assistant) IdentifyService(ctx context.Context, message string) leadcapture.ServiceMatch {
	resp, err := a.client.Complete(ctx, completion.Request{
		Model:       a.cfg.Model,
		Messages:    []completion.ChatMessage{{Role: completion.ChatRoleUser, Content: serviceIdentificationPrompt(message)}},
		MaxTokens:   identifyMaxTokens,
		Temperature: 0,
	})
	if err != nil {
		a.logger.Warn("service identification failed", "error", err)
		return leadcapture.ServiceMatch{}
	}

	parsed := completion.Decode[completion.ServicePayload](resp.Text)
	if !parsed.OK() {
		a.logger.Warn("service identification returned malformed payload", "error", parsed.Err)
	}
	payload := parsed.Or(completion.ServicePayload{})

	match := leadcapture.ServiceMatch{Confirmed: catalog.Canonical(payload.Confirmed())}
	if match.Confirmed != "" {
		return match
	}
	for _, s := range payload.Sugestoes {
		if name := catalog.Canonical(s); name != "" {
			match.Suggestions = append(match.Suggestions, name)
		}
	}
	return match
}

// Summarize writes a short summary of a lead-capture transcript for the
// sales team, or leadcapture.SummaryUnavailable.
func (a *Assistant) Summarize(ctx context.Context, transcript []leadcapture.Turn) string {
	if len(transcript) == 0 {
		return leadcapture.SummaryUnavailable
	}
	var b strings.Builder
	for _, t := range transcript {
		role := "Cliente"
		if t.Role == leadcapture.RoleAssistant {
			role = "Assistente"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, t.Text)
	}

	resp, err := a.client.Complete(ctx, completion.Request{
		Model:       a.cfg.Model,
		System:      []string{summaryInstruction},
		Messages:    []completion.ChatMessage{{Role: completion.ChatRoleUser, Content: b.String()}},
		MaxTokens:   summaryMaxTokens,
		Temperature: 0.2,
	})
	if err != nil {
		a.logger.Warn("lead summary failed", "error", err)
		return leadcapture.SummaryUnavailable
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		return leadcapture.SummaryUnavailable
	}
	return summary
}

// SuggestQuestions proposes up to three follow-up questions about topic.
// Failures yield an empty list.
func (a *Assistant) SuggestQuestions(ctx context.Context, topic string) []string {
	resp, err := a.client.Complete(ctx, completion.Request{
		Model:       a.cfg.Model,
		Messages:    []completion.ChatMessage{{Role: completion.ChatRoleUser, Content: questionsPrompt(topic)}},
		MaxTokens:   questionsMaxTokens,
		Temperature: a.cfg.Temperature,
	})
	if err != nil {
		a.logger.Warn("question generation failed", "error", err)
		return []string{}
	}
	parsed := completion.Decode[completion.QuestionsPayload](resp.Text)
	if !parsed.OK() {
		a.logger.Warn("question generation returned malformed payload", "error", parsed.Err)
	}
	return capList(parsed.Or(completion.QuestionsPayload{}).PerguntasDinamicas)
}

// IsOffTopic reports whether reply is the fixed off-topic refusal.
func IsOffTopic(reply string) bool {
	return strings.Contains(catalog.Normalize(reply), offTopicKey)
}

var offTopicKey = catalog.Normalize("só posso responder perguntas relacionadas à Exa Engenharia")

func capList(items []string) []string {
	if items == nil {
		return []string{}
	}
	if len(items) > maxSuggestions {
		return items[:maxSuggestions]
	}
	return items
}

var _ leadcapture.Assistant = (*Assistant)(nil)
