package completion

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when the provider text holds no JSON object.
var ErrNoJSONObject = errors.New("completion: no JSON object in response")

// Parsed is the tagged result of decoding provider text: either a validated
// Value (Err == nil) or a parse failure.
type Parsed[T any] struct {
	Value T
	Err   error
}

func (p Parsed[T]) OK() bool {
	return p.Err == nil
}

// Or returns the decoded value, or fallback when decoding failed.
func (p Parsed[T]) Or(fallback T) T {
	if p.Err != nil {
		return fallback
	}
	return p.Value
}

// Decode extracts the JSON object embedded in text (Markdown fences and
// surrounding prose are tolerated), decodes it into T and validates it.
func Decode[T any, PT interface {
	*T
	Validate() error
}](text string) Parsed[T] {
	raw, err := extractObject(text)
	if err != nil {
		return Parsed[T]{Err: err}
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return Parsed[T]{Err: fmt.Errorf("completion: decode payload: %w", err)}
	}
	if err := PT(&v).Validate(); err != nil {
		return Parsed[T]{Err: err}
	}
	return Parsed[T]{Value: v}
}

func extractObject(text string) (string, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSONObject
	}
	return s[start : end+1], nil
}

// ChatPayload is the generic chat reply shape.
type ChatPayload struct {
	Resposta           string   `json:"resposta"`
	PerguntasDinamicas []string `json:"perguntasDinamicas"`
}

func (p *ChatPayload) Validate() error {
	p.Resposta = strings.TrimSpace(p.Resposta)
	if p.Resposta == "" {
		return errors.New("completion: chat payload without resposta")
	}
	p.PerguntasDinamicas = cleanList(p.PerguntasDinamicas)
	return nil
}

// ServicePayload is the service identification shape. A null
// servicoConfirmado with suggestions means the request was ambiguous.
type ServicePayload struct {
	ServicoConfirmado *string  `json:"servicoConfirmado"`
	Sugestoes         []string `json:"sugestoes"`
}

func (p *ServicePayload) Validate() error {
	if p.ServicoConfirmado == nil && p.Sugestoes == nil {
		return errors.New("completion: service payload without servicoConfirmado or sugestoes")
	}
	if p.ServicoConfirmado != nil && strings.TrimSpace(*p.ServicoConfirmado) == "" {
		p.ServicoConfirmado = nil
	}
	p.Sugestoes = cleanList(p.Sugestoes)
	return nil
}

// Confirmed returns the confirmed service name or "".
func (p ServicePayload) Confirmed() string {
	if p.ServicoConfirmado == nil {
		return ""
	}
	return strings.TrimSpace(*p.ServicoConfirmado)
}

// QuestionsPayload is the follow-up question generation shape.
type QuestionsPayload struct {
	PerguntasDinamicas []string `json:"perguntasDinamicas"`
}

func (p *QuestionsPayload) Validate() error {
	if p.PerguntasDinamicas == nil {
		return errors.New("completion: questions payload without perguntasDinamicas")
	}
	p.PerguntasDinamicas = cleanList(p.PerguntasDinamicas)
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
