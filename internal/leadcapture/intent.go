package leadcapture

import (
	"context"
	"regexp"
	"strings"

	"github.com/exa-engenharia/exa-chatbot/internal/catalog"
)

// Intent is the enumerated meaning of an inbound message.
type Intent int

const (
	IntentNone Intent = iota
	IntentBudgetRequest
	IntentAffirmation
	IntentNegation
	IntentServiceSelection
	IntentContactField
)

func (i Intent) String() string {
	switch i {
	case IntentBudgetRequest:
		return "budget_request"
	case IntentAffirmation:
		return "affirmation"
	case IntentNegation:
		return "negation"
	case IntentServiceSelection:
		return "service_selection"
	case IntentContactField:
		return "contact_field"
	default:
		return "none"
	}
}

// budgetTriggers are matched against the accent-free, lowercased message.
var budgetTriggers = []string{
	"orcamento",
	"cotacao",
	"contratar",
	"contratacao",
	"preco",
	"quanto custa",
	"proposta comercial",
}

var lowInformationTokens = map[string]struct{}{
	"":        {},
	"sim":     {},
	"nao":     {},
	"ok":      {},
	"okay":    {},
	"entendi": {},
	"talvez":  {},
	"hum":     {},
	"hmm":     {},
	"certo":   {},
	"beleza":  {},
	"blz":     {},
	"nada":    {},
	"sei la":  {},
	"nao sei": {},
}

var emailCandidate = regexp.MustCompile(`[^\s@,;:()<>]+@[^\s@,;:()<>]+`)

// ServiceMatch is the result of service identification.
type ServiceMatch struct {
	Confirmed   string
	Suggestions []string
}

// ServiceIdentifier resolves free text to a catalog service through the
// Completion Service.
type ServiceIdentifier interface {
	IdentifyService(ctx context.Context, message string) ServiceMatch
}

// Classifier maps messages to intents with fixed lexical rules and one
// delegated call for open-ended service identification.
type Classifier struct {
	identifier ServiceIdentifier
}

func NewClassifier(identifier ServiceIdentifier) *Classifier {
	return &Classifier{identifier: identifier}
}

// Classify interprets message relative to the session's current step.
func (c *Classifier) Classify(message string, s *Session) Intent {
	key := catalog.Normalize(message)
	if !s.InLeadCapture() {
		if IsBudgetRequest(message) {
			return IntentBudgetRequest
		}
		return IntentNone
	}

	switch s.Step {
	case StepAwaitConfirm, StepAwaitFollowupConfirm:
		switch key {
		case "sim":
			return IntentAffirmation
		case "nao":
			return IntentNegation
		}
		if s.Step == StepAwaitConfirm && catalog.Canonical(message) != "" {
			return IntentServiceSelection
		}
	case StepAwaitService:
		return IntentServiceSelection
	case StepAwaitContact:
		switch ClassifyContact(message).Kind {
		case ContactPhone, ContactEmail:
			return IntentContactField
		}
	}
	return IntentNone
}

// IdentifyService tries an exact catalog match first and only then asks the
// Completion Service. Results are canonicalised against the catalog.
func (c *Classifier) IdentifyService(ctx context.Context, message string) ServiceMatch {
	if name := catalog.Canonical(message); name != "" {
		return ServiceMatch{Confirmed: name}
	}
	if c.identifier == nil {
		return ServiceMatch{}
	}

	match := c.identifier.IdentifyService(ctx, message)
	out := ServiceMatch{Confirmed: catalog.Canonical(match.Confirmed)}
	if out.Confirmed != "" {
		return out
	}
	seen := map[string]struct{}{}
	for _, s := range match.Suggestions {
		name := catalog.Canonical(s)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out.Suggestions = append(out.Suggestions, name)
	}
	return out
}

// IsBudgetRequest reports whether message asks for a quote.
func IsBudgetRequest(message string) bool {
	key := catalog.Normalize(message)
	for _, trigger := range budgetTriggers {
		if strings.Contains(key, trigger) {
			return true
		}
	}
	return false
}

// ContactKind classifies input received while waiting for phone or email.
type ContactKind int

const (
	ContactUnknown ContactKind = iota
	ContactPhone
	ContactEmail
	ContactInvalidEmail
	ContactInvalidPhone
	ContactLowInformation
)

// ContactInput is a classified contact message. Value holds the phone digits
// or the email address.
type ContactInput struct {
	Kind  ContactKind
	Value string
}

// ClassifyContact detects a phone or email. Any text containing "@" is an
// email attempt: it is either accepted or reported invalid, never treated as
// a phone.
func ClassifyContact(message string) ContactInput {
	text := strings.TrimSpace(message)

	if strings.Contains(text, "@") {
		if IsValidEmail(text) {
			return ContactInput{Kind: ContactEmail, Value: text}
		}
		if found := emailCandidate.FindAllString(text, -1); len(found) == 1 {
			candidate := strings.TrimRight(found[0], ".!?")
			if IsValidEmail(candidate) {
				return ContactInput{Kind: ContactEmail, Value: candidate}
			}
		}
		return ContactInput{Kind: ContactInvalidEmail}
	}

	if digits, ok := IsValidPhone(text); ok {
		return ContactInput{Kind: ContactPhone, Value: digits}
	}
	if containsDigit(text) {
		return ContactInput{Kind: ContactInvalidPhone}
	}
	if _, ok := lowInformationTokens[catalog.Normalize(text)]; ok {
		return ContactInput{Kind: ContactLowInformation}
	}
	return ContactInput{Kind: ContactUnknown}
}
