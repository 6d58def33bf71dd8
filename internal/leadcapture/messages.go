package leadcapture

import (
	"fmt"
	"strings"

	"github.com/exa-engenharia/exa-chatbot/internal/catalog"
)

// DefaultContactInfo is appended whenever the capture is abandoned or declined.
const DefaultContactInfo = `Você também pode falar com nossos especialistas pela aba "Contato" no site da Exa Engenharia.`

const (
	msgConfirm            = "Que ótimo! Posso registrar uma solicitação de orçamento para você. Deseja continuar?"
	msgConfirmAgain       = `Não entendi. Deseja solicitar um orçamento? Responda "Sim" ou "Não".`
	msgDeclined           = "Tudo bem! Se mudar de ideia, é só pedir um orçamento por aqui."
	msgChooseService      = "Perfeito! Qual serviço você deseja orçar? Escolha uma das opções abaixo:"
	msgServiceNotFound    = "Não identifiquei o serviço desejado. Por favor, escolha uma das opções abaixo:"
	msgServiceSuggestions = "Encontrei mais de um serviço parecido. Qual destes você procura?"
	msgServiceAbandoned   = "Desculpe, não consegui identificar o serviço desejado e vou encerrar a solicitação de orçamento por aqui."
	msgAskContact         = "Ótima escolha: %s. Informe um telefone com DDD ou um e-mail para que nossa equipe entre em contato."
	msgContactAgain       = "Para continuar, preciso de um telefone com DDD (11 dígitos) ou de um e-mail válido."
	msgInvalidEmail       = "Esse e-mail não parece válido. Por favor, informe um e-mail no formato nome@empresa.com.br."
	msgInvalidPhone       = "Esse telefone não parece válido. Informe o número com DDD, por exemplo (81) 99999-9999."
	msgContactAbandoned   = "Desculpe, não consegui registrar um contato válido e vou encerrar a solicitação de orçamento por aqui."
	msgAskName            = "Obrigado! Agora, qual é o seu nome?"
	msgInvalidName        = "Por favor, informe seu nome usando apenas letras, por exemplo: Maria Souza."
	msgAskFollowup        = "Obrigado, %s! Você tem alguma dúvida adicional sobre o serviço %s?"
	msgAskFollowupText    = "Pode escrever sua dúvida que eu a encaminho junto com a solicitação."
	msgSubmitted          = "Obrigado, %s! Sua solicitação de orçamento para %s foi enviada à nossa equipe comercial, que entrará em contato em breve."
	msgSubmitFailed       = "Desculpe, não consegui enviar sua solicitação agora. Por favor, tente novamente mais tarde. Posso ajudar com mais alguma coisa?"

	// ExpiryNotice is delivered on the first message after a silent timeout.
	ExpiryNotice = `Sua solicitação de orçamento foi encerrada por inatividade. Se ainda tiver interesse, é só digitar "orçamento" para recomeçar.`

	// NoFollowupQuestion fills the follow-up field when the visitor declines it.
	NoFollowupQuestion = "Nenhuma dúvida adicional."

	hintContact = "(81) 99999-9999 ou nome@empresa.com.br"
	hintName    = "Seu nome"
)

var yesNo = []string{"Sim", "Não"}

// Reply is the structured answer for one turn.
type Reply struct {
	Text       string   `json:"resposta"`
	Options    []string `json:"perguntasDinamicas"`
	TypingHint string   `json:"sugestaoDigitar,omitempty"`
}

func newReply(text string, options ...string) Reply {
	if options == nil {
		options = []string{}
	}
	return Reply{Text: text, Options: options}
}

func (r Reply) withHint(hint string) Reply {
	r.TypingHint = hint
	return r
}

func withContactInfo(text, contactInfo string) string {
	if contactInfo == "" {
		return text
	}
	return text + " " + contactInfo
}

func serviceListing(lead string) Reply {
	names := catalog.Names()
	var b strings.Builder
	b.WriteString(lead)
	for _, name := range names {
		b.WriteString("\n- ")
		b.WriteString(name)
	}
	return newReply(b.String(), names...)
}

func suggestionListing(suggestions []string) Reply {
	var b strings.Builder
	b.WriteString(msgServiceSuggestions)
	for _, name := range suggestions {
		b.WriteString("\n- ")
		b.WriteString(name)
	}
	return newReply(b.String(), suggestions...)
}

func askContact(service string) Reply {
	return newReply(fmt.Sprintf(msgAskContact, service)).withHint(hintContact)
}
