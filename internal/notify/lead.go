package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/exa-engenharia/exa-chatbot/pkg/logging"
)

// HistoryEntry is one line of the lead-capture transcript.
type HistoryEntry struct {
	Papel   string    `json:"papel"`
	Texto   string    `json:"texto"`
	Horario time.Time `json:"horario"`
}

// LeadNotification is the payload handed to the sales inbox.
type LeadNotification struct {
	Nome      string         `json:"nome"`
	Telefone  string         `json:"telefone"`
	Email     string         `json:"email"`
	Servico   string         `json:"servico"`
	Duvida    string         `json:"duvida"`
	Resumo    string         `json:"resumo"`
	Historico []HistoryEntry `json:"historico"`
}

// LeadNotifierConfig addresses the sales inbox.
type LeadNotifierConfig struct {
	To     string
	ToName string
	// Location used to print timestamps. Defaults to America/Recife.
	Location *time.Location
}

// LeadNotifier formats collected leads and hands them to an EmailSender.
type LeadNotifier struct {
	sender EmailSender
	to     string
	toName string
	loc    *time.Location
	logger *logging.Logger
}

func NewLeadNotifier(sender EmailSender, cfg LeadNotifierConfig, logger *logging.Logger) *LeadNotifier {
	if logger == nil {
		logger = logging.Default()
	}
	loc := cfg.Location
	if loc == nil {
		var err error
		loc, err = time.LoadLocation("America/Recife")
		if err != nil {
			loc = time.FixedZone("BRT", -3*60*60)
		}
	}
	return &LeadNotifier{
		sender: sender,
		to:     cfg.To,
		toName: cfg.ToName,
		loc:    loc,
		logger: logger,
	}
}

// NotifyLead renders the lead email with the engagement chart attached and
// sends it once. Delivery errors are returned to the caller unchanged in kind.
func (n *LeadNotifier) NotifyLead(ctx context.Context, lead LeadNotification) error {
	if n.sender == nil {
		return fmt.Errorf("notify: email sender not configured")
	}
	if n.to == "" {
		return ErrNoRecipient
	}

	html, err := n.renderHTML(lead)
	if err != nil {
		return fmt.Errorf("notify: render lead email: %w", err)
	}

	msg := EmailMessage{
		To:      n.to,
		ToName:  n.toName,
		Subject: LeadSubject(lead),
		Body:    n.renderText(lead),
		HTML:    html,
		Attachments: []Attachment{{
			Filename:    EngagementChartFilename,
			ContentType: "image/svg+xml",
			Content:     EngagementChart(Engagement(lead.Historico)),
		}},
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: send lead: %w", err)
	}
	n.logger.Info("lead notification sent", "service", lead.Servico, "turns", len(lead.Historico))
	return nil
}

// LeadSubject is the subject line of the lead email.
func LeadSubject(lead LeadNotification) string {
	return fmt.Sprintf("Nova solicitação de orçamento: %s (%s)", orDash(lead.Servico), orDash(lead.Nome))
}

func (n *LeadNotifier) renderText(lead LeadNotification) string {
	var b strings.Builder
	b.WriteString("Nova solicitação de orçamento recebida pelo chatbot.\n\n")
	fmt.Fprintf(&b, "Nome: %s\n", orDash(lead.Nome))
	fmt.Fprintf(&b, "Telefone: %s\n", orDash(FormatPhone(lead.Telefone)))
	fmt.Fprintf(&b, "E-mail: %s\n", orDash(lead.Email))
	fmt.Fprintf(&b, "Serviço: %s\n", orDash(lead.Servico))
	fmt.Fprintf(&b, "Dúvida: %s\n\n", orDash(lead.Duvida))
	fmt.Fprintf(&b, "Resumo:\n%s\n\n", orDash(lead.Resumo))
	b.WriteString("Histórico da conversa:\n")
	for _, h := range lead.Historico {
		fmt.Fprintf(&b, "[%s] %s: %s\n", n.clock(h.Horario), roleLabel(h.Papel), h.Texto)
	}
	return b.String()
}

var leadHTML = template.Must(template.New("lead").Parse(`<!DOCTYPE html>
<html lang="pt-BR"><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>Nova solicitação de orçamento</h2>
<table cellpadding="4">
<tr><td><strong>Nome</strong></td><td>{{.Nome}}</td></tr>
<tr><td><strong>Telefone</strong></td><td>{{.Telefone}}</td></tr>
<tr><td><strong>E-mail</strong></td><td>{{.Email}}</td></tr>
<tr><td><strong>Serviço</strong></td><td>{{.Servico}}</td></tr>
<tr><td><strong>Dúvida</strong></td><td>{{.Duvida}}</td></tr>
</table>
<h3>Resumo</h3>
<p>{{.Resumo}}</p>
<h3>Histórico da conversa</h3>
<ul>
{{range .Historico}}<li><small>{{.Horario}}</small> <strong>{{.Papel}}:</strong> {{.Texto}}</li>
{{end}}</ul>
<p><small>O gráfico de engajamento segue em anexo ({{.Chart}}).</small></p>
</body></html>
`))

type htmlLine struct {
	Horario string
	Papel   string
	Texto   string
}

func (n *LeadNotifier) renderHTML(lead LeadNotification) (string, error) {
	lines := make([]htmlLine, 0, len(lead.Historico))
	for _, h := range lead.Historico {
		lines = append(lines, htmlLine{Horario: n.clock(h.Horario), Papel: roleLabel(h.Papel), Texto: h.Texto})
	}
	data := struct {
		Nome, Telefone, Email, Servico, Duvida, Resumo, Chart string
		Historico                                            []htmlLine
	}{
		Nome:      orDash(lead.Nome),
		Telefone:  orDash(FormatPhone(lead.Telefone)),
		Email:     orDash(lead.Email),
		Servico:   orDash(lead.Servico),
		Duvida:    orDash(lead.Duvida),
		Resumo:    orDash(lead.Resumo),
		Chart:     EngagementChartFilename,
		Historico: lines,
	}
	var buf bytes.Buffer
	if err := leadHTML.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (n *LeadNotifier) clock(t time.Time) string {
	if t.IsZero() {
		return "--:--"
	}
	return t.In(n.loc).Format("02/01 15:04")
}

// FormatPhone prints an 11-digit number as (81) 99999-9999.
func FormatPhone(digits string) string {
	if len(digits) != 11 {
		return digits
	}
	return fmt.Sprintf("(%s) %s-%s", digits[:2], digits[2:7], digits[7:])
}

func roleLabel(role string) string {
	switch role {
	case "user":
		return "Cliente"
	case "assistant":
		return "Assistente"
	default:
		return role
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
