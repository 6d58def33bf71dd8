// Package catalog holds the fixed, ordered list of services Exa Engenharia offers.
package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Service is one named offering.
type Service struct {
	Name    string
	Summary string
}

var services = []Service{
	{Name: "Cabeamento Estruturado", Summary: "Projeto e instalação de redes de dados e voz certificadas."},
	{Name: "Painéis de Telecomunicações", Summary: "Montagem e integração de painéis para subestações."},
	{Name: "CFTV", Summary: "Circuito fechado de TV para monitoramento de instalações."},
	{Name: "Fibra Óptica", Summary: "Lançamento, fusões ópticas e cabos OPGW."},
	{Name: "Implantação de Sistemas", Summary: "Implantação de sistemas de telecomunicações em campo."},
	{Name: "Teleproteção Digital", Summary: "Sistemas de teleproteção sobre canais digitais."},
	{Name: "Automação", Summary: "Automação de subestações e processos."},
	{Name: "Teleproteção Oplat", Summary: "Teleproteção por onda portadora em linhas de alta tensão."},
	{Name: "Especificação Técnica", Summary: "Elaboração de especificações técnicas de sistemas."},
	{Name: "Projeto Básico", Summary: "Projetos básicos de sistemas de telecomunicações."},
	{Name: "Projeto Executivo", Summary: "Projetos executivos detalhados para implantação."},
	{Name: "Medição de Resistividade do Solo", Summary: "Ensaios de resistividade para malhas de aterramento."},
}

// Services returns a copy of the catalog in display order.
func Services() []Service {
	out := make([]Service, len(services))
	copy(out, services)
	return out
}

// Names returns the service names in display order.
func Names() []string {
	names := make([]string, len(services))
	for i, s := range services {
		names[i] = s.Name
	}
	return names
}

// Lookup finds a service by name, ignoring case, accents and extra spaces.
func Lookup(name string) (Service, bool) {
	key := Normalize(name)
	if key == "" {
		return Service{}, false
	}
	for _, s := range services {
		if Normalize(s.Name) == key {
			return s, true
		}
	}
	return Service{}, false
}

// Canonical returns the catalog spelling of name, or "" if it is not offered.
func Canonical(name string) string {
	if s, ok := Lookup(name); ok {
		return s.Name
	}
	return ""
}

// Normalize lowercases, strips diacritics and collapses whitespace and
// trailing punctuation so "  fibra optica. " matches "Fibra Óptica".
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.TrimFunc(folded, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	})
	return strings.Join(strings.Fields(folded), " ")
}
