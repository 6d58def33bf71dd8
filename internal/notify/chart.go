package notify

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"
)

// EngagementChartFilename names the chart attachment.
const EngagementChartFilename = "engajamento.svg"

// EngagementStats summarises how the visitor engaged during capture.
type EngagementStats struct {
	UserMessages      int
	AssistantMessages int
	UserCharacters    int
	Duration          time.Duration
}

// Engagement derives the chart data from a transcript.
func Engagement(history []HistoryEntry) EngagementStats {
	var stats EngagementStats
	var first, last time.Time
	for _, h := range history {
		switch h.Papel {
		case "user":
			stats.UserMessages++
			stats.UserCharacters += len([]rune(h.Texto))
		case "assistant":
			stats.AssistantMessages++
		}
		if h.Horario.IsZero() {
			continue
		}
		if first.IsZero() || h.Horario.Before(first) {
			first = h.Horario
		}
		if h.Horario.After(last) {
			last = h.Horario
		}
	}
	if !first.IsZero() {
		stats.Duration = last.Sub(first)
	}
	return stats
}

type chartBar struct {
	label string
	value float64
	unit  string
	color string
}

const (
	chartWidth  = 480
	chartLabelW = 190
	chartBarH   = 28
	chartGap    = 14
	chartTop    = 48
)

// EngagementChart renders stats as a horizontal bar chart in SVG.
func EngagementChart(stats EngagementStats) []byte {
	bars := []chartBar{
		{label: "Mensagens do cliente", value: float64(stats.UserMessages), color: "#0f4c81"},
		{label: "Respostas do assistente", value: float64(stats.AssistantMessages), color: "#3b82f6"},
		{label: "Média de caracteres", value: averageChars(stats), color: "#10b981"},
		{label: "Duração", value: math.Round(stats.Duration.Minutes()*10) / 10, unit: " min", color: "#f59e0b"},
	}

	maxValue := 0.0
	for _, b := range bars {
		maxValue = math.Max(maxValue, b.value)
	}
	if maxValue == 0 {
		maxValue = 1
	}

	height := chartTop + len(bars)*(chartBarH+chartGap) + 10
	span := float64(chartWidth - chartLabelW - 60)

	var sb strings.Builder
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="Arial, sans-serif">`,
		chartWidth, height, chartWidth, height)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, `<rect width="%d" height="%d" fill="#ffffff"/>`+"\n", chartWidth, height)
	sb.WriteString(`<text x="16" y="28" font-size="16" font-weight="bold" fill="#1f2937">Engajamento na solicitação de orçamento</text>` + "\n")

	for i, b := range bars {
		y := chartTop + i*(chartBarH+chartGap)
		w := int(math.Round(b.value / maxValue * span))
		fmt.Fprintf(&sb, `<text x="16" y="%d" font-size="13" fill="#374151">%s</text>`+"\n",
			y+chartBarH/2+5, html.EscapeString(b.label))
		fmt.Fprintf(&sb, `<rect x="%d" y="%d" width="%d" height="%d" rx="3" fill="%s"/>`+"\n",
			chartLabelW, y, w, chartBarH, b.color)
		fmt.Fprintf(&sb, `<text x="%d" y="%d" font-size="12" fill="#111827">%s%s</text>`+"\n",
			chartLabelW+w+6, y+chartBarH/2+5, formatValue(b.value), b.unit)
	}
	sb.WriteString("</svg>\n")
	return []byte(sb.String())
}

func averageChars(stats EngagementStats) float64 {
	if stats.UserMessages == 0 {
		return 0
	}
	return math.Round(float64(stats.UserCharacters)/float64(stats.UserMessages)*10) / 10
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return strings.Replace(fmt.Sprintf("%.1f", v), ".", ",", 1)
}
