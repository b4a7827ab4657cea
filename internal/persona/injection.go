package persona

import (
	"fmt"
	"math"
	"strings"

	"github.com/First008/jester/internal/enhancer"
	"github.com/First008/jester/internal/intent"
	"github.com/dustin/go-humanize"
)

// AnnotationHeader marks the live-data annotation appended to a message
const AnnotationHeader = "[LIVE DATA: authoritative values, quote them exactly]"

// InjectionBlock builds the per-call instruction block appended to the
// persona prompt. It returns "" for an empty bundle.
func InjectionBlock(b *enhancer.Bundle) string {
	if b.Empty() {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("## LIVE CONTEXT (fetched just now)\n\n")
	for _, line := range dataLines(b) {
		sb.WriteString("- ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## How to use it\n\n")
	sb.WriteString("1. Lead with the facts above, stated exactly, before any joke or commentary\n")
	sb.WriteString("2. Do not round, restate from memory or contradict these values\n")
	if len(b.CrossReference) > 0 {
		sb.WriteString(fmt.Sprintf("3. The user asked about %s together: weave them into one coherent remark, not separate answers\n",
			joinCategories(b.CrossReference)))
	}

	return sb.String()
}

// Annotation builds the machine-readable note appended to the user's
// message. It returns "" for an empty bundle.
func Annotation(b *enhancer.Bundle) string {
	if b.Empty() {
		return ""
	}

	lines := append([]string{AnnotationHeader}, dataLines(b)...)
	return strings.Join(lines, "\n")
}

func dataLines(b *enhancer.Bundle) []string {
	var lines []string

	if q := b.Crypto; q != nil {
		lines = append(lines, fmt.Sprintf("%s (%s) price: $%s USD (24h change: %+.2f%%)",
			q.Name, q.Symbol, FormatUSD(q.PriceUSD), q.Change24hPct))
	}
	if w := b.Weather; w != nil {
		lines = append(lines, fmt.Sprintf("Weather in %s: %.1f°C, %s", w.City, w.TemperatureC, w.Description))
	}
	if s := b.Search; s != nil {
		lines = append(lines, "Latest news: "+s.Text)
	}

	return lines
}

// FormatUSD renders a price with thousands separators: 113000 -> "113,000",
// 0.08123 -> "0.0812"
func FormatUSD(price float64) string {
	digits := 2
	if price < 1 {
		digits = 4
	}
	scale := math.Pow10(digits)
	return humanize.CommafWithDigits(math.Round(price*scale)/scale, digits)
}

func joinCategories(categories []intent.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}
	return strings.Join(names, " and ")
}
