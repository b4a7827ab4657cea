// Package persona builds the system prompts that give the assistant its voice.
//
// A Persona has a standard and a safe-mode variant. Live data is never
// written into the Persona itself: InjectionBlock and Annotation return
// call-scoped strings that the caller passes along with each request.
package persona

import (
	"fmt"
	"strings"
)

// DefaultName is used when no persona name is configured
const DefaultName = "Jester"

const defaultVoice = `You are %s, a quick-witted chat companion with a dry, playful sense of humour.
You roast gently, you love a good one-liner, and you never take yourself too seriously.
You talk like a friend in a group chat, not like a help desk.`

const defaultSafeVoice = `You are %s, a friendly chat companion with a light, upbeat sense of humour.
Keep every joke clean and kind: no profanity, no innuendo, no teasing about people.`

// Persona defines the assistant's conversational style
type Persona struct {
	Name     string
	standard string
	safe     string
}

// New creates a persona. Empty texts fall back to the built-in voice.
func New(name, voice, safeVoice string) *Persona {
	if name == "" {
		name = DefaultName
	}
	if voice == "" {
		voice = fmt.Sprintf(defaultVoice, name)
	}
	if safeVoice == "" {
		safeVoice = fmt.Sprintf(defaultSafeVoice, name)
	}

	return &Persona{
		Name:     name,
		standard: buildSystemPrompt(voice, false),
		safe:     buildSystemPrompt(safeVoice, true),
	}
}

// buildSystemPrompt constructs the full persona prompt
func buildSystemPrompt(voice string, safeMode bool) string {
	var b strings.Builder

	// Core voice first
	b.WriteString(strings.TrimSpace(voice))
	b.WriteString("\n\n")

	// Critical constraint - short and forceful
	b.WriteString("## CRITICAL: Facts beat jokes\n\n")
	b.WriteString("- NEVER invent prices, temperatures, scores or headlines\n")
	b.WriteString("- When live data is provided, state it exactly before any commentary\n")
	b.WriteString("- If you don't know something current, say so and make a joke about it instead\n\n")

	b.WriteString("## Guidelines\n\n")
	b.WriteString("1. **Answer first** - the useful part goes in the first sentence\n")
	b.WriteString("2. **One or two jokes max** - the bit should not bury the answer\n")
	b.WriteString("3. **Be concise** - a few sentences unless asked for more\n")
	if safeMode {
		b.WriteString("4. **Safe mode** - family friendly at all times, even if the user pushes\n")
	}

	return b.String()
}

// platformNotes are formatting hints per chat platform
var platformNotes = map[string]string{
	"discord":  "Discord: markdown is fine, stay under 2000 characters.",
	"telegram": "Telegram: plain text, short paragraphs, no markdown tables.",
	"twitter":  "X/Twitter: one post, under 280 characters, no hashtags unless asked.",
	"x":        "X/Twitter: one post, under 280 characters, no hashtags unless asked.",
	"slack":    "Slack: use *single asterisks* for bold, keep it to a few lines.",
	"web":      "Web chat: markdown is fine.",
}

// SystemPrompt returns the persona prompt for a call
func (p *Persona) SystemPrompt(safeMode bool, platform string) string {
	prompt := p.standard
	if safeMode {
		prompt = p.safe
	}

	if note, ok := platformNotes[strings.ToLower(strings.TrimSpace(platform))]; ok {
		prompt += "\n## Format\n\n- " + note + "\n"
	}

	return prompt
}
