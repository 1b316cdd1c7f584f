package prompt

import (
	"fmt"
	"regexp"
	"strings"
)

// Persona is the slice of a character record that prompt assembly consumes.
// Optional fields (ContentSource, Background, Lore, Quotes, ExampleDialogues)
// may be empty; the assembler substitutes defined fallbacks and never leaves
// a template placeholder visible.
type Persona struct {
	Name             string
	ContentSource    string
	Description      string
	Personality      string
	Background       string
	Lore             string
	Quotes           []string
	ExampleDialogues []string
}

// Turn is one rendered history entry. Speaker is the display label used in
// serialization ("Human"/"Assistant" for single-party sessions, the sender's
// display name in groups). FromHuman marks turns eligible for addressee
// extraction.
type Turn struct {
	Speaker   string
	FromHuman bool
	Content   string
}

// FallbackAddressee is the display label used when no participant has
// introduced themselves yet.
const FallbackAddressee = "Human"

// namePattern matches a self-introduction in a human message. The first
// match across the history wins; matching is case-insensitive.
var namePattern = regexp.MustCompile(`(?i)\bmy name is ([A-Za-z][A-Za-z0-9'_-]*)`)

// ExtractAddressee scans history in order for a human turn containing a
// self-introduction and returns the introduced name, or FallbackAddressee
// if nobody has introduced themselves.
func ExtractAddressee(history []Turn) string {
	for _, turn := range history {
		if !turn.FromHuman {
			continue
		}
		if m := namePattern.FindStringSubmatch(turn.Content); m != nil {
			return m[1]
		}
	}
	return FallbackAddressee
}

// Assemble builds the full instruction payload for one generation call:
// persona block, serialized history, the new input, and a trailing cue that
// hands the turn to the character. history is the ordered message list prior
// to input; neither is mutated. The result depends only on the arguments, so
// identical inputs produce byte-identical payloads.
func Assemble(persona Persona, history []Turn, input Turn) string {
	addressee := ExtractAddressee(history)

	var b strings.Builder
	b.WriteString(personaBlock(persona, addressee))
	b.WriteString("\n\n")

	if len(history) == 0 {
		b.WriteString("[This is a new conversation that is just starting.]\n\n")
	} else {
		b.WriteString(renderHistory(history))
		b.WriteString("\n\n")
	}

	b.WriteString(renderTurn(input))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "Reply as %s, speaking to %s.\n", persona.Name, addressee)
	fmt.Fprintf(&b, "%s:", persona.Name)

	return b.String()
}

// renderHistory serializes the ordered history as "Speaker: content" lines
// joined by blank lines. This serialization is the model's only memory.
func renderHistory(history []Turn) string {
	lines := make([]string, len(history))
	for i, turn := range history {
		lines[i] = renderTurn(turn)
	}
	return strings.Join(lines, "\n\n")
}

func renderTurn(turn Turn) string {
	return turn.Speaker + ": " + turn.Content
}

// personaBlock builds the fixed-section instruction block for a persona.
func personaBlock(p Persona, addressee string) string {
	var b strings.Builder

	if p.ContentSource != "" {
		fmt.Fprintf(&b, "You are %s from %s.\n", p.Name, p.ContentSource)
	} else {
		fmt.Fprintf(&b, "You are %s, an original character.\n", p.Name)
	}

	fmt.Fprintf(&b, "Role: %s\n", p.Description)
	fmt.Fprintf(&b, "Personality: %s\n", p.Personality)

	// Lore is preferred world knowledge; fall back to the generic background
	// field, then to a neutral default.
	switch {
	case p.Lore != "":
		fmt.Fprintf(&b, "What you know about your world: %s\n", p.Lore)
	case p.Background != "":
		fmt.Fprintf(&b, "Your background: %s\n", p.Background)
	default:
		b.WriteString("You draw on your own life and experiences when you speak.\n")
	}

	b.WriteString("\nRules for this conversation:\n")
	b.WriteString("- Speak in natural, conversational language.\n")
	b.WriteString("- Always stay in character; never break the fourth wall.\n")
	b.WriteString("- Keep replies concise, one to three sentences.\n")
	b.WriteString("- Never say or imply that you are an AI or a language model.\n")
	fmt.Fprintf(&b, "- When you know the name of the person you are talking to, use it. You are currently speaking to %s.\n", addressee)

	if len(p.Quotes) > 0 {
		b.WriteString("\nThings you have said before:\n")
		for _, q := range p.Quotes {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	if len(p.ExampleDialogues) > 0 {
		b.WriteString("\nExamples of how you speak:\n")
		for _, d := range p.ExampleDialogues {
			fmt.Fprintf(&b, "%s\n", d)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
