// Package agent implements the orchestration loop that turns one user
// utterance into one final answer, driving the LLM ↔ tool cycle.
package agent

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Persona holds the assistant's identity and the user-safe phrasings used
// when something goes wrong. Every fallback string a caller can ever see
// comes from here, so the voice stays consistent across channels.
type Persona struct {
	Name         string   `yaml:"name"`
	Style        string   `yaml:"style"`
	Instructions []string `yaml:"instructions"`
}

// DefaultPersona returns the stock JARVIS persona.
func DefaultPersona() Persona {
	return Persona{
		Name:  "JARVIS",
		Style: "Concise, warm, and slightly formal. Answers are spoken aloud on phone calls, so keep them short and avoid markdown, bullet lists, and URLs.",
		Instructions: []string{
			"Use the available tools to answer questions about the user's calendar, email, and bills.",
			"Never invent events, emails, or bills; if a tool returns nothing, say so.",
			"When a tool reports that a service is not connected, tell the user which service to connect and move on.",
		},
	}
}

// LoadPersona reads a persona YAML file, falling back to the default when
// path is empty. A missing or malformed file is an error; silently reverting
// the persona would change the product's voice without anyone noticing.
func LoadPersona(path string) (Persona, error) {
	if path == "" {
		return DefaultPersona(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona %s: %w", path, err)
	}
	p := DefaultPersona()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = "JARVIS"
	}
	return p, nil
}

// SystemPrompt assembles the persona system turn. It depends only on the
// persona and the clock, never on the channel, so both transports feed the
// LLM an identical prompt for the same input.
func (p Persona) SystemPrompt() string {
	var sb strings.Builder
	now := time.Now()
	fmt.Fprintf(&sb, "You are %s, a personal assistant with access to the user's calendar, email, and bills.\n\n", p.Name)
	fmt.Fprintf(&sb, "Current date and time: %s\n\n", now.Format("Monday, January 2, 2006, 15:04 MST"))
	fmt.Fprintf(&sb, "Style: %s\n", p.Style)
	if len(p.Instructions) > 0 {
		sb.WriteString("\nRules:\n")
		for _, inst := range p.Instructions {
			fmt.Fprintf(&sb, "- %s\n", inst)
		}
	}
	return sb.String()
}

// Apology is the fallback answer when the LLM backend is unavailable or an
// unexpected fault is caught. It must always be safe to speak aloud.
func (p Persona) Apology() string {
	return "I'm sorry, I'm having trouble thinking straight at the moment. Please try again in a minute."
}

// Disconnected phrases the "please connect X" answer for one or more
// disconnected providers.
func (p Persona) Disconnected(providers []string) string {
	switch len(providers) {
	case 0:
		return p.Apology()
	case 1:
		return fmt.Sprintf("I can't reach your %s because it isn't connected yet. Please connect it in settings and ask me again.", providers[0])
	default:
		return fmt.Sprintf("I can't reach your %s because they aren't connected yet. Please connect them in settings and ask me again.", strings.Join(providers, " and "))
	}
}

// Greeting is the phone channel's opening line.
func (p Persona) Greeting() string {
	return fmt.Sprintf("Hello, this is %s. How can I help you?", p.Name)
}
