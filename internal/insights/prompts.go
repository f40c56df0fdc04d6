package insights

import (
	"math/rand/v2"

	"github.com/pbaille/journal/internal/domain"
)

const (
	promptFallbackTheme = "daily_life"
	genericPrompt       = "What's on your mind today?"
	maxPromptThemes     = 2
)

var defaultPrompts = map[string][]string{
	"gratitude": {
		"Describe someone in your life who you really appreciate but forget to thank.",
		"What's something small that happened today that you're grateful for?",
		"Write about a moment when someone's kindness surprised you.",
	},
	"relationships": {
		"Write about a time someone made something special for you.",
		"Describe a conversation that changed your perspective.",
		"Who in your life makes you feel most understood?",
	},
	"personal_growth": {
		"What's a challenge you overcame recently? How did it change you?",
		"Describe a skill you'd like to develop and why it matters to you.",
		"What's one thing you learned about yourself this week?",
	},
	"stress": {
		"What's been weighing on your mind lately? Write it all out.",
		"Describe a moment when you felt overwhelmed. What helped?",
		"What would make tomorrow easier for you?",
	},
	"work": {
		"What's something you accomplished at work that you're proud of?",
		"Describe a work challenge and how you approached it.",
		"What energizes you most about your current projects?",
	},
	"health": {
		"How has your body felt today? What is it telling you?",
		"Describe your ideal self-care routine.",
		"What's one healthy habit you'd like to build?",
	},
	"daily_life": {
		"What made you smile today?",
		"Describe your perfect day from start to finish.",
		"What's something mundane that you actually enjoy?",
	},
}

// Prompt is a writing suggestion tied to a theme
type Prompt struct {
	Theme  string `json:"theme"`
	Prompt string `json:"prompt"`
}

// PromptLibrary picks writing prompts per theme
type PromptLibrary struct {
	prompts map[string][]string
	pick    func(n int) int
}

// NewPromptLibrary returns the built-in library with random selection
func NewPromptLibrary() *PromptLibrary {
	return &PromptLibrary{prompts: defaultPrompts, pick: rand.IntN}
}

// SuggestPrompt returns a prompt for theme, falling back to daily_life
// prompts for unknown themes
func (l *PromptLibrary) SuggestPrompt(theme string) string {
	prompts, ok := l.prompts[theme]
	if !ok {
		prompts = l.prompts[promptFallbackTheme]
	}
	if len(prompts) == 0 {
		return genericPrompt
	}
	return prompts[l.pick(len(prompts))]
}

// SuggestForThemes returns one prompt for each of the first two tallies, or
// a single daily_life prompt when there are none
func (l *PromptLibrary) SuggestForThemes(themes []domain.ThemeTally) []Prompt {
	if len(themes) == 0 {
		return []Prompt{{Theme: promptFallbackTheme, Prompt: l.SuggestPrompt(promptFallbackTheme)}}
	}
	if len(themes) > maxPromptThemes {
		themes = themes[:maxPromptThemes]
	}
	out := make([]Prompt, len(themes))
	for i, t := range themes {
		out[i] = Prompt{Theme: t.Theme, Prompt: l.SuggestPrompt(t.Theme)}
	}
	return out
}
