package classifier

import (
	"context"
	"sort"
	"strings"

	"github.com/pbaille/journal/internal/domain"
)

// Themes lists the labels every classifier in this package may emit
var Themes = []string{
	"gratitude", "personal_growth", "relationships", "work",
	"health", "creativity", "daily_life", "reflection",
	"challenges", "achievements", "emotions", "future_planning",
}

type themeKeywords struct {
	theme    string
	keywords []string
}

var keywordTable = []themeKeywords{
	{"gratitude", []string{"grateful", "thankful", "appreciate", "blessed", "fortunate"}},
	{"personal_growth", []string{"learn", "grow", "improve", "develop", "progress"}},
	{"relationships", []string{"friend", "family", "love", "relationship", "together"}},
	{"work", []string{"work", "job", "career", "project", "meeting", "colleague"}},
	{"health", []string{"health", "exercise", "fitness", "sleep", "workout"}},
	{"creativity", []string{"create", "art", "music", "write", "design", "idea"}},
	{"daily_life", []string{"day", "morning", "evening", "routine", "daily"}},
	{"reflection", []string{"reflect", "think", "realize", "understand", "discover"}},
	{"challenges", []string{"challenge", "difficult", "struggle", "hard", "problem"}},
	{"achievements", []string{"achieve", "accomplish", "success", "goal", "proud"}},
	{"emotions", []string{"feel", "emotion", "happy", "sad", "angry", "excited"}},
	{"future_planning", []string{"plan", "future", "goal", "hope", "dream", "will"}},
}

var positiveWords = []string{
	"happy", "great", "amazing", "wonderful", "grateful", "thankful",
	"excited", "love", "proud", "accomplished", "blessed", "joy",
	"fantastic", "excellent", "perfect", "beautiful", "good",
}

var negativeWords = []string{
	"sad", "angry", "frustrated", "upset", "difficult", "hard",
	"struggle", "worry", "anxious", "stress", "bad", "terrible",
	"awful", "hate", "pain", "hurt", "disappointed",
}

const (
	defaultTopK        = 3
	fallbackTheme      = "daily_life"
	fallbackConfidence = 0.6
	maxKeywordScore    = 0.9
)

// Keyword classifies text offline by substring keyword matching
type Keyword struct {
	TopK int
}

// NewKeyword returns a keyword classifier keeping the top three themes
func NewKeyword() *Keyword {
	return &Keyword{TopK: defaultTopK}
}

// ClassifyEntry never fails; text with no keyword hit is tagged daily_life
func (k *Keyword) ClassifyEntry(_ context.Context, text string) (*EntryClassification, error) {
	lower := strings.ToLower(text)
	return &EntryClassification{
		Themes:    k.themes(lower),
		Sentiment: keywordSentiment(lower),
	}, nil
}

func (k *Keyword) themes(lower string) []ThemeScore {
	type scored struct {
		theme string
		score int
	}

	var hits []scored
	for _, tk := range keywordTable {
		n := countHits(lower, tk.keywords)
		if n > 0 {
			hits = append(hits, scored{tk.theme, n})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	topK := k.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if len(hits) > topK {
		hits = hits[:topK]
	}

	if len(hits) == 0 {
		return []ThemeScore{{Theme: fallbackTheme, Confidence: fallbackConfidence}}
	}

	out := make([]ThemeScore, len(hits))
	for i, h := range hits {
		out[i] = ThemeScore{
			Theme:      h.theme,
			Confidence: min(0.5+float64(h.score)*0.1, maxKeywordScore),
		}
	}
	return out
}

func keywordSentiment(lower string) domain.Sentiment {
	pos := countHits(lower, positiveWords)
	neg := countHits(lower, negativeWords)
	switch {
	case pos > neg+1:
		return domain.SentimentPositive
	case neg > pos+1:
		return domain.SentimentNegative
	default:
		return domain.SentimentNeutral
	}
}

func countHits(lower string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			n++
		}
	}
	return n
}
