package insights

import (
	"fmt"
	"maps"
	"strings"

	"github.com/pbaille/journal/internal/domain"
)

const (
	// DefaultMilestone is the entry count that earns a milestone insight
	DefaultMilestone = 50

	positiveOutlookAt = 60
	challengesBelow   = 40
)

// Lookups holds the static tables the composer reads labels from. Use
// DefaultLookups or NewLookups; the composer keeps its own copy.
type Lookups struct {
	descriptions  map[string]string
	icons         map[string]string
	patternTitles map[domain.PatternType]string
	patternIcons  map[domain.PatternType]string
}

// NewLookups copies the given tables
func NewLookups(descriptions, icons map[string]string, patternTitles, patternIcons map[domain.PatternType]string) Lookups {
	return Lookups{
		descriptions:  maps.Clone(descriptions),
		icons:         maps.Clone(icons),
		patternTitles: maps.Clone(patternTitles),
		patternIcons:  maps.Clone(patternIcons),
	}
}

// DefaultLookups returns the built-in theme and pattern tables
func DefaultLookups() Lookups {
	return NewLookups(
		map[string]string{
			"gratitude":       "Practicing gratitude is linked to increased happiness and wellbeing.",
			"relationships":   "Reflecting on relationships helps strengthen your connections.",
			"personal_growth": "You're actively working on becoming your best self.",
			"stress":          "Writing about stress is a healthy way to process and manage it.",
			"work":            "Reflecting on your professional life helps clarify your career goals.",
			"health":          "Awareness of your health is the first step to positive changes.",
			"daily_life":      "Finding meaning in everyday moments enriches your life.",
		},
		map[string]string{
			"gratitude":       "🙏",
			"relationships":   "❤️",
			"personal_growth": "🌱",
			"stress":          "😰",
			"work":            "💼",
			"health":          "🏃",
			"daily_life":      "📅",
		},
		map[domain.PatternType]string{
			domain.PatternConsistency: "Writing Consistency",
			domain.PatternDiversity:   "Theme Diversity",
			domain.PatternRecentFocus: "Current Focus",
		},
		map[domain.PatternType]string{
			domain.PatternConsistency: "📊",
			domain.PatternDiversity:   "🎨",
			domain.PatternRecentFocus: "🔍",
		},
	)
}

// Description returns the theme blurb or a generic one
func (l Lookups) Description(theme string) string {
	if d, ok := l.descriptions[theme]; ok {
		return d
	}
	return "This is an important area of your life."
}

// Icon returns the theme icon or a generic sparkle
func (l Lookups) Icon(theme string) string {
	if i, ok := l.icons[theme]; ok {
		return i
	}
	return "✨"
}

// PatternTitle returns the title for a pattern type
func (l Lookups) PatternTitle(t domain.PatternType) string {
	if title, ok := l.patternTitles[t]; ok {
		return title
	}
	return "Pattern Detected"
}

func (l Lookups) patternIcon(t domain.PatternType) string {
	return l.patternIcons[t]
}

// Composer turns an analysis into ordered insight records
type Composer struct {
	lookups   Lookups
	milestone int
}

// NewComposer creates a composer. A milestone <= 0 means DefaultMilestone.
func NewComposer(lookups Lookups, milestone int) *Composer {
	if milestone <= 0 {
		milestone = DefaultMilestone
	}
	return &Composer{lookups: lookups, milestone: milestone}
}

// Compose builds insights in fixed order: primary theme, trend, sentiment,
// recent positivity, one per pattern, milestone. total is the number of
// entries the analysis covers.
func (c *Composer) Compose(a *domain.Analysis, total int) []domain.InsightRecord {
	insights := make([]domain.InsightRecord, 0)
	if a == nil {
		a = &domain.Analysis{}
	}

	if len(a.Themes) > 0 {
		top := a.Themes[0]
		insights = append(insights, domain.InsightRecord{
			Type:        domain.InsightPrimaryTheme,
			Title:       "Your Main Focus: " + titleCase(top.Theme),
			Description: fmt.Sprintf("%d%% of your entries explore %s. %s", top.Percentage, humanize(top.Theme), c.lookups.Description(top.Theme)),
			Icon:        c.lookups.Icon(top.Theme),
		})

		if top.Trend == domain.TrendIncreasing {
			insights = append(insights, domain.InsightRecord{
				Type:        domain.InsightTrend,
				Title:       "Growing Interest",
				Description: fmt.Sprintf("You're writing more about %s lately. This shows growing awareness in this area.", humanize(top.Theme)),
				Icon:        "📈",
			})
		}
	}

	// a percentage without counts carries no sentiment data
	overall := a.SentimentTrends.Overall
	if overall.Total() > 0 {
		switch p := overall.PositivePercentage; {
		case p >= positiveOutlookAt:
			insights = append(insights, domain.InsightRecord{
				Type:        domain.InsightSentiment,
				Title:       "Positive Outlook",
				Description: fmt.Sprintf("%d%% of your entries reflect positive emotions. Keep nurturing this mindset!", p),
				Icon:        "😊",
			})
		case p < challengesBelow:
			insights = append(insights, domain.InsightRecord{
				Type:        domain.InsightSentiment,
				Title:       "Processing Challenges",
				Description: "Your entries show you're working through some difficulties. Journaling is a great way to process emotions.",
				Icon:        "🤗",
			})
		}
	}

	if a.SentimentTrends.RecentTrend == domain.RecentMostlyPositive {
		insights = append(insights, domain.InsightRecord{
			Type:        domain.InsightRecent,
			Title:       "Recent Positivity",
			Description: "Your recent entries show an upward trend in positive emotions.",
			Icon:        "✨",
		})
	}

	for _, p := range a.Patterns {
		insights = append(insights, domain.InsightRecord{
			Type:        domain.InsightType(p.Type),
			Title:       c.lookups.PatternTitle(p.Type),
			Description: p.Message,
			Icon:        c.lookups.patternIcon(p.Type),
		})
	}

	if total >= c.milestone {
		insights = append(insights, domain.InsightRecord{
			Type:        domain.InsightMilestone,
			Title:       "Milestone Achieved!",
			Description: fmt.Sprintf("You've written %d entries. That's incredible dedication to self-reflection!", total),
			Icon:        "🎉",
		})
	}

	return insights
}

// humanize turns a theme label into prose, e.g. personal_growth -> personal growth
func humanize(theme string) string {
	return strings.ReplaceAll(theme, "_", " ")
}

// titleCase upper-cases the first letter of every word of a humanized label
func titleCase(theme string) string {
	words := strings.Fields(humanize(theme))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
