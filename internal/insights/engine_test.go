package insights

import (
	"fmt"
	"testing"
	"time"

	"github.com/pbaille/journal/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func sentiment(s domain.Sentiment) *domain.Sentiment { return &s }

func entryAt(daysAgo int, themes []string, s *domain.Sentiment) domain.Entry {
	return domain.Entry{
		ID:        fmt.Sprintf("e-%d-%v", daysAgo, themes),
		CreatedAt: base.AddDate(0, 0, -daysAgo),
		Themes:    themes,
		Sentiment: s,
	}
}

// seq returns n entries one hour apart starting at base
func seq(themes ...[]string) []domain.Entry {
	out := make([]domain.Entry, len(themes))
	for i, t := range themes {
		out[i] = domain.Entry{CreatedAt: base.Add(time.Duration(i) * time.Hour), Themes: t}
	}
	return out
}

func TestCurrentStreak(t *testing.T) {
	now := time.Date(2024, 3, 10, 18, 30, 0, 0, time.UTC)
	at := func(daysAgo int, hour int) domain.Entry {
		d := now.AddDate(0, 0, -daysAgo)
		return domain.Entry{CreatedAt: time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)}
	}

	tests := []struct {
		name    string
		entries []domain.Entry
		want    int
	}{
		{"empty", nil, 0},
		{"today only", []domain.Entry{at(0, 8)}, 1},
		{"yesterday only", []domain.Entry{at(1, 8)}, 1},
		{"gap yesterday", []domain.Entry{at(0, 8), at(2, 8)}, 1},
		{"three days running", []domain.Entry{at(2, 8), at(0, 8), at(1, 8)}, 3},
		{"same day twice", []domain.Entry{at(0, 8), at(0, 20), at(1, 8)}, 2},
		{"from yesterday back", []domain.Entry{at(1, 8), at(2, 8), at(3, 23), at(5, 8)}, 3},
		{"stale history", []domain.Entry{at(3, 8), at(4, 8)}, 0},
		{"future entry ignored", []domain.Entry{{CreatedAt: now.AddDate(0, 0, 1)}, at(0, 1)}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CurrentStreak(tt.entries, now))
		})
	}
}

func TestCurrentStreakUsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	now := time.Date(2024, 3, 10, 10, 0, 0, 0, loc)
	// 02:00 UTC on the 10th is still the 9th in UTC-5
	entries := []domain.Entry{
		{CreatedAt: time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)},
		{CreatedAt: time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)},
	}
	assert.Equal(t, 2, CurrentStreak(entries, now))
}

func TestAggregateThemesUntagged(t *testing.T) {
	entries := seq(nil, nil, nil)
	tallies := AggregateThemes(entries)
	assert.NotNil(t, tallies)
	assert.Empty(t, tallies)
}

func TestAggregateThemesSingleLabel(t *testing.T) {
	for _, n := range []int{1, 2, 7, 13} {
		themes := make([][]string, n)
		for i := range themes {
			themes[i] = []string{"gratitude"}
		}
		tallies := AggregateThemes(seq(themes...))
		require.Len(t, tallies, 1)
		assert.Equal(t, 100, tallies[0].Percentage, "n=%d", n)
		assert.Equal(t, n, tallies[0].Count)
	}
}

func TestAggregateThemesTieBreakFirstSeen(t *testing.T) {
	tallies := AggregateThemes(seq([]string{"B"}, []string{"A"}, []string{"A"}, []string{"B"}))
	require.Len(t, tallies, 2)
	assert.Equal(t, "B", tallies[0].Theme)
	assert.Equal(t, "A", tallies[1].Theme)
	assert.Equal(t, 2, tallies[0].Count)
	assert.Equal(t, 2, tallies[1].Count)
	assert.Equal(t, 50, tallies[0].Percentage)
}

func TestAggregateThemesCountsAndDenominator(t *testing.T) {
	tallies := AggregateThemes(seq(
		[]string{"work", "stress", "work"},
		[]string{"work"},
		nil,
	))
	require.Len(t, tallies, 2)
	assert.Equal(t, domain.ThemeTally{Theme: "work", Count: 2, Percentage: 67, Trend: domain.TrendDecreasing}, tallies[0])
	assert.Equal(t, 1, tallies[1].Count)
	assert.Equal(t, 33, tallies[1].Percentage)
}

func TestThemeTrend(t *testing.T) {
	t.Run("increasing", func(t *testing.T) {
		tallies := AggregateThemes(seq(nil, nil, []string{"x"}, []string{"x"}, []string{"x"}, []string{"x"}))
		require.Len(t, tallies, 1)
		assert.Equal(t, domain.TrendIncreasing, tallies[0].Trend)
	})

	t.Run("decreasing", func(t *testing.T) {
		tallies := AggregateThemes(seq([]string{"x"}, []string{"x"}, []string{"x"}, nil, nil, nil))
		require.Len(t, tallies, 1)
		assert.Equal(t, domain.TrendDecreasing, tallies[0].Trend)
	})

	t.Run("stable", func(t *testing.T) {
		tallies := AggregateThemes(seq([]string{"x"}, nil, []string{"x"}, nil, nil, []string{"x"}))
		require.Len(t, tallies, 1)
		assert.Equal(t, domain.TrendStable, tallies[0].Trend)
	})

	t.Run("ordered by creation not input", func(t *testing.T) {
		// listed first but created last
		entries := seq([]string{"x"}, []string{"x"}, nil, nil, nil, nil)
		entries[0].CreatedAt, entries[5].CreatedAt = entries[5].CreatedAt, entries[0].CreatedAt
		entries[1].CreatedAt, entries[4].CreatedAt = entries[4].CreatedAt, entries[1].CreatedAt
		tallies := AggregateThemes(entries)
		require.Len(t, tallies, 1)
		assert.Equal(t, domain.TrendIncreasing, tallies[0].Trend)
	})

	t.Run("too few entries", func(t *testing.T) {
		tallies := AggregateThemes(seq(nil, []string{"x"}))
		assert.Equal(t, domain.TrendStable, tallies[0].Trend)
	})
}

func TestTopThemes(t *testing.T) {
	tallies := []domain.ThemeTally{{Theme: "a"}, {Theme: "b"}, {Theme: "c"}}
	top := TopThemes(tallies, 2)
	assert.Len(t, top, 2)
	top[0].Theme = "changed"
	assert.Equal(t, "a", tallies[0].Theme)

	assert.Len(t, TopThemes(tallies, 5), 3)
	assert.Empty(t, TopThemes(nil, 5))
}

func TestAggregateSentimentNoTags(t *testing.T) {
	s := AggregateSentiment(seq(nil, nil), 10)
	assert.Equal(t, domain.SentimentCounts{}, s.Overall)
	assert.Equal(t, 0, s.Overall.PositivePercentage)
	assert.Empty(t, s.RecentTrend)
}

func TestAggregateSentimentCounts(t *testing.T) {
	entries := []domain.Entry{
		entryAt(4, nil, sentiment(domain.SentimentPositive)),
		entryAt(3, nil, sentiment(domain.SentimentPositive)),
		entryAt(2, nil, sentiment(domain.SentimentNegative)),
		entryAt(1, nil, nil),
		entryAt(0, nil, sentiment(domain.SentimentNeutral)),
	}
	s := AggregateSentiment(entries, 10)
	assert.Equal(t, 2, s.Overall.Positive)
	assert.Equal(t, 1, s.Overall.Negative)
	assert.Equal(t, 1, s.Overall.Neutral)
	assert.Equal(t, 4, s.Overall.Total())
	assert.Equal(t, 50, s.Overall.PositivePercentage)
	assert.Equal(t, domain.RecentMixed, s.RecentTrend)
}

func TestAggregateSentimentPercentageBounds(t *testing.T) {
	for pos := 0; pos <= 7; pos++ {
		for neg := 0; neg <= 7; neg++ {
			var entries []domain.Entry
			for i := 0; i < pos; i++ {
				entries = append(entries, entryAt(i, nil, sentiment(domain.SentimentPositive)))
			}
			for i := 0; i < neg; i++ {
				entries = append(entries, entryAt(i, nil, sentiment(domain.SentimentNegative)))
			}
			p := AggregateSentiment(entries, 10).Overall.PositivePercentage
			assert.GreaterOrEqual(t, p, 0)
			assert.LessOrEqual(t, p, 100)
		}
	}
}

func TestRecentTrendWindow(t *testing.T) {
	var entries []domain.Entry
	// ten old negatives followed by ten recent positives
	for i := 0; i < 10; i++ {
		entries = append(entries, entryAt(30-i, nil, sentiment(domain.SentimentNegative)))
	}
	for i := 0; i < 10; i++ {
		entries = append(entries, entryAt(10-i, nil, sentiment(domain.SentimentPositive)))
	}

	assert.Equal(t, domain.RecentMostlyPositive, AggregateSentiment(entries, 10).RecentTrend)
	assert.Equal(t, domain.RecentMixed, AggregateSentiment(entries, 20).RecentTrend)

	for i := range entries {
		if *entries[i].Sentiment == domain.SentimentPositive {
			entries[i].Sentiment = sentiment(domain.SentimentNeutral)
		}
	}
	assert.Equal(t, domain.RecentMostlyNegative, AggregateSentiment(entries, 10).RecentTrend)
}

func TestPercentRoundsHalfUp(t *testing.T) {
	assert.Equal(t, 0, percent(0, 0))
	assert.Equal(t, 67, percent(2, 3))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 50, percent(1, 2))
	assert.Equal(t, 13, percent(1, 8)) // 12.5
	assert.Equal(t, 38, percent(3, 8)) // 37.5
	assert.Equal(t, 100, percent(5, 5))
}

func TestDetectPatterns(t *testing.T) {
	th := DefaultThresholds()

	t.Run("consistency", func(t *testing.T) {
		in := PatternInput{ActiveDays: 7, SpanDays: 10}
		p := DetectPatterns(in, th)
		require.Len(t, p, 1)
		assert.Equal(t, domain.PatternConsistency, p[0].Type)
		assert.Contains(t, p[0].Message, "7 of the last 10 days")

		assert.Empty(t, DetectPatterns(PatternInput{ActiveDays: 6, SpanDays: 6}, th))
		assert.Empty(t, DetectPatterns(PatternInput{ActiveDays: 7, SpanDays: 20}, th))
	})

	t.Run("diversity", func(t *testing.T) {
		themes := []domain.ThemeTally{{Theme: "a"}, {Theme: "b"}, {Theme: "c"}, {Theme: "d"}, {Theme: "e"}}
		p := DetectPatterns(PatternInput{Themes: themes, RecentThemes: themes, TaggedEntries: 20}, th)
		require.Len(t, p, 1)
		assert.Equal(t, domain.PatternDiversity, p[0].Type)
		assert.Equal(t, "You explore 5 different themes in your writing.", p[0].Message)

		assert.Empty(t, DetectPatterns(PatternInput{Themes: themes, RecentThemes: themes, TaggedEntries: 60}, th))
		assert.Empty(t, DetectPatterns(PatternInput{Themes: themes[:4], RecentThemes: themes, TaggedEntries: 4}, th))
	})

	t.Run("recent focus", func(t *testing.T) {
		in := PatternInput{
			Themes:       []domain.ThemeTally{{Theme: "work"}},
			RecentThemes: []domain.ThemeTally{{Theme: "personal_growth"}},
		}
		p := DetectPatterns(in, th)
		require.Len(t, p, 1)
		assert.Equal(t, domain.PatternRecentFocus, p[0].Type)
		assert.Equal(t, "Recently, you've been focusing on personal growth.", p[0].Message)
	})

	t.Run("nothing", func(t *testing.T) {
		p := DetectPatterns(PatternInput{}, th)
		assert.NotNil(t, p)
		assert.Empty(t, p)
	})
}

func TestNewPatternInput(t *testing.T) {
	var entries []domain.Entry
	for d := 11; d >= 0; d-- {
		theme := "work"
		if d < 3 {
			theme = "health"
		}
		entries = append(entries, entryAt(d, []string{theme}, nil))
	}
	entries = append(entries, entryAt(0, nil, nil))

	in := NewPatternInput(entries, 3, time.UTC)
	assert.Equal(t, 13, in.TotalEntries)
	assert.Equal(t, 12, in.TaggedEntries)
	assert.Equal(t, 12, in.ActiveDays)
	assert.Equal(t, 12, in.SpanDays)
	require.NotEmpty(t, in.Themes)
	assert.Equal(t, "work", in.Themes[0].Theme)
	require.Len(t, in.RecentThemes, 1)
	assert.Equal(t, "health", in.RecentThemes[0].Theme)

	types := []domain.PatternType{}
	for _, p := range DetectPatterns(in, DefaultThresholds()) {
		types = append(types, p.Type)
	}
	assert.Equal(t, []domain.PatternType{domain.PatternConsistency, domain.PatternRecentFocus}, types)
}

func TestComposeOrder(t *testing.T) {
	c := NewComposer(DefaultLookups(), 50)
	a := &domain.Analysis{
		Themes: []domain.ThemeTally{{Theme: "personal_growth", Count: 6, Percentage: 60, Trend: domain.TrendIncreasing}},
		SentimentTrends: domain.SentimentSummary{
			Overall:     domain.SentimentCounts{Positive: 7, Negative: 3, PositivePercentage: 70},
			RecentTrend: domain.RecentMostlyPositive,
		},
		Patterns: []domain.Pattern{
			{Type: domain.PatternDiversity, Message: "You explore 5 different themes in your writing."},
			{Type: "weekend_writer", Message: "You write mostly on weekends."},
		},
	}

	insights := c.Compose(a, 50)
	types := make([]domain.InsightType, len(insights))
	for i, in := range insights {
		types[i] = in.Type
	}
	assert.Equal(t, []domain.InsightType{
		domain.InsightPrimaryTheme,
		domain.InsightTrend,
		domain.InsightSentiment,
		domain.InsightRecent,
		domain.InsightType(domain.PatternDiversity),
		"weekend_writer",
		domain.InsightMilestone,
	}, types)

	primary := insights[0]
	assert.Equal(t, "Your Main Focus: Personal Growth", primary.Title)
	assert.Equal(t, "60% of your entries explore personal growth. You're actively working on becoming your best self.", primary.Description)
	assert.Equal(t, "🌱", primary.Icon)

	assert.Equal(t, "Positive Outlook", insights[2].Title)
	assert.Equal(t, "70% of your entries reflect positive emotions. Keep nurturing this mindset!", insights[2].Description)
	assert.Equal(t, "Theme Diversity", insights[4].Title)
	assert.Equal(t, "Pattern Detected", insights[5].Title)
	assert.Equal(t, "You've written 50 entries. That's incredible dedication to self-reflection!", insights[6].Description)
}

func TestComposeUnknownThemeAndChallenges(t *testing.T) {
	c := NewComposer(DefaultLookups(), 50)
	a := &domain.Analysis{
		Themes: []domain.ThemeTally{{Theme: "astronomy", Count: 1, Percentage: 100, Trend: domain.TrendStable}},
		SentimentTrends: domain.SentimentSummary{
			Overall:     domain.SentimentCounts{Negative: 3, Positive: 1, PositivePercentage: 25},
			RecentTrend: domain.RecentMostlyNegative,
		},
	}
	insights := c.Compose(a, 4)
	require.Len(t, insights, 2)
	assert.Equal(t, "✨", insights[0].Icon)
	assert.Contains(t, insights[0].Description, "This is an important area of your life.")
	assert.Equal(t, "Processing Challenges", insights[1].Title)
}

func TestComposeMiddleSentimentEmitsNothing(t *testing.T) {
	c := NewComposer(DefaultLookups(), 50)
	a := &domain.Analysis{SentimentTrends: domain.SentimentSummary{
		Overall: domain.SentimentCounts{Positive: 1, Negative: 1, PositivePercentage: 50},
	}}
	assert.Empty(t, c.Compose(a, 2))
}

func TestComposeSentimentNeedsCounts(t *testing.T) {
	c := NewComposer(DefaultLookups(), 50)
	for _, p := range []int{0, 20, 80} {
		a := &domain.Analysis{SentimentTrends: domain.SentimentSummary{
			Overall: domain.SentimentCounts{PositivePercentage: p},
		}}
		assert.Empty(t, c.Compose(a, 3), "positive_percentage %d", p)
	}
}

func TestComposeEmpty(t *testing.T) {
	c := NewComposer(DefaultLookups(), 50)
	insights := c.Compose(&domain.Analysis{}, 1)
	assert.NotNil(t, insights)
	assert.Empty(t, insights)
	assert.Empty(t, c.Compose(nil, 0))
}

func TestComposeMilestoneThreshold(t *testing.T) {
	c := NewComposer(DefaultLookups(), 50)
	hasMilestone := func(total int) bool {
		for _, in := range c.Compose(&domain.Analysis{}, total) {
			if in.Type == domain.InsightMilestone {
				return true
			}
		}
		return false
	}
	assert.False(t, hasMilestone(49))
	assert.True(t, hasMilestone(50))
	assert.True(t, hasMilestone(51))
}

func TestLookupsAreCopied(t *testing.T) {
	icons := map[string]string{"work": "W"}
	l := NewLookups(nil, icons, nil, nil)
	icons["work"] = "changed"
	assert.Equal(t, "W", l.Icon("work"))
	assert.Equal(t, "This is an important area of your life.", l.Description("work"))
	assert.Equal(t, "Pattern Detected", l.PatternTitle(domain.PatternConsistency))
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Future Planning", titleCase("future_planning"))
	assert.Equal(t, "Work", titleCase("work"))
	assert.Equal(t, "", titleCase(""))
}
