package insights

import (
	"fmt"
	"time"

	"github.com/pbaille/journal/internal/domain"
)

// Thresholds holds the fixed trigger levels of the pattern detector
type Thresholds struct {
	// ConsistencyRatio is the share of spanned days that must carry an entry
	ConsistencyRatio float64
	// ConsistencyMinDays is the minimum number of distinct writing days
	ConsistencyMinDays int
	// DiversityMinThemes is the minimum number of distinct themes
	DiversityMinThemes int
	// DiversityMinRatio is distinct themes over tagged entries
	DiversityMinRatio float64
}

// DefaultThresholds returns the thresholds used by the service
func DefaultThresholds() Thresholds {
	return Thresholds{
		ConsistencyRatio:   0.6,
		ConsistencyMinDays: 7,
		DiversityMinThemes: 5,
		DiversityMinRatio:  0.1,
	}
}

// PatternInput is the aggregate view the detector works from
type PatternInput struct {
	TotalEntries  int
	TaggedEntries int
	ActiveDays    int
	SpanDays      int
	Themes        []domain.ThemeTally
	RecentThemes  []domain.ThemeTally
}

// NewPatternInput derives the detector input from an entry window. The recent
// partition is the last recent theme-tagged entries.
func NewPatternInput(entries []domain.Entry, recent int, loc *time.Location) PatternInput {
	if recent <= 0 {
		recent = DefaultRecentWindow
	}
	if loc == nil {
		loc = time.UTC
	}

	ordered := byCreatedAt(entries)
	in := PatternInput{
		TotalEntries: len(entries),
		Themes:       AggregateThemes(ordered),
	}

	var tagged []domain.Entry
	days := make(map[time.Time]bool)
	for _, e := range ordered {
		days[calendarDay(e.CreatedAt.In(loc))] = true
		if len(uniqueThemes(e.Themes)) > 0 {
			tagged = append(tagged, e)
		}
	}
	in.TaggedEntries = len(tagged)
	in.ActiveDays = len(days)
	if len(ordered) > 0 {
		first := calendarDay(ordered[0].CreatedAt.In(loc))
		last := calendarDay(ordered[len(ordered)-1].CreatedAt.In(loc))
		in.SpanDays = daysBetween(last, first) + 1
	}

	if len(tagged) > recent {
		tagged = tagged[len(tagged)-recent:]
	}
	in.RecentThemes = AggregateThemes(tagged)
	return in
}

// DetectPatterns returns the patterns whose thresholds the input meets, in
// consistency, diversity, recent_focus order
func DetectPatterns(in PatternInput, th Thresholds) []domain.Pattern {
	patterns := make([]domain.Pattern, 0, 3)

	if in.SpanDays > 0 && in.ActiveDays >= th.ConsistencyMinDays &&
		float64(in.ActiveDays)/float64(in.SpanDays) >= th.ConsistencyRatio {
		patterns = append(patterns, domain.Pattern{
			Type:    domain.PatternConsistency,
			Message: fmt.Sprintf("You've written on %d of the last %d days! You're building a strong journaling habit.", in.ActiveDays, in.SpanDays),
		})
	}

	distinct := len(in.Themes)
	if in.TaggedEntries > 0 && distinct >= th.DiversityMinThemes &&
		float64(distinct)/float64(in.TaggedEntries) >= th.DiversityMinRatio {
		patterns = append(patterns, domain.Pattern{
			Type:    domain.PatternDiversity,
			Message: fmt.Sprintf("You explore %d different themes in your writing.", distinct),
		})
	}

	if len(in.Themes) > 0 && len(in.RecentThemes) > 0 &&
		in.RecentThemes[0].Theme != in.Themes[0].Theme {
		patterns = append(patterns, domain.Pattern{
			Type:    domain.PatternRecentFocus,
			Message: fmt.Sprintf("Recently, you've been focusing on %s.", humanize(in.RecentThemes[0].Theme)),
		})
	}

	return patterns
}
