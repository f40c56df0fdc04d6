package insights

import (
	"sort"

	"github.com/pbaille/journal/internal/domain"
)

const (
	trendRiseFactor = 1.2
	trendFallFactor = 0.8
	minTrendEntries = 3
)

// AggregateThemes tallies theme labels over entries and ranks them by count,
// ties going to the label seen first. Percentages use every entry as the
// denominator, tagged or not. The result is never truncated.
func AggregateThemes(entries []domain.Entry) []domain.ThemeTally {
	counts := make(map[string]int)
	order := make([]string, 0)

	for _, e := range entries {
		for _, theme := range uniqueThemes(e.Themes) {
			if _, seen := counts[theme]; !seen {
				order = append(order, theme)
			}
			counts[theme]++
		}
	}

	ordered := byCreatedAt(entries)
	tallies := make([]domain.ThemeTally, len(order))
	for i, theme := range order {
		tallies[i] = domain.ThemeTally{
			Theme:      theme,
			Count:      counts[theme],
			Percentage: percent(counts[theme], len(entries)),
			Trend:      themeTrend(ordered, theme),
		}
	}

	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].Count > tallies[j].Count
	})
	return tallies
}

// TopThemes returns at most n leading tallies
func TopThemes(tallies []domain.ThemeTally, n int) []domain.ThemeTally {
	if n < 0 || len(tallies) <= n {
		n = len(tallies)
	}
	out := make([]domain.ThemeTally, n)
	copy(out, tallies[:n])
	return out
}

// themeTrend compares the theme's density in the newest third of the
// ascending window against the oldest third
func themeTrend(ordered []domain.Entry, theme string) domain.Trend {
	n := len(ordered)
	if n < minTrendEntries {
		return domain.TrendStable
	}

	third := n / 3
	early := density(ordered[:third], theme)
	recent := density(ordered[n-third:], theme)

	switch {
	case recent > early*trendRiseFactor:
		return domain.TrendIncreasing
	case recent < early*trendFallFactor:
		return domain.TrendDecreasing
	default:
		return domain.TrendStable
	}
}

func density(entries []domain.Entry, theme string) float64 {
	if len(entries) == 0 {
		return 0
	}
	hits := 0
	for _, e := range entries {
		for _, t := range uniqueThemes(e.Themes) {
			if t == theme {
				hits++
				break
			}
		}
	}
	return float64(hits) / float64(len(entries))
}

func uniqueThemes(themes []string) []string {
	if len(themes) < 2 {
		if len(themes) == 1 && themes[0] == "" {
			return nil
		}
		return themes
	}
	seen := make(map[string]bool, len(themes))
	out := make([]string, 0, len(themes))
	for _, t := range themes {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// byCreatedAt returns a copy of entries in ascending creation order
func byCreatedAt(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// percent is count/total*100 rounded half up, 0 when total is 0
func percent(count, total int) int {
	if total <= 0 {
		return 0
	}
	return (count*200 + total) / (2 * total)
}
