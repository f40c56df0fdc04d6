package insights

import (
	"sort"
	"time"

	"github.com/pbaille/journal/internal/domain"
)

// CurrentStreak counts consecutive calendar days with at least one entry,
// walking back from the day of now in now's location. A streak whose latest
// day is yesterday is still alive.
func CurrentStreak(entries []domain.Entry, now time.Time) int {
	if len(entries) == 0 {
		return 0
	}

	days := make([]time.Time, len(entries))
	for i, e := range entries {
		days[i] = calendarDay(e.CreatedAt.In(now.Location()))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	today := calendarDay(now)
	streak, offset := 0, 0
	for _, d := range days {
		diff := daysBetween(today, d) - offset
		if streak == 0 && diff == 1 {
			offset, diff = 1, 0
		}
		switch {
		case diff == streak:
			streak++
		case diff > streak:
			return streak
		}
	}
	return streak
}

// calendarDay maps t to midnight UTC of its wall-clock date so that day
// arithmetic ignores DST shifts
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(later, earlier time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}
