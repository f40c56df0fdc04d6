package insights

import "github.com/pbaille/journal/internal/domain"

// DefaultRecentWindow is the number of latest sentiment-tagged entries the
// recent trend looks at
const DefaultRecentWindow = 10

// AggregateSentiment counts sentiment classes over tagged entries only and
// labels the trend of the last recent tagged entries in creation order.
// Entries without a sentiment are left out of every count.
func AggregateSentiment(entries []domain.Entry, recent int) domain.SentimentSummary {
	if recent <= 0 {
		recent = DefaultRecentWindow
	}

	var (
		summary domain.SentimentSummary
		tagged  []domain.Sentiment
	)
	for _, e := range byCreatedAt(entries) {
		if e.Sentiment == nil || !e.Sentiment.Valid() {
			continue
		}
		switch *e.Sentiment {
		case domain.SentimentPositive:
			summary.Overall.Positive++
		case domain.SentimentNegative:
			summary.Overall.Negative++
		case domain.SentimentNeutral:
			summary.Overall.Neutral++
		}
		tagged = append(tagged, *e.Sentiment)
	}

	if len(tagged) == 0 {
		return summary
	}
	summary.Overall.PositivePercentage = percent(summary.Overall.Positive, len(tagged))

	if len(tagged) > recent {
		tagged = tagged[len(tagged)-recent:]
	}
	summary.RecentTrend = recentTrend(tagged)
	return summary
}

// recentTrend is mostly_positive at 60% positive or more and mostly_negative
// at 30% or less
func recentTrend(window []domain.Sentiment) domain.RecentTrend {
	pos := 0
	for _, s := range window {
		if s == domain.SentimentPositive {
			pos++
		}
	}
	n := len(window)
	switch {
	case pos*10 >= n*6:
		return domain.RecentMostlyPositive
	case pos*10 <= n*3:
		return domain.RecentMostlyNegative
	default:
		return domain.RecentMixed
	}
}
