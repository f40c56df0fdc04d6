package domain

import "time"

// Sentiment is the per-entry sentiment class assigned by a classifier
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// Valid reports whether s is one of the three known classes
func (s Sentiment) Valid() bool {
	switch s {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return true
	}
	return false
}

// Entry represents one journal record
type Entry struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	Themes    []string   `json:"themes,omitempty"`
	Sentiment *Sentiment `json:"sentiment,omitempty"`
}

// Tagged reports whether the entry has been through the tagging process
func (e Entry) Tagged() bool {
	return e.Themes != nil || e.Sentiment != nil
}

// Trend classifies how a theme's density moved across the entry window
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// ThemeTally is a theme label with its occurrence statistics
type ThemeTally struct {
	Theme      string `json:"theme"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
	Trend      Trend  `json:"trend,omitempty"`
}

// RecentTrend labels the sentiment of the most recent entries
type RecentTrend string

const (
	RecentMostlyPositive RecentTrend = "mostly_positive"
	RecentMostlyNegative RecentTrend = "mostly_negative"
	RecentMixed          RecentTrend = "mixed"
)

// SentimentCounts holds per-class counts over sentiment-tagged entries
type SentimentCounts struct {
	Positive           int `json:"positive"`
	Negative           int `json:"negative"`
	Neutral            int `json:"neutral"`
	PositivePercentage int `json:"positive_percentage"`
}

// Total returns the number of sentiment-tagged entries counted
func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

// SentimentSummary is the overall and recent sentiment picture
type SentimentSummary struct {
	Overall     SentimentCounts `json:"overall"`
	RecentTrend RecentTrend     `json:"recent_trend,omitempty"`
}

// PatternType names a qualitative writing pattern
type PatternType string

const (
	PatternConsistency PatternType = "consistency"
	PatternDiversity   PatternType = "diversity"
	PatternRecentFocus PatternType = "recent_focus"
)

// Pattern is a qualitative observation about the user's writing
type Pattern struct {
	Type    PatternType `json:"type"`
	Message string      `json:"message"`
}

// TimelinePoint summarizes one entry for the report timeline
type TimelinePoint struct {
	Date      time.Time `json:"date"`
	Themes    []string  `json:"themes"`
	Sentiment Sentiment `json:"sentiment,omitempty"`
}

// Analysis is the aggregate produced by a history analyzer
type Analysis struct {
	Themes          []ThemeTally     `json:"themes"`
	SentimentTrends SentimentSummary `json:"sentiment_trends"`
	Patterns        []Pattern        `json:"patterns"`
	Timeline        []TimelinePoint  `json:"timeline,omitempty"`
}

// InsightType names the kind of insight shown to the user
type InsightType string

const (
	InsightPrimaryTheme InsightType = "primary_theme"
	InsightTrend        InsightType = "trend"
	InsightSentiment    InsightType = "sentiment"
	InsightRecent       InsightType = "recent"
	InsightMilestone    InsightType = "milestone"
)

// InsightRecord is one human-facing insight
type InsightRecord struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Icon        string      `json:"icon,omitempty"`
}

// AnalysisReport is the full insight report for a user
type AnalysisReport struct {
	TotalEntries    int              `json:"total_entries"`
	Message         string           `json:"message,omitempty"`
	Themes          []ThemeTally     `json:"themes"`
	SentimentTrends SentimentSummary `json:"sentiment_trends"`
	Patterns        []Pattern        `json:"patterns,omitempty"`
	Timeline        []TimelinePoint  `json:"timeline,omitempty"`
	Insights        []InsightRecord  `json:"insights"`
	FallbackMode    bool             `json:"fallback_mode"`
	LastAnalyzed    time.Time        `json:"last_analyzed"`
}
