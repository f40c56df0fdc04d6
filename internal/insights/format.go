package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/pbaille/journal/internal/domain"
)

// FormatReport renders a report as "markdown" or "text". Any other format
// returns an empty string; JSON is handled by the caller.
func FormatReport(report *domain.AnalysisReport, format string) string {
	switch format {
	case "markdown":
		return formatAsMarkdown(report)
	case "text":
		return formatAsText(report)
	default:
		return ""
	}
}

func formatAsMarkdown(report *domain.AnalysisReport) string {
	var sb strings.Builder

	sb.WriteString("# Journal Insights\n\n")
	sb.WriteString(fmt.Sprintf("**Entries analyzed:** %d\n", report.TotalEntries))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", report.LastAnalyzed.Format(time.RFC3339)))
	if report.FallbackMode {
		sb.WriteString("**Mode:** fallback (cached tags)\n")
	}
	sb.WriteString("\n")

	if report.Message != "" {
		sb.WriteString(report.Message + "\n")
		return sb.String()
	}

	if len(report.Themes) > 0 {
		sb.WriteString("## Themes\n\n")
		sb.WriteString("| Theme | Entries | Share | Trend |\n")
		sb.WriteString("|-------|---------|-------|-------|\n")
		for _, t := range report.Themes {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d%% | %s |\n", humanize(t.Theme), t.Count, t.Percentage, t.Trend))
		}
		sb.WriteString("\n")
	}

	overall := report.SentimentTrends.Overall
	sb.WriteString("## Sentiment\n\n")
	sb.WriteString(fmt.Sprintf("- Positive: %d (%d%%)\n", overall.Positive, overall.PositivePercentage))
	sb.WriteString(fmt.Sprintf("- Negative: %d\n", overall.Negative))
	sb.WriteString(fmt.Sprintf("- Neutral: %d\n", overall.Neutral))
	if report.SentimentTrends.RecentTrend != "" {
		sb.WriteString(fmt.Sprintf("- Recent trend: %s\n", humanize(string(report.SentimentTrends.RecentTrend))))
	}
	sb.WriteString("\n")

	if len(report.Insights) > 0 {
		sb.WriteString("## Insights\n\n")
		for _, in := range report.Insights {
			sb.WriteString(fmt.Sprintf("### %s\n\n", withIcon(in)))
			sb.WriteString(in.Description + "\n\n")
		}
	}

	return sb.String()
}

func formatAsText(report *domain.AnalysisReport) string {
	var sb strings.Builder

	sb.WriteString("JOURNAL INSIGHTS\n")
	sb.WriteString(strings.Repeat("=", 50) + "\n\n")

	sb.WriteString(fmt.Sprintf("Entries analyzed: %d\n", report.TotalEntries))
	sb.WriteString(fmt.Sprintf("Generated: %s\n", report.LastAnalyzed.Format(time.RFC3339)))
	if report.FallbackMode {
		sb.WriteString("Mode: fallback (cached tags)\n")
	}
	sb.WriteString("\n")

	if report.Message != "" {
		sb.WriteString(report.Message + "\n")
		return sb.String()
	}

	if len(report.Themes) > 0 {
		sb.WriteString("THEMES\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for _, t := range report.Themes {
			sb.WriteString(fmt.Sprintf("%-20s %3d%%  (%d entries, %s)\n", humanize(t.Theme), t.Percentage, t.Count, t.Trend))
		}
		sb.WriteString("\n")
	}

	overall := report.SentimentTrends.Overall
	sb.WriteString("SENTIMENT\n")
	sb.WriteString(strings.Repeat("-", 20) + "\n")
	sb.WriteString(fmt.Sprintf("Positive: %d  Negative: %d  Neutral: %d  (%d%% positive)\n",
		overall.Positive, overall.Negative, overall.Neutral, overall.PositivePercentage))
	if report.SentimentTrends.RecentTrend != "" {
		sb.WriteString(fmt.Sprintf("Recent trend: %s\n", humanize(string(report.SentimentTrends.RecentTrend))))
	}
	sb.WriteString("\n")

	if len(report.Insights) > 0 {
		sb.WriteString("INSIGHTS\n")
		sb.WriteString(strings.Repeat("-", 20) + "\n")
		for i, in := range report.Insights {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, withIcon(in)))
			sb.WriteString(fmt.Sprintf("   %s\n\n", in.Description))
		}
	}

	return sb.String()
}

func withIcon(in domain.InsightRecord) string {
	if in.Icon == "" {
		return in.Title
	}
	return in.Icon + " " + in.Title
}
