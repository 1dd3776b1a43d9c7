package analyzer

import (
	"time"

	"l10ntrack/internal/diff"
	"l10ntrack/pkg/models"
)

// Summarize averages the completion rates of the given latest-per-language
// results. Failed results count towards Languages but not towards the averages.
func Summarize(latest []models.AnalysisResult) models.SiteSummary {
	summary := models.SiteSummary{Languages: len(latest)}

	var contentSum, i18nSum float64
	counted := 0
	var last time.Time
	for _, r := range latest {
		if r.AnalyzedAt.After(last) {
			last = r.AnalyzedAt
		}
		if r.Failed() {
			continue
		}
		contentSum += r.ContentCompletionRate
		i18nSum += r.I18nCompletionRate
		counted++
	}

	if counted > 0 {
		summary.AverageContentRate = diff.Round2(contentSum / float64(counted))
		summary.AverageI18nRate = diff.Round2(i18nSum / float64(counted))
	}
	if !last.IsZero() {
		summary.LastAnalyzedAt = &last
	}
	return summary
}
