package audit

import (
	"strconv"
)

// BuildRecord projects a report into the fixed record schema. Categories the
// report does not score become NotAvailable.
func BuildRecord(report Report, task Task, urlKey, link string) (Record, error) {
	if report.Categories == nil && report.FinalURL == "" {
		return Record{}, &InvalidReportError{Reason: "report has neither categories nor final url"}
	}
	finalURL := report.FinalURL
	if finalURL == "" {
		finalURL = task.URL
	}
	return Record{
		Date:          task.StartedAt.UTC().Format(StampLayout),
		Device:        task.Profile.Name,
		URLKey:        urlKey,
		FinalURL:      finalURL,
		Performance:   formatScore(report.Categories, CategoryPerformance),
		Accessibility: formatScore(report.Categories, CategoryAccessibility),
		BestPractices: formatScore(report.Categories, CategoryBestPractices),
		SEO:           formatScore(report.Categories, CategorySEO),
		PWA:           formatScore(report.Categories, CategoryPWA),
		UserAgent:     report.UserAgent,
		ArtifactLink:  link,
	}, nil
}

func formatScore(categories map[string]*float64, id string) string {
	score, ok := categories[id]
	if !ok || score == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}
