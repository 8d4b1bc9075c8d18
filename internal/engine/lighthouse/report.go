package lighthouse

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
)

// ParseReport extracts the fields the pipeline needs from a lighthouse JSON
// report. Fields that are absent stay zero; the runner decides whether the
// result is usable.
func ParseReport(data []byte) (audit.Report, error) {
	if len(data) == 0 {
		return audit.Report{}, errors.New("empty report")
	}
	if !gjson.ValidBytes(data) {
		return audit.Report{}, errors.New("report is not valid json")
	}
	doc := gjson.ParseBytes(data)

	if code := doc.Get("runtimeError.code").String(); code != "" && code != "NO_ERROR" {
		return audit.Report{}, fmt.Errorf("lighthouse runtime error %s: %s", code, doc.Get("runtimeError.message").String())
	}

	report := audit.Report{
		FinalURL:          firstString(doc, "finalDisplayedUrl", "finalUrl", "mainDocumentUrl"),
		UserAgent:         firstString(doc, "environment.networkUserAgent", "userAgent"),
		LighthouseVersion: doc.Get("lighthouseVersion").String(),
		FetchTime:         doc.Get("fetchTime").String(),
		JSON:              data,
	}

	categories := doc.Get("categories")
	if categories.IsObject() {
		report.Categories = make(map[string]*float64)
		categories.ForEach(func(key, value gjson.Result) bool {
			id := value.Get("id").String()
			if id == "" {
				id = key.String()
			}
			score := value.Get("score")
			if score.Type != gjson.Number {
				report.Categories[id] = nil
				return true
			}
			v := score.Float()
			report.Categories[id] = &v
			return true
		})
	}
	return report, nil
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := doc.Get(p).String(); v != "" {
			return v
		}
	}
	return ""
}
