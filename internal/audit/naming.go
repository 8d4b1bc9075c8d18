package audit

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// StampLayout formats task timestamps in artifact names (ISO 8601, millis, UTC).
const StampLayout = "2006-01-02T15:04:05.000Z"

// DayLayout formats the archive day prefix.
const DayLayout = "2006-01-02"

// Artifacts holds every name derived for one task's report.
type Artifacts struct {
	Stamp       string
	OutputBase  string
	HTMLPath    string
	JSONPath    string
	DisplayName string
	StoragePath string
}

// LocalPaths returns the working files an engine run may leave behind.
func (a Artifacts) LocalPaths() []string {
	return []string{a.HTMLPath, a.JSONPath}
}

// JSONStoragePath is where the JSON report is archived alongside the HTML one.
func (a Artifacts) JSONStoragePath() string {
	return strings.TrimSuffix(a.StoragePath, ".html") + ".json"
}

// NameArtifacts derives working and archive names for a task. archiveDay is
// the batch invocation day, so all reports from one batch share a prefix.
func NameArtifacts(workDir, prefix string, startedAt, archiveDay time.Time, urlKey, device string) Artifacts {
	stamp := startedAt.UTC().Format(StampLayout)
	base := filepath.Join(workDir, fmt.Sprintf("%s-%s-%s", strings.ReplaceAll(stamp, ":", "-"), urlKey, device))
	display := fmt.Sprintf("%s-%s-lighthouse-report-%s.html", stamp, urlKey, device)
	storage := path.Join(archiveDay.UTC().Format(DayLayout), display)
	if p := strings.Trim(prefix, "/"); p != "" {
		storage = path.Join(p, storage)
	}
	return Artifacts{
		Stamp:       stamp,
		OutputBase:  base,
		HTMLPath:    base + ".report.html",
		JSONPath:    base + ".report.json",
		DisplayName: display,
		StoragePath: storage,
	}
}
