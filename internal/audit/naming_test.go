package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNameArtifactsStoragePath(t *testing.T) {
	t.Parallel()

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	day := time.Date(2024, 5, 1, 9, 59, 0, 0, time.UTC)

	names := NameArtifacts("/tmp/work", "", started, day, "ab12cd34ef56", "mobile")

	require.Equal(t, "2024-05-01T10:00:00.000Z-ab12cd34ef56-lighthouse-report-mobile.html", names.DisplayName)
	require.Equal(t, "2024-05-01/2024-05-01T10:00:00.000Z-ab12cd34ef56-lighthouse-report-mobile.html", names.StoragePath)
	require.Equal(t, "2024-05-01/2024-05-01T10:00:00.000Z-ab12cd34ef56-lighthouse-report-mobile.json", names.JSONStoragePath())
	require.Equal(t, filepath.Join("/tmp/work", "2024-05-01T10-00-00.000Z-ab12cd34ef56-mobile"), names.OutputBase)
	require.Equal(t, names.OutputBase+".report.html", names.HTMLPath)
	require.Equal(t, names.OutputBase+".report.json", names.JSONPath)
	require.ElementsMatch(t, []string{names.HTMLPath, names.JSONPath}, names.LocalPaths())
}

func TestNameArtifactsUsesArchiveDay(t *testing.T) {
	t.Parallel()

	// A task started just before midnight is still filed under the batch day.
	started := time.Date(2024, 5, 2, 0, 0, 5, 0, time.UTC)
	day := time.Date(2024, 5, 1, 23, 58, 0, 0, time.UTC)

	names := NameArtifacts("work", "/reports/", started, day, "000000000abc", "desktop")
	require.Equal(t, "reports/2024-05-01/2024-05-02T00:00:05.000Z-000000000abc-lighthouse-report-desktop.html", names.StoragePath)
}

func TestNameArtifactsNormalizesTimezone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+2", 2*60*60)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, loc)
	names := NameArtifacts("w", "", started, started, "k", "mobile")
	require.Equal(t, "2024-05-01T10:00:00.000Z", names.Stamp)
}
