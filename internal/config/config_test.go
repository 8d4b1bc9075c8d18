package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
audit:
  urls:
    - https://example.com
    - https://example.org/pricing
  engine: headless
  lighthouse_path: /opt/lighthouse/cli.js
  chrome_flags: ["--headless=new", "--no-sandbox"]
  categories: [performance, seo]
  timeout_seconds: 90
  work_dir: /tmp/audits
  host_interval_seconds: 20
tabular:
  backend: postgres
db:
  dsn: postgres://localhost/audits
  table: results
  max_conns: 2
storage:
  backend: local
  local_dir: /var/archive
  prefix: lighthouse
  archive_json: true
pubsub:
  project_id: proj
  topic_name: audits
schedule:
  cron: "*/15 * * * *"
server:
  port: 0
logging:
  development: false
  level: warn
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://example.com", "https://example.org/pricing"}, cfg.Audit.URLs)
	assert.Equal(t, EngineHeadless, cfg.Audit.Engine)
	assert.Equal(t, "/opt/lighthouse/cli.js", cfg.Audit.LighthousePath)
	assert.Equal(t, []string{"--headless=new", "--no-sandbox"}, cfg.Audit.ChromeFlags)
	assert.Equal(t, []string{"performance", "seo"}, cfg.Audit.Categories)
	assert.Equal(t, 90*time.Second, cfg.AuditTimeout())
	assert.Equal(t, 20*time.Second, cfg.HostInterval())
	assert.Equal(t, BackendPostgres, cfg.Tabular.Backend)
	assert.Equal(t, "results", cfg.DB.Table)
	assert.EqualValues(t, 2, cfg.DB.MaxConns)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.ArchiveJSON)
	assert.Equal(t, "audits", cfg.PubSub.TopicName)
	assert.Equal(t, "*/15 * * * *", cfg.Schedule.Cron)
	assert.Zero(t, cfg.Server.Port)
	assert.False(t, cfg.Logging.Development)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
audit:
  urls: [https://example.com]
sheets:
  spreadsheet_id: sheet-123
storage:
  gcs_bucket: reports
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, EngineCLI, cfg.Audit.Engine)
	assert.Equal(t, "lighthouse", cfg.Audit.LighthousePath)
	assert.Equal(t, 3*time.Minute, cfg.AuditTimeout())
	assert.Equal(t, 30*time.Second, cfg.ChromeStartupTimeout())
	assert.Equal(t, BackendSheets, cfg.Tabular.Backend)
	assert.Equal(t, "Sheet1!A1", cfg.Sheets.Range)
	assert.True(t, cfg.Sheets.EnsureHeader)
	assert.Equal(t, BackendGCS, cfg.Storage.Backend)
	assert.Equal(t, "0 * * * *", cfg.Schedule.Cron)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Logging.Development)
}

func TestLoadURLsFromEnvironment(t *testing.T) {
	t.Setenv("AUDITOR_AUDIT_URLS", "https://a.example, https://b.example,,")
	t.Setenv("AUDITOR_TABULAR_BACKEND", "memory")
	t.Setenv("AUDITOR_STORAGE_BACKEND", "memory")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Audit.URLs)
	assert.Equal(t, BackendMemory, cfg.Tabular.Backend)
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() Config {
		return Config{
			Audit: AuditConfig{
				URLs:           []string{"https://example.com"},
				Engine:         EngineCLI,
				LighthousePath: "lighthouse",
				TimeoutSeconds: 60,
				WorkDir:        "reports",
			},
			Tabular:  TabularConfig{Backend: BackendMemory},
			Storage:  StorageConfig{Backend: BackendMemory},
			Schedule: ScheduleConfig{Cron: "0 * * * *"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no urls", func(c *Config) { c.Audit.URLs = nil }, "audit.urls"},
		{"relative url", func(c *Config) { c.Audit.URLs = []string{"example.com"} }, "not an absolute"},
		{"ftp url", func(c *Config) { c.Audit.URLs = []string{"ftp://example.com"} }, "not an absolute"},
		{"engine", func(c *Config) { c.Audit.Engine = "puppeteer" }, "audit.engine"},
		{"timeout", func(c *Config) { c.Audit.TimeoutSeconds = 0 }, "timeout_seconds"},
		{"host interval", func(c *Config) { c.Audit.HostIntervalSeconds = -1 }, "host_interval_seconds"},
		{"sheets id", func(c *Config) { c.Tabular.Backend = BackendSheets }, "spreadsheet_id"},
		{"postgres dsn", func(c *Config) { c.Tabular.Backend = BackendPostgres }, "db.dsn"},
		{"tabular backend", func(c *Config) { c.Tabular.Backend = "excel" }, "tabular.backend"},
		{"gcs bucket", func(c *Config) { c.Storage.Backend = BackendGCS }, "gcs_bucket"},
		{"storage backend", func(c *Config) { c.Storage.Backend = "s3" }, "storage.backend"},
		{"pubsub project", func(c *Config) { c.PubSub.TopicName = "audits" }, "pubsub.project_id"},
		{"cron", func(c *Config) { c.Schedule.Cron = "every hour" }, "schedule.cron"},
		{"port", func(c *Config) { c.Server.Port = -1 }, "server.port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}
