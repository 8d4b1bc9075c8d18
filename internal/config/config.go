// Package config loads and validates auditor configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Backend names accepted by tabular.backend and storage.backend.
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendGCS      = "gcs"
	BackendLocal    = "local"
	BackendMemory   = "memory"
)

// Engine names accepted by audit.engine.
const (
	EngineCLI      = "cli"
	EngineHeadless = "headless"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Audit    AuditConfig    `mapstructure:"audit"`
	Sheets   SheetsConfig   `mapstructure:"sheets"`
	Tabular  TabularConfig  `mapstructure:"tabular"`
	DB       DBConfig       `mapstructure:"db"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AuditConfig selects what is audited and how lighthouse is run.
type AuditConfig struct {
	// URLs accepts a YAML list or a comma-separated string (AUDITOR_AUDIT_URLS).
	URLs                 []string `mapstructure:"urls"`
	Engine               string   `mapstructure:"engine"`
	LighthousePath       string   `mapstructure:"lighthouse_path"`
	ChromePath           string   `mapstructure:"chrome_path"`
	ChromeFlags          []string `mapstructure:"chrome_flags"`
	Categories           []string `mapstructure:"categories"`
	TimeoutSeconds       int      `mapstructure:"timeout_seconds"`
	ChromeStartupSeconds int      `mapstructure:"chrome_startup_seconds"`
	WorkDir              string   `mapstructure:"work_dir"`
	HostIntervalSeconds  int      `mapstructure:"host_interval_seconds"`
}

// SheetsConfig locates the destination spreadsheet.
type SheetsConfig struct {
	SpreadsheetID   string `mapstructure:"spreadsheet_id"`
	Range           string `mapstructure:"range"`
	CredentialsFile string `mapstructure:"credentials_file"`
	EnsureHeader    bool   `mapstructure:"ensure_header"`
}

// TabularConfig picks where result rows go.
type TabularConfig struct {
	Backend string `mapstructure:"backend"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// StorageConfig sets the archive backend and object naming.
type StorageConfig struct {
	Backend         string `mapstructure:"backend"`
	GCSBucket       string `mapstructure:"gcs_bucket"`
	CredentialsFile string `mapstructure:"credentials_file"`
	LocalDir        string `mapstructure:"local_dir"`
	Prefix          string `mapstructure:"prefix"`
	ArchiveJSON     bool   `mapstructure:"archive_json"`
}

// PubSubConfig holds metadata for completion notifications. An empty topic
// disables them.
type PubSubConfig struct {
	ProjectID       string `mapstructure:"project_id"`
	TopicName       string `mapstructure:"topic_name"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// ScheduleConfig controls service mode.
type ScheduleConfig struct {
	Cron       string `mapstructure:"cron"`
	RunOnStart bool   `mapstructure:"run_on_start"`
}

// ServerConfig controls the ops HTTP server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUDITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Audit.URLs = cleanList(cfg.Audit.URLs)
	cfg.Audit.Categories = cleanList(cfg.Audit.Categories)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("audit.urls", []string{})
	v.SetDefault("audit.engine", EngineCLI)
	v.SetDefault("audit.lighthouse_path", "lighthouse")
	v.SetDefault("audit.chrome_path", "")
	v.SetDefault("audit.chrome_flags", []string{})
	v.SetDefault("audit.categories", []string{})
	v.SetDefault("audit.timeout_seconds", 180)
	v.SetDefault("audit.chrome_startup_seconds", 30)
	v.SetDefault("audit.work_dir", "reports")
	v.SetDefault("audit.host_interval_seconds", 0)
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.range", "Sheet1!A1")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.ensure_header", true)
	v.SetDefault("tabular.backend", BackendSheets)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.table", "lighthouse_results")
	v.SetDefault("db.max_conns", 4)
	v.SetDefault("storage.backend", BackendGCS)
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.credentials_file", "")
	v.SetDefault("storage.local_dir", "archive")
	v.SetDefault("storage.prefix", "")
	v.SetDefault("storage.archive_json", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("pubsub.credentials_file", "")
	v.SetDefault("schedule.cron", "0 * * * *")
	v.SetDefault("schedule.run_on_start", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if len(c.Audit.URLs) == 0 {
		return fmt.Errorf("audit.urls must list at least one url")
	}
	for _, raw := range c.Audit.URLs {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("audit.urls: %q is not an absolute http(s) url", raw)
		}
	}
	switch c.Audit.Engine {
	case EngineCLI, EngineHeadless:
	default:
		return fmt.Errorf("audit.engine must be %q or %q, got %q", EngineCLI, EngineHeadless, c.Audit.Engine)
	}
	if c.Audit.LighthousePath == "" {
		return fmt.Errorf("audit.lighthouse_path must be set")
	}
	if c.Audit.TimeoutSeconds <= 0 {
		return fmt.Errorf("audit.timeout_seconds must be > 0")
	}
	if c.Audit.HostIntervalSeconds < 0 {
		return fmt.Errorf("audit.host_interval_seconds must be >= 0")
	}
	if c.Audit.WorkDir == "" {
		return fmt.Errorf("audit.work_dir must be set")
	}

	switch c.Tabular.Backend {
	case BackendSheets:
		if c.Sheets.SpreadsheetID == "" {
			return fmt.Errorf("sheets.spreadsheet_id must be set for the sheets backend")
		}
	case BackendPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("tabular.backend %q is not supported", c.Tabular.Backend)
	}

	switch c.Storage.Backend {
	case BackendGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	case BackendLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set for the local backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("storage.backend %q is not supported", c.Storage.Backend)
	}

	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is")
	}
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
	}
	if c.Server.Port < 0 {
		return fmt.Errorf("server.port must be >= 0")
	}
	return nil
}

// AuditTimeout is the per-run engine budget.
func (c Config) AuditTimeout() time.Duration {
	return time.Duration(c.Audit.TimeoutSeconds) * time.Second
}

// HostInterval is the minimum spacing between audit starts on one host.
func (c Config) HostInterval() time.Duration {
	return time.Duration(c.Audit.HostIntervalSeconds) * time.Second
}

// ChromeStartupTimeout bounds how long the headless engine waits for Chrome.
func (c Config) ChromeStartupTimeout() time.Duration {
	return time.Duration(c.Audit.ChromeStartupSeconds) * time.Second
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
