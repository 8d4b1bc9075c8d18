package audit

import (
	"time"
)

// Category identifiers reported by the audit engine, in record column order.
const (
	CategoryPerformance   = "performance"
	CategoryAccessibility = "accessibility"
	CategoryBestPractices = "best-practices"
	CategorySEO           = "seo"
	CategoryPWA           = "pwa"
)

// NotAvailable is written in place of a score the engine did not report.
const NotAvailable = "N/A"

// Categories lists the fixed categories written to every record.
var Categories = []string{
	CategoryPerformance,
	CategoryAccessibility,
	CategoryBestPractices,
	CategorySEO,
	CategoryPWA,
}

// DeviceProfile describes the emulation parameters for one class of device.
type DeviceProfile struct {
	Name              string  `json:"name" mapstructure:"name"`
	FormFactor        string  `json:"form_factor" mapstructure:"form_factor"`
	Width             int     `json:"width" mapstructure:"width"`
	Height            int     `json:"height" mapstructure:"height"`
	DeviceScaleFactor float64 `json:"device_scale_factor" mapstructure:"device_scale_factor"`
	Mobile            bool    `json:"mobile" mapstructure:"mobile"`
	EmulationDisabled bool    `json:"emulation_disabled" mapstructure:"emulation_disabled"`
	// Throttling is the lighthouse throttling method: "simulate", "devtools" or "provided".
	Throttling string `json:"throttling" mapstructure:"throttling"`
	// Preset selects a lighthouse config preset applied before the flags above.
	Preset string `json:"preset,omitempty" mapstructure:"preset"`
}

// Desktop mirrors lighthouse's desktop preset.
var Desktop = DeviceProfile{
	Name:              "desktop",
	FormFactor:        "desktop",
	Width:             1350,
	Height:            940,
	DeviceScaleFactor: 1,
	Mobile:            false,
	Throttling:        "simulate",
	Preset:            "desktop",
}

// Mobile mirrors lighthouse's default (moto g power) mobile emulation.
var Mobile = DeviceProfile{
	Name:              "mobile",
	FormFactor:        "mobile",
	Width:             412,
	Height:            823,
	DeviceScaleFactor: 1.75,
	Mobile:            true,
	Throttling:        "simulate",
}

// DefaultProfiles returns the canonical profiles in batch order.
func DefaultProfiles() []DeviceProfile {
	return []DeviceProfile{Desktop, Mobile}
}

// Task is one (URL, device profile) unit of work.
type Task struct {
	URL       string
	Profile   DeviceProfile
	StartedAt time.Time
}

// Report is the normalized output of an audit engine run.
type Report struct {
	FinalURL string
	// Categories maps category id to score in [0,1]. A nil score means the
	// engine listed the category without a score. A nil map means the engine
	// output carried no categories at all.
	Categories        map[string]*float64
	UserAgent         string
	LighthouseVersion string
	FetchTime         string
	HTML              []byte
	JSON              []byte
}

// EngineRequest carries everything an engine needs for one run.
type EngineRequest struct {
	URL     string
	Profile DeviceProfile
	// OutputBase is the output path prefix; engines write OutputBase+".report.html"
	// and OutputBase+".report.json".
	OutputBase string
	HTMLPath   string
	JSONPath   string
}

// Record is the fixed-schema row appended to the tabular store.
type Record struct {
	Date          string `json:"date"`
	Device        string `json:"device"`
	URLKey        string `json:"url_key"`
	FinalURL      string `json:"final_url"`
	Performance   string `json:"performance"`
	Accessibility string `json:"accessibility"`
	BestPractices string `json:"best_practices"`
	SEO           string `json:"seo"`
	PWA           string `json:"pwa"`
	UserAgent     string `json:"user_agent"`
	ArtifactLink  string `json:"artifact_link,omitempty"`
}

// Header returns the destination sheet header matching Record.Row.
func Header() []string {
	return []string{
		"date",
		"device",
		"url_key",
		"final_url",
		"performance",
		"accessibility",
		"best_practices",
		"seo",
		"pwa",
		"user_agent",
		"artifact_link",
	}
}

// Row returns the record values in column order.
func (r Record) Row() []any {
	return []any{
		r.Date,
		r.Device,
		r.URLKey,
		r.FinalURL,
		r.Performance,
		r.Accessibility,
		r.BestPractices,
		r.SEO,
		r.PWA,
		r.UserAgent,
		r.ArtifactLink,
	}
}

// Stage names the pipeline step an outcome stopped at.
type Stage string

// Pipeline stages reported on an Outcome.
const (
	StageAudit     Stage = "audit"
	StageBuild     Stage = "build"
	StagePublished Stage = "published"
	StagePanic     Stage = "panic"
)

// Outcome is the result of running one task through the publish pipeline.
type Outcome struct {
	Task        Task
	URLKey      string
	Stage       Stage
	Record      *Record
	Err         error
	TabularErr  error
	ArchiveErr  error
	ArtifactURI string
}

// Succeeded reports whether the record reached the tabular store.
func (o Outcome) Succeeded() bool {
	return o.Stage == StagePublished && o.TabularErr == nil
}

// BatchSummary aggregates the outcomes of one batch.
type BatchSummary struct {
	RunID     string    `json:"run_id"`
	Started   time.Time `json:"started_at"`
	Finished  time.Time `json:"finished_at"`
	Tasks     int       `json:"tasks"`
	Succeeded int       `json:"succeeded"`
	Failed    int       `json:"failed"`
	Outcomes  []Outcome `json:"-"`
}
