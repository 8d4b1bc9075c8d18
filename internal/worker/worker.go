// Package worker runs one audit task through the capture and publish pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/lighthouse-auditor/internal/audit"
	"github.com/JakeFAU/lighthouse-auditor/internal/metrics"
)

const (
	htmlContentType = "text/html; charset=utf-8"
	jsonContentType = "application/json"
)

// Sink names reported on errors and metrics.
const (
	SinkTabular = "tabular"
	SinkArchive = "archive"
	SinkNotify  = "notify"
)

// Runner audits one task.
type Runner interface {
	Run(ctx context.Context, task audit.Task, names audit.Artifacts) (audit.Report, error)
}

// Throttle delays an audit until its host may be audited again.
type Throttle interface {
	Wait(ctx context.Context, url string) error
}

// Config controls Worker behavior.
type Config struct {
	WorkDir     string
	BlobPrefix  string
	ContentType string
	ArchiveJSON bool
	// Topic is the event name for completion notifications; empty disables them.
	Topic string
}

// Batch identifies the batch a task belongs to.
type Batch struct {
	RunID string
	// Day is the archive day shared by every task in the batch.
	Day time.Time
}

// Worker executes tasks end to end. A failure in one task is logged and
// reported on the Outcome; it never reaches the caller as an error or panic.
type Worker struct {
	runner    Runner
	keys      audit.KeyDeriver
	table     audit.TabularStore
	blobs     audit.BlobStore
	publisher audit.Publisher
	throttle  Throttle
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Worker.
func New(
	runner Runner,
	keys audit.KeyDeriver,
	table audit.TabularStore,
	blobs audit.BlobStore,
	publisher audit.Publisher,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = htmlContentType
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		runner:    runner,
		keys:      keys,
		table:     table,
		blobs:     blobs,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// WithThrottle makes every audit wait on t first.
func (w *Worker) WithThrottle(t Throttle) *Worker {
	w.throttle = t
	return w
}

// Process runs audit, record build, tabular append and archive for task, then
// removes the local working files whatever happened.
func (w *Worker) Process(ctx context.Context, task audit.Task, batch Batch) (out audit.Outcome) {
	out = audit.Outcome{Task: task}
	out.URLKey = w.keys.Key(task.URL)
	names := audit.NameArtifacts(w.cfg.WorkDir, w.cfg.BlobPrefix, task.StartedAt, batch.Day, out.URLKey, task.Profile.Name)
	logger := w.logger.With(
		zap.String("run_id", batch.RunID),
		zap.String("url", task.URL),
		zap.String("device", task.Profile.Name),
		zap.Time("started_at", task.StartedAt),
		zap.String("url_key", out.URLKey),
	)

	defer w.cleanup(names, logger)
	defer func() {
		if r := recover(); r != nil {
			out.Stage = audit.StagePanic
			out.Err = fmt.Errorf("panic in publish pipeline: %v", r)
			logger.Error("task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
		metrics.ObserveAudit(task.URL, task.Profile.Name, string(out.Stage))
	}()

	if err := os.MkdirAll(w.cfg.WorkDir, 0o750); err != nil {
		out.Stage = audit.StageAudit
		out.Err = &audit.LocalIOError{Op: "mkdir", Path: w.cfg.WorkDir, Err: err}
		logger.Error("work dir unavailable", zap.Error(out.Err))
		return out
	}

	if w.throttle != nil {
		if err := w.throttle.Wait(ctx, task.URL); err != nil {
			out.Stage = audit.StageAudit
			out.Err = &audit.EngineError{URL: task.URL, Device: task.Profile.Name, Err: err}
			logger.Warn("audit not started", zap.Error(err))
			return out
		}
	}

	start := time.Now()
	report, err := w.runner.Run(ctx, task, names)
	metrics.ObserveAuditDuration(task.Profile.Name, time.Since(start))
	if err != nil {
		out.Stage = audit.StageAudit
		out.Err = err
		logger.Error("audit failed", zap.Error(err))
		return out
	}

	var link string
	if w.blobs != nil {
		link = w.blobs.URL(names.StoragePath)
	}
	record, err := audit.BuildRecord(report, task, out.URLKey, link)
	if err != nil {
		out.Stage = audit.StageBuild
		out.Err = err
		logger.Error("invalid report", zap.Error(err))
		return out
	}
	out.Record = &record
	out.Stage = audit.StagePublished

	out.TabularErr = w.appendRecord(ctx, record)
	if out.TabularErr != nil {
		logger.Error("tabular append failed", zap.Error(out.TabularErr))
	}

	out.ArtifactURI, out.ArchiveErr = w.archive(ctx, names, report)
	if out.ArchiveErr != nil {
		logger.Error("artifact archive failed", zap.String("path", names.StoragePath), zap.Error(out.ArchiveErr))
	}

	w.notify(ctx, batch, out, logger)

	logger.Info("audit published",
		zap.String("final_url", record.FinalURL),
		zap.String("performance", record.Performance),
		zap.String("artifact", out.ArtifactURI),
		zap.Bool("row_appended", out.TabularErr == nil),
		zap.Bool("archived", out.ArchiveErr == nil),
	)
	return out
}

func (w *Worker) appendRecord(ctx context.Context, record audit.Record) error {
	var err error
	if w.table == nil {
		err = errors.New("no tabular store configured")
	} else {
		err = w.table.Append(ctx, record.Row())
	}
	metrics.ObserveSinkWrite(SinkTabular, err)
	if err != nil {
		return &audit.SinkError{Sink: SinkTabular, Err: err}
	}
	return nil
}

func (w *Worker) archive(ctx context.Context, names audit.Artifacts, report audit.Report) (string, error) {
	if w.blobs == nil {
		err := errors.New("no blob store configured")
		metrics.ObserveSinkWrite(SinkArchive, err)
		return "", &audit.SinkError{Sink: SinkArchive, Err: err}
	}
	uri, err := w.blobs.PutObject(ctx, names.StoragePath, w.cfg.ContentType, report.HTML)
	metrics.ObserveSinkWrite(SinkArchive, err)
	if err != nil {
		return "", &audit.SinkError{Sink: SinkArchive, Err: err}
	}
	if w.cfg.ArchiveJSON && len(report.JSON) > 0 {
		_, jsonErr := w.blobs.PutObject(ctx, names.JSONStoragePath(), jsonContentType, report.JSON)
		metrics.ObserveSinkWrite(SinkArchive, jsonErr)
		if jsonErr != nil {
			return uri, &audit.SinkError{Sink: SinkArchive, Err: fmt.Errorf("json report: %w", jsonErr)}
		}
	}
	return uri, nil
}

func (w *Worker) notify(ctx context.Context, batch Batch, out audit.Outcome, logger *zap.Logger) {
	if w.publisher == nil || w.cfg.Topic == "" || out.Record == nil {
		return
	}
	payload := map[string]any{
		"run_id":       batch.RunID,
		"url":          out.Task.URL,
		"device":       out.Task.Profile.Name,
		"record":       out.Record,
		"artifact_uri": out.ArtifactURI,
		"row_appended": out.TabularErr == nil,
		"archived":     out.ArchiveErr == nil,
		"published_at": time.Now().UTC().Format(time.RFC3339),
		"started_at":   out.Task.StartedAt.UTC().Format(time.RFC3339),
	}
	_, err := w.publisher.Publish(ctx, w.cfg.Topic, payload)
	metrics.ObserveSinkWrite(SinkNotify, err)
	if err != nil {
		logger.Warn("completion notification failed", zap.Error(&audit.SinkError{Sink: SinkNotify, Err: err}))
	}
}

func (w *Worker) cleanup(names audit.Artifacts, logger *zap.Logger) {
	for _, path := range names.LocalPaths() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove working file failed", zap.Error(&audit.LocalIOError{Op: "remove", Path: path, Err: err}))
		}
	}
}
