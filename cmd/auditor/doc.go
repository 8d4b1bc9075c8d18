// Package main hosts the lighthouse auditor entrypoint.
//
// Architecture overview:
//   - Scheduler: with --dev the process runs one batch and exits; otherwise it runs a batch at
//     every tick of schedule.cron (hourly at minute 0 by default) and skips a tick while the
//     previous batch is still running.
//   - Dispatcher: each batch expands audit.urls into (url, desktop) and (url, mobile) tasks and
//     runs them strictly one after another. A failing task never stops the batch.
//   - Worker: audits the task with the lighthouse CLI (optionally attached to a chromedp-managed
//     Chrome), builds the fixed 11-column record, appends it to the tabular store
//     (Sheets/Postgres/memory), archives the HTML report to the blob store (GCS/local/memory),
//     optionally publishes a Pub/Sub notification, and removes its working files.
//   - Ops: in service mode an HTTP server on server.port exposes /healthz, /readyz and /metrics.
//
// Quick checklist:
//   - Configure env vars: AUDITOR_AUDIT_URLS (comma-separated), AUDITOR_SHEETS_SPREADSHEET_ID,
//     AUDITOR_SHEETS_CREDENTIALS_FILE, AUDITOR_STORAGE_GCS_BUCKET, or point --config at a YAML file.
//   - Run locally: go run ./cmd/auditor --dev --config config.yaml
package main
