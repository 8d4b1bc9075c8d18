// Package audit implements the audit-capture pipeline shared by the
// lighthouse auditor: device profiles, engine-agnostic reports, artifact
// naming, result records, and the runner that validates engine output
// before anything is written to a sink.
package audit
