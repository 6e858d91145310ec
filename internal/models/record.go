package models

import "strings"

// Status is the pipeline stage a file is currently in.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusMetadata  Status = "metadata"
	StatusSplit     Status = "split"
	StatusPackaged  Status = "packaged"
	StatusOrganized Status = "organized"
	StatusError     Status = "error"
)

// statusAliases maps the stage names the status API historically used to the
// canonical set. The backend is inconsistent here (see /pipeline-health vs
// /status payloads), so every inbound status goes through NormalizeStatus.
var statusAliases = map[string]Status{
	"queue":              StatusQueued,
	"queued":             StatusQueued,
	"metadata":           StatusMetadata,
	"metadata_extracted": StatusMetadata,
	"split":              StatusSplit,
	"packaged":           StatusPackaged,
	"organized":          StatusOrganized,
	"error":              StatusError,
}

// NormalizeStatus maps a raw backend stage name to its canonical Status.
// Unknown names are returned unchanged so they stay visible rather than
// silently disappearing.
func NormalizeStatus(raw string) Status {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := statusAliases[cleaned]; ok {
		return s
	}
	return Status(cleaned)
}

// Known reports whether s is one of the canonical pipeline stages.
func (s Status) Known() bool {
	switch s {
	case StatusQueued, StatusMetadata, StatusSplit, StatusPackaged, StatusOrganized, StatusError:
		return true
	}
	return false
}

// Terminal reports whether the pipeline will not move the file further
// without explicit action.
func (s Status) Terminal() bool {
	return s == StatusOrganized || s == StatusError
}

// Retryable reports whether the retry action is valid for this status.
func (s Status) Retryable() bool {
	return s == StatusError
}

// AllStatuses lists the canonical stages in pipeline order.
func AllStatuses() []Status {
	return []Status{StatusQueued, StatusMetadata, StatusSplit, StatusPackaged, StatusOrganized, StatusError}
}

// StageResult holds whatever the backend recorded for one completed stage.
// The shape varies per stage, so it stays a loose map.
type StageResult map[string]interface{}

// PipelineRecord is the normalized client view of one file tracked by the
// pipeline. ID is derived (filename, then id, then map key) and is the stable
// identity across refreshes; the backend itself has no id field.
type PipelineRecord struct {
	ID        string                 `json:"id"`
	Filename  string                 `json:"filename"`
	Status    Status                 `json:"status"`
	Stages    map[string]StageResult `json:"stages,omitempty"`
	LastError string                 `json:"last_error,omitempty"`
}
