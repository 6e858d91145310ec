package models

// TransferPhase is the lifecycle phase of one upload.
type TransferPhase string

const (
	TransferIdle      TransferPhase = "idle"
	TransferUploading TransferPhase = "uploading"
	TransferSuccess   TransferPhase = "success"
	TransferFailure   TransferPhase = "failure"
)

// TransferState is the ephemeral, client-only progress of one upload. It is
// never persisted and is reset on every new attempt.
type TransferState struct {
	Phase   TransferPhase `json:"phase"`
	Percent int           `json:"percent"`
}

// Terminal reports whether the transfer has finished, either way.
func (s TransferState) Terminal() bool {
	return s.Phase == TransferSuccess || s.Phase == TransferFailure
}
