package models

import "fmt"

// StemType selects which stems the splitter keeps.
type StemType string

const (
	StemAccompaniment StemType = "accompaniment"
	StemVocals        StemType = "vocals"
	StemBoth          StemType = "both"
)

// PipelineSettings are the tunable pipeline parameters. The client holds
// exactly one copy, overwritten wholesale on every successful save.
type PipelineSettings struct {
	ChunkLengthMs int      `json:"chunkLengthMs"`
	StemType      StemType `json:"stemType"`
}

// Validate checks bounds before a save is attempted.
func (s PipelineSettings) Validate() error {
	if s.ChunkLengthMs < 1000 {
		return fmt.Errorf("chunkLengthMs must be at least 1000, got %d", s.ChunkLengthMs)
	}
	switch s.StemType {
	case StemAccompaniment, StemVocals, StemBoth:
	default:
		return fmt.Errorf("stemType must be accompaniment, vocals or both, got %q", s.StemType)
	}
	return nil
}
