package upload

import (
	"fmt"
	"path/filepath"
	"strings"
)

// audioExtensions is the ingestion allow-list. The watcher only picks up
// audio files, so rejecting anything else client-side saves a round trip.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".wav":  true,
	".m4a":  true,
	".ogg":  true,
}

// ValidationError reports an invalid upload request with field context.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateFilename checks a name before it is sent as a multipart filename.
// Path components are rejected outright rather than cleaned: the backend
// stores under its input directory keyed by the bare name.
func ValidateFilename(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{"filename", "required"}
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return &ValidationError{"filename", "must not contain path separators"}
	}
	if strings.HasPrefix(name, ".") {
		return &ValidationError{"filename", "must not be a hidden file"}
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !audioExtensions[ext] {
		return &ValidationError{"filename", fmt.Sprintf("unsupported extension %q", ext)}
	}
	return nil
}
