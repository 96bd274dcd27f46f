package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/voxsentry/voxsentry/internal/core"
)

var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".flac": true,
	".ogg":  true,
	".m4a":  true,
}

// ValidateAudio checks that path points to a readable audio file of a
// supported format within the size limit. Failures wrap
// core.ErrInvalidRequest so the retry layer treats them as fatal.
func ValidateAudio(path string, maxBytes int64) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: audio path is required", core.ErrInvalidRequest)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !audioExtensions[ext] {
		return fmt.Errorf("%w: unsupported audio format %q", core.ErrInvalidRequest, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRequest, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", core.ErrInvalidRequest, path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: %s is empty", core.ErrInvalidRequest, path)
	}
	if maxBytes > 0 && info.Size() > maxBytes {
		return fmt.Errorf("%w: %s exceeds the %d byte limit", core.ErrInvalidRequest, path, maxBytes)
	}
	return nil
}
