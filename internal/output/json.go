package output

import (
	"encoding/json"

	"github.com/voxsentry/voxsentry/internal/core"
)

// JSONFormatter renders summaries as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatSummary marshals the full summary including per-item outcomes.
func (f *JSONFormatter) FormatSummary(summary *core.BatchSummary) (string, error) {
	if summary == nil {
		return "null", nil
	}

	if f.Indent {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
