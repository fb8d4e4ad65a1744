package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManifestEntry represents one file in the output manifest.
type ManifestEntry struct {
	Input   string `json:"input"`
	Output  string `json:"output,omitempty"`
	Nodes   int    `json:"nodes"`
	Partial bool   `json:"partial,omitempty"`
	Error   string `json:"error,omitempty"`
}

// WriteManifest writes a JSON summary of results to path.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, len(results))
	for i, r := range results {
		entries[i] = ManifestEntry{
			Input:   r.Input,
			Nodes:   r.Nodes,
			Partial: r.Partial,
			Error:   r.Error,
		}
		if r.Success {
			entries[i].Output = r.Output
		}
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Summary counts successful, partial and failed results.
func Summary(results []Result) (ok, partial, failed int) {
	for _, r := range results {
		switch {
		case !r.Success:
			failed++
		case r.Partial:
			partial++
		default:
			ok++
		}
	}
	return ok, partial, failed
}
