package ingest

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
)

// Summary describes a completed build.
type Summary struct {
	Annotations int
	Files       int
}

// Build writes exp into a fresh database at dbPath, replacing any existing
// file. Annotations that arrive without a values list get the distinct
// values observed across the file records, in first-observation order.
func Build(exp *Export, dbPath string, logger *zap.Logger) (Summary, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	_ = os.Remove(dbPath) // Overwrite

	w, err := NewSQLiteWriter(dbPath, logger)
	if err != nil {
		return Summary{}, err
	}

	for _, resp := range exp.Annotations {
		if len(resp.Values) == 0 {
			resp.Values, err = observedValues(resp, exp.Files)
			if err != nil {
				_ = w.Close()
				return Summary{}, err
			}
		}
		if err := w.AddAnnotation(resp); err != nil {
			_ = w.Close()
			return Summary{}, err
		}
	}
	for _, rec := range exp.Files {
		if err := w.AddFile(rec); err != nil {
			_ = w.Close()
			return Summary{}, err
		}
	}

	anns, files := w.Counts()
	if err := w.Close(); err != nil {
		return Summary{}, fmt.Errorf("finalize %s: %w", dbPath, err)
	}
	logger.Info("built local database",
		zap.String("path", dbPath),
		zap.Int("annotations", anns),
		zap.Int("files", files))
	return Summary{Annotations: anns, Files: files}, nil
}

func observedValues(resp api.AnnotationResponse, files []api.FileRecord) ([]any, error) {
	a, err := annotation.New(resp)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []any
	for _, rec := range files {
		for _, v := range a.Extract(rec) {
			key := api.FormatValue(v)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, v)
		}
	}
	return out, nil
}
