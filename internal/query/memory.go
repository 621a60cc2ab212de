package query

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/ingest"
)

// MemoryService serves an export held in memory.
type MemoryService struct {
	annotations []*annotation.Annotation
	files       []api.FileRecord
}

// NewMemoryService wraps exp.
func NewMemoryService(exp *ingest.Export) (*MemoryService, error) {
	anns, err := annotation.FromResponses(exp.Annotations)
	if err != nil {
		return nil, err
	}
	return &MemoryService{annotations: anns, files: exp.Files}, nil
}

func (m *MemoryService) FetchAnnotations(context.Context) ([]*annotation.Annotation, error) {
	return m.annotations, nil
}

func (m *MemoryService) FetchFiles(ctx context.Context, q api.FileQuery) (*api.FilePage, error) {
	return window(m.annotations, q, func(fn func(api.FileRecord) error) error {
		for _, rec := range m.files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Content returns the JSON encoding of the record with file_id fileID.
func (m *MemoryService) Content(_ context.Context, fileID string) ([]byte, error) {
	for _, rec := range m.files {
		if api.NewFileDetail(rec).ID() == fileID {
			return json.Marshal(rec)
		}
	}
	return nil, fmt.Errorf("%w: %s", ingest.ErrFileNotFound, fileID)
}
