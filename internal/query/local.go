package query

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/ingest"
	"github.com/agentic-research/fmsx/internal/metrics"
)

// LocalService answers annotation and file queries from a database built by
// ingest.Build. It evaluates filters itself, the same way the remote service
// does: equality on the formatted value, numeric comparison for ranges.
type LocalService struct {
	db     *sql.DB
	logger *zap.Logger

	once        sync.Once
	annotations []*annotation.Annotation
	annErr      error
}

// OpenLocal opens the database at path.
func OpenLocal(path string, logger *zap.Logger) (*LocalService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := ingest.Open(path)
	if err != nil {
		return nil, err
	}
	return &LocalService{db: db, logger: logger}, nil
}

// Close releases the database.
func (s *LocalService) Close() error {
	return s.db.Close()
}

// FetchAnnotations lists annotations in build order.
func (s *LocalService) FetchAnnotations(ctx context.Context) ([]*annotation.Annotation, error) {
	s.once.Do(func() {
		var resps []api.AnnotationResponse
		s.annErr = ingest.StreamAnnotations(ctx, s.db, func(a api.AnnotationResponse) error {
			resps = append(resps, a)
			return nil
		})
		if s.annErr == nil {
			s.annotations, s.annErr = annotation.FromResponses(resps)
		}
	})
	metrics.RecordQuery("annotations", s.annErr)
	return s.annotations, s.annErr
}

// FetchFiles scans the records in order and returns the window of matches
// selected by q.Offset and q.Limit, plus the total number of matches.
func (s *LocalService) FetchFiles(ctx context.Context, q api.FileQuery) (*api.FilePage, error) {
	anns, err := s.FetchAnnotations(ctx)
	if err != nil {
		return nil, err
	}
	page, err := window(anns, q, func(fn func(api.FileRecord) error) error {
		return ingest.StreamFiles(ctx, s.db, func(_ string, rec api.FileRecord) error {
			return fn(rec)
		})
	})
	metrics.RecordQuery("files", err)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("local query",
		zap.String("filters", api.FiltersKey(q.Filters)),
		zap.Int("offset", q.Offset),
		zap.Int("returned", len(page.Data)),
		zap.Int("total", page.TotalCount))
	return page, nil
}

// Content returns the stored JSON record of fileID.
func (s *LocalService) Content(ctx context.Context, fileID string) ([]byte, error) {
	return ingest.LoadFile(ctx, s.db, fileID)
}

// LocalDownloader writes the JSON record of each file into a directory.
// A local database has no binary content to offer.
type LocalDownloader struct {
	svc *LocalService
	dir string
}

// NewLocalDownloader returns a LocalDownloader writing into dir.
func NewLocalDownloader(svc *LocalService, dir string) *LocalDownloader {
	return &LocalDownloader{svc: svc, dir: dir}
}

// Download writes dir/<fileID>.json.
func (d *LocalDownloader) Download(ctx context.Context, fileID string) error {
	raw, err := d.svc.Content(ctx, fileID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d.dir, filepath.Base(fileID)+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("download %s: %w", fileID, err)
	}
	return nil
}

