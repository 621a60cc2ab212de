package state

import (
	"context"

	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/internal/annotation"
)

// DefaultDisplayAnnotations is how many annotations are shown as columns
// after annotations first arrive.
const DefaultDisplayAnnotations = 4

// AnnotationService lists the annotations known to the query service.
type AnnotationService interface {
	FetchAnnotations(ctx context.Context) ([]*annotation.Annotation, error)
}

// Downloader retrieves one file's content.
type Downloader interface {
	Download(ctx context.Context, fileID string) error
}

// Dispatcher is the subset of Store effects need.
type Dispatcher interface {
	Dispatch(ctx context.Context, a Action)
	State() State
}

// EffectExecutor runs side effects for an action after it was reduced.
type EffectExecutor interface {
	Execute(ctx context.Context, a Action, d Dispatcher)
}

// Effects is the stock EffectExecutor backed by the query service.
type Effects struct {
	Annotations  AnnotationService
	Downloader   Downloader
	DisplayCount int
	Logger       *zap.Logger
}

// Execute implements EffectExecutor. Failures are logged and never
// propagated; the state stays as it was.
func (e *Effects) Execute(ctx context.Context, a Action, d Dispatcher) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	switch act := a.(type) {
	case RequestAnnotationsAction:
		if e.Annotations == nil {
			return
		}
		as, err := e.Annotations.FetchAnnotations(ctx)
		if err != nil {
			logger.Warn("fetch annotations failed", zap.Error(err))
			return
		}
		d.Dispatch(ctx, ReceiveAnnotations(as))
		n := e.DisplayCount
		if n <= 0 {
			n = DefaultDisplayAnnotations
		}
		if n > len(as) {
			n = len(as)
		}
		d.Dispatch(ctx, SelectDisplayAnnotation(as[:n], true))
	case DownloadFilesAction:
		if e.Downloader == nil {
			return
		}
		for _, id := range act.Files {
			if err := e.Downloader.Download(ctx, id); err != nil {
				logger.Warn("download failed", zap.String("file_id", id), zap.Error(err))
			}
		}
	}
}
