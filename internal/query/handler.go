package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/ingest"
)

// Service is the read side of the query service.
type Service interface {
	FetchAnnotations(ctx context.Context) ([]*annotation.Annotation, error)
	FetchFiles(ctx context.Context, q api.FileQuery) (*api.FilePage, error)
}

// ContentSource returns the bytes served for one file.
type ContentSource interface {
	Content(ctx context.Context, fileID string) ([]byte, error)
}

// NewHandler exposes svc over the same REST contract Client speaks.
func NewHandler(svc Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get(annotationsPath, h.annotations)
	r.Get(filesPath, h.files)
	r.Get(filesPath+"/{id}/content", h.content)
	return r
}

type handler struct {
	svc    Service
	logger *zap.Logger
}

func (h *handler) annotations(w http.ResponseWriter, r *http.Request) {
	anns, err := h.svc.FetchAnnotations(r.Context())
	if err != nil {
		h.fail(w, http.StatusBadGateway, err)
		return
	}
	resps := make([]api.AnnotationResponse, len(anns))
	for i, a := range anns {
		resps[i] = a.Response()
	}
	h.write(w, api.SuccessResponse[api.AnnotationResponse]{
		Data:         resps,
		TotalCount:   len(resps),
		ResponseType: api.ResponseTypeSuccess,
	})
}

func (h *handler) files(w http.ResponseWriter, r *http.Request) {
	q, err := api.ParseFileQuery(r.URL.Query())
	if err != nil {
		h.fail(w, http.StatusBadRequest, err)
		return
	}
	page, err := h.svc.FetchFiles(r.Context(), q)
	if err != nil {
		h.fail(w, http.StatusBadGateway, err)
		return
	}
	h.write(w, page)
}

func (h *handler) content(w http.ResponseWriter, r *http.Request) {
	src, ok := h.svc.(ContentSource)
	if !ok {
		h.fail(w, http.StatusNotImplemented, errors.New("content not available"))
		return
	}
	data, err := src.Content(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ingest.ErrFileNotFound) {
		h.fail(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		h.fail(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (h *handler) write(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", zap.Error(err))
	}
}

func (h *handler) fail(w http.ResponseWriter, code int, err error) {
	h.logger.Debug("request failed", zap.Int("status", code), zap.Error(err))
	http.Error(w, err.Error(), code)
}
