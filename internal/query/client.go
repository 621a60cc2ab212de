// Package query talks to the file metadata query service, either over HTTP
// or against a local SQLite database built by `fmsx build`.
package query

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/annotation"
	"github.com/agentic-research/fmsx/internal/metrics"
)

// ErrUnexpectedResponse is returned for bodies that are not a success envelope.
var ErrUnexpectedResponse = errors.New("unexpected query service response")

// StatusError reports a non-2xx HTTP status.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("query service returned %d for %s", e.Code, e.URL)
}

const (
	annotationsPath = "/api/1.0/annotations"
	filesPath       = "/api/1.0/files"
)

// Client is an HTTP client for the query service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: cfg.Logger,
	}
}

// BaseURL returns the service root the client was configured with.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchAnnotations lists every annotation. The service may answer with a
// bare array or with a success envelope.
func (c *Client) FetchAnnotations(ctx context.Context) ([]*annotation.Annotation, error) {
	body, err := c.get(ctx, c.baseURL+annotationsPath)
	metrics.RecordQuery("annotations", err)
	if err != nil {
		return nil, err
	}
	resps, err := decodeAnnotations(body)
	if err != nil {
		return nil, err
	}
	return annotation.FromResponses(resps)
}

func decodeAnnotations(body []byte) ([]api.AnnotationResponse, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var out []api.AnnotationResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		return out, nil
	}
	var env api.SuccessResponse[api.AnnotationResponse]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if env.ResponseType != api.ResponseTypeSuccess {
		return nil, fmt.Errorf("%w: responseType %q", ErrUnexpectedResponse, env.ResponseType)
	}
	return env.Data, nil
}

// FetchFiles fetches one window of the files matching q.Filters.
func (c *Client) FetchFiles(ctx context.Context, q api.FileQuery) (*api.FilePage, error) {
	u := c.baseURL + filesPath + "?" + q.Values().Encode()
	c.logger.Debug("fetch files",
		zap.Int("offset", q.Offset),
		zap.Int("limit", q.Limit),
		zap.String("filters", api.FiltersKey(q.Filters)))

	body, err := c.get(ctx, u)
	metrics.RecordQuery("files", err)
	if err != nil {
		return nil, err
	}
	var page api.FilePage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if page.ResponseType != api.ResponseTypeSuccess {
		return nil, fmt.Errorf("%w: responseType %q", ErrUnexpectedResponse, page.ResponseType)
	}
	return &page, nil
}

// Content streams the content of one file. The caller closes the reader.
func (c *Client) Content(ctx context.Context, fileID string) (io.ReadCloser, error) {
	u := c.baseURL + filesPath + "/" + url.PathEscape(fileID) + "/content"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	metrics.RecordQuery("content", err)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode, URL: u}
	}
	return resp.Body, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }() // safe to ignore

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, URL: u}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer func() { _ = gr.Close() }()
		reader = gr
	}
	return io.ReadAll(reader)
}

// Downloader saves file content into a directory.
type Downloader struct {
	client *Client
	dir    string
}

// NewDownloader returns a Downloader writing into dir.
func NewDownloader(c *Client, dir string) *Downloader {
	return &Downloader{client: c, dir: dir}
}

// Download writes the content of fileID to dir/fileID.
func (d *Downloader) Download(ctx context.Context, fileID string) error {
	rc, err := d.client.Content(ctx, fileID)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(d.dir, filepath.Base(fileID))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return fmt.Errorf("download %s: %w", fileID, err)
	}
	return f.Close()
}
