package query

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/fmsx/api"
	"github.com/agentic-research/fmsx/internal/ingest"
)

func sampleExport() *ingest.Export {
	return &ingest.Export{
		Annotations: []api.AnnotationResponse{
			{Name: "cell_line", DisplayName: "Cell line", Type: "Text", Values: []any{"AICS-0", "AICS-12"}},
			{Name: "size", DisplayName: "Size", Type: "Number", Units: "bytes", Values: []any{10.0, 20.0, 30.0}},
		},
		Files: []api.FileRecord{
			{"file_id": "f1", "size": 10.0, "annotations": []any{map[string]any{"annotation_name": "cell_line", "values": []any{"AICS-0"}}}},
			{"file_id": "f2", "size": 20.0, "annotations": []any{map[string]any{"annotation_name": "cell_line", "values": []any{"AICS-12"}}}},
			{"file_id": "f3", "size": 30.0, "annotations": []any{map[string]any{"annotation_name": "cell_line", "values": []any{"AICS-0"}}}},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()
	mem, err := NewMemoryService(sampleExport())
	require.NoError(t, err)
	srv := httptest.NewServer(NewHandler(mem, nil))
	t.Cleanup(srv.Close)
	return srv, New(Config{BaseURL: srv.URL + "/"})
}

func TestClient_FetchAnnotations(t *testing.T) {
	_, c := newTestServer(t)
	anns, err := c.FetchAnnotations(context.Background())
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, "cell_line", anns[0].Name())
	assert.Equal(t, "bytes", anns[1].Units())
}

func TestClient_FetchAnnotations_BareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/1.0/annotations", r.URL.Path)
		_, _ = w.Write([]byte(`[{"annotation_name":"a","annotation_display_name":"A","type":"Text","values":["x"]}]`))
	}))
	defer srv.Close()

	anns, err := New(Config{BaseURL: srv.URL}).FetchAnnotations(context.Background())
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "A", anns[0].DisplayName())
}

func TestClient_FetchFiles(t *testing.T) {
	_, c := newTestServer(t)
	page, err := c.FetchFiles(context.Background(), api.FileQuery{
		Filters: []api.Filter{api.Eq("cell_line", "AICS-0")},
		Offset:  0,
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "f3", page.Data[1]["file_id"])
	assert.False(t, page.HasMore)
}

func TestClient_FetchFiles_SendsFilterParams(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()["filter"]
		assert.Equal(t, "5", r.URL.Query().Get("offset"))
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[],"hasMore":false,"offset":5,"totalCount":0,"responseType":"SUCCESS"}`))
	}))
	defer srv.Close()

	_, err := New(Config{BaseURL: srv.URL}).FetchFiles(context.Background(), api.FileQuery{
		Filters: []api.Filter{api.Eq("a", "x"), {Name: "size", Op: api.OpGte, Value: 10.0}},
		Offset:  5,
		Limit:   3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a=x", "size>=10"}, got)
}

func TestClient_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/1.0/annotations":
			http.Error(w, "nope", http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"data":[],"responseType":"ERROR"}`))
		}
	}))
	defer srv.Close()
	c := New(Config{BaseURL: srv.URL})

	_, err := c.FetchAnnotations(context.Background())
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)

	_, err = c.FetchFiles(context.Background(), api.FileQuery{Limit: 1})
	assert.ErrorIs(t, err, ErrUnexpectedResponse)
}

func TestDownloader(t *testing.T) {
	_, c := newTestServer(t)
	dir := t.TempDir()
	require.NoError(t, NewDownloader(c, dir).Download(context.Background(), "f2"))
	data, err := os.ReadFile(filepath.Join(dir, "f2"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"f2"`)

	var se *StatusError
	require.ErrorAs(t, NewDownloader(c, dir).Download(context.Background(), "missing"), &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches(api.Eq("a", "x"), "x"))
	assert.True(t, Matches(api.Eq("n", "10"), 10.0))
	assert.False(t, Matches(api.Eq("a", "x"), "y"))
	assert.True(t, Matches(api.Filter{Name: "n", Op: api.OpGte, Value: "10"}, 10.0))
	assert.False(t, Matches(api.Filter{Name: "n", Op: api.OpLt, Value: 10.0}, 10.0))
	assert.False(t, Matches(api.Filter{Name: "n", Op: api.OpLt, Value: 10.0}, "abc"))
}

func TestLocalService(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "fmsx.db")
	_, err := ingest.Build(sampleExport(), dbPath, nil)
	require.NoError(t, err)

	svc, err := OpenLocal(dbPath, nil)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	ctx := context.Background()

	anns, err := svc.FetchAnnotations(ctx)
	require.NoError(t, err)
	assert.Len(t, anns, 2)

	page, err := svc.FetchFiles(ctx, api.FileQuery{
		Filters: []api.Filter{{Name: "size", Op: api.OpGte, Value: 20.0}, {Name: "size", Op: api.OpLt, Value: 30.0}},
		Limit:   10,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalCount)
	assert.Equal(t, "f2", page.Data[0]["file_id"])

	page, err = svc.FetchFiles(ctx, api.FileQuery{Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	assert.Equal(t, 1, page.Offset)
	assert.True(t, page.HasMore)
	assert.Equal(t, "f2", page.Data[0]["file_id"])

	dir := t.TempDir()
	require.NoError(t, NewLocalDownloader(svc, dir).Download(ctx, "f1"))
	_, err = os.Stat(filepath.Join(dir, "f1.json"))
	assert.NoError(t, err)
}
