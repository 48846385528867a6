package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anm/internal/codec"
	"anm/internal/domain"
	"anm/internal/repository"
	"anm/internal/repository/sqlite"
	"anm/internal/service"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, withRepo bool) http.Handler {
	t.Helper()
	var repo repository.Repository
	if withRepo {
		r, err := sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { r.Close() })
		repo = r
	}
	svc := service.NewGraphService(repo, nil, quiet, service.Options{})
	mux := http.NewServeMux()
	NewGraphHandler(svc, quiet).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeGraph(t *testing.T, rec *httptest.ResponseRecorder) domain.Graph {
	t.Helper()
	var g domain.Graph
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &g))
	return g
}

const fragmentJSON = `{
  "nodes": {
    "laptop": {"id": "laptop", "modelComponentType": "item", "label": "Laptop", "x": 0, "y": 0},
    "office": {"id": "office", "modelComponentType": "location", "label": "Office", "x": 100, "y": 0}
  },
  "edges": {
    "e1": {"id": "e1", "from": "laptop", "to": "office", "relation": "atLocation", "directed": true}
  }
}`

func TestDispatchCommand(t *testing.T) {
	h := newTestServer(t, false)

	rec := do(t, h, http.MethodPost, "/api/import/fragment?x=10&y=5", fragmentJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	g := decodeGraph(t, rec)
	assert.Equal(t, domain.Point{X: 110, Y: 5}, g.Nodes["office"].Position())

	rec = do(t, h, http.MethodPost, "/api/commands", `{"type":"move_node","payload":{"node_id":"laptop","xy":{"x":1,"y":2}}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	g = decodeGraph(t, rec)
	assert.Equal(t, domain.Point{X: 1, Y: 2}, g.Nodes["laptop"].Position())

	rec = do(t, h, http.MethodGet, "/api/session", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info service.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, 2, info.Commands)
}

func TestDispatchErrors(t *testing.T) {
	h := newTestServer(t, false)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/import/fragment", fragmentJSON).Code)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"missing type", `{}`, http.StatusBadRequest},
		{"unknown command", `{"type":"explode"}`, http.StatusBadRequest},
		{"missing node", `{"type":"remove_node","payload":{"node_id":"ghost"}}`, http.StatusNotFound},
		{"self loop", `{"type":"add_edge","payload":{"edge":{"from":"laptop","to":"laptop"}}}`, http.StatusBadRequest},
		{"duplicate node", `{"type":"add_node","payload":{"node":{"id":"laptop","modelComponentType":"item"}}}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/commands", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestImportFragmentRejects(t *testing.T) {
	h := newTestServer(t, false)

	rec := do(t, h, http.MethodPost, "/api/import/fragment?x=left", fragmentJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/import/fragment", `{"nodes": [`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/import/fragment?format=toml", fragmentJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHumanize(t *testing.T) {
	h := newTestServer(t, false)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/import/fragment", fragmentJSON).Code)

	rec := do(t, h, http.MethodPost, "/api/humanize", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var mapping map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mapping))
	assert.Equal(t, "node__laptop", mapping["laptop"])
	assert.Equal(t, "node__office", mapping["office"])
}

func TestModelExportImport(t *testing.T) {
	src := newTestServer(t, false)
	require.Equal(t, http.StatusOK, do(t, src, http.MethodPost, "/api/import/fragment", fragmentJSON).Code)

	for _, format := range []string{"json", "yaml"} {
		t.Run(format, func(t *testing.T) {
			rec := do(t, src, http.MethodGet, "/api/export/model?format="+format, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Disposition"), "model.")

			dst := newTestServer(t, false)
			rec = do(t, dst, http.MethodPost, "/api/import/model?format="+format, rec.Body.String())
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var loaded codec.Loaded
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
			assert.True(t, loaded.Restored)
			assert.Len(t, loaded.Graph.Nodes, 2)
		})
	}

	rec := do(t, src, http.MethodGet, "/api/export/model?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestModelLibrary(t *testing.T) {
	h := newTestServer(t, true)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/import/fragment", fragmentJSON).Code)

	rec := do(t, h, http.MethodPut, "/api/models/office", `{"title":"Office network"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/api/models", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var models []repository.SavedModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &models))
	require.Len(t, models, 1)
	assert.Equal(t, "Office network", models[0].Title)

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/api/commands", `{"type":"remove_node","payload":{"node_id":"laptop"}}`).Code)

	rec = do(t, h, http.MethodPost, "/api/models/office/open", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var loaded codec.Loaded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loaded))
	assert.NotContains(t, loaded.Graph.Nodes, "laptop")
	assert.Contains(t, loaded.Graph.Nodes, "office")

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/models/office", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/models/office", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/models/office/open", "").Code)
}

func TestModelLibraryUnavailable(t *testing.T) {
	h := newTestServer(t, false)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/models", "").Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", domain.ErrGroupNotFound), http.StatusNotFound},
		{repository.ErrNotFound, http.StatusNotFound},
		{domain.ErrDuplicateID, http.StatusConflict},
		{codec.ErrUnsupportedComponent, http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: x", service.ErrInvariantViolation), http.StatusBadRequest},
		{codec.ErrInvalidModel, http.StatusBadRequest},
		{fmt.Errorf("%w: eof", codec.ErrMalformedInput), http.StatusBadRequest},
		{service.ErrNoRepository, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestMiddleware(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	t.Run("recover", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Chain(panicky, Recover(quiet)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	t.Run("cors allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		Chain(ok, CORS([]string{"http://localhost:5173"})).ServeHTTP(rec, req)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	})

	t.Run("cors refused preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/", nil)
		req.Header.Set("Origin", "http://evil.example")
		req.Header.Set("Access-Control-Request-Method", "POST")
		rec := httptest.NewRecorder()
		Chain(ok, CORS(nil)).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("logger records status", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		rec := httptest.NewRecorder()
		Chain(ok, Logger(logger)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/graph", nil))
		assert.Contains(t, buf.String(), "status=418")
		assert.Contains(t, buf.String(), "path=/api/graph")
	})

	t.Run("chain order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}
		Chain(ok, mark("outer"), mark("inner")).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, []string{"outer", "inner"}, order)
	})
}
