package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"anm/internal/codec"
	"anm/internal/domain"
	"anm/internal/repository"
	"anm/internal/service"
)

// MaxBodyBytes limits request bodies of imports and commands
const MaxBodyBytes = 16 << 20

// GraphHandler handles graph API requests
type GraphHandler struct {
	svc    *service.GraphService
	logger *slog.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(svc *service.GraphService, logger *slog.Logger) *GraphHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GraphHandler{svc: svc, logger: logger}
}

// RegisterRoutes adds the API routes to mux
func (h *GraphHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/graph", h.GetGraph)
	mux.HandleFunc("GET /api/session", h.GetSession)
	mux.HandleFunc("POST /api/session/reset", h.ResetSession)
	mux.HandleFunc("PUT /api/session/interface", h.SetInterfaceState)
	mux.HandleFunc("PUT /api/session/metadata", h.SetMetadata)

	mux.HandleFunc("GET /api/commands", h.ListCommands)
	mux.HandleFunc("POST /api/commands", h.Dispatch)
	mux.HandleFunc("POST /api/humanize", h.Humanize)

	mux.HandleFunc("POST /api/import/fragment", h.ImportFragment)
	mux.HandleFunc("GET /api/export/fragment", h.ExportFragment)
	mux.HandleFunc("POST /api/import/model", h.ImportModel)
	mux.HandleFunc("GET /api/export/model", h.ExportModel)

	mux.HandleFunc("GET /api/models", h.ListModels)
	mux.HandleFunc("GET /api/models/{id}", h.GetModel)
	mux.HandleFunc("PUT /api/models/{id}", h.SaveModel)
	mux.HandleFunc("POST /api/models/{id}/open", h.OpenModel)
	mux.HandleFunc("DELETE /api/models/{id}", h.DeleteModel)
}

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// GetGraph returns the current graph
func (h *GraphHandler) GetGraph(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.GetGraph(), http.StatusOK)
}

// GetSession returns the session description
func (h *GraphHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.svc.Info(), http.StatusOK)
}

// ResetSession discards the session and starts an empty model
func (h *GraphHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	var meta codec.Metadata
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &meta); err != nil {
			h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
	}
	h.svc.NewModel(meta)
	h.writeJSON(w, h.svc.Info(), http.StatusOK)
}

// SetInterfaceState replaces the analysis state saved with the model
func (h *GraphHandler) SetInterfaceState(w http.ResponseWriter, r *http.Request) {
	var state codec.InterfaceState
	if err := decodeBody(w, r, &state); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	h.svc.SetInterfaceState(state)
	h.writeJSON(w, state, http.StatusOK)
}

// SetMetadata replaces the model metadata
func (h *GraphHandler) SetMetadata(w http.ResponseWriter, r *http.Request) {
	var meta codec.Metadata
	if err := decodeBody(w, r, &meta); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	h.svc.SetMetadata(meta)
	h.writeJSON(w, meta, http.StatusOK)
}

// ListCommands returns the names of the commands accepted by Dispatch
func (h *GraphHandler) ListCommands(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, service.CommandNames(), http.StatusOK)
}

// Dispatch applies a command envelope and returns the new graph
func (h *GraphHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var env service.Envelope
	if err := decodeBody(w, r, &env); err != nil {
		h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
		return
	}
	if env.Type == "" {
		h.writeError(w, "Command type required", "", http.StatusBadRequest)
		return
	}

	g, err := h.svc.DispatchEnvelope(r.Context(), env)
	if err != nil {
		h.writeServiceError(w, "Command failed", err)
		return
	}
	h.writeJSON(w, g, http.StatusOK)
}

// Humanize rewrites node ids to readable slugs and returns the mapping
func (h *GraphHandler) Humanize(w http.ResponseWriter, r *http.Request) {
	mapping, err := h.svc.HumanizeIDs(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to humanize ids", err)
		return
	}
	h.writeJSON(w, mapping, http.StatusOK)
}

// ImportFragment merges a JSON or YAML fragment into the graph. Query
// parameters x and y give the import position; copy=true gives the imported
// entities fresh ids.
func (h *GraphHandler) ImportFragment(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	at, err := parsePoint(q.Get("x"), q.Get("y"))
	if err != nil {
		h.writeError(w, "Invalid position", err.Error(), http.StatusBadRequest)
		return
	}
	copyIDs := q.Get("copy") == "true"

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	g, err := h.svc.ImportFragment(r.Context(), r.Body, requestFormat(r), at, copyIDs)
	if err != nil {
		h.writeServiceError(w, "Failed to import fragment", err)
		return
	}
	h.writeJSON(w, g, http.StatusOK)
}

// ExportFragment writes the current graph as a fragment
func (h *GraphHandler) ExportFragment(w http.ResponseWriter, r *http.Request) {
	format := requestFormat(r)
	if _, err := codec.ForFormat(format); err != nil {
		h.writeServiceError(w, "Unsupported format", err)
		return
	}
	setDownloadHeaders(w, "graph", format)
	if err := h.svc.ExportFragment(w, format); err != nil {
		// headers are already written
		h.logger.Error("failed to export fragment", "format", format, "error", err)
	}
}

// ImportModel loads an external model into the session
func (h *GraphHandler) ImportModel(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	loaded, err := h.svc.LoadModel(r.Context(), r.Body, requestFormat(r))
	if err != nil {
		h.writeServiceError(w, "Failed to import model", err)
		return
	}
	h.writeJSON(w, loaded, http.StatusOK)
}

// ExportModel writes the external model of the current session
func (h *GraphHandler) ExportModel(w http.ResponseWriter, r *http.Request) {
	format := requestFormat(r)
	if _, err := codec.ForFormat(format); err != nil {
		h.writeServiceError(w, "Unsupported format", err)
		return
	}

	// build first so export errors still get a proper status
	m, err := h.svc.BuildModel()
	if err != nil {
		h.writeServiceError(w, "Failed to export model", err)
		return
	}
	c, _ := codec.ForFormat(format)
	setDownloadHeaders(w, "model", format)
	if err := c.EncodeModel(m, w); err != nil {
		h.logger.Error("failed to export model", "format", format, "error", err)
	}
}

// ListModels returns the saved model library
func (h *GraphHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels(r.Context())
	if err != nil {
		h.writeServiceError(w, "Failed to list models", err)
		return
	}
	h.writeJSON(w, models, http.StatusOK)
}

// GetModel returns a saved model entry
func (h *GraphHandler) GetModel(w http.ResponseWriter, r *http.Request) {
	model, err := h.svc.GetModel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "Failed to get model", err)
		return
	}
	h.writeJSON(w, model, http.StatusOK)
}

// SaveModelRequest is the optional body of SaveModel
type SaveModelRequest struct {
	Title string `json:"title"`
}

// SaveModel stores the current session in the library
func (h *GraphHandler) SaveModel(w http.ResponseWriter, r *http.Request) {
	var req SaveModelRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil {
			h.writeError(w, "Invalid request body", err.Error(), http.StatusBadRequest)
			return
		}
	}

	saved, err := h.svc.SaveModel(r.Context(), r.PathValue("id"), req.Title)
	if err != nil {
		h.writeServiceError(w, "Failed to save model", err)
		return
	}
	h.writeJSON(w, saved, http.StatusOK)
}

// OpenModel replaces the session with a saved model
func (h *GraphHandler) OpenModel(w http.ResponseWriter, r *http.Request) {
	loaded, err := h.svc.OpenModel(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, "Failed to open model", err)
		return
	}
	h.writeJSON(w, loaded, http.StatusOK)
}

// DeleteModel removes a saved model
func (h *GraphHandler) DeleteModel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteModel(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, "Failed to delete model", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Helper methods

func (h *GraphHandler) writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *GraphHandler) writeError(w http.ResponseWriter, error, details string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Details: details,
	}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}

func (h *GraphHandler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "error", err)
	}
	h.writeError(w, msg, err.Error(), status)
}

// StatusFor maps an error to the HTTP status reported to clients
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrEdgeNotFound),
		errors.Is(err, domain.ErrGroupNotFound),
		errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, codec.ErrUnsupportedComponent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvariantViolation),
		errors.Is(err, service.ErrUnknownCommand),
		errors.Is(err, domain.ErrSelfLoop),
		errors.Is(err, domain.ErrDanglingReference),
		errors.Is(err, domain.ErrInvalidEntity),
		errors.Is(err, domain.ErrUnknownComponentKind),
		errors.Is(err, codec.ErrUnknownFormat),
		errors.Is(err, codec.ErrInvalidModel),
		errors.Is(err, codec.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNoRepository):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// requestFormat reads the format query parameter, falling back to the
// request content type
func requestFormat(r *http.Request) string {
	if format := r.URL.Query().Get("format"); format != "" {
		return format
	}
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		return "yaml"
	}
	return "json"
}

func parsePoint(x, y string) (domain.Point, error) {
	var p domain.Point
	var err error
	if x != "" {
		if p.X, err = strconv.ParseFloat(x, 64); err != nil {
			return p, fmt.Errorf("x: %w", err)
		}
	}
	if y != "" {
		if p.Y, err = strconv.ParseFloat(y, 64); err != nil {
			return p, fmt.Errorf("y: %w", err)
		}
	}
	return p, nil
}

func setDownloadHeaders(w http.ResponseWriter, name, format string) {
	ext := "json"
	contentType := "application/json"
	if format == "yaml" || format == "yml" {
		ext = "yaml"
		contentType = "application/x-yaml"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.%s", name, ext))
}
