package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"anm/internal/codec"
	"anm/internal/domain"
	"anm/internal/repository"
)

// Options configures a GraphService
type Options struct {
	// Strict fails exports that would skip unsupported nodes
	Strict bool

	// Format is the file format used when saving models ("json" or "yaml")
	Format string

	// IDs generates fresh entity ids; nil means random UUID-based ids
	IDs domain.IDGenerator
}

// GraphService runs the editing session: it applies commands, publishes
// events, converts to and from the external model and keeps the model
// library in the repository. Commands dispatched while a saved model is open
// are appended to that model's command log.
type GraphService struct {
	mu       sync.Mutex
	session  *Session
	repo     repository.Repository
	eventBus *EventBus
	logger   *slog.Logger
	opts     Options

	modelID string
	meta    codec.Metadata
	state   codec.InterfaceState
}

// NewGraphService creates a new graph service with an empty session. repo
// may be nil, in which case the model library is unavailable.
func NewGraphService(repo repository.Repository, eventBus *EventBus, logger *slog.Logger, opts Options) *GraphService {
	if logger == nil {
		logger = slog.Default()
	}
	if eventBus == nil {
		eventBus = NewEventBus()
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	return &GraphService{
		session:  NewSession(domain.NewGraph(), opts.IDs),
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
		opts:     opts,
	}
}

// ErrNoRepository is returned by library operations when no repository is configured
var ErrNoRepository = errors.New("model library is not configured")

// SessionInfo describes the current session
type SessionInfo struct {
	ModelID   string               `json:"model_id,omitempty"`
	Metadata  codec.Metadata       `json:"metadata"`
	Interface codec.InterfaceState `json:"interface"`
	Commands  int                  `json:"commands"`
}

// GetGraph returns the current graph
func (s *GraphService) GetGraph() domain.Graph {
	return s.session.Graph()
}

// Info returns the current session description
func (s *GraphService) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionInfo{
		ModelID:   s.modelID,
		Metadata:  s.meta,
		Interface: s.state,
		Commands:  len(s.session.Log()),
	}
}

// Dispatch applies a command and records it in the session log
func (s *GraphService) Dispatch(ctx context.Context, cmd Command) (domain.Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatch(ctx, cmd)
}

// DispatchEnvelope decodes and applies a wire command
func (s *GraphService) DispatchEnvelope(ctx context.Context, env Envelope) (domain.Graph, error) {
	cmd, err := DecodeCommand(env.Type, env.Payload)
	if err != nil {
		return domain.Graph{}, err
	}
	return s.Dispatch(ctx, cmd)
}

func (s *GraphService) dispatch(ctx context.Context, cmd Command) (domain.Graph, error) {
	g, entry, err := s.session.Dispatch(cmd)
	if err != nil {
		s.logger.Debug("command rejected", "command", cmd.Name(), "error", err)
		return g, err
	}

	if s.modelID != "" && s.repo != nil {
		rec, err := toRecord(s.modelID, entry)
		if err == nil {
			err = s.repo.AppendCommands(ctx, []repository.CommandRecord{rec})
		}
		if err != nil {
			s.logger.Error("failed to persist command",
				"model_id", s.modelID,
				"command", cmd.Name(),
				"seq", entry.Seq,
				"error", err)
		}
	}

	s.eventBus.Publish(Event{
		Type: EventGraphChanged,
		Payload: map[string]any{
			"command": cmd.Name(),
			"seq":     entry.Seq,
		},
	})
	return g, nil
}

// ImportFragment parses a fragment and merges it at the given position.
// With copy set the fragment entities get fresh ids first.
func (s *GraphService) ImportFragment(ctx context.Context, r io.Reader, format string, at domain.Point, copyIDs bool) (domain.Graph, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return domain.Graph{}, err
	}
	fragment, err := c.Parse(r)
	if err != nil {
		return domain.Graph{}, err
	}
	return s.Dispatch(ctx, &ImportFragmentCmd{Fragment: fragment, At: at, Copy: copyIDs})
}

// ExportFragment writes the current graph in the given format
func (s *GraphService) ExportFragment(w io.Writer, format string) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	return c.Export(s.session.Graph().Fragment, w)
}

// HumanizeIDs rewrites node ids to readable slugs and returns the mapping.
// The interface state follows the renamed nodes.
func (s *GraphService) HumanizeIDs(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cmd := &HumanizeIDsCmd{}
	if _, err := s.dispatch(ctx, cmd); err != nil {
		return nil, err
	}
	s.state = s.state.ReplaceIDs(cmd.Mapping())
	s.eventBus.Publish(Event{Type: EventIDsHumanized, Payload: cmd.Mapping()})
	return cmd.Mapping(), nil
}

// SetInterfaceState replaces the analysis state saved with the model
func (s *GraphService) SetInterfaceState(state codec.InterfaceState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.eventBus.Publish(Event{Type: EventStateUpdated})
}

// SetMetadata replaces the model metadata used on export
func (s *GraphService) SetMetadata(meta codec.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta = meta
}

// BuildModel projects the current session onto the external model
func (s *GraphService) BuildModel() (*codec.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildModel()
}

func (s *GraphService) buildModel() (*codec.Model, error) {
	return codec.ModelFromGraph(s.session.Graph(), s.meta, s.state, codec.ExportOptions{
		Strict: s.opts.Strict,
		Logger: s.logger,
	})
}

// ExportModel writes the external model in the given format
func (s *GraphService) ExportModel(w io.Writer, format string) error {
	c, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	m, err := s.BuildModel()
	if err != nil {
		return err
	}
	return c.EncodeModel(m, w)
}

// LoadModel replaces the session with a model read from r. The embedded
// session is restored when available. The loaded model is not attached to
// the library until it is saved.
func (s *GraphService) LoadModel(ctx context.Context, r io.Reader, format string) (*codec.Loaded, error) {
	c, err := codec.ForFormat(format)
	if err != nil {
		return nil, err
	}
	m, err := c.DecodeModel(r)
	if err != nil {
		return nil, err
	}
	loaded, err := codec.RestoreSession(m)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset(loaded.Graph, loaded.Graph, nil)
	s.modelID = ""
	s.meta = loaded.Metadata
	s.state = loaded.Interface

	s.logger.Info("model loaded",
		"model_id", loaded.Metadata.ID,
		"nodes", len(loaded.Graph.Nodes),
		"edges", len(loaded.Graph.Edges),
		"restored", loaded.Restored)
	s.eventBus.Publish(Event{Type: EventModelLoaded, Payload: map[string]any{"model_id": loaded.Metadata.ID, "restored": loaded.Restored}})
	return loaded, nil
}

// NewModel discards the session and starts an empty one
func (s *GraphService) NewModel(meta codec.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	empty := domain.NewGraph()
	s.session.Reset(empty, empty, nil)
	s.modelID = ""
	s.meta = meta
	s.state = codec.InterfaceState{}
	s.eventBus.Publish(Event{Type: EventGraphReplaced})
}

// ============================================================================
// Model library
// ============================================================================

// ListModels returns the saved models
func (s *GraphService) ListModels(ctx context.Context) ([]repository.SavedModel, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.ListModels(ctx)
}

// GetModel returns a saved model entry
func (s *GraphService) GetModel(ctx context.Context, id string) (*repository.SavedModel, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	return s.repo.GetModel(ctx, id)
}

// SaveModel stores the current session in the library under id. The model
// file snapshots the graph, the scenario file holds the interface state, and
// the command log restarts from the snapshot.
func (s *GraphService) SaveModel(ctx context.Context, id, title string) (*repository.SavedModel, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if title == "" {
		title = s.meta.Title
	}
	s.meta.ID = id
	if title != "" {
		s.meta.Title = title
	}

	m, err := s.buildModel()
	if err != nil {
		return nil, err
	}
	c, err := codec.ForFormat(s.opts.Format)
	if err != nil {
		return nil, err
	}
	var modelFile bytes.Buffer
	if err := c.EncodeModel(m, &modelFile); err != nil {
		return nil, err
	}
	scenario, err := json.Marshal(s.state)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scenario: %w", err)
	}

	saved := &repository.SavedModel{ID: id, Title: s.meta.Title}
	if err := s.repo.UpsertModel(ctx, saved); err != nil {
		return nil, err
	}
	if err := s.repo.PutFile(ctx, &repository.ModelFile{ModelID: id, Role: repository.RoleModelFile, Format: c.Format(), Data: modelFile.Bytes()}); err != nil {
		return nil, err
	}
	if err := s.repo.PutFile(ctx, &repository.ModelFile{ModelID: id, Role: repository.RoleScenarioFile, Format: "json", Data: scenario}); err != nil {
		return nil, err
	}
	if err := s.repo.ClearCommands(ctx, id); err != nil {
		return nil, err
	}

	current := s.session.Graph()
	s.session.Reset(current, current, nil)
	s.modelID = id

	s.logger.Info("model saved", "model_id", id, "format", c.Format(), "bytes", modelFile.Len())
	s.eventBus.Publish(Event{Type: EventModelSaved, Payload: map[string]string{"model_id": id}})
	return saved, nil
}

// OpenModel loads a saved model and replays its command log on top of the
// stored snapshot
func (s *GraphService) OpenModel(ctx context.Context, id string) (*codec.Loaded, error) {
	if s.repo == nil {
		return nil, ErrNoRepository
	}

	file, err := s.repo.GetFile(ctx, id, repository.RoleModelFile)
	if err != nil {
		return nil, err
	}
	c, err := codec.ForFormat(file.Format)
	if err != nil {
		return nil, err
	}
	m, err := c.DecodeModel(bytes.NewReader(file.Data))
	if err != nil {
		return nil, err
	}
	loaded, err := codec.RestoreSession(m)
	if err != nil {
		return nil, err
	}

	if scenario, err := s.repo.GetFile(ctx, id, repository.RoleScenarioFile); err == nil {
		var state codec.InterfaceState
		if err := json.Unmarshal(scenario.Data, &state); err != nil {
			s.logger.Warn("ignoring unreadable scenario file", "model_id", id, "error", err)
		} else {
			loaded.Interface = state
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	records, err := s.repo.ListCommands(ctx, id)
	if err != nil {
		return nil, err
	}
	entries := make([]LogEntry, 0, len(records))
	for _, rec := range records {
		cmd, err := DecodeCommand(rec.Name, rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("model %s command %d: %w", id, rec.Seq, err)
		}
		entries = append(entries, LogEntry{Seq: rec.Seq, Command: cmd, IDs: rec.IDs})
	}
	current, err := Replay(loaded.Graph, entries)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset(loaded.Graph, current, entries)
	s.modelID = id
	s.meta = loaded.Metadata
	s.meta.ID = id
	s.state = loaded.Interface

	s.logger.Info("model opened", "model_id", id, "replayed", len(entries))
	s.eventBus.Publish(Event{Type: EventModelLoaded, Payload: map[string]any{"model_id": id, "replayed": len(entries)}})

	loaded.Graph = current
	return loaded, nil
}

// DeleteModel removes a saved model. The current session is kept but
// detached from the library when it was the deleted model.
func (s *GraphService) DeleteModel(ctx context.Context, id string) error {
	if s.repo == nil {
		return ErrNoRepository
	}
	if err := s.repo.DeleteModel(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	if s.modelID == id {
		s.modelID = ""
	}
	s.mu.Unlock()

	s.eventBus.Publish(Event{Type: EventModelDeleted, Payload: map[string]string{"model_id": id}})
	return nil
}

func toRecord(modelID string, entry LogEntry) (repository.CommandRecord, error) {
	env, err := EncodeCommand(entry.Command)
	if err != nil {
		return repository.CommandRecord{}, err
	}
	return repository.CommandRecord{
		ModelID: modelID,
		Seq:     entry.Seq,
		Name:    env.Type,
		Payload: env.Payload,
		IDs:     entry.IDs,
	}, nil
}
