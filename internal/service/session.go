package service

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"anm/internal/domain"
)

// ErrInvariantViolation is returned when a command would leave the graph
// inconsistent. The command is discarded.
var ErrInvariantViolation = errors.New("command violates graph invariants")

// LogEntry is one applied command. IDs lists the fresh ids the command drew,
// in order.
type LogEntry struct {
	Seq     int
	Command Command
	IDs     []string
}

// Session holds the current graph of an editing session and the ordered log
// of commands applied since it started. It is safe for concurrent use.
type Session struct {
	mu      sync.RWMutex
	initial domain.Graph
	graph   domain.Graph
	log     []LogEntry
	ids     domain.IDGenerator
}

// NewSession starts a session from initial. A nil ids uses random ids.
func NewSession(initial domain.Graph, ids domain.IDGenerator) *Session {
	if ids == nil {
		ids = domain.UUIDGenerator{}
	}
	g := domain.GraphFromFragment(domain.CreateFragment(initial.Fragment))
	return &Session{initial: g, graph: g, ids: ids}
}

// Graph returns a copy of the current graph
func (s *Session) Graph() domain.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.Clone()
}

// Log returns the applied commands in order
func (s *Session) Log() []LogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.log)
}

// Dispatch applies cmd to the current graph. The result must satisfy the
// graph invariants; otherwise the graph is left unchanged and an error
// wrapping ErrInvariantViolation is returned.
func (s *Session) Dispatch(cmd Command) (domain.Graph, LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &recordingGenerator{base: s.ids}
	next, err := apply(cmd, domain.NewEditor(rec), s.graph)
	if err != nil {
		return s.graph.Clone(), LogEntry{}, err
	}

	entry := LogEntry{Seq: len(s.log) + 1, Command: cmd, IDs: rec.ids}
	s.graph = next
	s.log = append(s.log, entry)
	return next.Clone(), entry, nil
}

// Reset replaces the session with a new initial graph and log. The log must
// already have been applied to reach current.
func (s *Session) Reset(initial, current domain.Graph, log []LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initial = initial.Clone()
	s.graph = current.Clone()
	s.log = slices.Clone(log)
}

// Initial returns a copy of the graph the log starts from
func (s *Session) Initial() domain.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initial.Clone()
}

// Replay applies entries to initial in order, reusing the recorded ids so
// the result matches the original session
func Replay(initial domain.Graph, entries []LogEntry) (domain.Graph, error) {
	g := initial.Clone()
	for _, entry := range entries {
		gen := &replayGenerator{ids: entry.IDs, fallback: domain.UUIDGenerator{}}
		next, err := apply(entry.Command, domain.NewEditor(gen), g)
		if err != nil {
			return g, fmt.Errorf("replay entry %d: %w", entry.Seq, err)
		}
		g = next
	}
	return g, nil
}

func apply(cmd Command, ed *domain.Editor, g domain.Graph) (domain.Graph, error) {
	next, err := cmd.Apply(ed, g)
	if err != nil {
		return g, fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	if err := next.Validate(); err != nil {
		return g, fmt.Errorf("%w: %s: %w", ErrInvariantViolation, cmd.Name(), err)
	}
	return next, nil
}

// recordingGenerator remembers every id it hands out
type recordingGenerator struct {
	base domain.IDGenerator
	ids  []string
}

func (r *recordingGenerator) NewID(kind string) string {
	id := r.base.NewID(kind)
	r.ids = append(r.ids, id)
	return id
}

// replayGenerator hands out recorded ids, then falls back to fresh ones
type replayGenerator struct {
	ids      []string
	next     int
	fallback domain.IDGenerator
}

func (r *replayGenerator) NewID(kind string) string {
	if r.next < len(r.ids) {
		id := r.ids[r.next]
		r.next++
		return id
	}
	return r.fallback.NewID(kind)
}
