package domain

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// IDGenerator produces fresh entity ids for a kind ("node", "edge", "group", ...)
type IDGenerator interface {
	NewID(kind string) string
}

// UUIDGenerator creates ids of the form "<kind>-<uuid>"
type UUIDGenerator struct{}

// NewID returns a fresh random id
func (UUIDGenerator) NewID(kind string) string {
	return kind + "-" + uuid.NewString()
}

// SequenceGenerator creates predictable ids of the form "<kind>-<n>".
// It is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequenceGenerator creates a generator whose ids carry an optional prefix
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

// NewID returns the next id in the sequence
func (g *SequenceGenerator) NewID(kind string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	if g.prefix != "" {
		return fmt.Sprintf("%s%s-%d", g.prefix, kind, g.next)
	}
	return fmt.Sprintf("%s-%d", kind, g.next)
}

// NewID returns a fresh id from the default generator
func NewID(kind string) string {
	return defaultEditor.NewID(kind)
}
