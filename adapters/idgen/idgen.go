// Package idgen provides ports.IDGenerator implementations. Cache manifests
// carry a generation id so that consumers can tell two builds apart.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/artpar/cassette/ports"
	"github.com/google/uuid"
)

// UUID generates random UUID v4 generation ids.
type UUID struct{}

// New returns a new UUID v4 string.
func (UUID) New() string {
	return uuid.New().String()
}

// Sequential generates predictable ids for tests.
type Sequential struct {
	prefix  string
	counter atomic.Uint64
}

// NewSequential creates a sequential generator producing prefix1, prefix2, ...
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New returns the next id.
func (s *Sequential) New() string {
	return s.prefix + strconv.FormatUint(s.counter.Add(1), 10)
}

// Reset restarts the sequence.
func (s *Sequential) Reset() {
	s.counter.Store(0)
}

var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = (*Sequential)(nil)
)
