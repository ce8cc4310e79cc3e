package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/veldtops/fieldhand/internal/core/domain"
)

// ErrUnknownOperation is returned when a name resolves to no registered
// handler.
var ErrUnknownOperation = errors.New("unknown operation")

// Operation is a unit of work addressable by name. The name is the identity
// serialized into queue envelopes and job payloads, so both the enqueueing
// process and the worker must register the same set.
type Operation func(ctx context.Context, inv domain.Invocation) (any, error)

// Registry maps operation names to handlers. Registration happens at
// startup; lookups are concurrent.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

func (r *Registry) Register(name string, op Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("operation %q already registered", name)
	}
	r.ops[name] = op
	return nil
}

func (r *Registry) Get(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}
