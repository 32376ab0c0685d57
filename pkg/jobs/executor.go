package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Executor runs one kind of AI job. Execute receives the payload the client
// enqueued and returns the JSON result stored on the job row.
type Executor interface {
	Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
}

// FastExecutor is an optional extension for executors that can sometimes
// answer immediately, for example when the requested artifact already
// exists. TryFast returning ok=true short-circuits job creation and the
// handler responds with the result directly.
type FastExecutor interface {
	Executor
	TryFast(ctx context.Context, payload json.RawMessage) (result json.RawMessage, ok bool, err error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

func (f ExecutorFunc) Execute(ctx context.Context, payload json.RawMessage) (json.RawMessage, error) {
	return f(ctx, payload)
}

// Registry maps job kinds to their executors.
type Registry struct {
	mu        sync.RWMutex
	executors map[string]Executor
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]Executor)}
}

// Register binds an executor to a job kind, replacing any previous binding.
func (r *Registry) Register(kind string, exec Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[kind] = exec
}

// Lookup returns the executor for a kind.
func (r *Registry) Lookup(kind string) (Executor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exec, ok := r.executors[kind]
	if !ok {
		return nil, fmt.Errorf("no executor registered for job kind %q", kind)
	}
	return exec, nil
}
