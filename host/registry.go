package host

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Handler executes one operation's external I/O with validated arguments.
// The returned value is serialized into the response envelope; a returned
// error becomes an error envelope and never terminates the host.
type Handler func(ctx context.Context, args Args) (any, error)

// Operation is a named, schema-described unit of work served by a Host.
type Operation struct {
	Name        string
	Description string
	Input       InputSchema
	Handler     Handler
}

// Registry holds the fixed set of operations a host serves. It is populated
// at startup and read-only afterwards, so lookups need no locking.
type Registry struct {
	ops map[string]Operation
}

// NewRegistry returns an empty operation registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds an operation under its name. A duplicate name, missing
// handler, or invalid schema is a startup configuration error.
func (r *Registry) Register(op Operation) error {
	name := strings.TrimSpace(op.Name)
	if name == "" {
		return fmt.Errorf("host: operation name is required")
	}
	if op.Handler == nil {
		return fmt.Errorf("host: operation %q has no handler", name)
	}
	if err := op.Input.check(); err != nil {
		return fmt.Errorf("host: operation %q: %w", name, err)
	}
	if _, exists := r.ops[name]; exists {
		return fmt.Errorf("host: operation %q is already registered", name)
	}
	r.ops[name] = op
	return nil
}

// Lookup returns the operation registered under name. A miss is a per-call
// condition reported to the caller, not a host fault.
func (r *Registry) Lookup(name string) (Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Names returns registered operation names in deterministic order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Operations returns registered operations sorted by name.
func (r *Registry) Operations() []Operation {
	ops := make([]Operation, 0, len(r.ops))
	for _, name := range r.Names() {
		ops = append(ops, r.ops[name])
	}
	return ops
}
