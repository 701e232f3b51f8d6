package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/droverhq/drover/internal/logging"
)

// Tool is the capability interface every pluggable tool implements.
type Tool interface {
	// Name returns the tool's unique name.
	Name() string

	// Description returns a description for the model.
	Description() string

	// Schema returns the JSON schema for the tool's input.
	Schema() json.RawMessage

	// Invoke runs the tool. A returned error (or a panic) is converted
	// to an error outcome at the registry boundary; it never reaches
	// the runner as a Go error.
	Invoke(ctx context.Context, input json.RawMessage) (*ToolOutcome, error)
}

// Descriptor is the immutable advertisement of a tool, sent to the model
// with each request.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// DuplicateToolError is returned by Register when the name is taken.
// A registration collision is a startup/config error, not a runtime one.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// UnknownToolError is returned by Invoke when the model asks for a tool
// that was never registered.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Name)
}

// Registry owns the set of available tools. Registration order is
// preserved so Describe produces byte-identical tool advertisements across
// requests, which keeps the provider's prompt cache warm.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool. Registering a name twice fails with
// *DuplicateToolError; use Replace to overwrite deliberately.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Replace registers a tool, overwriting any existing registration under
// the same name. Overwrites are allowed but never silent.
func (r *Registry) Replace(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if existing, exists := r.tools[name]; exists {
		logging.Warnf("[registry] tool %q already registered (%T), overwritten by %T", name, existing, tool)
		r.tools[name] = tool
		return
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
}

// Describe returns all tool descriptors in registration order. Idempotent:
// two calls without an intervening Register return identical output.
func (r *Registry) Describe() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		tool := r.tools[name]
		defs = append(defs, Descriptor{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Schema(),
		})
	}
	return defs
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Invoke dispatches a tool call by name. An unregistered name fails with
// *UnknownToolError before any invocation is attempted. Handler errors and
// panics are converted to an error outcome; they never propagate. The
// registry applies no timeout of its own; deadlines belong to the caller.
func (r *Registry) Invoke(ctx context.Context, name string, input json.RawMessage) (outcome *ToolOutcome, err error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	defer func() {
		if rec := recover(); rec != nil {
			logging.Errorf("[registry] tool %s panicked: %v", name, rec)
			outcome = &ToolOutcome{Error: fmt.Sprintf("tool %s panicked: %v", name, rec)}
			err = nil
		}
	}()

	result, invokeErr := tool.Invoke(ctx, input)
	if invokeErr != nil {
		return &ToolOutcome{Error: invokeErr.Error()}, nil
	}
	if result == nil {
		result = &ToolOutcome{}
	}
	return result, nil
}
