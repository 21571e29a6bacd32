package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zclconf/go-cty/cty"

	"github.com/vk/loomgo/internal/callid"
	"github.com/vk/loomgo/internal/depspec"
)

// Call carries the fully resolved inputs of one dispatched call: the
// positional arguments and the evaluated dependency declarations by name.
// By the time a handler sees a Call, every symbolic reference has been
// replaced with the referenced result.
type Call struct {
	Args     []cty.Value
	Bindings map[string]cty.Value
}

// Binding returns the named dependency declaration's value, or cty.NilVal
// if the function declares no such name.
func (c *Call) Binding(name string) cty.Value {
	return c.Bindings[name]
}

// Handler is the body of a graph function. It receives the resolved call
// and returns the primary result plus any named output channels the
// function produces. Handlers run only during execution, never during
// graph construction.
type Handler func(ctx context.Context, call *Call) (cty.Value, map[string]cty.Value, error)

// Function is one declared graph function: its dependency specification,
// its body, and the channels its execution produces.
type Function struct {
	Name     string
	Params   []string
	Spec     *depspec.Spec
	Handler  Handler
	Channels []string

	desc callid.Descriptor
}

// Descriptor returns the function's content-derived identity.
func (f *Function) Descriptor() callid.Descriptor {
	return f.desc
}

// Interface is a named auxiliary entry point: a call to it resolves, at
// graph-build time, to the channel of the unique function that declares
// the interface's channel.
type Interface struct {
	Name    string
	Channel string
}

// Registry holds the declared functions and interfaces for one run. All
// registration happens up front; lookups during expansion and execution
// are read-only.
type Registry struct {
	functions  map[string]*Function
	interfaces map[string]*Interface
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		functions:  make(map[string]*Function),
		interfaces: make(map[string]*Interface),
	}
}

// RegisterFunction adds a declared function to the catalog. The function's
// content hash is computed here, from its declaration sources, so that a
// change to any declaration changes the identity of every call to it.
func (r *Registry) RegisterFunction(fn *Function) error {
	if fn.Name == "" {
		return fmt.Errorf("cannot register a function with no name")
	}
	if _, exists := r.functions[fn.Name]; exists {
		return fmt.Errorf("function %q already registered", fn.Name)
	}
	if fn.Spec == nil {
		fn.Spec = &depspec.Spec{Function: fn.Name, Params: fn.Params}
	}
	if err := fn.Spec.Validate(); err != nil {
		return err
	}
	fn.desc = callid.Descriptor{
		Name: fn.Name,
		Hash: callid.HashContent(fn.Name, fn.Params, fn.Spec.Sources(), fn.Channels),
	}
	slog.Debug("Registering graph function.", "name", fn.Name, "hash", fn.desc.Hash)
	r.functions[fn.Name] = fn
	return nil
}

// RegisterInterface adds an interface entry point to the catalog. The
// producing function is not named here; it is resolved during validation
// by locating the unique function that declares the channel.
func (r *Registry) RegisterInterface(iface *Interface) error {
	if iface.Name == "" || iface.Channel == "" {
		return fmt.Errorf("interface registration requires a name and a channel")
	}
	if _, exists := r.interfaces[iface.Name]; exists {
		return fmt.Errorf("interface %q already registered", iface.Name)
	}
	if _, exists := r.functions[iface.Name]; exists {
		return fmt.Errorf("interface %q collides with a function of the same name", iface.Name)
	}
	slog.Debug("Registering interface.", "name", iface.Name, "channel", iface.Channel)
	r.interfaces[iface.Name] = iface
	return nil
}

// BindHandler attaches a Go body to an already-registered function. The
// front-end loads declarations and the host program binds handlers, in
// either order relative to each other but both before validation.
func (r *Registry) BindHandler(name string, handler Handler) error {
	fn, ok := r.functions[name]
	if !ok {
		return fmt.Errorf("cannot bind handler: function %q not registered", name)
	}
	if fn.Handler != nil {
		return fmt.Errorf("handler for %q already bound", name)
	}
	fn.Handler = handler
	return nil
}

// Function looks up a declared function by name.
func (r *Registry) Function(name string) (*Function, bool) {
	fn, ok := r.functions[name]
	return fn, ok
}

// Interface looks up an interface by name.
func (r *Registry) Interface(name string) (*Interface, bool) {
	iface, ok := r.interfaces[name]
	return iface, ok
}

// Names returns the names of all registered functions in no particular order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	return names
}
