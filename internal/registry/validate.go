package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/loomgo/internal/ctxlog"
)

// Producer resolves an interface to the unique function declaring its
// channel. Zero candidates or more than one is a build-time error, per the
// interface resolution contract.
func (r *Registry) Producer(iface *Interface) (*Function, error) {
	var candidates []*Function
	for _, fn := range r.functions {
		for _, ch := range fn.Channels {
			if ch == iface.Channel {
				candidates = append(candidates, fn)
			}
		}
	}
	switch len(candidates) {
	case 0:
		return nil, fmt.Errorf("interface %q: no function declares channel %q", iface.Name, iface.Channel)
	case 1:
		return candidates[0], nil
	default:
		names := make([]string, len(candidates))
		for i, fn := range candidates {
			names[i] = fn.Name
		}
		return nil, fmt.Errorf("interface %q: ambiguous producers for channel %q: %s",
			iface.Name, iface.Channel, strings.Join(names, ", "))
	}
}

// Validate checks the integrity of the whole catalog: every function has a
// body and consistent parameters, and every interface resolves to exactly
// one producer.
func (r *Registry) Validate(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Validating registry.", "functions", len(r.functions), "interfaces", len(r.interfaces))

	for name, fn := range r.functions {
		if fn.Handler == nil {
			return fmt.Errorf("function %q has no handler bound", name)
		}
		if fn.Spec.Function != name {
			return fmt.Errorf("function %q carries a specification for %q", name, fn.Spec.Function)
		}
		if len(fn.Spec.Params) != len(fn.Params) {
			return fmt.Errorf("function %q: specification declares %d parameters, function declares %d",
				name, len(fn.Spec.Params), len(fn.Params))
		}
	}

	for _, iface := range r.interfaces {
		if _, err := r.Producer(iface); err != nil {
			return err
		}
	}

	logger.Debug("Registry validation passed.")
	return nil
}
