package transport

import (
	"context"
	"fmt"
	"sort"

	"github.com/sicko7947/calcflow"
)

// LocalInvoker dispatches invocations to in-process handlers by function name
type LocalInvoker struct {
	handlers map[string]calcflow.Handler
}

var _ calcflow.Invoker = (*LocalInvoker)(nil)

// NewLocalInvoker creates an invoker serving the given units under their IDs
func NewLocalInvoker(units ...*calcflow.Unit) *LocalInvoker {
	inv := &LocalInvoker{handlers: make(map[string]calcflow.Handler, len(units))}
	for _, u := range units {
		inv.handlers[u.ID] = u
	}
	return inv
}

// Register serves h under function. It must not be called concurrently with Invoke.
func (i *LocalInvoker) Register(function string, h calcflow.Handler) *LocalInvoker {
	i.handlers[function] = h
	return i
}

// Functions returns the registered function names, sorted
func (i *LocalInvoker) Functions() []string {
	names := make([]string, 0, len(i.handlers))
	for name := range i.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke calls the handler registered for function
func (i *LocalInvoker) Invoke(ctx context.Context, function string, req calcflow.InvocationRequest) (calcflow.InvocationResult, error) {
	h, ok := i.handlers[function]
	if !ok {
		return calcflow.InvocationResult{}, calcflow.NewInvocationError(
			calcflow.ErrCodeNotFound,
			fmt.Sprintf("no handler registered for function %s", function),
		).WithFunction(function)
	}

	if err := ctx.Err(); err != nil {
		return calcflow.InvocationResult{}, calcflow.ToInvocationError(err).WithFunction(function)
	}

	return h.Handle(ctx, req)
}
