package calcflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Unit IDs of the built-in compute units
const (
	AdderID      = "adder"
	MultiplierID = "multiplier"
)

// Handler is the invocation contract every compute unit satisfies
type Handler interface {
	Handle(ctx context.Context, req InvocationRequest) (InvocationResult, error)
}

// HandlerFunc adapts a plain function to Handler
type HandlerFunc func(ctx context.Context, req InvocationRequest) (InvocationResult, error)

// Handle calls f(ctx, req)
func (f HandlerFunc) Handle(ctx context.Context, req InvocationRequest) (InvocationResult, error) {
	return f(ctx, req)
}

// Operation is the pure arithmetic a unit performs
type Operation func(a, b int64) int64

// Unit is a stateless compute unit: one pure operation behind the handler contract.
// A Unit is safe for concurrent use.
type Unit struct {
	ID          string
	Name        string
	Description string

	op     Operation
	policy InputPolicy
}

// UnitOption configures a unit
type UnitOption func(*Unit)

// WithInputPolicy sets how malformed request values are treated
func WithInputPolicy(policy InputPolicy) UnitOption {
	return func(u *Unit) {
		u.policy = policy
	}
}

// WithDescription sets the unit description
func WithDescription(description string) UnitOption {
	return func(u *Unit) {
		u.Description = description
	}
}

// NewUnit creates a unit around op
func NewUnit(id, name string, op Operation, opts ...UnitOption) *Unit {
	u := &Unit{
		ID:     id,
		Name:   name,
		op:     op,
		policy: InputLenient,
	}

	for _, opt := range opts {
		opt(u)
	}

	return u
}

// NewAdder creates the unit computing a + b + CustomAddOffset
func NewAdder(opts ...UnitOption) *Unit {
	opts = append([]UnitOption{
		WithDescription(fmt.Sprintf("Returns a + b + %d", CustomAddOffset)),
	}, opts...)
	return NewUnit(AdderID, "Custom Add", CustomAdd, opts...)
}

// NewMultiplier creates the unit computing a * b
func NewMultiplier(opts ...UnitOption) *Unit {
	opts = append([]UnitOption{
		WithDescription("Returns a * b"),
	}, opts...)
	return NewUnit(MultiplierID, "Multiply", Multiply, opts...)
}

// Policy returns the unit's input policy
func (u *Unit) Policy() InputPolicy {
	return u.policy
}

// Handle applies the unit's operation. It never fails.
func (u *Unit) Handle(_ context.Context, req InvocationRequest) (InvocationResult, error) {
	return InvocationResult{Result: u.op(req.A, req.B)}, nil
}

// Decode decodes a raw payload with the unit's input policy
func (u *Unit) Decode(payload []byte) (InvocationRequest, error) {
	req, err := DecodeRequest(payload, u.policy)
	if err != nil {
		if ie := ToInvocationError(err); ie.Function == "" {
			ie.WithFunction(u.ID)
		}
		return InvocationRequest{}, err
	}
	return req, nil
}

// Invoke runs the unit on a raw JSON payload and returns the raw JSON result
func (u *Unit) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := u.Decode(payload)
	if err != nil {
		return nil, err
	}

	result, err := u.Handle(ctx, req)
	if err != nil {
		return nil, err
	}

	out, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return out, nil
}

// Process decodes payload, handles it and logs the outcome.
// Defaulted fields are logged as warnings; rejected payloads are returned as errors.
func (u *Unit) Process(ctx context.Context, payload []byte, logger zerolog.Logger) (InvocationResult, error) {
	req, err := u.Decode(payload)
	if err != nil {
		LogUnitInputRejected(logger, u.ID, err)
		return InvocationResult{}, err
	}

	if u.policy != InputStrict {
		if fields := InvalidFields(payload); len(fields) > 0 {
			LogUnitInputDefaulted(logger, u.ID, fields)
		}
	}

	result, err := u.Handle(ctx, req)
	if err != nil {
		return InvocationResult{}, err
	}

	LogUnitInvoked(logger, u.ID, req, result)
	return result, nil
}

// Units returns the built-in units keyed by ID
func Units(opts ...UnitOption) map[string]*Unit {
	return map[string]*Unit{
		AdderID:      NewAdder(opts...),
		MultiplierID: NewMultiplier(opts...),
	}
}

// LookupUnit returns the built-in unit with the given ID
func LookupUnit(id string, opts ...UnitOption) (*Unit, error) {
	units := Units(opts...)
	u, ok := units[id]
	if !ok {
		ids := make([]string, 0, len(units))
		for k := range units {
			ids = append(ids, k)
		}
		sort.Strings(ids)
		return nil, NewInvocationError(ErrCodeNotFound, fmt.Sprintf("unknown unit %q, expected one of %v", id, ids))
	}
	return u, nil
}
