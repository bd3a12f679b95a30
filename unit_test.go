package calcflow

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnits_Handle(t *testing.T) {
	adder := NewAdder()
	multiplier := NewMultiplier()
	ctx := context.Background()

	tests := []struct {
		name string
		unit *Unit
		req  InvocationRequest
		want int64
	}{
		{name: "adder empty", unit: adder, req: InvocationRequest{}, want: 3},
		{name: "adder values", unit: adder, req: InvocationRequest{A: 10, B: 20}, want: 33},
		{name: "adder fixture", unit: adder, req: InvocationRequest{A: 4, B: 5}, want: 12},
		{name: "multiplier empty", unit: multiplier, req: InvocationRequest{}, want: 0},
		{name: "multiplier values", unit: multiplier, req: InvocationRequest{A: 6, B: 7}, want: 42},
		{name: "multiplier fixture", unit: multiplier, req: InvocationRequest{A: 4, B: 5}, want: 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.unit.Handle(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Result)

			// Repeated identical calls give identical results
			again, err := tt.unit.Handle(ctx, tt.req)
			require.NoError(t, err)
			assert.Equal(t, got, again)
		})
	}
}

func TestUnit_Invoke(t *testing.T) {
	out, err := NewAdder().Invoke(context.Background(), []byte(`{"a":10,"b":20}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":33}`, string(out))

	out, err = NewMultiplier().Invoke(context.Background(), nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":0}`, string(out))

	_, err = NewAdder().Invoke(context.Background(), []byte(`[1]`))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, AdderID, ToInvocationError(err).Function)
}

func TestUnit_Concurrent(t *testing.T) {
	adder := NewAdder()

	var wg sync.WaitGroup
	results := make([]int64, 50)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := adder.Handle(context.Background(), InvocationRequest{A: int64(i), B: 1})
			if err == nil {
				results[i] = res.Result
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, int64(i)+1+CustomAddOffset, got)
	}
}

func TestUnit_Options(t *testing.T) {
	u := NewAdder()
	assert.Equal(t, AdderID, u.ID)
	assert.Equal(t, InputLenient, u.Policy())
	assert.Contains(t, u.Description, "a + b + 3")

	strict := NewMultiplier(WithInputPolicy(InputStrict), WithDescription("custom"))
	assert.Equal(t, InputStrict, strict.Policy())
	assert.Equal(t, "custom", strict.Description)

	subtract := NewUnit("subtract", "Subtract", func(a, b int64) int64 { return a - b })
	res, err := subtract.Handle(context.Background(), InvocationRequest{A: 9, B: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Result)
}

func TestUnit_Process(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	res, err := NewAdder().Process(context.Background(), []byte(`{"a":"x","b":2}`), logger)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Result)
	assert.Contains(t, buf.String(), EventUnitInputDefaulted)
	assert.Contains(t, buf.String(), EventUnitInvoked)

	buf.Reset()
	_, err = NewAdder(WithInputPolicy(InputStrict)).Process(context.Background(), []byte(`{"a":"x"}`), logger)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, buf.String(), EventUnitInputRejected)
	assert.NotContains(t, buf.String(), EventUnitInvoked)
}

func TestLookupUnit(t *testing.T) {
	u, err := LookupUnit(MultiplierID)
	require.NoError(t, err)
	assert.Equal(t, MultiplierID, u.ID)

	u, err = LookupUnit(AdderID, WithInputPolicy(InputStrict))
	require.NoError(t, err)
	assert.Equal(t, InputStrict, u.Policy())

	_, err = LookupUnit("divider")
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))

	assert.Len(t, Units(), 2)
}
