package transport

import (
	"context"
	"testing"

	"github.com/sicko7947/calcflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalInvoker(t *testing.T) {
	inv := NewLocalInvoker(calcflow.NewAdder(), calcflow.NewMultiplier())
	assert.Equal(t, []string{calcflow.AdderID, calcflow.MultiplierID}, inv.Functions())

	ctx := context.Background()

	sum, err := inv.Invoke(ctx, calcflow.AdderID, calcflow.InvocationRequest{A: 10, B: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(33), sum.Result)

	product, err := inv.Invoke(ctx, calcflow.MultiplierID, calcflow.InvocationRequest{A: 6, B: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(42), product.Result)
}

func TestLocalInvoker_UnknownFunction(t *testing.T) {
	inv := NewLocalInvoker(calcflow.NewAdder())

	_, err := inv.Invoke(context.Background(), calcflow.MultiplierID, calcflow.InvocationRequest{})
	require.Error(t, err)
	assert.True(t, calcflow.IsNotFoundError(err))
}

func TestLocalInvoker_Register(t *testing.T) {
	inv := NewLocalInvoker().Register("subtract", calcflow.HandlerFunc(
		func(ctx context.Context, req calcflow.InvocationRequest) (calcflow.InvocationResult, error) {
			return calcflow.InvocationResult{Result: req.A - req.B}, nil
		},
	))

	res, err := inv.Invoke(context.Background(), "subtract", calcflow.InvocationRequest{A: 9, B: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Result)
}

func TestLocalInvoker_CancelledContext(t *testing.T) {
	inv := NewLocalInvoker(calcflow.NewAdder())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Invoke(ctx, calcflow.AdderID, calcflow.InvocationRequest{A: 1, B: 1})
	assert.Equal(t, calcflow.ErrCodeCancelled, calcflow.ErrorCode(err))
}
