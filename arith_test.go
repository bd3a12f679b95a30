package calcflow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name                 string
		a, b                 int64
		add, custom, product int64
	}{
		{name: "zero", a: 0, b: 0, add: 0, custom: 3, product: 0},
		{name: "reference", a: 5, b: 3, add: 8, custom: 11, product: 15},
		{name: "shared fixture", a: 4, b: 5, add: 9, custom: 12, product: 20},
		{name: "negative", a: -3, b: 4, add: 1, custom: 4, product: -12},
		{name: "both negative", a: -2, b: -6, add: -8, custom: -5, product: 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.add, Add(tt.a, tt.b))
			assert.Equal(t, tt.custom, CustomAdd(tt.a, tt.b))
			assert.Equal(t, tt.product, Multiply(tt.a, tt.b))
		})
	}
}

func TestArithmetic_Wraps(t *testing.T) {
	assert.Equal(t, int64(math.MinInt64+2), CustomAdd(math.MaxInt64, 0))
	assert.Equal(t, int64(math.MinInt64), Multiply(math.MinInt64, -1))
}
