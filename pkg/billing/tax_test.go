package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func float64Ptr(v float64) *float64 { return &v }

func TestCalculateTax(t *testing.T) {
	calc := TaxCalculator{}

	tests := []struct {
		name     string
		subtotal int64
		taxCtx   *TaxContext
		want     int64
	}{
		{
			name:     "default rate",
			subtotal: 50000,
			taxCtx:   &TaxContext{DefaultPercentage: float64Ptr(10)},
			want:     5000,
		},
		{
			name:     "override wins over default",
			subtotal: 50000,
			taxCtx:   &TaxContext{DefaultPercentage: float64Ptr(10), OverridePercentage: float64Ptr(20)},
			want:     10000,
		},
		{
			name:     "no tax configuration",
			subtotal: 50000,
			taxCtx:   &TaxContext{},
			want:     0,
		},
		{
			name:     "rounds to nearest cent",
			subtotal: 333,
			taxCtx:   &TaxContext{DefaultPercentage: float64Ptr(7.7)},
			want:     26, // 25.641 rounds up
		},
		{
			name:     "zero subtotal",
			subtotal: 0,
			taxCtx:   &TaxContext{DefaultPercentage: float64Ptr(10)},
			want:     0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calc.CalculateTax(tt.subtotal, tt.taxCtx))
		})
	}
}

func TestCalculateTaxReverseCharge(t *testing.T) {
	taxCtx := &TaxContext{DefaultPercentage: float64Ptr(10), ReverseCharge: true}

	t.Run("flag carried, tax computed by default", func(t *testing.T) {
		calc := TaxCalculator{}
		assert.Equal(t, int64(5000), calc.CalculateTax(50000, taxCtx))
	})

	t.Run("zeroed when policy enabled", func(t *testing.T) {
		calc := TaxCalculator{ZeroTaxOnReverseCharge: true}
		assert.Equal(t, int64(0), calc.CalculateTax(50000, taxCtx))
	})
}

func TestTaxContextEffectivePercentage(t *testing.T) {
	var nilCtx *TaxContext
	assert.Nil(t, nilCtx.EffectivePercentage())

	assert.Nil(t, (&TaxContext{}).EffectivePercentage())

	withDefault := &TaxContext{DefaultPercentage: float64Ptr(8)}
	assert.Equal(t, 8.0, *withDefault.EffectivePercentage())

	withBoth := &TaxContext{DefaultPercentage: float64Ptr(8), OverridePercentage: float64Ptr(19)}
	assert.Equal(t, 19.0, *withBoth.EffectivePercentage())
}
