package decimal_test

import (
	"encoding/json"
	"math"
	"testing"

	dec "github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rezonia/invoicer/internal/decimal"
)

func TestParseNumberOr(t *testing.T) {
	def := dec.NewFromInt(7)

	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"nil", nil, "7"},
		{"empty string", "", "7"},
		{"blank string", "   ", "7"},
		{"garbage string", "abc", "7"},
		{"leading number is not enough", "3abc", "7"},
		{"exponent", "1e2", "100"},
		{"numeric string", "12.5", "12.5"},
		{"padded string", " 40 ", "40"},
		{"zero string", "0", "0"},
		{"negative string", "-3", "7"},
		{"float", 8.5, "8.5"},
		{"nan", math.NaN(), "7"},
		{"inf", math.Inf(1), "7"},
		{"negative float", -0.01, "7"},
		{"int", 20, "20"},
		{"int64", int64(85), "85"},
		{"json number", json.Number("75"), "75"},
		{"bad json number", json.Number("x"), "7"},
		{"decimal", dec.NewFromInt(3), "3"},
		{"bool", true, "7"},
		{"slice", []string{"1"}, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decimal.ParseNumberOr(tt.input, def)
			assert.True(t, got.Equal(dec.RequireFromString(tt.expected)),
				"input %v: got %s, want %s", tt.input, got.String(), tt.expected)
		})
	}
}

func TestParseIntOr(t *testing.T) {
	one := dec.NewFromInt(1)

	assert.True(t, decimal.ParseIntOr("2.9", one).Equal(dec.NewFromInt(2)))
	assert.True(t, decimal.ParseIntOr("x", one).Equal(one))
	assert.True(t, decimal.ParseIntOr(0, one).IsZero())
}

func TestAmount(t *testing.T) {
	tests := []struct {
		quantity, rate, expected string
	}{
		{"40", "75", "3000"},
		{"3", "33.333", "99.999"},
		{"0", "85", "0"},
	}

	for _, tt := range tests {
		got := decimal.Amount(dec.RequireFromString(tt.quantity), dec.RequireFromString(tt.rate))
		assert.True(t, got.Equal(dec.RequireFromString(tt.expected)), "%s x %s = %s", tt.quantity, tt.rate, got)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		percentage string
		expected   string
	}{
		{"10% of 4700", "4700", "10", "470"},
		{"8.5% of 4230", "4230", "8.5", "359.55"},
		{"0% of 1000", "1000", "0", "0"},
		{"no rounding", "10", "33.333", "3.3333"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decimal.Percent(dec.RequireFromString(tt.amount), dec.RequireFromString(tt.percentage))
			assert.True(t, got.Equal(dec.RequireFromString(tt.expected)),
				"got %s, want %s", got.String(), tt.expected)
		})
	}
}

func TestSum(t *testing.T) {
	values := []dec.Decimal{
		dec.NewFromInt(100),
		dec.NewFromInt(200),
		dec.NewFromInt(300),
	}
	result := decimal.Sum(values)
	assert.True(t, result.Equal(dec.NewFromInt(600)))
}

func TestSum_Empty(t *testing.T) {
	result := decimal.Sum([]dec.Decimal{})
	assert.True(t, result.IsZero())
}

func TestIsPositive(t *testing.T) {
	assert.True(t, decimal.IsPositive(dec.NewFromInt(1)))
	assert.False(t, decimal.IsPositive(dec.Zero))
	assert.False(t, decimal.IsPositive(dec.NewFromInt(-1)))
}

func TestFixed2(t *testing.T) {
	assert.Equal(t, "3255.00", decimal.Fixed2(dec.NewFromInt(3255)))
	assert.Equal(t, "359.55", decimal.Fixed2(dec.RequireFromString("359.55")))
	assert.Equal(t, "0.13", decimal.Fixed2(dec.RequireFromString("0.125")))
}
