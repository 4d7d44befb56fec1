package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"nil", nil, ""},
		{"string", "SHPT-001", "SHPT-001"},
		{"integer number", float64(42), "42"},
		{"fractional number", 42.5, "42.5"},
		{"bool", true, "true"},
		{"single element array", []any{"owner@site"}, "owner@site"},
		{"nested single element", []any{float64(7)}, "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleString(tt.input))
		})
	}
}

func TestFlexibleFloat(t *testing.T) {
	got, ok := FlexibleFloat(float64(12.5))
	assert.True(t, ok)
	assert.Equal(t, 12.5, got)

	got, ok = FlexibleFloat("48")
	assert.True(t, ok)
	assert.Equal(t, 48.0, got)

	_, ok = FlexibleFloat("not a number")
	assert.False(t, ok)

	_, ok = FlexibleFloat(nil)
	assert.False(t, ok)
}

func TestFlexibleBool(t *testing.T) {
	assert.True(t, FlexibleBool(true))
	assert.True(t, FlexibleBool("true"))
	assert.True(t, FlexibleBool(float64(1)))
	assert.False(t, FlexibleBool(false))
	assert.False(t, FlexibleBool("no"))
	assert.False(t, FlexibleBool(float64(0)))
	assert.False(t, FlexibleBool(nil))
}
