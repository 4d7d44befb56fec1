package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAny(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"utc zulu", "2025-01-02T12:00:00Z", "2025-01-02T16:00:00+04:00"},
		{"explicit offset", "2025-01-02T12:00:00+02:00", "2025-01-02T14:00:00+04:00"},
		{"already local", "2025-01-02T12:00:00+04:00", "2025-01-02T12:00:00+04:00"},
		{"naive treated as utc", "2025-01-02T12:00:00", "2025-01-02T16:00:00+04:00"},
		{"naive with fraction", "2025-01-02T12:00:00.123456", "2025-01-02T16:00:00+04:00"},
		{"date only", "2025-01-02", "2025-01-02T04:00:00+04:00"},
		{"surrounding whitespace", "  2025-01-02T12:00:00Z  ", "2025-01-02T16:00:00+04:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAny(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, Format(got))
		})
	}
}

func TestParseAnyInvalid(t *testing.T) {
	for _, input := range []string{"", "   ", "not-a-date", "02/01/2025", "2025-13-45"} {
		assert.Nil(t, ParseAny(input), "input %q", input)
	}
}

func TestFormatNil(t *testing.T) {
	assert.Equal(t, "", Format(nil))
}

func TestDaysUntil(t *testing.T) {
	now := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)

	due := now.Add(36 * time.Hour)
	got := DaysUntil(&due, now)
	require.NotNil(t, got)
	assert.Equal(t, 1.5, *got)

	past := now.Add(-12 * time.Hour)
	got = DaysUntil(&past, now)
	require.NotNil(t, got)
	assert.Equal(t, -0.5, *got)

	// rounding to two decimals
	odd := now.Add(8*time.Hour + 1*time.Minute)
	got = DaysUntil(&odd, now)
	require.NotNil(t, got)
	assert.Equal(t, 0.33, *got)

	assert.Nil(t, DaysUntil(nil, now))
}

func TestClassifyPriority(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		days *float64
		want string
	}{
		{"nil", nil, PriorityUnknown},
		{"overdue", f(-0.01), PriorityOverdue},
		{"zero is critical", f(0), PriorityCritical},
		{"five is still critical", f(5), PriorityCritical},
		{"just above five", f(5.01), PriorityHigh},
		{"fifteen is still high", f(15), PriorityHigh},
		{"normal", f(15.01), PriorityNormal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPriority(tt.days))
		})
	}
}

func TestExtractByKey(t *testing.T) {
	fields := map[string]any{
		"fldABC": "by-id",
		"shptNo": "by-name",
	}

	assert.Equal(t, "by-id", ExtractByKey(fields, "fldABC", "shptNo"))
	assert.Equal(t, "by-name", ExtractByKey(fields, "fldMissing", "shptNo"))
	assert.Equal(t, "by-name", ExtractByKey(fields, "", "shptNo"))
	assert.Nil(t, ExtractByKey(fields, "fldMissing", "nope"))
	assert.Nil(t, ExtractByKey(nil, "fldABC", "shptNo"))
}
