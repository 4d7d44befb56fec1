// Package timeutil normalizes the heterogeneous timestamp strings returned
// by the record store into instants in the project's fixed working offset
// (+04:00, Gulf Standard Time) and derives SLA priorities from due dates.
package timeutil

import (
	"math"
	"strings"
	"time"
)

// Priority tiers derived from days remaining until a due date.
const (
	PriorityUnknown  = "UNKNOWN"
	PriorityOverdue  = "OVERDUE"
	PriorityCritical = "CRITICAL" // D-5: due within 5 days
	PriorityHigh     = "HIGH"     // D-15: due within 15 days
	PriorityNormal   = "NORMAL"
)

// gst is the fixed target offset. All parsed instants are expressed here
// regardless of the input offset.
var gst = time.FixedZone("GST", 4*60*60)

// naive timestamp layouts, interpreted as UTC. The fractional-second verb
// also matches strings without a fraction.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// Now returns the current instant in the target offset.
func Now() time.Time {
	return time.Now().In(gst)
}

// ParseAny parses an ISO-8601 timestamp with a trailing Z, an explicit
// numeric offset, or no offset at all (treated as UTC). It returns nil on
// failure; the caller decides how to react.
func ParseAny(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = t.In(gst)
		return &t
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t = t.In(gst)
			return &t
		}
	}
	return nil
}

// Format renders t as ISO-8601 at second precision in the target offset.
// A nil input yields the empty string.
func Format(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(gst).Format("2006-01-02T15:04:05-07:00")
}

// DaysUntil returns the signed fractional days between now and due, rounded
// to two decimals. Positive means time remaining, negative means overdue.
// Nil due yields nil.
func DaysUntil(due *time.Time, now time.Time) *float64 {
	if due == nil {
		return nil
	}
	days := math.Round(due.Sub(now).Seconds()/86400.0*100) / 100
	return &days
}

// ClassifyPriority maps days-until-due onto an SLA tier. Boundaries are
// inclusive: 5 days is still CRITICAL, 15 days is still HIGH.
func ClassifyPriority(days *float64) string {
	switch {
	case days == nil:
		return PriorityUnknown
	case *days < 0:
		return PriorityOverdue
	case *days <= 5:
		return PriorityCritical
	case *days <= 15:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// ExtractByKey reads a field value rename-safely: the immutable field id
// key wins, then the human-editable field name, then nil. Every field read
// in the aggregation layer goes through this accessor so fallback order is
// derived exactly once.
func ExtractByKey(fields map[string]any, fieldID, fieldName string) any {
	if fieldID != "" {
		if v, ok := fields[fieldID]; ok {
			return v
		}
	}
	if fieldName != "" {
		if v, ok := fields[fieldName]; ok {
			return v
		}
	}
	return nil
}
