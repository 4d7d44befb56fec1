package jsonutil

import (
	"fmt"
	"strconv"
)

// FlexibleString converts a decoded JSON value to a string, handling cases
// where the record store returns numbers, booleans, or single-element
// collaborator arrays where text is expected. Returns empty string for nil.
func FlexibleString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		if len(val) == 1 {
			return FlexibleString(val[0])
		}
		return fmt.Sprintf("%v", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

// FlexibleFloat converts a decoded JSON value to a float64, accepting
// numeric strings as well as numbers. The second return reports success.
func FlexibleFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// FlexibleBool converts a decoded JSON value to a bool. Checkbox fields come
// back as booleans; some source systems send "true"/"false" strings instead.
func FlexibleBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(val)
		return err == nil && b
	case float64:
		return val != 0
	default:
		return false
	}
}
