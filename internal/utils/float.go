package utils

import (
	"encoding/json"
	"math"
)

// ToFloat64 converts the numeric values produced by database drivers and JSON
// decoders to float64. Returns false for anything that is not a number.
func ToFloat64(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// MustToFloat64 converts a value to float64, returning 0 if conversion fails.
func MustToFloat64(v interface{}) float64 {
	f, _ := ToFloat64(v)
	return f
}

// RoundTo rounds v half away from zero to the given number of decimal places
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
