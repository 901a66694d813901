package store

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// CoerceFavour converts a raw favour value to an int.
// Floats are accepted only when integral.
func CoerceFavour(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case int:
		return x, true
	case int32:
		return int(x), true
	case int64:
		if x > math.MaxInt || x < math.MinInt {
			return 0, false
		}
		return int(x), true
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return 0, false
		}
		if x >= math.MaxInt64 || x < math.MinInt64 {
			return 0, false
		}
		return int(x), true
	case json.Number:
		return CoerceFavour(string(x))
	case string:
		s := strings.TrimSpace(x)
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return CoerceFavour(f)
		}
	}
	return 0, false
}
