// Package extraval encodes scalar extra-metadata values as text for storage.
//
// The extra table stores every value as TEXT, so the original Go type is not
// recoverable on read. Format is the single place that decides the textual
// form of each supported scalar.
package extraval

import (
	"fmt"
	"strconv"
	"time"
)

// Format returns the stored text form of v.
//
//   - nil encodes as the empty string.
//   - Booleans encode as "true"/"false".
//   - Integers encode in base 10, floats in their shortest round-trip form.
//   - time.Time encodes as RFC 3339 in UTC.
//   - []byte is taken as UTF-8 text.
//   - fmt.Stringer values use String; anything else falls back to %v.
func Format(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case time.Time:
		return x.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// FormatMap encodes every value of m. A nil map yields an empty map.
func FormatMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = Format(v)
	}
	return out
}
