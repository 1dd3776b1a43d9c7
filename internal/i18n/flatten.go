package i18n

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"l10ntrack/pkg/models"
)

// Flatten walks doc depth first. Nested Documents extend the path with ".key";
// every other value, sequences included, is stringified at the current path.
func Flatten(doc Document) models.FlatKeyMap {
	out := make(models.FlatKeyMap)
	flattenInto(out, doc, "")
	return out
}

func flattenInto(out models.FlatKeyMap, doc Document, prefix string) {
	for key, value := range doc {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}

		if nested, ok := value.(Document); ok {
			flattenInto(out, nested, path)
			continue
		}
		out[path] = Stringify(value)
	}
}

// Stringify renders a leaf value. nil is "null", sequences are comma-joined,
// datetimes are RFC 3339 and floats use the shortest plain representation.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return formatFloat(t)
	case float32:
		return formatFloat(float64(t))
	case time.Time:
		return t.Format(time.RFC3339)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Stringify(e)
		}
		return strings.Join(parts, ",")
	case Document:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	case fmt.Stringer:
		// toml.LocalDate, LocalTime and LocalDateTime
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-7 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
