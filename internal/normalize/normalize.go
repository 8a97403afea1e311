// Package normalize absorbs the backend's historically inconsistent field
// naming. Each logical field has an ordered list of source aliases; the
// first present, non-null value wins and missing fields default to the
// zero value. Nothing in here ever returns an error.
package normalize

import (
	"encoding/json"
	"strconv"
)

// Raw is a decoded JSON object straight off the wire.
type Raw = map[string]any

func str(m Raw, aliases ...string) string {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			switch t := v.(type) {
			case string:
				if t != "" {
					return t
				}
			case float64:
				// Some deployments send numeric ids.
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

func num(m Raw, aliases ...string) float64 {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			switch t := v.(type) {
			case float64:
				return t
			case json.Number:
				if f, err := t.Float64(); err == nil {
					return f
				}
			case string:
				if f, err := strconv.ParseFloat(t, 64); err == nil {
					return f
				}
			}
		}
	}
	return 0
}

func boolean(m Raw, aliases ...string) bool {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			if b, ok := v.(bool); ok {
				return b
			}
		}
	}
	return false
}

func object(m Raw, aliases ...string) Raw {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			if sub, ok := v.(map[string]any); ok {
				return sub
			}
		}
	}
	return nil
}

func list(m Raw, aliases ...string) []any {
	for _, k := range aliases {
		if v, ok := m[k]; ok && v != nil {
			if arr, ok := v.([]any); ok {
				return arr
			}
		}
	}
	return nil
}

func stringList(m Raw, aliases ...string) []string {
	arr := list(m, aliases...)
	if arr == nil {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
