package validator

import (
	"math"
	"time"
)

// primitiveConforms checks a value against a builtin range name. The second
// return names the expected shape for error messages.
func primitiveConforms(name string, value any) (bool, string) {
	switch name {
	case "string", "uri", "uriorcurie", "curie", "ncname", "objectidentifier":
		_, ok := value.(string)
		return ok, "a string"
	case "integer":
		return isIntegral(value), "an integer"
	case "float", "double", "decimal":
		switch value.(type) {
		case int, int64, float32, float64:
			return true, ""
		}
		return false, "a number"
	case "boolean":
		_, ok := value.(bool)
		return ok, "a boolean"
	case "date":
		return parsesAs(value, "2006-01-02"), "a date (YYYY-MM-DD)"
	case "datetime":
		return parsesAs(value, time.RFC3339), "an RFC 3339 datetime"
	case "time":
		return parsesAs(value, "15:04:05"), "a time (HH:MM:SS)"
	}
	return false, "a value of type " + name
}

// isIntegral accepts int kinds and whole floats; JSON decoding yields
// float64 for every number.
func isIntegral(value any) bool {
	switch v := value.(type) {
	case int, int64:
		return true
	case float64:
		return v == math.Trunc(v) && !math.IsInf(v, 0)
	case float32:
		f := float64(v)
		return f == math.Trunc(f)
	}
	return false
}

func parsesAs(value any, layout string) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	_, err := time.Parse(layout, s)
	return err == nil
}
