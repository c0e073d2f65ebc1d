package gateway

import (
	"strconv"
)

// Response is an upstream reply. Body is the decoded JSON object, empty when
// the payload was not a JSON object.
type Response struct {
	StatusCode int
	Body       map[string]any
	Raw        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Has reports whether key is present with a non-empty value.
func (r *Response) Has(key string) bool {
	v, ok := r.Body[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return s != ""
	}
	return true
}

// Succeeded is the success rule for every checkout call: a 2xx status and the
// operation's marker field present.
func (r *Response) Succeeded(marker string) bool {
	return r.OK() && r.Has(marker)
}

// String returns Body[key] rendered as a string, or "" when absent.
func (r *Response) String(key string) string {
	switch v := r.Body[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// OptionalString is String but nil when the key is absent or empty.
func (r *Response) OptionalString(key string) *string {
	s := r.String(key)
	if s == "" {
		return nil
	}
	return &s
}

// Int returns Body[key] as an integer and whether it could be read. Numeric
// strings are accepted.
func (r *Response) Int(key string) (int, bool) {
	switch v := r.Body[key].(type) {
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}
