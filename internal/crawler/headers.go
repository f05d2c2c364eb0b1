package crawler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultUserAgent is sent when neither configuration nor the caller sets one.
const DefaultUserAgent = "sitecrawler"

// DefaultHeaders returns the merge base for every request.
func DefaultHeaders(userAgent string) http.Header {
	if strings.TrimSpace(userAgent) == "" {
		userAgent = DefaultUserAgent
	}
	h := make(http.Header)
	h.Set("User-Agent", userAgent)
	return h
}

// ParseHeaders decodes a JSON object of header overrides. Strings, numbers and
// booleans are accepted as values; null entries are ignored. Names that differ
// only in case are rejected. An empty input yields an empty header set.
func ParseHeaders(raw string) (http.Header, error) {
	out := make(http.Header)
	if strings.TrimSpace(raw) == "" {
		return out, nil
	}

	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.UseNumber()
	var fields map[string]any
	if err := decoder.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHeaders, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidHeaders)
	}
	if decoder.More() {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrInvalidHeaders)
	}

	seen := make(map[string]string, len(fields))
	for name, value := range fields {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: empty header name", ErrInvalidHeaders)
		}
		key := http.CanonicalHeaderKey(name)
		if other, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: header names %q and %q differ only in case", ErrInvalidHeaders, other, name)
		}
		seen[key] = name
		switch v := value.(type) {
		case nil:
		case string:
			out.Set(name, v)
		case json.Number:
			out.Set(name, v.String())
		case bool:
			out.Set(name, fmt.Sprintf("%t", v))
		default:
			return nil, fmt.Errorf("%w: header %q must be a scalar", ErrInvalidHeaders, name)
		}
	}
	return out, nil
}

// MergeHeaders layers overrides on top of defaults. Names are compared
// case-insensitively, so an override always replaces the default value.
func MergeHeaders(defaults, overrides http.Header) http.Header {
	merged := make(http.Header, len(defaults)+len(overrides))
	for name, values := range defaults {
		merged[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	for name, values := range overrides {
		merged[http.CanonicalHeaderKey(name)] = append([]string(nil), values...)
	}
	return merged
}
