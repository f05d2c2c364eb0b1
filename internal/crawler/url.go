package crawler

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"
)

// ValidateURL parses raw as an absolute URL. A scheme and a host are required
// and the string may not contain whitespace or control characters. Non-ASCII
// path characters are accepted.
func ValidateURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if strings.IndexFunc(raw, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) >= 0 {
		return nil, fmt.Errorf("%w: %q contains whitespace", ErrInvalidURL, raw)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidURL, raw, err)
	}
	if u.Scheme == "" || u.Host == "" || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q needs a scheme and a host", ErrInvalidURL, raw)
	}
	return u, nil
}

// IsValidURL reports whether raw passes ValidateURL.
func IsValidURL(raw string) bool {
	_, err := ValidateURL(raw)
	return err == nil
}

// robotsURLFor decides where discovery starts. It returns the robots.txt URL
// and true when the root should be read as robots.txt, or raw and false when
// it is a sitemap document.
func robotsURLFor(root *url.URL, raw string) (string, bool, error) {
	if root.Path == "/robots.txt" {
		return raw, true, nil
	}
	if (root.Path == "" || root.Path == "/") && root.RawQuery == "" && !root.ForceQuery {
		if root.Scheme == "" || root.Host == "" {
			return "", false, fmt.Errorf("%w: cannot derive robots.txt from %q", ErrInvalidURL, raw)
		}
		robots := url.URL{Scheme: root.Scheme, Host: root.Host, Path: "/robots.txt"}
		return robots.String(), true, nil
	}
	return raw, false, nil
}
