// Package robots extracts sitemap declarations from robots.txt bodies.
package robots

import (
	"fmt"
	"strings"

	"github.com/temoto/robotstxt"
)

const sitemapDirective = "Sitemap: "

// Parser returns the sitemap URLs declared in a robots.txt body.
type Parser func(body []byte) ([]string, error)

// Strict matches lines that start with the literal "Sitemap: ", in file order.
// The remainder of the line is trimmed and used as the URL.
func Strict(body []byte) ([]string, error) {
	var out []string
	for _, line := range strings.Split(string(body), "\n") {
		rest, ok := strings.CutPrefix(line, sitemapDirective)
		if !ok {
			continue
		}
		if loc := strings.TrimSpace(rest); loc != "" {
			out = append(out, loc)
		}
	}
	return out, nil
}

// Lenient delegates to the robotstxt parser, which accepts the directive in
// any case and tolerates missing whitespace after the colon.
func Lenient(body []byte) ([]string, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	out := make([]string, 0, len(data.Sitemaps))
	for _, loc := range data.Sitemaps {
		if loc = strings.TrimSpace(loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out, nil
}

// ParserFor selects the lenient or strict parser.
func ParserFor(lenient bool) Parser {
	if lenient {
		return Lenient
	}
	return Strict
}
