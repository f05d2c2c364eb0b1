package sitemap

import (
	"bytes"
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Kind classifies a decoded sitemap document.
type Kind int

// Supported document kinds.
const (
	KindEmpty Kind = iota
	KindIndex
	KindURLSet
)

// String returns a human readable kind name for logs.
func (k Kind) String() string {
	switch k {
	case KindIndex:
		return "sitemapindex"
	case KindURLSet:
		return "urlset"
	default:
		return "empty"
	}
}

// Node is the decoded form of one sitemap document.
type Node struct {
	Kind Kind
	// Locations holds the trimmed <loc> values in document order. For an index
	// these are child sitemaps, for a url set they are page URLs.
	Locations []string
}

// ErrEmptyDocument is returned when there is nothing to decode.
var ErrEmptyDocument = errors.New("sitemap: empty document")

var gzipMagic = []byte{0x1f, 0x8b, 0x08}

type entry struct {
	Loc string `xml:"loc"`
}

// document matches both root elements. Field tags carry no namespace so any
// xmlns declared by the producer is accepted.
type document struct {
	Sitemaps []entry `xml:"sitemap"`
	URLs     []entry `xml:"url"`
}

// IsGzip reports whether data starts with the gzip magic bytes 1F 8B 08.
func IsGzip(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// Gunzip inflates a gzip member.
func Gunzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer reader.Close() //nolint:errcheck // read-only reader

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("inflate gzip body: %w", err)
	}
	return out, nil
}

// Parse decodes a sitemap document. A document with <sitemap> entries is an
// index, otherwise one with <url> entries is a url set, otherwise it is empty.
// Anything that is not well-formed XML returns an error.
func Parse(data []byte) (Node, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Node{}, ErrEmptyDocument
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	decoder.CharsetReader = charset.NewReaderLabel

	var doc document
	if err := decoder.Decode(&doc); err != nil {
		return Node{}, fmt.Errorf("decode sitemap xml: %w", err)
	}

	switch {
	case len(doc.Sitemaps) > 0:
		return Node{Kind: KindIndex, Locations: locations(doc.Sitemaps)}, nil
	case len(doc.URLs) > 0:
		return Node{Kind: KindURLSet, Locations: locations(doc.URLs)}, nil
	default:
		return Node{Kind: KindEmpty, Locations: []string{}}, nil
	}
}

func locations(entries []entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSpace(e.Loc))
	}
	return out
}
