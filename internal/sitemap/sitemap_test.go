package sitemap

import (
	"bytes"
	"compress/gzip"
	"testing"

	"github.com/stretchr/testify/require"
)

const urlSetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>
    https://example.com/a
  </loc></url>
  <url><loc>https://example.com/b</loc><lastmod>2024-05-01</lastmod></url>
</urlset>`

const indexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/one.xml</loc></sitemap>
</sitemapindex>`

// TestParseURLSet ensures url entries are returned trimmed and in order.
func TestParseURLSet(t *testing.T) {
	t.Parallel()

	node, err := Parse([]byte(urlSetXML))
	require.NoError(t, err)
	require.Equal(t, KindURLSet, node.Kind)
	require.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, node.Locations)
}

// TestParseSingleChildIndex verifies a lone <sitemap> still yields a list.
func TestParseSingleChildIndex(t *testing.T) {
	t.Parallel()

	node, err := Parse([]byte(indexXML))
	require.NoError(t, err)
	require.Equal(t, KindIndex, node.Kind)
	require.Equal(t, []string{"https://example.com/one.xml"}, node.Locations)
}

// TestParseWithoutNamespace accepts documents that omit xmlns.
func TestParseWithoutNamespace(t *testing.T) {
	t.Parallel()

	node, err := Parse([]byte(`<urlset><url><loc>https://example.com/</loc></url></urlset>`))
	require.NoError(t, err)
	require.Equal(t, KindURLSet, node.Kind)
	require.Len(t, node.Locations, 1)
}

// TestParseEmptyKinds treats well-formed documents without entries as empty.
func TestParseEmptyKinds(t *testing.T) {
	t.Parallel()

	for _, body := range []string{
		`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`,
		`<sitemapindex/>`,
		`<html><body>nothing here</body></html>`,
	} {
		node, err := Parse([]byte(body))
		require.NoError(t, err, body)
		require.Equal(t, KindEmpty, node.Kind, body)
		require.NotNil(t, node.Locations)
		require.Empty(t, node.Locations)
	}
}

// TestParseRejectsInvalidXML covers truncated and non-XML bodies.
func TestParseRejectsInvalidXML(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("<urlset><url><loc>https://example.com/"))
	require.Error(t, err)

	_, err = Parse([]byte("User-agent: *\nDisallow:"))
	require.Error(t, err)

	_, err = Parse([]byte("  \n"))
	require.ErrorIs(t, err, ErrEmptyDocument)
}

// TestParseDeclaredCharset decodes a Latin-1 document through the charset reader.
func TestParseDeclaredCharset(t *testing.T) {
	t.Parallel()

	body := []byte("<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<urlset><url><loc>https://example.com/gr\xfcn</loc></url></urlset>")
	node, err := Parse(body)
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/grün"}, node.Locations)
}

// TestGzipRoundTrip checks magic detection and inflation.
func TestGzipRoundTrip(t *testing.T) {
	t.Parallel()

	compressed := gzipBytes(t, []byte(urlSetXML))
	require.True(t, IsGzip(compressed))
	require.False(t, IsGzip([]byte(urlSetXML)))
	require.False(t, IsGzip([]byte{0x1f, 0x8b}))

	plain, err := Gunzip(compressed)
	require.NoError(t, err)
	require.Equal(t, urlSetXML, string(plain))

	_, err = Gunzip([]byte{0x1f, 0x8b, 0x08, 0x00, 0xde, 0xad})
	require.Error(t, err)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}
