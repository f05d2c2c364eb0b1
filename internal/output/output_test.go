package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseFormat accepts known formats case-insensitively.
func TestParseFormat(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]Format{"": FormatNone, "json": FormatJSON, "JSON": FormatJSON, "Txt": FormatTXT} {
		got, err := ParseFormat(raw)
		require.NoError(t, err, raw)
		require.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"foo", "csv", "jsonl"} {
		_, err := ParseFormat(raw)
		require.ErrorIs(t, err, ErrInvalidFormat, raw)
	}
}

// TestWriteJSONExactShape matches the documented output byte for byte.
func TestWriteJSONExactShape(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := Write(&buf, FormatJSON, Listing{URLs: []string{"https://example.com/a?x=1&y=2", "https://example.com/b"}})
	require.NoError(t, err)
	require.Equal(t, `{"urls":["https://example.com/a?x=1&y=2","https://example.com/b"],"sitemaps":[]}`, buf.String())
}

// TestWriteTXTListing renders one bullet per URL.
func TestWriteTXTListing(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTXT, Listing{
		URLs:     []string{"https://example.com/page", "https://example.com/other"},
		Sitemaps: []string{"https://example.com/pages.xml"},
	}))
	require.Equal(t, " * https://example.com/page\n * https://example.com/other\n", buf.String())

	require.ErrorIs(t, Write(&buf, FormatNone, Listing{}), ErrInvalidFormat)
}

// TestWriteFileCreatesParents writes into a nested path and truncates on rerun.
func TestWriteFileCreatesParents(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "urls.txt")
	require.NoError(t, WriteFile(path, FormatTXT, Listing{URLs: []string{"https://example.com/1", "https://example.com/2"}}))
	require.NoError(t, WriteFile(path, FormatTXT, Listing{URLs: []string{"https://example.com/3"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, " * https://example.com/3\n", string(data))

	_, err = CreateFile(" ")
	require.Error(t, err)
}
