package robots

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const robotsBody = "User-agent: *\r\n" +
	"Disallow: /typo3/\r\n" +
	"Sitemap: https://example.com/sitemap.xml\r\n" +
	"sitemap: https://example.com/lower.xml\n" +
	"# Sitemap: https://example.com/commented.xml\n" +
	"Sitemap:   https://example.com/padded.xml   \n"

// TestStrictMatchesExactDirective only accepts case-sensitive "Sitemap: " lines.
func TestStrictMatchesExactDirective(t *testing.T) {
	t.Parallel()

	got, err := Strict([]byte(robotsBody))
	require.NoError(t, err)
	require.Equal(t, []string{
		"https://example.com/sitemap.xml",
		"https://example.com/padded.xml",
	}, got)
}

// TestStrictWithoutDirectives yields nothing and no error.
func TestStrictWithoutDirectives(t *testing.T) {
	t.Parallel()

	got, err := Strict([]byte("User-agent: *\nDisallow:\nSitemap: \n"))
	require.NoError(t, err)
	require.Empty(t, got)
}

// TestLenientAcceptsAnyCase also picks up lowercase directives.
func TestLenientAcceptsAnyCase(t *testing.T) {
	t.Parallel()

	got, err := Lenient([]byte(robotsBody))
	require.NoError(t, err)
	require.Contains(t, got, "https://example.com/sitemap.xml")
	require.Contains(t, got, "https://example.com/lower.xml")
	require.Contains(t, got, "https://example.com/padded.xml")
	require.NotContains(t, got, "https://example.com/commented.xml")
}

// TestParserFor picks the implementation by flag.
func TestParserFor(t *testing.T) {
	t.Parallel()

	body := []byte("sitemap: https://example.com/lower.xml\n")
	strict, err := ParserFor(false)(body)
	require.NoError(t, err)
	require.Empty(t, strict)

	lenient, err := ParserFor(true)(body)
	require.NoError(t, err)
	require.Equal(t, []string{"https://example.com/lower.xml"}, lenient)
}
