package crawler

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, caller-facing identifier for a crawl failure.
type ErrorCode int64

// Error codes reported by the discovery and fetch phases.
const (
	CodeInvalidURL         ErrorCode = 1657265973215
	CodeInvalidHeaders     ErrorCode = 1715514805
	CodeInvalidFormat      ErrorCode = 1657265268452
	CodeRobotsFetchFailed  ErrorCode = 1633234519166
	CodeSitemapFetchFailed ErrorCode = 1633234217716
	CodeGzipDecodeFailed   ErrorCode = 1715517082
	CodeXMLTransformFailed ErrorCode = 1715517272
	CodeURLFetchFailed     ErrorCode = 1633234397666
)

// String returns the symbolic name used in logs and metric labels.
func (c ErrorCode) String() string {
	switch c {
	case CodeInvalidURL:
		return "INVALID_URL"
	case CodeInvalidHeaders:
		return "INVALID_HEADERS"
	case CodeInvalidFormat:
		return "INVALID_FORMAT"
	case CodeRobotsFetchFailed:
		return "ROBOTS_FETCH_FAILED"
	case CodeSitemapFetchFailed:
		return "SITEMAP_FETCH_FAILED"
	case CodeGzipDecodeFailed:
		return "GZIP_DECODE_FAILED"
	case CodeXMLTransformFailed:
		return "XML_TRANSFORM_FAILED"
	case CodeURLFetchFailed:
		return "URL_FETCH_FAILED"
	default:
		return "UNKNOWN"
	}
}

// CrawlError is a collected, non-fatal failure.
type CrawlError struct {
	Code    ErrorCode
	Message string
}

// Error renders the error as "<code>: <message>".
func (e CrawlError) Error() string {
	return fmt.Sprintf("%d: %s", int64(e.Code), e.Message)
}

// Validation errors. They abort a run before any network activity.
var (
	ErrInvalidURL     = errors.New("invalid url")
	ErrInvalidHeaders = errors.New("invalid headers")
)

// CodeOf maps a validation error to its numeric code. The second return value
// is false when err does not wrap a known sentinel.
func CodeOf(err error) (ErrorCode, bool) {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return CodeInvalidURL, true
	case errors.Is(err, ErrInvalidHeaders):
		return CodeInvalidHeaders, true
	default:
		return 0, false
	}
}
