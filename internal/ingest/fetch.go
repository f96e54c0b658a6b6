package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultMaxDocumentBytes caps a fetched document when no limit is set.
const DefaultMaxDocumentBytes int64 = 64 << 20

// NetworkSchemes are the schemes a network-facing worker accepts.
var NetworkSchemes = []string{"http", "https"}

// ErrDocumentTooLarge is returned when a document exceeds the size limit.
var ErrDocumentTooLarge = errors.New("document exceeds size limit")

// acceptHeader lists the serializations the default registry can parse.
const acceptHeader = "text/turtle, application/n-triples;q=0.9, application/n-quads;q=0.9, application/ld+json;q=0.8, */*;q=0.1"

// Document is a fetched resource.
type Document struct {
	URL         string
	ContentType string
	Body        []byte
}

// Fetcher retrieves documents. Implementations must not retry.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, headers map[string]string) (*Document, error)
}

// HTTPFetcher fetches http(s) URLs with an http.Client and reads file://
// URLs and bare paths from disk. Bodies larger than MaxBytes fail with
// ErrDocumentTooLarge; zero means DefaultMaxDocumentBytes.
type HTTPFetcher struct {
	Client   *http.Client
	MaxBytes int64
}

// NewHTTPFetcher returns a fetcher using a client without its own timeout;
// deadlines come from the request context.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{Client: &http.Client{}, MaxBytes: DefaultMaxDocumentBytes}
}

// SchemeOf returns the lower-case scheme of rawURL. Bare paths report "file".
func SchemeOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("fetch: invalid url %q: %w", rawURL, err)
	}
	if u.Scheme == "" {
		return "file", nil
	}
	return strings.ToLower(u.Scheme), nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: HTTP %s", e.URL, e.Status)
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string, headers map[string]string) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: invalid url %q: %w", rawURL, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, rawURL, headers)
	case "file":
		return readFile(ctx, u.Path, rawURL, f.limit())
	case "":
		return readFile(ctx, rawURL, rawURL, f.limit())
	default:
		return nil, fmt.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, rawURL string, headers map[string]string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := readLimited(resp.Body, f.limit())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %w", rawURL, err)
	}
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Document{URL: finalURL, ContentType: resp.Header.Get("Content-Type"), Body: body}, nil
}

func (f *HTTPFetcher) limit() int64 {
	if f.MaxBytes > 0 {
		return f.MaxBytes
	}
	return DefaultMaxDocumentBytes
}

// readLimited reads r up to maxBytes.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("%w (%d bytes)", ErrDocumentTooLarge, maxBytes)
	}
	return body, nil
}

func readFile(ctx context.Context, path, rawURL string, maxBytes int64) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer fh.Close()
	body, err := readLimited(fh, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &Document{URL: (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), Body: body}, nil
}

// isTimeout reports whether err came from a deadline.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func timeoutFor(ms int64, fallback time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
