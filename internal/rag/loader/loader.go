// Package loader extracts plain text from uploaded PDFs and web pages.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"botcraft/internal/domain"
)

var (
	// ErrUnsupportedContent is returned for uploads that are not PDFs.
	ErrUnsupportedContent = fmt.Errorf("%w: unsupported content type, a PDF is required", domain.ErrValidation)
	// ErrInvalidURL is returned for URLs that cannot be crawled.
	ErrInvalidURL = fmt.Errorf("%w: invalid url", domain.ErrValidation)
	// ErrEmptyDocument is returned when a source yields no text.
	ErrEmptyDocument = fmt.Errorf("%w: no text could be extracted from the source", domain.ErrValidation)
	// ErrFetchFailed wraps timeouts and network failures while crawling.
	ErrFetchFailed = fmt.Errorf("fetch failed: %w", domain.ErrUpstreamUnavailable)
)

const DefaultFetchTimeout = 30 * time.Second

// Renderer turns a page URL into its visible text.
type Renderer interface {
	Render(ctx context.Context, pageURL string) (string, error)
}

// Loader turns a source into plain text.
type Loader struct {
	pdf      *PDFExtractor
	renderer Renderer
	timeout  time.Duration
	logger   *slog.Logger

	// allowPrivate skips the public host check; tests crawl httptest servers
	allowPrivate bool
}

// New creates a Loader. timeout bounds every URL fetch.
func New(pdf *PDFExtractor, renderer Renderer, timeout time.Duration, logger *slog.Logger) *Loader {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Loader{
		pdf:      pdf,
		renderer: renderer,
		timeout:  timeout,
		logger:   logger,
	}
}

// LoadPDF extracts the text of an uploaded PDF.
func (l *Loader) LoadPDF(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	text, err := l.pdf.Extract(data)
	if err != nil {
		return "", err
	}
	return nonEmpty(text)
}

// LoadURL renders pageURL and returns its visible text. Renderer failures
// other than the caller going away wrap ErrFetchFailed unless the renderer
// already classified them.
func (l *Loader) LoadURL(ctx context.Context, pageURL string) (string, error) {
	validate := ValidateURL
	if l.allowPrivate {
		validate = parseURL
	}
	normalized, err := validate(pageURL)
	if err != nil {
		return "", err
	}

	renderCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	start := time.Now()
	text, err := l.renderer.Render(renderCtx, normalized)
	if err != nil {
		l.logger.Warn("page render failed", "url", normalized, "error", err)
		switch {
		case ctx.Err() != nil:
			return "", err
		case errors.Is(err, domain.ErrValidation), errors.Is(err, ErrFetchFailed):
			return "", err
		default:
			return "", fmt.Errorf("%w: %s: %v", ErrFetchFailed, normalized, err)
		}
	}

	l.logger.Debug("page rendered", "url", normalized, "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
	return nonEmpty(text)
}

// ValidateURL checks that raw is an absolute http(s) URL whose host is not
// loopback, private or link-local, and returns it trimmed. Hostnames are
// not resolved here; the static renderer checks the dialed address.
func ValidateURL(raw string) (string, error) {
	normalized, err := parseURL(raw)
	if err != nil {
		return "", err
	}
	u, _ := url.Parse(normalized)
	if err := checkPublicHost(u.Hostname()); err != nil {
		return "", err
	}
	return normalized, nil
}

func parseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: url is empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidURL)
	}
	return u.String(), nil
}

func checkPublicHost(host string) error {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %s is not a public host", ErrInvalidURL, host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && !isPublicAddr(addr) {
		return fmt.Errorf("%w: %s is not a public address", ErrInvalidURL, host)
	}
	return nil
}

func isPublicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsValid() &&
		!addr.IsLoopback() &&
		!addr.IsPrivate() &&
		!addr.IsLinkLocalUnicast() &&
		!addr.IsLinkLocalMulticast() &&
		!addr.IsInterfaceLocalMulticast() &&
		!addr.IsMulticast() &&
		!addr.IsUnspecified()
}

func nonEmpty(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyDocument
	}
	return text, nil
}
