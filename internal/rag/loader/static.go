package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"botcraft/internal/rag/upstream"

	"github.com/PuerkitoBio/goquery"
)

const maxPageSize = 10 << 20

// StaticRenderer fetches raw HTML and keeps its visible text. Pages that
// build their content with JavaScript come back mostly empty.
type StaticRenderer struct {
	client *http.Client
}

// NewStaticRenderer returns a renderer using client. A nil client gets one
// that refuses to connect to non-public addresses, redirects included.
func NewStaticRenderer(client *http.Client) *StaticRenderer {
	if client == nil {
		client = &http.Client{Transport: publicOnlyTransport()}
	}
	return &StaticRenderer{client: client}
}

func publicOnlyTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(network, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			addr, err := netip.ParseAddr(host)
			if err != nil || !isPublicAddr(addr) {
				return fmt.Errorf("%w: %s is not a public address", ErrInvalidURL, host)
			}
			return nil
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	transport.Proxy = nil
	return transport
}

func (s *StaticRenderer) Render(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "BotCraftCrawler/1.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, ErrInvalidURL) {
			return "", fmt.Errorf("fetch %s: %w", pageURL, err)
		}
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		statusErr := &upstream.StatusError{Provider: "crawler", Code: resp.StatusCode}
		if upstream.RetryableStatus(resp.StatusCode) {
			return "", fmt.Errorf("%w: %v", ErrFetchFailed, statusErr)
		}
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, statusErr)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return VisibleText(doc), nil
}

// VisibleText returns the text of doc's body without scripts, styles and
// other non-rendered elements, one block element per line.
func VisibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript, template, svg, iframe, head").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, h1, h2, h3, h4, h5, h6, tr, section, article, header, footer, blockquote, pre").Each(func(_ int, sel *goquery.Selection) {
		sel.AppendHtml("\n")
	})

	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}

	var lines []string
	for _, line := range strings.Split(body.Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
