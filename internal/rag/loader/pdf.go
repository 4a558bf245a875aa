package loader

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
)

// MaxPDFSize is the largest accepted upload.
const MaxPDFSize = 20 << 20

var licenseOnce sync.Once

// PDFExtractor reads page text with unipdf.
type PDFExtractor struct {
	licenseErr error
}

// NewPDFExtractor registers the metered unipdf license key once per process.
func NewPDFExtractor(licenseKey string) *PDFExtractor {
	p := &PDFExtractor{}
	if licenseKey == "" {
		return p
	}
	licenseOnce.Do(func() {
		p.licenseErr = license.SetMeteredKey(licenseKey)
	})
	return p
}

// LicenseError reports a failed license registration, if any.
func (p *PDFExtractor) LicenseError() error { return p.licenseErr }

// Detect returns the sniffed MIME type of data.
func Detect(data []byte) string {
	return mimetype.Detect(data).String()
}

// Extract returns the text of every page, pages separated by a blank line.
func (p *PDFExtractor) Extract(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty upload", ErrUnsupportedContent)
	}
	if len(data) > MaxPDFSize {
		return "", fmt.Errorf("%w: file exceeds %d MB", ErrUnsupportedContent, MaxPDFSize>>20)
	}
	if mt := mimetype.Detect(data); !mt.Is("application/pdf") {
		return "", fmt.Errorf("%w: got %s", ErrUnsupportedContent, mt.String())
	}

	reader, err := model.NewPdfReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: read pdf: %v", ErrUnsupportedContent, err)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return "", fmt.Errorf("%w: count pages: %v", ErrUnsupportedContent, err)
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := reader.GetPage(i)
		if err != nil {
			return "", fmt.Errorf("get page %d: %w", i, err)
		}
		ex, err := extractor.New(page)
		if err != nil {
			return "", fmt.Errorf("extractor for page %d: %w", i, err)
		}
		text, err := ex.ExtractText()
		if err != nil {
			return "", fmt.Errorf("extract page %d: %w", i, err)
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}
