package client

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"
)

// PDFTextExtractor pulls embedded text straight out of a PDF without
// rasterization. Scanned documents typically yield nothing here, which is
// the expected trigger for the OCR fallback, not a fault.
// Implements port.TextExtractor.
type PDFTextExtractor struct{}

// NewPDFTextExtractor creates a direct-text extractor.
func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{}
}

// ExtractText returns the concatenated embedded text of all pages.
// The pdf library panics on some malformed files; those are recovered and
// surfaced as ordinary errors so the caller can fall back to OCR.
func (e *PDFTextExtractor) ExtractText(_ context.Context, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parse panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
