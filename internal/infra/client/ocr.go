package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// OCRClient sends a PDF to the OCR sidecar, which rasterizes it page by
// page and runs recognition on each page. Implements port.PageRecognizer.
type OCRClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewOCRClient creates an OCR sidecar client.
func NewOCRClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *OCRClient {
	return &OCRClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		logger:     logger,
	}
}

// RecognizePages returns the recognized text of each page, in order.
// Pages with no recognizable text come back as empty strings.
func (c *OCRClient) RecognizePages(ctx context.Context, pdf []byte) ([]string, error) {
	ctx, span := tracer.Start(ctx, "OCRClient.RecognizePages")
	defer span.End()
	span.SetAttributes(attribute.Int("pdf.bytes", len(pdf)))

	result, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr/pages", bytes.NewReader(pdf))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/pdf")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusOK {
			c.logger.Warn("ocr: non-200 response", zap.Int("status", resp.StatusCode))
			return nil, fmt.Errorf("ocr service returned status %d", resp.StatusCode)
		}

		var out struct {
			Pages []string `json:"pages"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, err
		}
		return out.Pages, nil
	})
	if err != nil {
		return nil, wrapErr("ocr", "POST /ocr/pages", err)
	}
	return result.([]string), nil
}
