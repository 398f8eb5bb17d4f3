package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/resilience"
)

// TISSClient proxies calls to the TISS billing microservice. Proxy calls
// relay the downstream status code and body verbatim; only transport-level
// failures become errors.
type TISSClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewTISSClient creates a TISS microservice client.
func NewTISSClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *TISSClient {
	return &TISSClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// Do forwards one call to the TISS service and returns the downstream
// response untranslated. Non-2xx statuses are NOT errors here: the proxy
// policy is to pass them through to the caller.
func (c *TISSClient) Do(ctx context.Context, call *domain.TISSCall) (*domain.TISSResult, error) {
	ctx, span := tracer.Start(ctx, "TISSClient.Do")
	defer span.End()
	span.SetAttributes(
		attribute.String("tiss.method", call.Method),
		attribute.String("tiss.path", call.Path),
	)

	result, err := c.cb.Execute(func() (any, error) {
		var out *domain.TISSResult
		err := resilience.RetryWithBackoff(ctx, c.cfg, func() error {
			u := fmt.Sprintf("%s/api/tiss%s", c.baseURL, call.Path)
			if len(call.Query) > 0 {
				u += "?" + call.Query.Encode()
			}

			var reader io.Reader
			if len(call.Body) > 0 {
				reader = bytes.NewReader(call.Body)
			}

			req, err := http.NewRequestWithContext(ctx, call.Method, u, reader)
			if err != nil {
				return err
			}
			if len(call.Body) > 0 {
				req.Header.Set("Content-Type", "application/json")
			}

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}

			out = &domain.TISSResult{
				StatusCode:  resp.StatusCode,
				ContentType: resp.Header.Get("Content-Type"),
				Body:        body,
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, wrapErr("tiss", call.Method+" "+call.Path, err)
	}
	return result.(*domain.TISSResult), nil
}

// statsRequest fetches one stats aggregate; unlike Do, a non-2xx here is
// an error because the caller needs parsed JSON, not a relayed status.
func (c *TISSClient) statsRequest(ctx context.Context, path, doctorID string) (map[string]any, error) {
	call := &domain.TISSCall{
		Method: http.MethodGet,
		Path:   path,
		Query:  url.Values{"doctor_id": {doctorID}},
	}
	res, err := c.Do(ctx, call)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		c.logger.Warn("tiss: stats call failed",
			zap.String("path", path),
			zap.Int("status", res.StatusCode),
		)
		return nil, &domain.ErrExternalService{
			Service: "tiss",
			Err:     fmt.Errorf("stats endpoint %s returned status %d", path, res.StatusCode),
		}
	}

	out := map[string]any{}
	if err := json.Unmarshal(res.Body, &out); err != nil {
		return nil, &domain.ErrExternalService{Service: "tiss", Err: err}
	}
	return out, nil
}

// GuiaStats fetches the guia aggregate for a doctor.
func (c *TISSClient) GuiaStats(ctx context.Context, doctorID string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "TISSClient.GuiaStats")
	defer span.End()
	return c.statsRequest(ctx, "/guias/stats", doctorID)
}

// LoteStats fetches the lote aggregate for a doctor.
func (c *TISSClient) LoteStats(ctx context.Context, doctorID string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "TISSClient.LoteStats")
	defer span.End()
	return c.statsRequest(ctx, "/lotes/stats", doctorID)
}
