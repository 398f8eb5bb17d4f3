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
)

// FacebookClient posts Conversions API events to the Graph API. The
// payload handed to it is already hashed; this adapter only moves bytes.
type FacebookClient struct {
	httpClient  *http.Client
	graphURL    string
	apiVersion  string
	pixelID     string
	accessToken string
	cb          *gobreaker.CircuitBreaker
	logger      *zap.Logger
}

// NewFacebookClient creates a Graph API client.
func NewFacebookClient(httpClient *http.Client, graphURL, apiVersion, pixelID, accessToken string, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *FacebookClient {
	return &FacebookClient{
		httpClient:  httpClient,
		graphURL:    graphURL,
		apiVersion:  apiVersion,
		pixelID:     pixelID,
		accessToken: accessToken,
		cb:          cb,
		logger:      logger,
	}
}

// PublishEvents sends one Conversions API batch to the pixel's events edge.
func (c *FacebookClient) PublishEvents(ctx context.Context, payload *domain.ConversionsPayload) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "FacebookClient.PublishEvents")
	defer span.End()
	span.SetAttributes(attribute.Int("events.count", len(payload.Data)))

	if c.pixelID == "" || c.accessToken == "" {
		return nil, &domain.ErrNotConfigured{Setting: "facebook pixel/access token"}
	}

	result, err := c.cb.Execute(func() (any, error) {
		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		u := fmt.Sprintf("%s/%s/%s/events?access_token=%s",
			c.graphURL, c.apiVersion, c.pixelID, url.QueryEscape(c.accessToken))

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("facebook: graph API rejected events",
				zap.Int("status", resp.StatusCode),
				zap.String("body", string(respBody)),
			)
			return nil, fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, string(respBody))
		}

		out := map[string]any{}
		if err := json.Unmarshal(respBody, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, wrapErr("facebook", "POST /events", err)
	}
	return result.(map[string]any), nil
}
