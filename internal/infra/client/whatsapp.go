package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
)

// WhatsAppClient talks to the per-tenant WhatsApp gateway. QR generation
// is slow (session bootstrap), so it gets its own longer deadline; all
// other actions use the action timeout.
type WhatsAppClient struct {
	httpClient    *http.Client
	baseURL       string
	qrTimeout     time.Duration
	actionTimeout time.Duration
	cb            *gobreaker.CircuitBreaker
	logger        *zap.Logger
}

// NewWhatsAppClient creates a WhatsApp gateway client. The http.Client
// must not carry its own timeout; deadlines are applied per call.
func NewWhatsAppClient(httpClient *http.Client, baseURL string, qrTimeout, actionTimeout time.Duration, cb *gobreaker.CircuitBreaker, logger *zap.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		httpClient:    httpClient,
		baseURL:       baseURL,
		qrTimeout:     qrTimeout,
		actionTimeout: actionTimeout,
		cb:            cb,
		logger:        logger,
	}
}

// doRequest executes one gateway call with a per-call deadline. The tenant
// travels in the X-Tenant-ID header. No retries: WhatsApp actions are not
// idempotent.
func (c *WhatsAppClient) doRequest(ctx context.Context, method, path, tenantID string, payload any, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := c.cb.Execute(func() (any, error) {
		var reader io.Reader
		if payload != nil {
			b, err := json.Marshal(payload)
			if err != nil {
				return nil, err
			}
			reader = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Tenant-ID", tenantID)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Warn("whatsapp: non-2xx response",
				zap.String("path", path),
				zap.String("tenant_id", tenantID),
				zap.Int("status", resp.StatusCode),
			)
			return nil, fmt.Errorf("whatsapp gateway returned status %d: %s", resp.StatusCode, string(body))
		}
		return body, nil
	})
	if err != nil {
		return nil, wrapErr("whatsapp", method+" "+path, err)
	}
	return result.([]byte), nil
}

// QRCode asks the gateway for a pairing QR image (base64).
func (c *WhatsAppClient) QRCode(ctx context.Context, tenantID string) (string, error) {
	ctx, span := tracer.Start(ctx, "WhatsAppClient.QRCode")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	body, err := c.doRequest(ctx, http.MethodGet, "/qr", tenantID, nil, c.qrTimeout)
	if err != nil {
		return "", err
	}

	var out struct {
		QR string `json:"qr"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &domain.ErrExternalService{Service: "whatsapp", Err: err}
	}
	return out.QR, nil
}

// SendMessage delivers one message and returns the gateway message ID.
func (c *WhatsAppClient) SendMessage(ctx context.Context, tenantID, phone, message string) (string, error) {
	ctx, span := tracer.Start(ctx, "WhatsAppClient.SendMessage")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	payload := map[string]string{"phone": phone, "message": message}
	body, err := c.doRequest(ctx, http.MethodPost, "/send", tenantID, payload, c.actionTimeout)
	if err != nil {
		return "", err
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &domain.ErrExternalService{Service: "whatsapp", Err: err}
	}
	return out.ID, nil
}

// SessionStatus returns the gateway's raw session status string; the
// service layer maps it onto the fixed enum.
func (c *WhatsAppClient) SessionStatus(ctx context.Context, tenantID string) (string, error) {
	ctx, span := tracer.Start(ctx, "WhatsAppClient.SessionStatus")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodGet, "/session/status", tenantID, nil, c.actionTimeout)
	if err != nil {
		return "", err
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &domain.ErrExternalService{Service: "whatsapp", Err: err}
	}
	return out.Status, nil
}

// ResetSession tears down and restarts the tenant session.
func (c *WhatsAppClient) ResetSession(ctx context.Context, tenantID string) error {
	ctx, span := tracer.Start(ctx, "WhatsAppClient.ResetSession")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodPost, "/session/reset", tenantID, nil, c.actionTimeout)
	return err
}
