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

// DoctorServerClient talks to the doctor-server, which owns patients,
// appointments and conversation state. Implements port.PatientDirectory,
// port.AppointmentLister and port.ConversationGate.
type DoctorServerClient struct {
	httpClient *http.Client
	baseURL    string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	logger     *zap.Logger
}

// NewDoctorServerClient creates a doctor-server client.
func NewDoctorServerClient(httpClient *http.Client, baseURL string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *DoctorServerClient {
	return &DoctorServerClient{
		httpClient: httpClient,
		baseURL:    baseURL,
		cb:         cb,
		cfg:        cfg,
		logger:     logger,
	}
}

// doRequest executes a JSON request against the doctor-server through the
// circuit breaker and retry policy. Returns the raw body; nil for 204/404.
func (c *DoctorServerClient) doRequest(ctx context.Context, method, path string, query url.Values, payload any) ([]byte, error) {
	result, err := c.cb.Execute(func() (any, error) {
		return resilienceBody(ctx, c.cfg, func() ([]byte, error) {
			u := fmt.Sprintf("%s%s", c.baseURL, path)
			if len(query) > 0 {
				u += "?" + query.Encode()
			}

			var reader io.Reader
			if payload != nil {
				b, err := json.Marshal(payload)
				if err != nil {
					return nil, err
				}
				reader = bytes.NewReader(b)
			}

			req, err := http.NewRequestWithContext(ctx, method, u, reader)
			if err != nil {
				return nil, err
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return nil, err
			}

			switch {
			case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent:
				return nil, nil
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				c.logger.Warn("doctor-server: non-2xx response",
					zap.String("method", method),
					zap.String("path", path),
					zap.Int("status", resp.StatusCode),
				)
				return nil, fmt.Errorf("doctor-server returned status %d: %s", resp.StatusCode, string(body))
			}
			return body, nil
		})
	})
	if err != nil {
		return nil, wrapErr("doctor-server", method+" "+path, err)
	}
	if result == nil {
		return nil, nil
	}
	return result.([]byte), nil
}

// resilienceBody adapts the byte-returning call to RetryWithBackoff.
func resilienceBody(ctx context.Context, cfg resilience.Config, fn func() ([]byte, error)) (any, error) {
	var out []byte
	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		var innerErr error
		out, innerErr = fn()
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPatients returns the raw patient records for a doctor.
func (c *DoctorServerClient) ListPatients(ctx context.Context, doctorID string) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "DoctorServerClient.ListPatients")
	defer span.End()
	span.SetAttributes(attribute.String("doctor.id", doctorID))

	q := url.Values{"doctorId": {doctorID}}
	body, err := c.doRequest(ctx, http.MethodGet, "/api/patients", q, nil)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return []map[string]any{}, nil
	}

	var out []map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.ErrExternalService{Service: "doctor-server", Err: err}
	}
	return out, nil
}

// GetPatient returns one raw patient record, or ErrNotFound.
func (c *DoctorServerClient) GetPatient(ctx context.Context, doctorID, patientID string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "DoctorServerClient.GetPatient")
	defer span.End()

	q := url.Values{"doctorId": {doctorID}}
	body, err := c.doRequest(ctx, http.MethodGet, "/api/patients/"+patientID, q, nil)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, &domain.ErrNotFound{Resource: "patient", ID: patientID}
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.ErrExternalService{Service: "doctor-server", Err: err}
	}
	return out, nil
}

// ListAppointments returns the raw appointment records for a doctor,
// optionally narrowed to one patient.
func (c *DoctorServerClient) ListAppointments(ctx context.Context, doctorID, patientID string) ([]map[string]any, error) {
	ctx, span := tracer.Start(ctx, "DoctorServerClient.ListAppointments")
	defer span.End()
	span.SetAttributes(attribute.String("doctor.id", doctorID))

	q := url.Values{"doctorId": {doctorID}}
	if patientID != "" {
		q.Set("patientId", patientID)
	}
	body, err := c.doRequest(ctx, http.MethodGet, "/api/appointments", q, nil)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return []map[string]any{}, nil
	}

	var out []map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.ErrExternalService{Service: "doctor-server", Err: err}
	}
	return out, nil
}

// SetBlock blocks or unblocks the AI responder for a phone.
func (c *DoctorServerClient) SetBlock(ctx context.Context, req *domain.BlockRequest) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "DoctorServerClient.SetBlock")
	defer span.End()

	body, err := c.doRequest(ctx, http.MethodPost, "/api/conversations/block", nil, req)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	if body != nil {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &domain.ErrExternalService{Service: "doctor-server", Err: err}
		}
	}
	return out, nil
}

// BlockStatus fetches the current block state for a phone.
func (c *DoctorServerClient) BlockStatus(ctx context.Context, doctorID, phone string) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "DoctorServerClient.BlockStatus")
	defer span.End()

	q := url.Values{"doctorId": {doctorID}, "phone": {phone}}
	body, err := c.doRequest(ctx, http.MethodGet, "/api/conversations/block", q, nil)
	if err != nil {
		return nil, err
	}

	out := map[string]any{}
	if body != nil {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, &domain.ErrExternalService{Service: "doctor-server", Err: err}
		}
	}
	return out, nil
}

// LogMessage appends a manual message to the conversation history.
func (c *DoctorServerClient) LogMessage(ctx context.Context, entry *domain.ConversationLogEntry) error {
	ctx, span := tracer.Start(ctx, "DoctorServerClient.LogMessage")
	defer span.End()

	_, err := c.doRequest(ctx, http.MethodPost, "/api/conversations/messages", nil, entry)
	return err
}
