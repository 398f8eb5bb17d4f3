// Package client contains one HTTP adapter per downstream service: the
// doctor-server, the TISS billing microservice, the WhatsApp gateway, the
// Facebook Graph API, the OCR sidecar and the OpenAI endpoint. Each
// adapter owns its base URL, headers and timeouts, and wraps calls in the
// shared circuit breaker + retry policy.
package client

import (
	"context"
	"errors"
	"net"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"

	"github.com/medassist/clinic-bfa-go/internal/domain"
)

var tracer = otel.Tracer("client")

// wrapErr maps transport-level failures onto the relay's typed errors.
func wrapErr(service, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: service}
	}
	if isTimeout(err) {
		return &domain.ErrTimeout{Operation: operation}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
