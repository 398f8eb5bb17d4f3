package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
)

// ============================================================
// Shared response helpers
// ============================================================

// responder writes the uniform response envelope. In dev mode downstream
// error detail is echoed to the caller; in production it is replaced with
// a generic message and kept in the logs only.
type responder struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	dev     bool
}

func newResponder(logger *zap.Logger, metrics *observability.Metrics, dev bool) *responder {
	return &responder{logger: logger, metrics: metrics, dev: dev}
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.New().String()
}

func (re *responder) writeJSON(w http.ResponseWriter, status int, env *domain.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(env)
}

func (re *responder) writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	re.metrics.IncrRequest("success")
	re.writeJSON(w, status, &domain.Envelope{
		Success:   true,
		Data:      data,
		RequestID: requestID(r),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (re *responder) writeFailure(w http.ResponseWriter, r *http.Request, status int, msg string) {
	re.metrics.IncrRequest("error")
	re.writeJSON(w, status, &domain.Envelope{
		Success:   false,
		Error:     msg,
		RequestID: requestID(r),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// handleServiceError maps domain errors to HTTP responses.
func (re *responder) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ErrValidation
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var notConfigured *domain.ErrNotConfigured
	var insufficientText *domain.ErrInsufficientText
	var xmlNotReady *domain.ErrXMLNotReady
	var invalidState *domain.ErrInvalidState
	var external *domain.ErrExternalService

	switch {
	case errors.As(err, &validation):
		re.logger.Debug("validation error", zap.String("error", err.Error()))
		re.writeFailure(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		re.logger.Debug("not found", zap.String("error", err.Error()))
		re.writeFailure(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &xmlNotReady):
		re.logger.Debug("lote xml not ready", zap.String("error", err.Error()))
		re.writeFailure(w, r, http.StatusNotFound, err.Error())
	case errors.As(err, &invalidState):
		re.logger.Warn("oauth state rejected", zap.String("error", err.Error()))
		re.writeFailure(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &insufficientText):
		re.logger.Warn("insufficient extracted text", zap.Int("chars", insufficientText.Chars))
		re.writeFailure(w, r, http.StatusInternalServerError, err.Error())
	case errors.As(err, &circuitOpen):
		re.logger.Error("circuit breaker open", zap.Error(err))
		re.writeFailure(w, r, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		re.logger.Error("request timeout", zap.Error(err))
		re.writeFailure(w, r, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &notConfigured):
		re.logger.Error("integration not configured", zap.Error(err))
		re.writeFailure(w, r, http.StatusInternalServerError, err.Error())
	case errors.As(err, &external):
		re.logger.Error("downstream failure", zap.String("service", external.Service), zap.Error(err))
		if re.dev {
			re.writeFailure(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		re.writeFailure(w, r, http.StatusInternalServerError, "internal server error")
	default:
		re.logger.Error("unhandled error", zap.Error(err))
		re.writeFailure(w, r, http.StatusInternalServerError, "internal server error")
	}
}
