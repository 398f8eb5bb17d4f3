package service

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/port"
	"github.com/medassist/clinic-bfa-go/internal/validate"
)

// TISS relays billing calls to the TISS microservice. Proxy calls pass the
// downstream status and body through verbatim; creates are checked against
// the declared required-field sets first.
type TISS struct {
	caller  port.TISSCaller
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewTISS creates the TISS relay service.
func NewTISS(caller port.TISSCaller, metrics *observability.Metrics, logger *zap.Logger) *TISS {
	return &TISS{caller: caller, metrics: metrics, logger: logger}
}

// Relay validates create payloads and forwards the call. The downstream
// response is relayed untranslated, whatever its status code.
func (s *TISS) Relay(ctx context.Context, call *domain.TISSCall) (*domain.TISSResult, error) {
	ctx, span := tracer.Start(ctx, "TISS.Relay")
	defer span.End()
	span.SetAttributes(
		attribute.String("tiss.method", call.Method),
		attribute.String("tiss.path", call.Path),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("tiss_relay", time.Since(start))
	}()

	if op := createOperation(call); op != "" {
		payload := map[string]any{}
		if len(call.Body) > 0 {
			if err := json.Unmarshal(call.Body, &payload); err != nil {
				return nil, &domain.ErrValidation{Fields: validate.RequiredFields(op)}
			}
		}
		if err := validate.Required(op, payload); err != nil {
			return nil, err
		}
	}

	result, err := s.caller.Do(ctx, call)
	if err != nil {
		s.metrics.IncrDownstreamError("tiss")
		return nil, err
	}
	return result, nil
}

// createOperation maps a POST to a top-level TISS resource onto its
// required-field table key ("guias.create" etc). Nested paths and other
// methods are pass-through.
func createOperation(call *domain.TISSCall) string {
	if call.Method != http.MethodPost {
		return ""
	}
	trimmed := strings.Trim(call.Path, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return ""
	}
	op := trimmed + ".create"
	if validate.RequiredFields(op) == nil {
		return ""
	}
	return op
}

// LoteXML downloads the generated XML for a lote. A downstream 404 means
// the XML has not been generated yet and becomes a domain-specific error
// instead of a bare status relay.
func (s *TISS) LoteXML(ctx context.Context, loteID string) (*domain.TISSResult, error) {
	ctx, span := tracer.Start(ctx, "TISS.LoteXML")
	defer span.End()
	span.SetAttributes(attribute.String("lote.id", loteID))

	call := &domain.TISSCall{
		Method: http.MethodGet,
		Path:   "/lotes/" + loteID + "/xml",
	}
	result, err := s.caller.Do(ctx, call)
	if err != nil {
		s.metrics.IncrDownstreamError("tiss")
		return nil, err
	}
	if result.StatusCode == http.StatusNotFound {
		return nil, &domain.ErrXMLNotReady{LoteID: loteID}
	}
	return result, nil
}

// Stats fetches the guia and lote aggregates concurrently and combines
// them. Either branch failing fails the whole aggregation — no
// half-populated stats are ever returned.
func (s *TISS) Stats(ctx context.Context, doctorID string) (*domain.TISSStats, error) {
	ctx, span := tracer.Start(ctx, "TISS.Stats")
	defer span.End()
	span.SetAttributes(attribute.String("doctor.id", doctorID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("tiss_stats", time.Since(start))
	}()

	if doctorID == "" {
		return nil, &domain.ErrValidation{Fields: []string{"doctor_id"}}
	}

	var (
		guias map[string]any
		lotes map[string]any
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := s.caller.GuiaStats(gCtx, doctorID)
		if err != nil {
			s.logger.Error("failed to fetch guia stats",
				zap.String("doctor_id", doctorID),
				zap.Error(err),
			)
			s.metrics.IncrDownstreamError("tiss")
			return err
		}
		guias = out
		return nil
	})

	g.Go(func() error {
		out, err := s.caller.LoteStats(gCtx, doctorID)
		if err != nil {
			s.logger.Error("failed to fetch lote stats",
				zap.String("doctor_id", doctorID),
				zap.Error(err),
			)
			s.metrics.IncrDownstreamError("tiss")
			return err
		}
		lotes = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.TISSStats{Guias: guias, Lotes: lotes}, nil
}
