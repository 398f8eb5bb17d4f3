package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/port"
	"github.com/medassist/clinic-bfa-go/internal/validate"
)

// Conversations controls the AI-responder gate for patient phones.
type Conversations struct {
	gate    port.ConversationGate
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewConversations creates the conversation gate service.
func NewConversations(gate port.ConversationGate, metrics *observability.Metrics, logger *zap.Logger) *Conversations {
	return &Conversations{gate: gate, metrics: metrics, logger: logger}
}

// SetBlock blocks or unblocks the responder for a phone and relays the
// downstream result.
func (s *Conversations) SetBlock(ctx context.Context, req *domain.BlockRequest) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Conversations.SetBlock")
	defer span.End()
	span.SetAttributes(
		attribute.String("doctor.id", req.DoctorID),
		attribute.String("action", req.Action),
	)

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("conversation_block", time.Since(start))
	}()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	data, err := s.gate.SetBlock(ctx, req)
	if err != nil {
		s.metrics.IncrDownstreamError("doctor-server")
		return nil, err
	}

	s.logger.Info("conversation gate updated",
		zap.String("doctor_id", req.DoctorID),
		zap.String("action", req.Action),
	)
	return data, nil
}

// BlockStatus returns the current gate state for a phone.
func (s *Conversations) BlockStatus(ctx context.Context, doctorID, phone string) (*domain.BlockStatus, error) {
	ctx, span := tracer.Start(ctx, "Conversations.BlockStatus")
	defer span.End()

	if doctorID == "" || phone == "" {
		var missing []string
		if doctorID == "" {
			missing = append(missing, "doctorId")
		}
		if phone == "" {
			missing = append(missing, "phone")
		}
		return nil, &domain.ErrValidation{Fields: missing}
	}

	raw, err := s.gate.BlockStatus(ctx, doctorID, phone)
	if err != nil {
		s.metrics.IncrDownstreamError("doctor-server")
		return nil, err
	}

	status := &domain.BlockStatus{Phone: phone, AICanRespond: true}
	if b, ok := raw["isBlocked"].(bool); ok {
		status.IsBlocked = b
		status.AICanRespond = !b
	}
	if v, ok := raw["blockedUntil"].(string); ok {
		status.BlockedUntil = v
	}
	if v, ok := raw["reason"].(string); ok {
		status.Reason = v
	}
	return status, nil
}
