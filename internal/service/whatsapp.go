package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/normalize"
	"github.com/medassist/clinic-bfa-go/internal/port"
	"github.com/medassist/clinic-bfa-go/internal/validate"
)

// WhatsApp orchestrates the per-tenant gateway session: QR pairing, manual
// sends, status checks and resets.
type WhatsApp struct {
	gateway port.WhatsAppGateway
	gate    port.ConversationGate
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewWhatsApp creates the WhatsApp relay service. The conversation gate is
// used to log manual messages into the history after delivery.
func NewWhatsApp(gateway port.WhatsAppGateway, gate port.ConversationGate, metrics *observability.Metrics, logger *zap.Logger) *WhatsApp {
	return &WhatsApp{gateway: gateway, gate: gate, metrics: metrics, logger: logger}
}

// QR fetches a pairing QR code for the tenant.
func (s *WhatsApp) QR(ctx context.Context, tenantID string) (*domain.QRResult, error) {
	ctx, span := tracer.Start(ctx, "WhatsApp.QR")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("whatsapp_qr", time.Since(start))
	}()

	qr, err := s.gateway.QRCode(ctx, tenantID)
	if err != nil {
		s.metrics.IncrDownstreamError("whatsapp")
		return nil, err
	}
	return &domain.QRResult{TenantID: tenantID, QR: qr}, nil
}

// SendManual delivers an operator message, then records it in the
// conversation history. A failed history write is a partial success: the
// message went out, so the caller still gets success with Logged=false.
func (s *WhatsApp) SendManual(ctx context.Context, tenantID string, req *domain.SendManualRequest) (*domain.SendManualResult, error) {
	ctx, span := tracer.Start(ctx, "WhatsApp.SendManual")
	defer span.End()
	span.SetAttributes(attribute.String("tenant.id", tenantID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("whatsapp_send_manual", time.Since(start))
	}()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	msgID, err := s.gateway.SendMessage(ctx, tenantID, req.Phone, req.Message)
	if err != nil {
		s.metrics.IncrDownstreamError("whatsapp")
		return nil, err
	}

	result := &domain.SendManualResult{Phone: req.Phone, MessageID: msgID, Logged: true}

	entry := &domain.ConversationLogEntry{
		DoctorID: tenantID,
		Phone:    req.Phone,
		Message:  req.Message,
		Sender:   "operator",
	}
	if err := s.gate.LogMessage(ctx, entry); err != nil {
		s.logger.Warn("whatsapp: message sent but conversation log write failed",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		s.metrics.IncrPartialSuccess("whatsapp_send_manual")
		result.Logged = false
	}

	return result, nil
}

// Session returns the tenant's session state mapped onto the fixed enum.
// An unreachable gateway does not fail the call: the session is simply
// reported as disconnected.
func (s *WhatsApp) Session(ctx context.Context, tenantID string) (*domain.SessionInfo, error) {
	ctx, span := tracer.Start(ctx, "WhatsApp.Session")
	defer span.End()

	raw, err := s.gateway.SessionStatus(ctx, tenantID)
	if err != nil {
		s.metrics.IncrDownstreamError("whatsapp")
		s.logger.Warn("whatsapp: session status unavailable",
			zap.String("tenant_id", tenantID),
			zap.Error(err),
		)
		return &domain.SessionInfo{TenantID: tenantID, Status: domain.SessionDisconnected}, nil
	}

	return &domain.SessionInfo{
		TenantID: tenantID,
		Status:   normalize.MapSessionStatus(raw),
	}, nil
}

// Reset tears down and restarts the tenant session.
func (s *WhatsApp) Reset(ctx context.Context, tenantID string) error {
	ctx, span := tracer.Start(ctx, "WhatsApp.Reset")
	defer span.End()

	if err := s.gateway.ResetSession(ctx, tenantID); err != nil {
		s.metrics.IncrDownstreamError("whatsapp")
		return err
	}

	s.logger.Info("whatsapp session reset", zap.String("tenant_id", tenantID))
	return nil
}
