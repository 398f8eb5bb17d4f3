// Package port defines the interfaces between the relay services and the
// downstream client adapters. Services accept these interfaces; infra
// returns concrete clients.
package port

import (
	"context"

	"github.com/medassist/clinic-bfa-go/internal/domain"
)

// PatientDirectory reads patient records from the doctor-server.
// Records come back as raw maps because the downstream uses several
// field-name variants; normalization happens on our side.
type PatientDirectory interface {
	ListPatients(ctx context.Context, doctorID string) ([]map[string]any, error)
	GetPatient(ctx context.Context, doctorID, patientID string) (map[string]any, error)
}

// AppointmentLister reads appointment records from the doctor-server.
type AppointmentLister interface {
	ListAppointments(ctx context.Context, doctorID, patientID string) ([]map[string]any, error)
}

// ConversationGate controls whether the AI responder may answer a phone,
// and records manual messages in the conversation history.
type ConversationGate interface {
	SetBlock(ctx context.Context, req *domain.BlockRequest) (map[string]any, error)
	BlockStatus(ctx context.Context, doctorID, phone string) (map[string]any, error)
	LogMessage(ctx context.Context, entry *domain.ConversationLogEntry) error
}

// WhatsAppGateway talks to the per-tenant WhatsApp session service.
type WhatsAppGateway interface {
	QRCode(ctx context.Context, tenantID string) (string, error)
	SendMessage(ctx context.Context, tenantID, phone, message string) (string, error)
	SessionStatus(ctx context.Context, tenantID string) (string, error)
	ResetSession(ctx context.Context, tenantID string) error
}

// TISSCaller proxies calls to the TISS billing microservice and exposes
// the two stats aggregates fetched by the fan-out.
type TISSCaller interface {
	Do(ctx context.Context, call *domain.TISSCall) (*domain.TISSResult, error)
	GuiaStats(ctx context.Context, doctorID string) (map[string]any, error)
	LoteStats(ctx context.Context, doctorID string) (map[string]any, error)
}

// EventPublisher sends a hashed Conversions API payload to the Graph API.
type EventPublisher interface {
	PublishEvents(ctx context.Context, payload *domain.ConversionsPayload) (map[string]any, error)
}

// TextExtractor pulls embedded text straight out of a PDF.
type TextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// PageRecognizer rasterizes a PDF page by page and runs OCR on each page.
type PageRecognizer interface {
	RecognizePages(ctx context.Context, pdf []byte) ([]string, error)
}

// ExamGrouper asks the LLM to group extracted exam text by category.
type ExamGrouper interface {
	GroupExamText(ctx context.Context, text string) (map[string]any, domain.TokenUsage, error)
}

// Cache is a generic TTL cache (see infra/cache).
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
