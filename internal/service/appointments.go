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

// Appointments lists and filters appointment records from the doctor-server.
type Appointments struct {
	lister  port.AppointmentLister
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewAppointments creates the appointments service.
func NewAppointments(lister port.AppointmentLister, metrics *observability.Metrics, logger *zap.Logger) *Appointments {
	return &Appointments{lister: lister, metrics: metrics, logger: logger}
}

// Search fetches the doctor's appointments and applies the requested
// filters: exact calendar date, inclusive date range, and status. The
// result is always sorted descending by appointment date/time.
func (s *Appointments) Search(ctx context.Context, req *domain.AppointmentsRequest) (*domain.AppointmentsResult, error) {
	ctx, span := tracer.Start(ctx, "Appointments.Search")
	defer span.End()
	span.SetAttributes(attribute.String("doctor.id", req.DoctorID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("appointments_search", time.Since(start))
	}()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	rawList, err := s.lister.ListAppointments(ctx, req.DoctorID, req.PatientID)
	if err != nil {
		s.metrics.IncrDownstreamError("doctor-server")
		return nil, err
	}

	list := make([]domain.Appointment, 0, len(rawList))
	for _, raw := range rawList {
		list = append(list, normalize.Appointment(raw))
	}

	filtered := normalize.FilterAppointments(list, req.Date, req.StartDate, req.EndDate, req.Status)
	total := len(filtered)

	if req.Limit > 0 && req.Limit < len(filtered) {
		filtered = filtered[:req.Limit]
	}

	return &domain.AppointmentsResult{Appointments: filtered, Total: total}, nil
}
