package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/normalize"
	"github.com/medassist/clinic-bfa-go/internal/port"
	"github.com/medassist/clinic-bfa-go/internal/validate"
)

// Patients resolves patient lookups against the doctor-server and returns
// PII-masked views. A miss is a normal answer (found:false), not an error.
type Patients struct {
	directory port.PatientDirectory
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewPatients creates the patient lookup service.
func NewPatients(directory port.PatientDirectory, metrics *observability.Metrics, logger *zap.Logger) *Patients {
	return &Patients{directory: directory, metrics: metrics, logger: logger}
}

// Lookup finds a patient by ID or by phone. Phone comparison is
// digits-only and suffix-matching in either direction, so country-code
// prefix variation does not hide a match.
func (s *Patients) Lookup(ctx context.Context, req *domain.PatientLookupRequest) (*domain.PatientLookupResult, error) {
	ctx, span := tracer.Start(ctx, "Patients.Lookup")
	defer span.End()
	span.SetAttributes(attribute.String("doctor.id", req.DoctorID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("patient_lookup", time.Since(start))
	}()

	if err := validate.Struct(req); err != nil {
		return nil, err
	}
	if req.PatientID == "" && req.Phone == "" {
		return nil, &domain.ErrValidation{Fields: []string{"patientId or phone"}}
	}

	if req.PatientID != "" {
		raw, err := s.directory.GetPatient(ctx, req.DoctorID, req.PatientID)
		if err != nil {
			var notFound *domain.ErrNotFound
			if errors.As(err, &notFound) {
				return &domain.PatientLookupResult{Found: false, Patient: nil}, nil
			}
			s.metrics.IncrDownstreamError("doctor-server")
			return nil, err
		}
		p := normalize.Patient(raw)
		return &domain.PatientLookupResult{Found: true, Patient: &p}, nil
	}

	// Phone lookup scans the doctor's patients and matches locally.
	list, err := s.directory.ListPatients(ctx, req.DoctorID)
	if err != nil {
		s.metrics.IncrDownstreamError("doctor-server")
		return nil, err
	}

	for _, raw := range list {
		if normalize.PhoneMatch(normalize.RawPhone(raw), req.Phone) {
			p := normalize.Patient(raw)
			return &domain.PatientLookupResult{Found: true, Patient: &p}, nil
		}
	}

	s.logger.Debug("patient lookup: no match",
		zap.String("doctor_id", req.DoctorID),
	)
	return &domain.PatientLookupResult{Found: false, Patient: nil}, nil
}
