package handler

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

// ============================================================
// Patients — POST /v1/patients/lookup
// ============================================================

func patientLookupHandler(svc *service.Patients, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/patients/lookup")
		defer span.End()

		var req domain.PatientLookupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("doctor.id", req.DoctorID))

		result, err := svc.Lookup(ctx, &req)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, result)
	}
}

// ============================================================
// Appointments — POST /v1/appointments/search
// ============================================================

func appointmentsSearchHandler(svc *service.Appointments, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/appointments/search")
		defer span.End()

		var req domain.AppointmentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("doctor.id", req.DoctorID))

		result, err := svc.Search(ctx, &req)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, result)
	}
}

// ============================================================
// Conversation gate — POST/GET /v1/conversations/block
// ============================================================

func conversationBlockHandler(svc *service.Conversations, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/conversations/block")
		defer span.End()

		var req domain.BlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.SetBlock(ctx, &req)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, result)
	}
}

func conversationBlockStatusHandler(svc *service.Conversations, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/conversations/block")
		defer span.End()

		doctorID := r.URL.Query().Get("doctorId")
		phone := r.URL.Query().Get("phone")

		status, err := svc.BlockStatus(ctx, doctorID, phone)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, status)
	}
}
