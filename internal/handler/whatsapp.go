package handler

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

// ============================================================
// WhatsApp session — /v1/whatsapp/* (X-Tenant-ID required)
// ============================================================

func whatsappQRHandler(svc *service.WhatsApp, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/whatsapp/qr")
		defer span.End()

		tenant := tenantID(r)
		span.SetAttributes(attribute.String("tenant.id", tenant))

		result, err := svc.QR(ctx, tenant)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, result)
	}
}

func whatsappSendHandler(svc *service.WhatsApp, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/whatsapp/send-manual")
		defer span.End()

		tenant := tenantID(r)
		span.SetAttributes(attribute.String("tenant.id", tenant))

		var req domain.SendManualRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := svc.SendManual(ctx, tenant, &req)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, result)
	}
}

func whatsappSessionHandler(svc *service.WhatsApp, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/whatsapp/session")
		defer span.End()

		info, err := svc.Session(ctx, tenantID(r))
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, info)
	}
}

func whatsappResetHandler(svc *service.WhatsApp, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/whatsapp/session/reset")
		defer span.End()

		tenant := tenantID(r)
		if err := svc.Reset(ctx, tenant); err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, map[string]any{"tenantId": tenant, "reset": true})
	}
}
