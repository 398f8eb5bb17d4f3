package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

// ============================================================
// TISS billing relay — /v1/tiss/*
// ============================================================

// tissProxyHandler relays any method under /v1/tiss to the billing
// microservice. The downstream status code and body are written back
// verbatim; only transport failures and create-validation errors get the
// envelope treatment.
func tissProxyHandler(svc *service.TISS, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), r.Method+" /v1/tiss/*")
		defer span.End()

		path := "/" + chi.URLParam(r, "*")
		span.SetAttributes(
			attribute.String("tiss.method", r.Method),
			attribute.String("tiss.path", path),
		)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "could not read request body")
			return
		}

		call := &domain.TISSCall{
			Method: r.Method,
			Path:   path,
			Query:  r.URL.Query(),
			Body:   body,
		}

		result, err := svc.Relay(ctx, call)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		writeRelayed(w, result)
	}
}

func tissLoteXMLHandler(svc *service.TISS, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tiss/lotes/{loteId}/xml")
		defer span.End()

		loteID := chi.URLParam(r, "loteId")
		if loteID == "" {
			re.writeFailure(w, r, http.StatusBadRequest, "loteId is required")
			return
		}
		span.SetAttributes(attribute.String("lote.id", loteID))

		result, err := svc.LoteXML(ctx, loteID)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", "application/xml")
		w.Header().Set("Content-Disposition", `attachment; filename="lote_`+loteID+`.xml"`)
		w.WriteHeader(result.StatusCode)
		w.Write(result.Body)
	}
}

func tissStatsHandler(svc *service.TISS, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tiss/stats")
		defer span.End()

		doctorID := r.URL.Query().Get("doctor_id")
		if doctorID == "" {
			doctorID = r.URL.Query().Get("doctorId")
		}

		stats, err := svc.Stats(ctx, doctorID)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, stats)
	}
}

func writeRelayed(w http.ResponseWriter, result *domain.TISSResult) {
	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(result.StatusCode)
	w.Write(result.Body)
}
