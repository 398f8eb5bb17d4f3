package handler

import (
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist/clinic-bfa-go/internal/service"
)

// Uploads above this are rejected before hitting the pipeline.
const maxExamUploadBytes = 20 << 20

// ============================================================
// Exam extraction — POST /v1/exams/extract
// ============================================================

func examExtractHandler(svc *service.Exams, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/exams/extract")
		defer span.End()

		if err := r.ParseMultipartForm(maxExamUploadBytes); err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "no file provided")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "no file provided")
			return
		}
		defer file.Close()
		span.SetAttributes(attribute.String("file.name", header.Filename))

		document, err := io.ReadAll(io.LimitReader(file, maxExamUploadBytes+1))
		if err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "could not read uploaded file")
			return
		}
		if len(document) > maxExamUploadBytes {
			re.writeFailure(w, r, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		report, err := svc.Extract(ctx, document)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, report)
	}
}
