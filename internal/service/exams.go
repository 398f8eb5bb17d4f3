package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/port"
)

const (
	examSourceText = "text"
	examSourceOCR  = "ocr"
)

// Exams runs the exam-report extraction pipeline: direct PDF text
// extraction, OCR fallback when the text layer is too thin, and LLM
// grouping of whatever text survived.
type Exams struct {
	extractor  port.TextExtractor
	recognizer port.PageRecognizer
	grouper    port.ExamGrouper
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewExams creates the exam extraction service.
func NewExams(extractor port.TextExtractor, recognizer port.PageRecognizer, grouper port.ExamGrouper, metrics *observability.Metrics, logger *zap.Logger) *Exams {
	return &Exams{
		extractor:  extractor,
		recognizer: recognizer,
		grouper:    grouper,
		metrics:    metrics,
		logger:     logger,
	}
}

// Extract runs the full pipeline over a PDF document. Direct extraction
// failing or coming back under the character threshold is not an error,
// it selects the OCR branch. OCR failing or yielding no text on top of a
// below-threshold direct pass is reported as insufficient text.
func (s *Exams) Extract(ctx context.Context, document []byte) (*domain.ExamReport, error) {
	ctx, span := tracer.Start(ctx, "Exams.Extract")
	defer span.End()
	span.SetAttributes(attribute.Int("document.bytes", len(document)))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("exam_extract", time.Since(start))
	}()

	text, source, err := s.extractText(ctx, document)
	if err != nil {
		return nil, err
	}
	chars := utf8.RuneCountInString(text)

	categories, usage, err := s.grouper.GroupExamText(ctx, text)
	if err != nil {
		s.metrics.IncrDownstreamError("openai")
		return nil, err
	}
	s.metrics.RecordTokens(usage.PromptTokens, usage.CompletionTokens)

	s.logger.Info("exam report extracted",
		zap.String("source", source),
		zap.Int("chars", chars),
		zap.Int("tokens", usage.TotalTokens),
	)

	return &domain.ExamReport{
		Categories: categories,
		Source:     source,
		Chars:      chars,
	}, nil
}

// extractText tries the direct text layer first and falls back to OCR.
// Once the fallback runs, OCR is the only remaining source: an OCR failure
// or an all-blank recognition means the document has no usable text, even
// when a few direct characters survived.
func (s *Exams) extractText(ctx context.Context, document []byte) (string, string, error) {
	direct := s.directExtract(ctx, document)
	if direct.Sufficient {
		return direct.Text, examSourceText, nil
	}

	pages, err := s.recognizer.RecognizePages(ctx, document)
	if err != nil {
		s.metrics.IncrDownstreamError("ocr")
		s.logger.Warn("ocr fallback failed", zap.Error(err))
		return "", "", &domain.ErrInsufficientText{Chars: utf8.RuneCountInString(direct.Text)}
	}

	var nonEmpty []string
	for _, page := range pages {
		if strings.TrimSpace(page) != "" {
			nonEmpty = append(nonEmpty, page)
		}
	}
	joined := strings.Join(nonEmpty, "\n\n")
	if joined == "" {
		return "", "", &domain.ErrInsufficientText{Chars: utf8.RuneCountInString(direct.Text)}
	}
	return joined, examSourceOCR, nil
}

func (s *Exams) directExtract(ctx context.Context, document []byte) domain.ExtractedText {
	text, err := s.extractor.ExtractText(ctx, document)
	if err != nil {
		s.logger.Warn("direct pdf extraction failed, falling back to ocr", zap.Error(err))
		return domain.ExtractedText{}
	}
	text = strings.TrimSpace(text)
	return domain.ExtractedText{
		Text:       text,
		Sufficient: utf8.RuneCountInString(text) >= domain.MinExtractedChars,
	}
}
