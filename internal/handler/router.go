package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/port"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

var tracer = otel.Tracer("handler")

// Deps bundles everything the router needs.
type Deps struct {
	Patients      *service.Patients
	Appointments  *service.Appointments
	Conversations *service.Conversations
	WhatsApp      *service.WhatsApp
	TISS          *service.TISS
	Facebook      *service.Facebook
	Exams         *service.Exams

	TISSPinger port.TISSCaller

	Metrics *observability.Metrics
	Logger  *zap.Logger

	AllowedOrigins  string
	RateLimitPerMin int
	DevMode         bool
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(deps Deps) http.Handler {
	re := newResponder(deps.Logger, deps.Metrics, deps.DevMode)

	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(deps.Logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   splitOrigins(deps.AllowedOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Tenant-ID", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if deps.RateLimitPerMin > 0 {
		r.Use(httprate.LimitByIP(deps.RateLimitPerMin, time.Minute))
	}

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(deps.TISSPinger, re))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {

		// Patients & appointments (doctor-server)
		r.Post("/patients/lookup", patientLookupHandler(deps.Patients, re))
		r.Post("/appointments/search", appointmentsSearchHandler(deps.Appointments, re))

		// Conversation gate
		r.Post("/conversations/block", conversationBlockHandler(deps.Conversations, re))
		r.Get("/conversations/block", conversationBlockStatusHandler(deps.Conversations, re))

		// WhatsApp session (per-tenant)
		r.Route("/whatsapp", func(r chi.Router) {
			r.Use(RequireTenant(re))
			r.Get("/qr", whatsappQRHandler(deps.WhatsApp, re))
			r.Post("/send-manual", whatsappSendHandler(deps.WhatsApp, re))
			r.Get("/session", whatsappSessionHandler(deps.WhatsApp, re))
			r.Post("/session/reset", whatsappResetHandler(deps.WhatsApp, re))
		})

		// TISS billing relay
		r.Get("/tiss/stats", tissStatsHandler(deps.TISS, re))
		r.Get("/tiss/lotes/{loteId}/xml", tissLoteXMLHandler(deps.TISS, re))
		r.HandleFunc("/tiss/*", tissProxyHandler(deps.TISS, re))

		// Facebook integration
		r.Get("/facebook/oauth/start", facebookOAuthStartHandler(deps.Facebook, re))
		r.Get("/facebook/oauth/callback", facebookOAuthCallbackHandler(deps.Facebook, re))
		r.Post("/facebook/conversions", facebookConversionsHandler(deps.Facebook, re))

		// Exam extraction
		r.Post("/exams/extract", examExtractHandler(deps.Exams, re))

		// Relay metrics snapshot
		r.Get("/metrics/relay", relayMetricsHandler(deps.Metrics, re))
	})

	return r
}

func splitOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		out = []string{"*"}
	}
	return out
}

// ============================================================
// Health & metrics
// ============================================================

func healthzHandler(pinger port.TISSCaller, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		now := time.Now().Format(time.RFC3339)

		services := []domain.ServiceHealth{
			{Name: "clinic-bfa", Status: "healthy", LatencyMs: 0, LastChecked: now},
		}

		if pinger != nil {
			start := time.Now()
			_, err := pinger.Do(ctx, &domain.TISSCall{Method: http.MethodGet, Path: "/health"})
			latency := time.Since(start).Milliseconds()
			status := "healthy"
			if err != nil {
				status = "degraded"
			}
			services = append(services, domain.ServiceHealth{
				Name: "tiss-api", Status: status, LatencyMs: latency, LastChecked: now,
			})
		}

		overall := "healthy"
		for _, s := range services {
			if s.Status == "degraded" {
				overall = "degraded"
			}
		}

		re.writeData(w, r, http.StatusOK, domain.HealthStatus{
			Status:   overall,
			Services: services,
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func relayMetricsHandler(metrics *observability.Metrics, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		re.writeData(w, r, http.StatusOK, metrics.GetRelaySnapshot())
	}
}
