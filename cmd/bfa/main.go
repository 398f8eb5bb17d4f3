package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/config"
	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/handler"
	"github.com/medassist/clinic-bfa-go/internal/infra/cache"
	"github.com/medassist/clinic-bfa-go/internal/infra/client"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/infra/resilience"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

func main() {
	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("tiss_api_url", cfg.TISSAPIURL),
		zap.String("doctor_server_url", cfg.DoctorServerURL),
		zap.String("whatsapp_url", cfg.WhatsAppURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Bool("dev_mode", cfg.DevMode),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "clinic-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}

	// One breaker per downstream so a dead service cannot trip the others.
	tissCB := resilience.NewCircuitBreaker("tiss-api")
	doctorCB := resilience.NewCircuitBreaker("doctor-server")
	whatsappCB := resilience.NewCircuitBreaker("whatsapp-gateway")
	facebookCB := resilience.NewCircuitBreaker("facebook-graph")
	openaiCB := resilience.NewCircuitBreaker("openai")
	ocrCB := resilience.NewCircuitBreaker("ocr-service")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	llmClient := &http.Client{Timeout: 90 * time.Second}
	// The WhatsApp client applies its deadlines per call; a client-level
	// timeout would cap the longer QR budget.
	whatsappHTTP := &http.Client{}

	doctorClient := client.NewDoctorServerClient(httpClient, cfg.DoctorServerURL, doctorCB, resilienceCfg, logger)
	tissClient := client.NewTISSClient(httpClient, cfg.TISSAPIURL, tissCB, resilienceCfg, logger)
	whatsappClient := client.NewWhatsAppClient(whatsappHTTP, cfg.WhatsAppURL, cfg.WhatsAppQRTimeout, cfg.WhatsAppActionTimeout, whatsappCB, logger)
	facebookClient := client.NewFacebookClient(httpClient, cfg.FacebookGraphURL, cfg.FacebookAPIVersion, cfg.FacebookPixelID, cfg.FacebookAccessToken, facebookCB, logger)
	openaiClient := client.NewOpenAIClient(llmClient, cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAIModel, openaiCB, logger)
	ocrClient := client.NewOCRClient(llmClient, cfg.OCRServiceURL, ocrCB, logger)
	pdfExtractor := client.NewPDFTextExtractor()

	// --- OAuth state store ---
	stateStore := cache.New[domain.OAuthState](cfg.OAuthStateTTL)
	defer stateStore.Stop()

	// --- Services ---
	patientsSvc := service.NewPatients(doctorClient, metrics, logger)
	appointmentsSvc := service.NewAppointments(doctorClient, metrics, logger)
	conversationsSvc := service.NewConversations(doctorClient, metrics, logger)
	whatsappSvc := service.NewWhatsApp(whatsappClient, doctorClient, metrics, logger)
	tissSvc := service.NewTISS(tissClient, metrics, logger)
	facebookSvc := service.NewFacebook(service.FacebookConfig{
		AppID:       cfg.FacebookAppID,
		RedirectURL: cfg.FacebookRedirectURL,
		APIVersion:  cfg.FacebookAPIVersion,
	}, facebookClient, stateStore, metrics, logger)
	examsSvc := service.NewExams(pdfExtractor, ocrClient, openaiClient, metrics, logger)

	// --- Router ---
	router := handler.NewRouter(handler.Deps{
		Patients:        patientsSvc,
		Appointments:    appointmentsSvc,
		Conversations:   conversationsSvc,
		WhatsApp:        whatsappSvc,
		TISS:            tissSvc,
		Facebook:        facebookSvc,
		Exams:           examsSvc,
		TISSPinger:      tissClient,
		Metrics:         metrics,
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DevMode:         cfg.DevMode,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
