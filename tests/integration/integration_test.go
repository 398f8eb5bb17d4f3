package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/handler"
	"github.com/medassist/clinic-bfa-go/internal/infra/cache"
	"github.com/medassist/clinic-bfa-go/internal/infra/client"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/infra/resilience"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

// newRelay wires real clients against the given downstream fakes and
// returns the full HTTP surface.
func newRelay(t *testing.T, doctorURL, tissURL, whatsappURL string) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	httpClient := &http.Client{Timeout: 500 * time.Millisecond}
	// Mirrors the production wiring: WhatsApp deadlines are per call, so
	// its client carries no timeout of its own.
	whatsappHTTP := &http.Client{}

	doctorClient := client.NewDoctorServerClient(httpClient, doctorURL, resilience.NewCircuitBreaker("doctor"), cfg, logger)
	tissClient := client.NewTISSClient(httpClient, tissURL, resilience.NewCircuitBreaker("tiss"), cfg, logger)
	whatsappClient := client.NewWhatsAppClient(whatsappHTTP, whatsappURL, 3*time.Second, 2*time.Second, resilience.NewCircuitBreaker("whatsapp"), logger)
	facebookClient := client.NewFacebookClient(httpClient, "http://localhost:1", "v19.0", "", "", resilience.NewCircuitBreaker("facebook"), logger)
	openaiClient := client.NewOpenAIClient(httpClient, "http://localhost:1", "", "gpt-4o-mini", resilience.NewCircuitBreaker("openai"), logger)
	ocrClient := client.NewOCRClient(httpClient, "http://localhost:1", resilience.NewCircuitBreaker("ocr"), logger)

	return handler.NewRouter(handler.Deps{
		Patients:      service.NewPatients(doctorClient, metrics, logger),
		Appointments:  service.NewAppointments(doctorClient, metrics, logger),
		Conversations: service.NewConversations(doctorClient, metrics, logger),
		WhatsApp:      service.NewWhatsApp(whatsappClient, doctorClient, metrics, logger),
		TISS:          service.NewTISS(tissClient, metrics, logger),
		Facebook: service.NewFacebook(
			service.FacebookConfig{AppID: "app-1", RedirectURL: "http://localhost/cb", APIVersion: "v19.0"},
			facebookClient,
			cache.New[domain.OAuthState](time.Minute),
			metrics, logger,
		),
		Exams:           service.NewExams(client.NewPDFTextExtractor(), ocrClient, openaiClient, metrics, logger),
		TISSPinger:      tissClient,
		Metrics:         metrics,
		Logger:          logger,
		AllowedOrigins:  "*",
		RateLimitPerMin: 0,
		DevMode:         false,
	})
}

func TestIntegration_PatientLookupByPhone(t *testing.T) {
	doctorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/patients" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "p-1", "name": "Maria Silva", "phone": "5511999998888", "cpf": "12345678901"},
			{"id": "p-2", "nome": "José Santos", "telefone": "5511988887777"},
		})
	}))
	defer doctorServer.Close()

	router := newRelay(t, doctorServer.URL, "http://localhost:1", "http://localhost:1")

	body := `{"doctorId":"d-1","phone":"11988887777"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/patients/lookup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Success bool `json:"success"`
		Data    struct {
			Found   bool            `json:"found"`
			Patient *domain.Patient `json:"patient"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if !env.Success || !env.Data.Found {
		t.Fatalf("expected a match, got %+v", env)
	}
	if env.Data.Patient.ID != "p-2" {
		t.Errorf("expected p-2 by phone suffix, got %q", env.Data.Patient.ID)
	}
	if env.Data.Patient.Phone != "5511***" {
		t.Errorf("expected masked phone, got %q", env.Data.Patient.Phone)
	}
}

func TestIntegration_TISSRelayAndStats(t *testing.T) {
	tissServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/tiss/guias/stats":
			json.NewEncoder(w).Encode(map[string]any{"total": 7})
		case "/api/tiss/lotes/stats":
			json.NewEncoder(w).Encode(map[string]any{"abertos": 2})
		case "/api/tiss/guias":
			if r.Method == http.MethodPost {
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte(`{"id":"g-9"}`))
				return
			}
			w.WriteHeader(http.StatusMethodNotAllowed)
		default:
			w.WriteHeader(http.StatusTeapot)
			w.Write([]byte(`{"erro":"rota desconhecida"}`))
		}
	}))
	defer tissServer.Close()

	router := newRelay(t, "http://localhost:1", tissServer.URL, "http://localhost:1")

	// Valid create relays the downstream 201.
	createBody := `{"doctor_id":"d-1","tipo_guia":"consulta","data_atendimento":"2026-03-10"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tiss/guias", strings.NewReader(createBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected relayed 201, got %d: %s", rec.Code, rec.Body.String())
	}

	// Unknown downstream status relays untouched.
	req = httptest.NewRequest(http.MethodGet, "/v1/tiss/whatever", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected relayed 418, got %d", rec.Code)
	}

	// Stats aggregates both branches.
	req = httptest.NewRequest(http.MethodGet, "/v1/tiss/stats?doctor_id=d-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data struct {
			Guias map[string]any `json:"guias"`
			Lotes map[string]any `json:"lotes"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Data.Guias["total"] != float64(7) || env.Data.Lotes["abertos"] != float64(2) {
		t.Errorf("unexpected stats %+v", env.Data)
	}
}

func TestIntegration_TISSStatsFailsWhenLotesDown(t *testing.T) {
	tissServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tiss/guias/stats" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"total": 7})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer tissServer.Close()

	router := newRelay(t, "http://localhost:1", tissServer.URL, "http://localhost:1")

	req := httptest.NewRequest(http.MethodGet, "/v1/tiss/stats?doctor_id=d-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when one stats branch fails, got %d", rec.Code)
	}
}

func TestIntegration_WhatsAppSendLogsToHistory(t *testing.T) {
	var logged *domain.ConversationLogEntry

	doctorServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/conversations/messages" && r.Method == http.MethodPost {
			var entry domain.ConversationLogEntry
			json.NewDecoder(r.Body).Decode(&entry)
			logged = &entry
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer doctorServer.Close()

	whatsappServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/send" && r.Method == http.MethodPost {
			if r.Header.Get("X-Tenant-ID") != "tenant-1" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "msg-42"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer whatsappServer.Close()

	router := newRelay(t, doctorServer.URL, "http://localhost:1", whatsappServer.URL)

	body := `{"phone":"11999998888","message":"Sua consulta é amanhã às 10h"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/whatsapp/send-manual", strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", "tenant-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var env struct {
		Data domain.SendManualResult `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("bad envelope: %v", err)
	}
	if env.Data.MessageID != "msg-42" || !env.Data.Logged {
		t.Errorf("unexpected result %+v", env.Data)
	}
	if logged == nil || logged.Sender != "operator" {
		t.Errorf("expected history entry from operator, got %+v", logged)
	}
}

func TestIntegration_WhatsAppQROutlivesGeneralHTTPTimeout(t *testing.T) {
	// QR generation is slower than every other downstream call. The gateway
	// here answers well past the general client timeout but inside the QR
	// budget; the call must still succeed.
	whatsappServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/qr" {
			time.Sleep(800 * time.Millisecond)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"qr": "base64-qr-payload"})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer whatsappServer.Close()

	router := newRelay(t, "http://localhost:1", "http://localhost:1", whatsappServer.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/whatsapp/qr", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 inside the QR budget, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "base64-qr-payload") {
		t.Errorf("expected the QR payload in the response, got %s", rec.Body.String())
	}
}

func TestIntegration_LoteXMLNotReady(t *testing.T) {
	tissServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer tissServer.Close()

	router := newRelay(t, "http://localhost:1", tissServer.URL, "http://localhost:1")

	req := httptest.NewRequest(http.MethodGet, "/v1/tiss/lotes/l-1/xml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "l-1") {
		t.Errorf("expected lote id in the error message, got %s", rec.Body.String())
	}
}
