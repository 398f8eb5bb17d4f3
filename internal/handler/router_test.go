package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/handler"
	"github.com/medassist/clinic-bfa-go/internal/infra/cache"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

// --- Downstream stubs ---

type stubDoctorServer struct {
	patients []map[string]any
}

func (s *stubDoctorServer) ListPatients(_ context.Context, _ string) ([]map[string]any, error) {
	return s.patients, nil
}

func (s *stubDoctorServer) GetPatient(_ context.Context, _, id string) (map[string]any, error) {
	for _, p := range s.patients {
		if p["id"] == id {
			return p, nil
		}
	}
	return nil, &domain.ErrNotFound{Resource: "patient", ID: id}
}

func (s *stubDoctorServer) ListAppointments(_ context.Context, _, _ string) ([]map[string]any, error) {
	return nil, nil
}

func (s *stubDoctorServer) SetBlock(_ context.Context, _ *domain.BlockRequest) (map[string]any, error) {
	return map[string]any{"isBlocked": true}, nil
}

func (s *stubDoctorServer) BlockStatus(_ context.Context, _, _ string) (map[string]any, error) {
	return map[string]any{"isBlocked": false}, nil
}

func (s *stubDoctorServer) LogMessage(_ context.Context, _ *domain.ConversationLogEntry) error {
	return nil
}

type stubGateway struct{}

func (s *stubGateway) QRCode(_ context.Context, _ string) (string, error) { return "qr-data", nil }
func (s *stubGateway) SendMessage(_ context.Context, _, _, _ string) (string, error) {
	return "msg-1", nil
}
func (s *stubGateway) SessionStatus(_ context.Context, _ string) (string, error) {
	return "connected", nil
}
func (s *stubGateway) ResetSession(_ context.Context, _ string) error { return nil }

type stubTISS struct {
	result *domain.TISSResult
}

func (s *stubTISS) Do(_ context.Context, _ *domain.TISSCall) (*domain.TISSResult, error) {
	return s.result, nil
}

func (s *stubTISS) GuiaStats(_ context.Context, _ string) (map[string]any, error) {
	return map[string]any{"total": float64(1)}, nil
}

func (s *stubTISS) LoteStats(_ context.Context, _ string) (map[string]any, error) {
	return map[string]any{"abertos": float64(0)}, nil
}

type stubPublisher struct{}

func (s *stubPublisher) PublishEvents(_ context.Context, _ *domain.ConversionsPayload) (map[string]any, error) {
	return map[string]any{"events_received": float64(1)}, nil
}

type stubExtractor struct{ text string }

func (s *stubExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	return s.text, nil
}

type stubRecognizer struct{}

func (s *stubRecognizer) RecognizePages(_ context.Context, _ []byte) ([]string, error) {
	return nil, nil
}

type stubGrouper struct{}

func (s *stubGrouper) GroupExamText(_ context.Context, _ string) (map[string]any, domain.TokenUsage, error) {
	return map[string]any{"hemograma": []any{"hb 14"}}, domain.TokenUsage{TotalTokens: 100}, nil
}

func newTestRouter(t *testing.T, tiss *stubTISS) http.Handler {
	t.Helper()
	if tiss == nil {
		tiss = &stubTISS{result: &domain.TISSResult{StatusCode: http.StatusOK, Body: []byte(`{}`)}}
	}

	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	doctor := &stubDoctorServer{patients: []map[string]any{
		{"id": "p-1", "name": "Maria", "phone": "11999998888", "cpf": "12345678901"},
	}}

	return handler.NewRouter(handler.Deps{
		Patients:      service.NewPatients(doctor, metrics, logger),
		Appointments:  service.NewAppointments(doctor, metrics, logger),
		Conversations: service.NewConversations(doctor, metrics, logger),
		WhatsApp:      service.NewWhatsApp(&stubGateway{}, doctor, metrics, logger),
		TISS:          service.NewTISS(tiss, metrics, logger),
		Facebook: service.NewFacebook(
			service.FacebookConfig{AppID: "app-1", RedirectURL: "http://localhost/cb", APIVersion: "v19.0"},
			&stubPublisher{},
			cache.New[domain.OAuthState](time.Minute),
			metrics, logger,
		),
		Exams:           service.NewExams(&stubExtractor{text: strings.Repeat("resultado ", 20)}, &stubRecognizer{}, &stubGrouper{}, metrics, logger),
		TISSPinger:      tiss,
		Metrics:         metrics,
		Logger:          logger,
		AllowedOrigins:  "*",
		RateLimitPerMin: 0,
		DevMode:         false,
	})
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("response is not json: %v (%s)", err, rec.Body.String())
	}
	return env
}

// --- Tests ---

func TestHealthz(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestPatientLookupEnvelope(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{"doctorId":"d-1","patientId":"p-1"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/patients/lookup", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if env["success"] != true {
		t.Errorf("expected success=true, got %v", env["success"])
	}
	if env["requestId"] == "" || env["requestId"] == nil {
		t.Error("expected requestId in envelope")
	}
	if env["timestamp"] == "" || env["timestamp"] == nil {
		t.Error("expected timestamp in envelope")
	}
	data, _ := env["data"].(map[string]any)
	if data == nil || data["found"] != true {
		t.Errorf("expected data.found=true, got %v", env["data"])
	}
}

func TestPatientLookupValidationFailure(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/patients/lookup", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env["success"] != false {
		t.Errorf("expected success=false, got %v", env["success"])
	}
	if msg, _ := env["error"].(string); !strings.Contains(msg, "doctorId") {
		t.Errorf("expected doctorId in error message, got %v", env["error"])
	}
}

func TestWhatsAppRequiresTenantHeader(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/whatsapp/session", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without X-Tenant-ID, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if msg, _ := env["error"].(string); !strings.Contains(msg, "X-Tenant-ID") {
		t.Errorf("expected header name in error, got %v", env["error"])
	}
}

func TestWhatsAppSessionWithTenant(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/whatsapp/session", nil)
	req.Header.Set("X-Tenant-ID", "tenant-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data, _ := env["data"].(map[string]any)
	if data == nil || data["status"] != "connected" {
		t.Errorf("expected mapped status connected, got %v", env["data"])
	}
}

func TestTISSProxyRelaysDownstreamStatus(t *testing.T) {
	tiss := &stubTISS{result: &domain.TISSResult{
		StatusCode:  http.StatusUnprocessableEntity,
		ContentType: "application/json",
		Body:        []byte(`{"erro":"operadora inválida"}`),
	}}
	router := newTestRouter(t, tiss)

	req := httptest.NewRequest(http.MethodGet, "/v1/tiss/guias/g-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected downstream 422 relayed, got %d", rec.Code)
	}
	if rec.Body.String() != `{"erro":"operadora inválida"}` {
		t.Errorf("body must relay verbatim, got %s", rec.Body.String())
	}
}

func TestTISSCreateValidationShortCircuits(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/tiss/guias", strings.NewReader(`{"doctor_id":"d-1"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if msg, _ := env["error"].(string); !strings.Contains(msg, "tipo_guia") {
		t.Errorf("expected tipo_guia in error, got %v", env["error"])
	}
}

func TestTISSLoteXMLAttachment(t *testing.T) {
	tiss := &stubTISS{result: &domain.TISSResult{
		StatusCode:  http.StatusOK,
		ContentType: "application/xml",
		Body:        []byte(`<ans:mensagemTISS/>`),
	}}
	router := newTestRouter(t, tiss)

	req := httptest.NewRequest(http.MethodGet, "/v1/tiss/lotes/l-1/xml", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "lote_l-1.xml") {
		t.Errorf("expected attachment disposition, got %q", cd)
	}
}

func TestFacebookOAuthStartSetsStateCookie(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/facebook/oauth/start?tenantId=tenant-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "fb_oauth_state" {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("expected fb_oauth_state cookie")
	}
	if !stateCookie.HttpOnly {
		t.Error("state cookie must be httpOnly")
	}

	env := decodeEnvelope(t, rec)
	data, _ := env["data"].(map[string]any)
	authURL, _ := data["authUrl"].(string)
	if !strings.Contains(authURL, "state="+stateCookie.Value) {
		t.Error("auth url state must match the cookie")
	}
}

func TestFacebookOAuthCallbackRoundTrip(t *testing.T) {
	router := newTestRouter(t, nil)

	startReq := httptest.NewRequest(http.MethodGet, "/v1/facebook/oauth/start?tenantId=tenant-1", nil)
	startRec := httptest.NewRecorder()
	router.ServeHTTP(startRec, startReq)

	var stateCookie *http.Cookie
	for _, c := range startRec.Result().Cookies() {
		if c.Name == "fb_oauth_state" {
			stateCookie = c
		}
	}
	if stateCookie == nil {
		t.Fatal("missing state cookie")
	}

	cbReq := httptest.NewRequest(http.MethodGet, "/v1/facebook/oauth/callback?code=abc&state="+stateCookie.Value, nil)
	cbReq.AddCookie(stateCookie)
	cbRec := httptest.NewRecorder()
	router.ServeHTTP(cbRec, cbReq)

	if cbRec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", cbRec.Code, cbRec.Body.String())
	}

	// Replay must be rejected: the state is single-use.
	replayRec := httptest.NewRecorder()
	replayReq := httptest.NewRequest(http.MethodGet, "/v1/facebook/oauth/callback?code=abc&state="+stateCookie.Value, nil)
	replayReq.AddCookie(stateCookie)
	router.ServeHTTP(replayRec, replayReq)

	if replayRec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 on state replay, got %d", replayRec.Code)
	}
}

func TestExamExtractNoFile(t *testing.T) {
	router := newTestRouter(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/exams/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if msg, _ := env["error"].(string); !strings.Contains(msg, "no file provided") {
		t.Errorf("expected distinct no-file message, got %v", env["error"])
	}
}

func TestExamExtractSuccess(t *testing.T) {
	router := newTestRouter(t, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "exames.pdf")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("%PDF-1.7 fake"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/exams/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data, _ := env["data"].(map[string]any)
	if data == nil || data["source"] != "text" {
		t.Errorf("expected source text, got %v", env["data"])
	}
}

func TestRelayMetricsSnapshot(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/metrics/relay", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	env := decodeEnvelope(t, rec)
	if env["success"] != true {
		t.Errorf("expected success=true, got %v", env["success"])
	}
}
