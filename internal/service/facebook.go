package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/infra/observability"
	"github.com/medassist/clinic-bfa-go/internal/port"
	"github.com/medassist/clinic-bfa-go/internal/validate"
)

// Fixed scope list requested on OAuth start.
var oauthScopes = []string{
	"pages_show_list",
	"pages_messaging",
	"business_management",
	"ads_management",
}

// FacebookConfig carries the Graph integration settings the service needs.
type FacebookConfig struct {
	AppID       string
	RedirectURL string
	APIVersion  string
}

// Facebook builds OAuth authorization URLs, mints and consumes single-use
// CSRF state tokens, and forwards hashed Conversions API events.
type Facebook struct {
	cfg       FacebookConfig
	publisher port.EventPublisher
	states    port.Cache[domain.OAuthState]
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewFacebook creates the Facebook integration service. The states cache
// must be constructed with the OAuth state TTL (10 minutes).
func NewFacebook(cfg FacebookConfig, publisher port.EventPublisher, states port.Cache[domain.OAuthState], metrics *observability.Metrics, logger *zap.Logger) *Facebook {
	return &Facebook{
		cfg:       cfg,
		publisher: publisher,
		states:    states,
		metrics:   metrics,
		logger:    logger,
	}
}

// OAuthStart mints a single-use state token and returns the authorization
// URL the browser should be sent to. URL construction is deterministic
// given {appId, redirectUri, state}.
func (s *Facebook) OAuthStart(tenantID string) (authURL string, state domain.OAuthState, err error) {
	if s.cfg.AppID == "" {
		return "", state, &domain.ErrNotConfigured{Setting: "FACEBOOK_APP_ID"}
	}
	if tenantID == "" {
		return "", state, &domain.ErrValidation{Fields: []string{"tenantId"}}
	}

	token, err := randomToken()
	if err != nil {
		return "", state, fmt.Errorf("state token: %w", err)
	}

	state = domain.OAuthState{
		TenantID:   tenantID,
		Token:      token,
		IssuedAtMs: time.Now().UnixMilli(),
	}
	s.states.Set(state.Token, state)

	q := url.Values{}
	q.Set("client_id", s.cfg.AppID)
	q.Set("redirect_uri", s.cfg.RedirectURL)
	q.Set("state", state.Token)
	q.Set("scope", strings.Join(oauthScopes, ","))
	q.Set("response_type", "code")

	authURL = fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth?%s", s.cfg.APIVersion, q.Encode())
	return authURL, state, nil
}

// ConsumeState validates and invalidates a state token on OAuth callback.
// The cookie token and the query state must agree, and the token must
// still be live in the store. Single-use: a second consumption fails.
func (s *Facebook) ConsumeState(cookieToken, queryState string) (domain.OAuthState, error) {
	if cookieToken == "" || queryState == "" || cookieToken != queryState {
		return domain.OAuthState{}, &domain.ErrInvalidState{}
	}

	state, ok := s.states.Get(queryState)
	if !ok {
		return domain.OAuthState{}, &domain.ErrInvalidState{}
	}
	s.states.Delete(queryState)

	return state, nil
}

// SendConversion hashes the event's user data and forwards it to the
// Graph API events edge.
func (s *Facebook) SendConversion(ctx context.Context, ev *domain.ConversionEvent) (map[string]any, error) {
	ctx, span := tracer.Start(ctx, "Facebook.SendConversion")
	defer span.End()
	span.SetAttributes(attribute.String("event.name", ev.EventName))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("facebook_conversion", time.Since(start))
	}()

	if err := validate.Struct(ev); err != nil {
		return nil, err
	}

	eventTime := ev.EventTime
	if eventTime == 0 {
		eventTime = time.Now().Unix()
	}
	actionSource := ev.ActionSource
	if actionSource == "" {
		actionSource = "website"
	}

	payload := &domain.ConversionsPayload{
		Data: []domain.GraphEvent{{
			EventName:      ev.EventName,
			EventTime:      eventTime,
			EventID:        ev.EventID,
			EventSourceURL: ev.EventSourceURL,
			ActionSource:   actionSource,
			UserData:       HashUserData(ev.UserData),
			CustomData:     ev.CustomData,
		}},
	}

	out, err := s.publisher.PublishEvents(ctx, payload)
	if err != nil {
		s.metrics.IncrDownstreamError("facebook")
		return nil, err
	}

	s.logger.Info("conversion event forwarded",
		zap.String("event_name", ev.EventName),
	)
	return out, nil
}

// randomToken returns 256 bits of randomness, base64url without padding.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
