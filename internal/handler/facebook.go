package handler

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/medassist/clinic-bfa-go/internal/domain"
	"github.com/medassist/clinic-bfa-go/internal/service"
)

const oauthStateCookie = "fb_oauth_state"

// ============================================================
// Facebook — /v1/facebook/*
// ============================================================

// facebookOAuthStartHandler mints the CSRF state, pins it in a short-lived
// cookie and returns the authorization URL for the frontend to redirect to.
func facebookOAuthStartHandler(svc *service.Facebook, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/facebook/oauth/start")
		defer span.End()

		tenant := r.URL.Query().Get("tenantId")
		span.SetAttributes(attribute.String("tenant.id", tenant))

		authURL, state, err := svc.OAuthStart(tenant)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    state.Token,
			Path:     "/v1/facebook/oauth",
			MaxAge:   600,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		re.writeData(w, r, http.StatusOK, map[string]any{"authUrl": authURL})
	}
}

// facebookOAuthCallbackHandler consumes the state on the way back from the
// dialog. The cookie and the query state must agree and the token must be
// unexpired and unused.
func facebookOAuthCallbackHandler(svc *service.Facebook, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, span := tracer.Start(r.Context(), "GET /v1/facebook/oauth/callback")
		defer span.End()

		if denied := r.URL.Query().Get("error"); denied != "" {
			re.writeFailure(w, r, http.StatusBadRequest, "authorization denied: "+denied)
			return
		}

		var cookieToken string
		if c, err := r.Cookie(oauthStateCookie); err == nil {
			cookieToken = c.Value
		}

		state, err := svc.ConsumeState(cookieToken, r.URL.Query().Get("state"))
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}

		// Invalidate the cookie once the state is consumed.
		http.SetCookie(w, &http.Cookie{
			Name:     oauthStateCookie,
			Value:    "",
			Path:     "/v1/facebook/oauth",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		re.writeData(w, r, http.StatusOK, map[string]any{
			"tenantId": state.TenantID,
			"code":     r.URL.Query().Get("code"),
		})
	}
}

func facebookConversionsHandler(svc *service.Facebook, re *responder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/facebook/conversions")
		defer span.End()

		var ev domain.ConversionEvent
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			re.writeFailure(w, r, http.StatusBadRequest, "invalid request body")
			return
		}
		span.SetAttributes(attribute.String("event.name", ev.EventName))

		result, err := svc.SendConversion(ctx, &ev)
		if err != nil {
			re.handleServiceError(w, r, err)
			return
		}
		re.writeData(w, r, http.StatusOK, result)
	}
}
