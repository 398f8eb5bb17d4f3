package domain

// OAuthState is the single-use CSRF token minted on OAuth start and
// consumed on callback. Token is 256 bits of randomness, base64url.
type OAuthState struct {
	TenantID   string `json:"tenantId"`
	Token      string `json:"token"`
	IssuedAtMs int64  `json:"issuedAtMs"`
}

// ConversionEvent is one Conversions API event as received from the UI.
// UserData PII is hashed before it ever leaves this service; ClientIP,
// ClientUserAgent, FBC and FBP are transmitted unhashed per the Graph API
// contract.
type ConversionEvent struct {
	EventName      string            `json:"eventName" validate:"required"`
	EventTime      int64             `json:"eventTime,omitempty"`
	EventID        string            `json:"eventId,omitempty"`
	EventSourceURL string            `json:"eventSourceUrl,omitempty"`
	ActionSource   string            `json:"actionSource,omitempty"`
	UserData       map[string]string `json:"userData,omitempty"`
	CustomData     map[string]any    `json:"customData,omitempty"`
}

// ConversionsPayload is the wire shape sent to the Graph API events endpoint.
type ConversionsPayload struct {
	Data []GraphEvent `json:"data"`
}

// GraphEvent mirrors the Graph API Conversions event schema.
type GraphEvent struct {
	EventName      string            `json:"event_name"`
	EventTime      int64             `json:"event_time"`
	EventID        string            `json:"event_id,omitempty"`
	EventSourceURL string            `json:"event_source_url,omitempty"`
	ActionSource   string            `json:"action_source"`
	UserData       map[string]string `json:"user_data"`
	CustomData     map[string]any    `json:"custom_data,omitempty"`
}
