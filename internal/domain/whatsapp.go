package domain

// Canonical WhatsApp session states. Anything the gateway reports that does
// not map onto one of these becomes SessionDisconnected.
const (
	SessionConnected    = "connected"
	SessionQR           = "qr"
	SessionConnecting   = "connecting"
	SessionError        = "error"
	SessionDisconnected = "disconnected"
)

// SendManualRequest is an operator-initiated WhatsApp message.
type SendManualRequest struct {
	Phone   string `json:"phone" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// SendManualResult reports delivery plus whether the conversation log write
// succeeded (Logged=false is a warning, not a failure).
type SendManualResult struct {
	Phone     string `json:"phone"`
	MessageID string `json:"messageId,omitempty"`
	Logged    bool   `json:"logged"`
}

// SessionInfo is the normalized session state for one tenant.
type SessionInfo struct {
	TenantID string `json:"tenantId"`
	Status   string `json:"status"`
}

// QRResult carries the base64 QR image handed out by the gateway.
type QRResult struct {
	TenantID string `json:"tenantId"`
	QR       string `json:"qr"`
}
