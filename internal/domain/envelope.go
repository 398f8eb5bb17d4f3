package domain

// Envelope is the uniform response shape returned by every relay route.
// Exactly one of Data/Error is set depending on Success.
type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	RequestID string `json:"requestId"`
	Timestamp string `json:"timestamp"`
}
