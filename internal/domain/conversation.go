package domain

// Block actions accepted by the conversation gate.
const (
	BlockActionBlock   = "block"
	BlockActionUnblock = "unblock"
)

// BlockRequest blocks or unblocks the AI responder for one patient phone.
type BlockRequest struct {
	DoctorID string `json:"doctorId" validate:"required"`
	Phone    string `json:"phone" validate:"required"`
	Action   string `json:"action" validate:"required,oneof=block unblock"`
	Duration int    `json:"duration,omitempty"` // minutes; 0 means indefinite
	Reason   string `json:"reason,omitempty"`
}

// BlockStatus is the current gate state for a phone.
type BlockStatus struct {
	Phone        string `json:"phone"`
	IsBlocked    bool   `json:"isBlocked"`
	BlockedUntil string `json:"blockedUntil,omitempty"`
	Reason       string `json:"reason,omitempty"`
	AICanRespond bool   `json:"aiCanRespond"`
}

// ConversationLogEntry records an outbound manual message in the
// conversation history. Failure to write it is a partial success: the
// message was still delivered.
type ConversationLogEntry struct {
	DoctorID string `json:"doctorId"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	Sender   string `json:"sender"`
}
