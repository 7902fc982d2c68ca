package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventLoginFailed       EventType = "login_failed"
	EventTokenValidated    EventType = "token_validated"
	EventTokenRejected     EventType = "token_rejected"
)

// Event represents a security event emitted by the auth service.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	AccountID string `json:"account_id"`
	Role      string `json:"role"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// TokenRejectedPayload payload.
type TokenRejectedPayload struct {
	Reason string `json:"reason"`
}
