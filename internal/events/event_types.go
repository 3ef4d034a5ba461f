package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventAccountUpdated    EventType = "account_updated"
	EventAccountDeleted    EventType = "account_deleted"
	EventProfileUpdated    EventType = "profile_updated"
	EventDepartmentDeleted EventType = "department_deleted"
	EventPasswordChanged   EventType = "password_changed"
)

// AllEventTypes lists every event type, used to subscribe audit handlers.
var AllEventTypes = []EventType{
	EventAccountRegistered,
	EventAccountUpdated,
	EventAccountDeleted,
	EventProfileUpdated,
	EventDepartmentDeleted,
	EventPasswordChanged,
}

// Actor identifies who caused an event. ActorID is nil for anonymous callers (signup).
type Actor struct {
	AccountID *int64 `json:"account_id,omitempty"`
	Username  string `json:"username,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID int64       `json:"subject_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// AccountChangedPayload lists the fields touched by an update.
type AccountChangedPayload struct {
	Fields []string `json:"fields"`
}

// AccountDeletedPayload describes a removed account.
type AccountDeletedPayload struct {
	Username string `json:"username"`
	Bulk     bool   `json:"bulk,omitempty"`
}

// AccountRegisteredPayload describes a signup.
type AccountRegisteredPayload struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}
