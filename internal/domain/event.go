package domain

import "time"

type EventType string

const (
	EventCreated       EventType = "created"
	EventStatusChanged EventType = "status_changed"
	EventDeleted       EventType = "deleted"
)

// RequestEvent — сигнал об изменении заявки для внешних подписчиков.
type RequestEvent struct {
	Type       EventType     `json:"type"`
	RequestID  string        `json:"request_id"`
	Status     RequestStatus `json:"status,omitempty"`
	AssignedTo string        `json:"assigned_to,omitempty"`
	Timestamp  time.Time     `json:"timestamp"`
}
