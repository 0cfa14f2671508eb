package model

import "time"

// WebhookEndpoint is a customer-registered URL that receives event
// notifications. The secret signs delivery payloads.
type WebhookEndpoint struct {
	ID        int64     `json:"id" db:"id"`
	URL       string    `json:"url" db:"url"`
	Secret    string    `json:"-" db:"secret"` // never expose after creation
	Events    []string  `json:"events"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// WantsEvent reports whether the endpoint subscribed to the given event type.
// An empty filter subscribes to everything.
func (e *WebhookEndpoint) WantsEvent(event string) bool {
	if len(e.Events) == 0 {
		return true
	}
	for _, ev := range e.Events {
		if ev == event || ev == "*" {
			return true
		}
	}
	return false
}

// WebhookDelivery is one attempt to POST an event to an endpoint.
type WebhookDelivery struct {
	ID           int64     `json:"id" db:"id"`
	EndpointID   int64     `json:"endpoint_id" db:"endpoint_id"`
	Event        string    `json:"event" db:"event"`
	Payload      string    `json:"payload" db:"payload"`
	Success      bool      `json:"success" db:"success"`
	ResponseCode int       `json:"response_code" db:"response_code"`
	Error        string    `json:"error,omitempty" db:"error"`
	DurationMs   float64   `json:"duration_ms" db:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
