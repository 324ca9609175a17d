package ws

import "twopc_backend/internal/domain"

// Envelope is every server to client message
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// CommissionPayload is pushed for each new commission entry
type CommissionPayload struct {
	domain.CommissionEntry
}

type ErrorPayload struct {
	Message string `json:"message"`
}
