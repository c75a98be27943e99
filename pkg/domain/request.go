package domain

import (
	"strings"

	"github.com/google/uuid"
)

// RenderRequest is the input of one render invocation.
// It is built once per invocation and never mutated.
type RenderRequest struct {
	// ID correlates logs and metrics of a single invocation.
	ID string `json:"id"`
	// Payload is the normalized table text, already stripped of the command token.
	Payload string `json:"payload"`
}

// NewRenderRequest creates a request for the given payload.
// Blank payloads are rejected with ErrEmptyPayload: the core is never invoked with one.
func NewRenderRequest(payload string) (RenderRequest, error) {
	if strings.TrimSpace(payload) == "" {
		return RenderRequest{}, ErrEmptyPayload
	}
	return RenderRequest{
		ID:      uuid.NewString(),
		Payload: payload,
	}, nil
}
