package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound covers both an unknown order code and a secret-hash
	// mismatch, so a caller cannot distinguish the two cases.
	ErrOrderNotFound = errors.New("unknown order")

	// ErrInvalidFingerprint is returned when a callback payload fails
	// fingerprint verification. The payload must not be processed.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")

	// ErrQuotaExceeded is returned by MarkOrderPaid when the event's
	// allocation capacity is exhausted.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrNotConfigured is returned when an operation needs a gateway
	// credential that is not configured.
	ErrNotConfigured = errors.New("gateway not configured")

	// ErrGatewayUnreachable marks transport-level failures talking to the
	// gateway, as opposed to failures the gateway itself reported.
	ErrGatewayUnreachable = errors.New("gateway unreachable")
)

// GatewayError carries a failure reported by the gateway's management
// endpoint: a non-zero status and the gateway's message.
type GatewayError struct {
	Status  string
	Message string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error: status=%s message=%q", e.Status, e.Message)
}
