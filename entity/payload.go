package entity

import (
	"encoding/json"
	"net/url"
)

// Payment states reported by the gateway in the paymentState field.
const (
	StateSuccess = "SUCCESS"
	StatePending = "PENDING"
	StateCancel  = "CANCEL"
	StateFailure = "FAILURE"
)

// Fields with a fixed meaning in gateway callbacks.
const (
	FieldFingerprint      = "responseFingerprint"
	FieldFingerprintOrder = "responseFingerprintOrder"
	FieldPaymentState     = "paymentState"
	FieldMessage          = "message"
	FieldOrderNumber      = "orderNumber"
)

// CallbackPayload is the form-encoded key/value set posted by the gateway to
// the confirm and return endpoints. It is untrusted until the fingerprint
// has been verified.
type CallbackPayload map[string]string

// PayloadFromValues flattens parsed form values into a payload, keeping the
// first value of each field.
func PayloadFromValues(values url.Values) CallbackPayload {
	payload := make(CallbackPayload, len(values))
	for key := range values {
		payload[key] = values.Get(key)
	}
	return payload
}

func (c CallbackPayload) State() string {
	return c[FieldPaymentState]
}

func (c CallbackPayload) Fingerprint() string {
	return c[FieldFingerprint]
}

func (c CallbackPayload) FingerprintOrder() string {
	return c[FieldFingerprintOrder]
}

func (c CallbackPayload) Message() string {
	return c[FieldMessage]
}

// OrderNumber is the gateway-side charge number, echoed into required
// actions so an operator can find the charge in the gateway console.
func (c CallbackPayload) OrderNumber() string {
	return c[FieldOrderNumber]
}

// JSON serializes the payload verbatim for the order's payment-info
// snapshot and audit-log entries.
func (c CallbackPayload) JSON() (string, error) {
	data, err := json.Marshal(map[string]string(c))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// PaymentInfoFromJSON parses a stored payment-info snapshot back into a
// payload. An empty snapshot yields an empty payload.
func PaymentInfoFromJSON(info string) CallbackPayload {
	payload := make(CallbackPayload)
	if info == "" {
		return payload
	}
	_ = json.Unmarshal([]byte(info), &payload)
	return payload
}

// CanRetry reports whether a pending order may start another payment
// attempt. An attempt the gateway reported as PENDING is still in flight,
// so a retry would risk a double charge.
func (c CallbackPayload) CanRetry() bool {
	return c.State() != StatePending
}

// StateDescription returns a human-readable description of a gateway event
// for the audit trail.
func (c CallbackPayload) StateDescription() string {
	switch c.State() {
	case StateSuccess:
		return "Charge succeeded."
	case StatePending:
		return "Charge pending."
	case StateCancel:
		return "Charge canceled."
	case StateFailure:
		return "Charge failed."
	}
	return "Unknown gateway event."
}
