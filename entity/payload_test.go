package entity

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadFromValues(t *testing.T) {
	values := url.Values{}
	values.Set("paymentState", StateSuccess)
	values.Set("orderNumber", "9271117")
	values.Add("duplicated", "first")
	values.Add("duplicated", "second")

	payload := PayloadFromValues(values)
	assert.Equal(t, StateSuccess, payload.State())
	assert.Equal(t, "9271117", payload.OrderNumber())
	assert.Equal(t, "first", payload["duplicated"])
}

func TestPayloadJSONRoundTrip(t *testing.T) {
	payload := CallbackPayload{"paymentState": StatePending, "message": "processing"}
	data, err := payload.JSON()
	require.NoError(t, err)

	restored := PaymentInfoFromJSON(data)
	assert.Equal(t, payload, restored)
	assert.Empty(t, PaymentInfoFromJSON(""))
}

func TestCanRetry(t *testing.T) {
	assert.False(t, CallbackPayload{"paymentState": StatePending}.CanRetry())
	assert.True(t, CallbackPayload{"paymentState": StateFailure}.CanRetry())
	assert.True(t, CallbackPayload{}.CanRetry())
}

func TestStateDescription(t *testing.T) {
	assert.Equal(t, "Charge succeeded.", CallbackPayload{"paymentState": StateSuccess}.StateDescription())
	assert.Equal(t, "Charge canceled.", CallbackPayload{"paymentState": StateCancel}.StateDescription())
	assert.Equal(t, "Unknown gateway event.", CallbackPayload{"paymentState": "SOMETHING"}.StateDescription())
}
