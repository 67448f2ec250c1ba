package internal

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qpay/entity"
)

func TestPaymentParams(t *testing.T) {
	ctx := context.Background()

	setup := func() (*Payments, *fakeDatabase, *fakeSessions, *entity.Order, string) {
		payments, database, sessions := newTestPayments(testConfig())
		order := testOrder()
		database.orders[order.Code] = order
		return payments, database, sessions, order, orderHash(order.Secret)
	}

	t.Run("CreditCardFields", func(t *testing.T) {
		payments, _, _, order, hash := setup()
		params, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "cc")
		require.NoError(t, err)

		assert.Equal(t, "D200001", params.Get("customerId"))
		assert.Equal(t, "en", params.Get("language"))
		assert.Equal(t, "CCARD", params.Get("paymentType"))
		assert.Equal(t, "23.00", params.Get("amount"))
		assert.Equal(t, "EUR", params.Get("currency"))
		assert.Contains(t, params.Get("orderDescription"), "ABCDE")
		assert.Equal(t, "Order DEMOCON-ABCDE", params.Get("orderDescription"))
		assert.Equal(t, "yes", params.Get("duplicateRequestCheck"))
		assert.Equal(t, "https://example.com/imprint", params.Get("serviceUrl"))
		assert.Equal(t, "ABCDE", params.Get("hostOrderCode"))
		assert.Equal(t, "democon", params.Get("hostEventSlug"))
		assert.Equal(t, "democorp", params.Get("hostOrganizerSlug"))
		assert.NotEmpty(t, params.Get("hostNonce"))

		returnURL := fmt.Sprintf("https://pay.example.com/return/ABCDE/%s", hash)
		confirmURL := fmt.Sprintf("https://pay.example.com/confirm/ABCDE/%s", hash)
		assert.Equal(t, returnURL, params.Get("successUrl"))
		assert.Equal(t, returnURL, params.Get("cancelUrl"))
		assert.Equal(t, returnURL, params.Get("failureUrl"))
		assert.Equal(t, confirmURL, params.Get("confirmUrl"))
		assert.Equal(t, confirmURL, params.Get("pendingUrl"))
	})

	t.Run("SignedAndVerifiable", func(t *testing.T) {
		payments, _, _, order, hash := setup()
		params, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "cc")
		require.NoError(t, err)

		assert.NotEmpty(t, params.Get(fingerprintKey))
		assert.Contains(t, params.Get(fingerprintOrderKey), "requestFingerprintOrder,secret")

		payload := make(entity.CallbackPayload)
		for key, value := range params.Fields() {
			payload[key] = value
		}
		payload[entity.FieldFingerprint] = params.Get(fingerprintKey)
		payload[entity.FieldFingerprintOrder] = params.Get(fingerprintOrderKey)
		assert.True(t, payments.signer.Verify(payload))
	})

	t.Run("NonceStableAcrossBuilds", func(t *testing.T) {
		payments, _, sessions, order, hash := setup()
		first, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "cc")
		require.NoError(t, err)
		second, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "sofort")
		require.NoError(t, err)

		assert.Equal(t, first.Get("hostNonce"), second.Get("hostNonce"))
		nonce, _ := sessions.Get(ctx, "sess-1", sessionNonceKey)
		assert.Equal(t, nonce, first.Get("hostNonce"))

		other, err := payments.PaymentParams(ctx, "sess-2", order.Code, hash, "cc")
		require.NoError(t, err)
		assert.NotEqual(t, first.Get("hostNonce"), other.Get("hostNonce"))
	})

	t.Run("BindsOrderSecretToSession", func(t *testing.T) {
		payments, _, sessions, order, hash := setup()
		_, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "cc")
		require.NoError(t, err)
		bound, _ := sessions.Get(ctx, "sess-1", sessionOrderSecretKey)
		assert.Equal(t, order.Secret, bound)
	})

	t.Run("StatementTruncatedToMethodLimit", func(t *testing.T) {
		payments, database, _, order, hash := setup()
		order.OrganizerName = "An Organizer With A Very Long Trading Name Ltd & Co KG"
		database.orders[order.Code] = order

		// SOFORT caps the statement at 27 bytes.
		params, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "sofort")
		require.NoError(t, err)
		statement := params.Get("customerStatement")
		assert.Len(t, statement, 27)
		assert.Equal(t, "ORDER ABCDE EVENT DEMOCON B", statement)

		// Credit card allows the full statement.
		params, err = payments.PaymentParams(ctx, "sess-1", order.Code, hash, "cc")
		require.NoError(t, err)
		assert.Equal(t,
			"ORDER ABCDE EVENT DEMOCON BY An Organizer With A Very Long Trading Name Ltd & Co KG",
			params.Get("customerStatement"))
	})

	t.Run("OrderReferenceTruncated", func(t *testing.T) {
		payments, _, _, order, hash := setup()
		params, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "sofort")
		require.NoError(t, err)
		reference := params.Get("orderReference")
		assert.LessOrEqual(t, len(reference), 32)
		assert.Contains(t, reference, "ABCDE")
	})

	t.Run("BasketForWalletMethods", func(t *testing.T) {
		payments, _, _, order, hash := setup()
		params, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "paypal")
		require.NoError(t, err)

		assert.Equal(t, "2", params.Get("basketItems"))
		assert.Equal(t, "T1", params.Get("basketItem1ArticleNumber"))
		assert.Equal(t, "Standard ticket", params.Get("basketItem1Name"))
		assert.Equal(t, "2", params.Get("basketItem1Quantity"))
		assert.Equal(t, "10.00", params.Get("basketItem1UnitGrossAmount"))
		assert.Equal(t, "8.40", params.Get("basketItem1UnitNetAmount"))
		assert.Equal(t, "19.00", params.Get("basketItem1UnitTaxRate"))
		assert.Equal(t, "1.60", params.Get("basketItem1UnitTaxAmount"))
		assert.Equal(t, "T2", params.Get("basketItem2ArticleNumber"))

		plain, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "cc")
		require.NoError(t, err)
		assert.False(t, plain.Has("basketItems"))
	})

	t.Run("UnknownMethod", func(t *testing.T) {
		payments, _, _, order, hash := setup()
		_, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "giro")
		assert.Error(t, err)
	})

	t.Run("DisabledMethod", func(t *testing.T) {
		payments, _, _, order, hash := setup()
		_, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "ideal")
		assert.Error(t, err)
	})

	t.Run("CurrencyMismatch", func(t *testing.T) {
		payments, _, _, order, hash := setup()
		// POLi is enabled but only supports AUD and NZD.
		_, err := payments.PaymentParams(ctx, "sess-1", order.Code, hash, "poli")
		assert.Error(t, err)
	})

	t.Run("WrongHash", func(t *testing.T) {
		payments, _, _, order, _ := setup()
		_, err := payments.PaymentParams(ctx, "sess-1", order.Code, orderHash("wrong"), "cc")
		assert.ErrorIs(t, err, entity.ErrOrderNotFound)
	})
}
