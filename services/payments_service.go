package services

import (
	"context"

	"qpay/entity"
)

type Payments interface {
	// PaymentParams builds and signs the redirect parameters for an order
	// and a payment method. The hash must match sha1 of the lowercased
	// order secret.
	PaymentParams(ctx context.Context, sessionID, orderCode, hash, method string) (*entity.ParameterSet, error)

	// Confirm processes a server-to-server payment notification.
	Confirm(ctx context.Context, orderCode, hash string, payload entity.CallbackPayload) error

	// Return processes a browser return from the gateway and reports the
	// URL the customer should be redirected to.
	Return(ctx context.Context, sessionID, orderCode, hash string, payload entity.CallbackPayload) (string, error)

	// Refund issues a refund for a paid order.
	Refund(ctx context.Context, orderCode, amount string) error
}
