package services

import (
	"context"

	"qpay/entity"
)

// Database is the storage owned by the host application. Every mutation is
// transactional at the call: the implementation is responsible for the
// atomicity of read-and-maybe-update.
type Database interface {
	WriteLogMessage(data Data) error

	GetOrder(ctx context.Context, code string) (*entity.Order, error)
	SavePaymentInfo(ctx context.Context, code string, info string) error
	AppendOrderLog(ctx context.Context, code string, action string, data string) error

	// MarkOrderPaid transitions the order to paid, claiming one unit of the
	// event's capacity. Returns entity.ErrQuotaExceeded when the event is
	// sold out.
	MarkOrderPaid(ctx context.Context, order *entity.Order, provider string) error
	MarkOrderRefunded(ctx context.Context, order *entity.Order, provider string) error

	// FindRequiredAction returns nil, nil when no record matches.
	FindRequiredAction(ctx context.Context, event, actionType, orderCode string) (*entity.RequiredAction, error)
	// CreateRequiredAction is idempotent on {event, action type, order code}.
	CreateRequiredAction(ctx context.Context, action *entity.RequiredAction) error
}

// SessionStore is the host's per-browser-session key/value store, used for
// the payment nonce and the bound order secret.
type SessionStore interface {
	Get(ctx context.Context, sessionID, key string) (string, error)
	Set(ctx context.Context, sessionID, key, value string) error
}

type Data interface {
	DataType() string
}
