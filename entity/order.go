// Package entity defines data models for the QPAY payment service.
package entity

import "time"

// Order payment states as reported by the host shop.
const (
	StatusPending  = "pending"
	StatusExpired  = "expired"
	StatusPaid     = "paid"
	StatusRefunded = "refunded"
	StatusCanceled = "canceled"
)

// Order is the host application's order record, as far as this service
// needs to see it. The host owns the record; this service only reads it and
// mutates it through the Database interface.
type Order struct {
	Code          string      `json:"code" bson:"code"`
	Secret        string      `json:"secret" bson:"secret"`
	Status        string      `json:"status" bson:"status"`
	Total         string      `json:"total" bson:"total"`
	Currency      string      `json:"currency" bson:"currency"`
	Locale        string      `json:"locale" bson:"locale"`
	EventSlug     string      `json:"event_slug" bson:"event_slug"`
	EventName     string      `json:"event_name" bson:"event_name"`
	OrganizerSlug string      `json:"organizer_slug" bson:"organizer_slug"`
	OrganizerName string      `json:"organizer_name" bson:"organizer_name"`
	PaymentInfo   string      `json:"payment_info" bson:"payment_info"`
	Lines         []OrderLine `json:"lines" bson:"lines"`
}

// OrderLine is one position of the order, used to build the shopping basket
// for payment methods that require one. Amounts are decimal strings in the
// order's currency.
type OrderLine struct {
	ArticleNumber string `json:"article_number" bson:"article_number"`
	Description   string `json:"description" bson:"description"`
	Quantity      int    `json:"quantity" bson:"quantity"`
	GrossAmount   string `json:"gross_amount" bson:"gross_amount"`
	NetAmount     string `json:"net_amount" bson:"net_amount"`
	TaxRate       string `json:"tax_rate" bson:"tax_rate"`
	TaxAmount     string `json:"tax_amount" bson:"tax_amount"`
}

// OrderLogEntry is one audit-log record appended to an order whenever the
// gateway reports an event or a refund is issued.
type OrderLogEntry struct {
	Action string    `json:"action" bson:"action"`
	Data   string    `json:"data" bson:"data"`
	Time   time.Time `json:"time" bson:"time"`
}

// Event is the host's event record with its allocation capacity. Capacity
// zero or below means unlimited.
type Event struct {
	Slug      string `json:"slug" bson:"slug"`
	Name      string `json:"name" bson:"name"`
	Capacity  int    `json:"capacity" bson:"capacity"`
	PaidCount int    `json:"paid_count" bson:"paid_count"`
}
