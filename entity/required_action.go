package entity

import "time"

// ActionOverpaid flags a payment that succeeded at the gateway while the
// event's allocation was already exhausted. Money was taken; an operator
// has to resolve the order by hand.
const ActionOverpaid = "qpay.overpaid"

// RequiredAction is a durable flag for an operator. Event, ActionType and
// OrderCode together form the identity; repeated delivery of the same
// gateway event must not create a second record.
type RequiredAction struct {
	Event      string    `json:"event" bson:"event"`
	ActionType string    `json:"action_type" bson:"action_type"`
	OrderCode  string    `json:"order" bson:"order"`
	Data       string    `json:"data" bson:"data"`
	Time       time.Time `json:"time" bson:"time"`
}
