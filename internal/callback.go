package internal

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"qpay/entity"
)

// actionGatewayEvent is the audit-log action recorded for every verified
// gateway callback.
const actionGatewayEvent = "qpay.event"

// dummySecret keeps the not-found path doing the same hash work as the
// found path, so order existence does not leak through timing.
const dummySecret = "abcdefghijklmnopq"

// resolveOrder looks up an order by code and checks the URL hash against
// the order's secret. A missing order and a hash mismatch are rejected
// identically.
func (p *Payments) resolveOrder(ctx context.Context, code, hash string) (*entity.Order, error) {
	order, err := p.database.GetOrder(ctx, code)
	if err != nil {
		hashEqual(orderHash(dummySecret), hash)
		return nil, entity.ErrOrderNotFound
	}
	if !hashEqual(orderHash(order.Secret), hash) {
		return nil, entity.ErrOrderNotFound
	}
	return order, nil
}

func hashEqual(expected, supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(supplied))) == 1
}

// Confirm processes a server-to-server payment notification. The payload is
// authenticated only by its fingerprint; on any validation failure no order
// state is touched and the gateway is expected to retry.
func (p *Payments) Confirm(ctx context.Context, orderCode, hash string, payload entity.CallbackPayload) error {
	mutex := p.lockOrder(orderCode)
	defer p.unlockOrder(orderCode, mutex)

	order, err := p.resolveOrder(ctx, orderCode, hash)
	if err != nil {
		return err
	}
	if !p.signer.Verify(payload) {
		p.logger.Warn(fmt.Sprintf("confirm %s: invalid fingerprint", orderCode))
		return entity.ErrInvalidFingerprint
	}

	data, err := payload.JSON()
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := p.database.AppendOrderLog(ctx, order.Code, actionGatewayEvent, data); err != nil {
		p.logger.Error("append order log", err)
	}
	p.logger.Info(fmt.Sprintf("confirm %s: %s", order.Code, payload.StateDescription()))

	return p.reconcile(ctx, order, payload, data)
}

// Return processes a browser return from the gateway. It reports the URL
// the customer should be redirected to; user-facing messages go into the
// session's flash slot for the host to render.
func (p *Payments) Return(ctx context.Context, sessionID, orderCode, hash string, payload entity.CallbackPayload) (string, error) {
	mutex := p.lockOrder(orderCode)
	defer p.unlockOrder(orderCode, mutex)

	order, err := p.resolveOrder(ctx, orderCode, hash)
	if err != nil {
		return "", err
	}
	if !p.signer.Verify(payload) {
		p.logger.Warn(fmt.Sprintf("return %s: invalid fingerprint", orderCode))
		p.flash(ctx, sessionID, "Sorry, we could not validate the payment result. Please try again or "+
			"contact the event organizer to check if your payment was successful.")
		return p.redirectTarget(ctx, sessionID, order), nil
	}

	data, err := payload.JSON()
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}
	if err := p.database.AppendOrderLog(ctx, order.Code, actionGatewayEvent, data); err != nil {
		p.logger.Error("append order log", err)
	}

	// Explicit non-success states short-circuit without touching payment
	// state; only the success fall-through reconciles.
	switch payload.State() {
	case entity.StateCancel:
		p.flash(ctx, sessionID, "The payment process was canceled. You can click below to try again.")
	case entity.StateFailure:
		p.flash(ctx, sessionID, fmt.Sprintf("The payment failed with the following message: %s. "+
			"You can click below to try again.", payload.Message()))
	case entity.StatePending:
		p.flash(ctx, sessionID, "Your payment has started processing and will take a while to complete. "+
			"We will send you an email once your payment is completed. If this takes longer than "+
			"expected, contact the event organizer.")
	default:
		if err := p.reconcile(ctx, order, payload, data); err != nil {
			return "", err
		}
	}
	return p.redirectTarget(ctx, sessionID, order), nil
}

// reconcile persists the verified payload as the order's payment-info
// snapshot and advances the payment state. Only a pending or expired order
// moves to paid, and only on an explicit SUCCESS, which makes redelivery of
// the same gateway event a no-op after the first effective transition.
func (p *Payments) reconcile(ctx context.Context, order *entity.Order, payload entity.CallbackPayload, data string) error {
	if err := p.database.SavePaymentInfo(ctx, order.Code, data); err != nil {
		return fmt.Errorf("save payment info: %w", err)
	}
	order.PaymentInfo = data

	if order.Status != entity.StatusPending && order.Status != entity.StatusExpired {
		return nil
	}
	if payload.State() != entity.StateSuccess {
		return nil
	}

	err := p.database.MarkOrderPaid(ctx, order, provider)
	if errors.Is(err, entity.ErrQuotaExceeded) {
		return p.recordOverpaid(ctx, order, payload)
	}
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	order.Status = entity.StatusPaid
	p.logger.Info(fmt.Sprintf("order %s marked paid", order.Code))
	return nil
}

// recordOverpaid files a durable flag for an operator when the gateway took
// the money but the event is sold out. The flag is keyed by event and order
// code, so redelivery never creates a second record, and the callback is
// still acknowledged: the gateway's event was validly received.
func (p *Payments) recordOverpaid(ctx context.Context, order *entity.Order, payload entity.CallbackPayload) error {
	existing, err := p.database.FindRequiredAction(ctx, order.EventSlug, entity.ActionOverpaid, order.Code)
	if err != nil {
		p.logger.Error("find required action", err)
	}
	if existing != nil {
		return nil
	}

	data, err := json.Marshal(map[string]string{
		"order":  order.Code,
		"charge": payload.OrderNumber(),
	})
	if err != nil {
		return fmt.Errorf("encode required action: %w", err)
	}
	action := &entity.RequiredAction{
		Event:      order.EventSlug,
		ActionType: entity.ActionOverpaid,
		OrderCode:  order.Code,
		Data:       string(data),
		Time:       time.Now(),
	}
	if err := p.database.CreateRequiredAction(ctx, action); err != nil {
		return fmt.Errorf("create required action: %w", err)
	}
	p.logger.Warn(fmt.Sprintf("order %s paid at gateway but quota exceeded, operator action required", order.Code))
	return nil
}

// redirectTarget returns the order page only when the session actually
// belongs to this order's checkout; a stale or foreign session lands on the
// event page instead.
func (p *Payments) redirectTarget(ctx context.Context, sessionID string, order *entity.Order) string {
	bound, err := p.sessions.Get(ctx, sessionID, sessionOrderSecretKey)
	if err != nil || bound != order.Secret {
		p.flash(ctx, sessionID, "Sorry, there was an error in the payment process. Please check the "+
			"link in your emails to continue.")
		return p.eventPageURL(order.OrganizerSlug, order.EventSlug)
	}
	target := p.orderPageURL(order.OrganizerSlug, order.EventSlug, order.Code, order.Secret)
	if order.Status == entity.StatusPaid {
		target += "?paid=yes"
	}
	return target
}

func (p *Payments) flash(ctx context.Context, sessionID, message string) {
	if err := p.sessions.Set(ctx, sessionID, sessionFlashKey, message); err != nil {
		p.logger.Error("store flash message", err)
	}
}
