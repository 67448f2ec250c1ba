package internal

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"qpay/entity"
)

// PaymentParams builds the signed redirect parameters for one payment
// attempt. The only side effect is the lazy nonce creation in the session
// store; everything else is a pure computation over the order.
func (p *Payments) PaymentParams(ctx context.Context, sessionID, orderCode, hash, method string) (*entity.ParameterSet, error) {
	if p.conf.Gateway.CustomerID == "" || p.conf.Gateway.Secret == "" {
		return nil, entity.ErrNotConfigured
	}

	order, err := p.resolveOrder(ctx, orderCode, hash)
	if err != nil {
		return nil, err
	}

	descriptor, err := MethodByID(method)
	if err != nil {
		return nil, err
	}
	if !p.methodEnabled(method) {
		return nil, fmt.Errorf("payment method not enabled: %s", method)
	}
	if !descriptor.SupportsCurrency(order.Currency) {
		return nil, fmt.Errorf("method %s does not support currency %s", method, order.Currency)
	}

	nonce, err := p.sessionNonce(ctx, sessionID, order)
	if err != nil {
		return nil, fmt.Errorf("session nonce: %w", err)
	}

	params := p.buildParams(order, descriptor, nonce)
	return p.signer.Sign(params), nil
}

func (p *Payments) buildParams(order *entity.Order, descriptor entity.Method, nonce string) *entity.ParameterSet {
	hash := orderHash(order.Secret)
	event := strings.ToUpper(order.EventSlug)

	params := entity.NewParameterSet()
	params.Set("customerId", p.conf.Gateway.CustomerID)
	if p.conf.Gateway.ShopID != "" {
		params.Set("shopId", p.conf.Gateway.ShopID)
	}
	params.Set("language", languageCode(order.Locale))
	params.Set("paymentType", descriptor.PaymentType)
	params.Set("amount", order.Total)
	params.Set("currency", order.Currency)
	params.Set("orderDescription", fmt.Sprintf("Order %s-%s", event, order.Code))
	params.Set("successUrl", p.returnURL(order.Code, hash))
	params.Set("cancelUrl", p.returnURL(order.Code, hash))
	params.Set("failureUrl", p.returnURL(order.Code, hash))
	params.Set("confirmUrl", p.confirmURL(order.Code, hash))
	params.Set("pendingUrl", p.confirmURL(order.Code, hash))
	params.Set("duplicateRequestCheck", "yes")
	params.Set("serviceUrl", p.conf.Gateway.ServiceURL)
	params.Set("customerStatement", truncate(fmt.Sprintf(
		"ORDER %s EVENT %s BY %s", order.Code, event, order.OrganizerName,
	), descriptor.StatementLimit))
	params.Set("orderReference", truncate(order.Code+nonce, descriptor.ReferenceLimit))
	params.Set("displayText", fmt.Sprintf(
		"Order %s for event %s by %s", order.Code, order.EventName, order.OrganizerName,
	))
	params.Set("hostOrderCode", order.Code)
	params.Set("hostEventSlug", order.EventSlug)
	params.Set("hostOrganizerSlug", order.OrganizerSlug)
	params.Set("hostNonce", nonce)

	if descriptor.Basket {
		addBasket(params, order.Lines)
	}
	return params
}

// sessionNonce returns the session's payment nonce, creating it on the
// first payment attempt of the session. The nonce stays stable for the
// lifetime of the session so repeated attempts for the same order remain
// distinguishable without regenerating on resumption. The order secret is
// bound to the session here as well, for the return redirect check.
func (p *Payments) sessionNonce(ctx context.Context, sessionID string, order *entity.Order) (string, error) {
	nonce, err := p.sessions.Get(ctx, sessionID, sessionNonceKey)
	if err != nil {
		return "", err
	}
	if nonce == "" {
		nonce = uuid.NewString()
		if err := p.sessions.Set(ctx, sessionID, sessionNonceKey, nonce); err != nil {
			return "", err
		}
	}
	if err := p.sessions.Set(ctx, sessionID, sessionOrderSecretKey, order.Secret); err != nil {
		return "", err
	}
	return nonce, nil
}

// addBasket emits one group of item fields per order line plus the count
// field, for methods that require shopping basket data.
func addBasket(params *entity.ParameterSet, lines []entity.OrderLine) {
	params.Set("basketItems", strconv.Itoa(len(lines)))
	for i, line := range lines {
		prefix := fmt.Sprintf("basketItem%d", i+1)
		params.Set(prefix+"ArticleNumber", line.ArticleNumber)
		params.Set(prefix+"Name", truncate(line.Description, 128))
		params.Set(prefix+"Quantity", strconv.Itoa(line.Quantity))
		params.Set(prefix+"UnitGrossAmount", line.GrossAmount)
		params.Set(prefix+"UnitNetAmount", line.NetAmount)
		params.Set(prefix+"UnitTaxRate", line.TaxRate)
		params.Set(prefix+"UnitTaxAmount", line.TaxAmount)
	}
}

func (p *Payments) methodEnabled(method string) bool {
	for _, id := range p.conf.Gateway.Methods {
		if id == method {
			return true
		}
	}
	return false
}

// languageCode reduces a locale like "de-AT" to its 2-letter language code.
func languageCode(locale string) string {
	if len(locale) > 2 {
		return locale[:2]
	}
	return locale
}

// truncate cuts a string to at most limit bytes. Limit zero means no limit.
func truncate(s string, limit int) string {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
