package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"qpay/entity"
)

const actionRefund = "qpay.refund"

// toolkitFingerprintOrder is the exact key sequence the management
// endpoint expects for the refund command, overriding the default
// insertion-order signing rule.
var toolkitFingerprintOrder = []string{
	"customerId", "shopId", "toolkitPassword", "secret",
	"command", "language", "orderNumber", "amount", "currency",
}

// Refund refunds a paid order. When no toolkit password is configured the
// gateway call is skipped and the order is marked refunded regardless: the
// money movement then happens out of band and the operator is notified via
// the log. The refund command is sent exactly once and never retried; the
// gateway gives no idempotency guarantee, so after a transport failure an
// operator should check the gateway console before triggering it again.
func (p *Payments) Refund(ctx context.Context, orderCode, amount string) error {
	mutex := p.lockOrder(orderCode)
	defer p.unlockOrder(orderCode, mutex)

	order, err := p.database.GetOrder(ctx, orderCode)
	if err != nil {
		return entity.ErrOrderNotFound
	}
	if order.Status != entity.StatusPaid {
		return fmt.Errorf("order %s is not paid", orderCode)
	}
	if amount == "" {
		amount = order.Total
	}

	err = p.toolkitRefund(ctx, order, amount)
	if errors.Is(err, entity.ErrNotConfigured) {
		p.logger.Warn(fmt.Sprintf("refund %s: no toolkit password configured, refund must be sent manually", orderCode))
	} else if err != nil {
		// Gateway rejected or unreachable: the order stays unrefunded for
		// manual handling.
		return err
	}

	if err := p.database.MarkOrderRefunded(ctx, order, provider); err != nil {
		return fmt.Errorf("mark order refunded: %w", err)
	}
	order.Status = entity.StatusRefunded

	data, _ := json.Marshal(map[string]string{"amount": amount, "currency": order.Currency})
	if err := p.database.AppendOrderLog(ctx, order.Code, actionRefund, string(data)); err != nil {
		p.logger.Error("append order log", err)
	}
	p.logger.Info(fmt.Sprintf("order %s refunded, amount %s %s", orderCode, amount, order.Currency))
	return nil
}

// toolkitRefund posts a signed refund command to the gateway's management
// endpoint and interprets its form-encoded response.
func (p *Payments) toolkitRefund(ctx context.Context, order *entity.Order, amount string) error {
	gateway := p.conf.Gateway
	if gateway.ToolkitPassword == "" {
		return entity.ErrNotConfigured
	}

	info := entity.PaymentInfoFromJSON(order.PaymentInfo)
	number := info.OrderNumber()
	if number == "" {
		return fmt.Errorf("order %s has no gateway order number", order.Code)
	}

	params := entity.NewParameterSet()
	params.Set("customerId", gateway.CustomerID)
	params.Set("shopId", gateway.ShopID)
	params.Set("toolkitPassword", gateway.ToolkitPassword)
	params.Set("command", "refund")
	params.Set("language", languageCode(order.Locale))
	params.Set("orderNumber", number)
	params.Set("amount", amount)
	params.Set("currency", order.Currency)
	p.signer.Sign(params, toolkitFingerprintOrder...)

	form := url.Values{}
	for _, key := range params.Keys() {
		form.Set(key, params.Get(key))
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, gateway.ToolkitURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create toolkit request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := p.httpClient.Do(request)
	if err != nil {
		p.logger.Error(fmt.Sprintf("refund %s: toolkit request", order.Code), err)
		return fmt.Errorf("%w: %v", entity.ErrGatewayUnreachable, err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			p.logger.Error("close response body", err)
		}
	}(response.Body)

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", entity.ErrGatewayUnreachable, err)
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return fmt.Errorf("%w: parse response: %v", entity.ErrGatewayUnreachable, err)
	}

	if status := values.Get("status"); status != "0" {
		gatewayErr := &entity.GatewayError{Status: status, Message: values.Get("message")}
		p.logger.Warn(fmt.Sprintf("refund %s: %v", order.Code, gatewayErr))
		return gatewayErr
	}
	return nil
}
