package internal

import (
	"fmt"

	"qpay/entity"
)

// methods is the static table of gateway sub-methods. The limits mirror the
// field widths the gateway enforces per payment rail.
var methods = []entity.Method{
	{Identifier: "cc", Name: "Credit card", PaymentType: "CCARD",
		StatementLimit: 254, ReferenceLimit: 128},
	{Identifier: "bancontact", Name: "Bancontact", PaymentType: "BANCONTACT_MISTERCASH",
		StatementLimit: 50, ReferenceLimit: 32, Currencies: []string{"EUR"}},
	{Identifier: "ekonto", Name: "eKonto", PaymentType: "EKONTO",
		StatementLimit: 152, ReferenceLimit: 32, Currencies: []string{"CZK"}},
	{Identifier: "epaybg", Name: "ePay.bg", PaymentType: "EPAY_BG",
		StatementLimit: 50, ReferenceLimit: 32, Currencies: []string{"BGN"}},
	{Identifier: "eps", Name: "eps", PaymentType: "EPS",
		StatementLimit: 27, ReferenceLimit: 35, Currencies: []string{"EUR"}},
	{Identifier: "giropay", Name: "giropay", PaymentType: "GIROPAY",
		StatementLimit: 27, ReferenceLimit: 35, Currencies: []string{"EUR"}},
	{Identifier: "ideal", Name: "iDEAL", PaymentType: "IDL",
		StatementLimit: 35, ReferenceLimit: 35, Currencies: []string{"EUR"}},
	{Identifier: "moneta", Name: "moneta.ru", PaymentType: "MONETA",
		StatementLimit: 50, ReferenceLimit: 32, Currencies: []string{"EUR", "USD", "RUB"}},
	{Identifier: "paypal", Name: "PayPal", PaymentType: "PAYPAL",
		StatementLimit: 50, ReferenceLimit: 32, Basket: true},
	{Identifier: "poli", Name: "POLi", PaymentType: "POLI",
		StatementLimit: 9, ReferenceLimit: 32, Currencies: []string{"AUD", "NZD"}},
	{Identifier: "przelewy24", Name: "Przelewy24", PaymentType: "PRZELEWY24",
		StatementLimit: 50, ReferenceLimit: 32, Currencies: []string{"PLN"}},
	{Identifier: "psc", Name: "paysafecard", PaymentType: "PSC",
		StatementLimit: 50, ReferenceLimit: 32},
	{Identifier: "sepa", Name: "SEPA direct debit", PaymentType: "SEPA-DD",
		StatementLimit: 81, ReferenceLimit: 32, Currencies: []string{"EUR"}},
	{Identifier: "skrill", Name: "Skrill", PaymentType: "SKRILLWALLET",
		StatementLimit: 50, ReferenceLimit: 32},
	{Identifier: "sofort", Name: "SOFORT", PaymentType: "SOFORTUEBERWEISUNG",
		StatementLimit: 27, ReferenceLimit: 32, Currencies: []string{"EUR"}},
	{Identifier: "tatrapay", Name: "TatraPay", PaymentType: "TATRAPAY",
		StatementLimit: 50, ReferenceLimit: 32, Currencies: []string{"EUR"}},
	{Identifier: "trustly", Name: "Trustly", PaymentType: "TRUSTLY",
		StatementLimit: 50, ReferenceLimit: 32, Currencies: []string{"EUR", "SEK"}},
	{Identifier: "trustpay", Name: "TrustPay", PaymentType: "TRUSTPAY",
		StatementLimit: 50, ReferenceLimit: 32, Currencies: []string{"EUR", "CZK"}},
}

// MethodByID looks up a sub-method descriptor by its identifier.
func MethodByID(id string) (entity.Method, error) {
	for _, m := range methods {
		if m.Identifier == id {
			return m, nil
		}
	}
	return entity.Method{}, fmt.Errorf("unknown payment method: %s", id)
}

// EnabledMethods returns the descriptors that are both enabled in the
// configuration and eligible for the given currency.
func EnabledMethods(enabled []string, currency string) []entity.Method {
	var result []entity.Method
	for _, m := range methods {
		if !m.SupportsCurrency(currency) {
			continue
		}
		for _, id := range enabled {
			if id == m.Identifier {
				result = append(result, m)
				break
			}
		}
	}
	return result
}
