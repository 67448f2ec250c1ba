package entity

// Method describes one payment sub-method of the gateway's hosted payment
// page. Field-length limits differ per payment rail because the gateway
// enforces different widths on the underlying networks.
type Method struct {
	// Identifier is the internal method id used in configuration.
	Identifier string
	// Name is the customer-facing display name.
	Name string
	// PaymentType is the protocol code sent as paymentType.
	PaymentType string
	// StatementLimit caps the customerStatement field, in bytes.
	StatementLimit int
	// ReferenceLimit caps the orderReference field, in bytes.
	ReferenceLimit int
	// Currencies lists eligible currencies; empty means any.
	Currencies []string
	// Basket marks methods that require shopping basket item fields.
	Basket bool
}

// SupportsCurrency reports whether the method can charge in the given
// currency.
func (m Method) SupportsCurrency(currency string) bool {
	if len(m.Currencies) == 0 {
		return true
	}
	for _, c := range m.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}
