package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMethodByID(t *testing.T) {
	method, err := MethodByID("cc")
	require.NoError(t, err)
	assert.Equal(t, "CCARD", method.PaymentType)
	assert.Equal(t, 254, method.StatementLimit)
	assert.True(t, method.SupportsCurrency("EUR"))
	assert.True(t, method.SupportsCurrency("USD"))

	_, err = MethodByID("bitcoin")
	assert.Error(t, err)
}

func TestEnabledMethods(t *testing.T) {
	enabled := []string{"cc", "eps", "poli", "paypal"}

	t.Run("FiltersByCurrency", func(t *testing.T) {
		var ids []string
		for _, m := range EnabledMethods(enabled, "EUR") {
			ids = append(ids, m.Identifier)
		}
		assert.ElementsMatch(t, []string{"cc", "eps", "paypal"}, ids)
	})

	t.Run("AUDKeepsOnlyEligible", func(t *testing.T) {
		var ids []string
		for _, m := range EnabledMethods(enabled, "AUD") {
			ids = append(ids, m.Identifier)
		}
		assert.ElementsMatch(t, []string{"cc", "poli", "paypal"}, ids)
	})

	t.Run("NoneEnabled", func(t *testing.T) {
		assert.Empty(t, EnabledMethods(nil, "EUR"))
	})
}
