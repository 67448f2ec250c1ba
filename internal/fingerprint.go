package internal

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"strings"

	"qpay/entity"
)

const (
	fingerprintKey      = "requestFingerprint"
	fingerprintOrderKey = "requestFingerprintOrder"
	// secretToken marks the position where the shared secret contributes
	// to the fingerprint payload without being transmitted.
	secretToken = "secret"
)

// Signer computes and verifies HMAC-SHA512 fingerprints over ordered
// parameter sets, keyed by the merchant's shared secret. The secret itself
// is never placed into the parameters, only into the payload.
type Signer struct {
	secret string
}

func NewSigner(secret string) *Signer {
	return &Signer{
		secret: secret,
	}
}

// Sign fingerprints the parameter set. Without an explicit order the keys
// are taken in insertion order, followed by the synthetic
// requestFingerprintOrder and secret entries. The key order used is stored
// in requestFingerprintOrder, and the uppercase hex digest in
// requestFingerprint.
func (s *Signer) Sign(params *entity.ParameterSet, order ...string) *entity.ParameterSet {
	keys := order
	if len(keys) == 0 {
		keys = append(params.Keys(), fingerprintOrderKey, secretToken)
	}
	params.Set(fingerprintOrderKey, strings.Join(keys, ","))

	var payload strings.Builder
	for _, key := range keys {
		if key == secretToken {
			payload.WriteString(s.secret)
		} else {
			payload.WriteString(params.Get(key))
		}
	}
	params.Set(fingerprintKey, s.digest(payload.String()))
	return params
}

// Verify checks an inbound payload's responseFingerprint against a digest
// recomputed from the key order the payload itself declares. It fails
// closed: missing fingerprint fields or a key order that never mixes in the
// secret make the payload invalid regardless of its content.
func (s *Signer) Verify(payload entity.CallbackPayload) bool {
	fingerprint := payload.Fingerprint()
	order := payload.FingerprintOrder()
	if fingerprint == "" || order == "" {
		return false
	}
	if !strings.Contains(order, secretToken) {
		return false
	}

	var buffer strings.Builder
	for _, key := range strings.Split(order, ",") {
		if key == secretToken {
			buffer.WriteString(s.secret)
		} else {
			buffer.WriteString(payload[key])
		}
	}
	expected := s.digest(buffer.String())
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(fingerprint)))
}

func (s *Signer) digest(payload string) string {
	mac := hmac.New(sha512.New, []byte(s.secret))
	mac.Write([]byte(payload))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}
