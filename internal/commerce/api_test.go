package commerce

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func digest(payload []byte, secret string) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

func TestVerifySignatureBase64(t *testing.T) {
	payload := []byte(`{"id": 123}`)
	secret := "hush"
	sig := base64.StdEncoding.EncodeToString(digest(payload, secret))

	assert.True(t, VerifySignature(payload, sig, secret))
	assert.False(t, VerifySignature([]byte(`{"id": 124}`), sig, secret))
	assert.False(t, VerifySignature(payload, sig, "wrong"))
}

func TestVerifySignatureHex(t *testing.T) {
	payload := []byte(`{"id": 123}`)
	secret := "hush"
	sig := hex.EncodeToString(digest(payload, secret))

	assert.True(t, VerifySignature(payload, sig, secret))
	assert.True(t, VerifySignature(payload, "sha256="+sig, secret))
}

func TestVerifySignatureRejectsEmpty(t *testing.T) {
	payload := []byte(`{"id": 123}`)
	sig := base64.StdEncoding.EncodeToString(digest(payload, "hush"))

	assert.False(t, VerifySignature(payload, "", "hush"))
	assert.False(t, VerifySignature(payload, sig, ""))
	assert.False(t, VerifySignature(payload, "not a signature", "hush"))
}

func TestShippingRatePriceValue(t *testing.T) {
	assert.Equal(t, 5.9, ShippingRate{Price: "5.90"}.PriceValue())
	assert.Equal(t, 5.9, ShippingRate{Price: " 5.90 "}.PriceValue())
	assert.Zero(t, ShippingRate{Price: "free"}.PriceValue())
	assert.Zero(t, ShippingRate{}.PriceValue())
}

func TestMarketCodes(t *testing.T) {
	p := &ProductMarkets{Markets: []MarketAvailability{
		{Code: "DE"}, {Code: "FI"},
	}}
	assert.Equal(t, []string{"DE", "FI"}, p.MarketCodes())
	assert.Empty(t, (&ProductMarkets{}).MarketCodes())
}
