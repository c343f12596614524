package venue

import "testing"

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestSignedTimestampAuthHeaders(t *testing.T) {
	t.Parallel()

	auth, err := NewSignedTimestampAuth(testPrivateKey)
	if err != nil {
		t.Fatalf("NewSignedTimestampAuth: %v", err)
	}

	headers := auth.Headers("GET", "/ticker/BTC-USDC", "")
	for _, key := range []string{"X-API-KEY", "X-TIMESTAMP", "X-SIGNATURE"} {
		if headers[key] == "" {
			t.Errorf("expected header %s to be set", key)
		}
	}
	if headers["X-API-KEY"] != auth.Address().Hex() {
		t.Errorf("X-API-KEY = %s, want %s", headers["X-API-KEY"], auth.Address().Hex())
	}
}

func TestSignedTimestampAuthAccepts0xPrefix(t *testing.T) {
	t.Parallel()

	if _, err := NewSignedTimestampAuth("0x" + testPrivateKey); err != nil {
		t.Errorf("0x-prefixed key should parse: %v", err)
	}
}
