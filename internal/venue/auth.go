package venue

import (
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignedTimestampAuth generalizes the teacher's wallet-based L1/L2 signing
// into a single venue-agnostic scheme: requests to a venue that requires
// wallet identity carry X-API-KEY (the account's address) and X-TIMESTAMP
// headers, with X-SIGNATURE computed as HMAC-SHA256 over
// timestamp+method+path[+body], keyed by a secret derived from the
// account's private key. This keeps the teacher's header shape (§6.1) while
// dropping Polymarket's EIP-712 ClobAuth payload, which only that one venue
// understands.
type SignedTimestampAuth struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSignedTimestampAuth builds an auth signer from a hex-encoded ECDSA
// private key (optionally 0x-prefixed).
func NewSignedTimestampAuth(privateKeyHex string) (*SignedTimestampAuth, error) {
	keyHex := privateKeyHex
	if len(keyHex) >= 2 && keyHex[:2] == "0x" {
		keyHex = keyHex[2:]
	}
	pk, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &SignedTimestampAuth{
		privateKey: pk,
		address:    crypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the account's Ethereum-style address, used as the
// X-API-KEY identity header.
func (a *SignedTimestampAuth) Address() common.Address { return a.address }

// Headers builds the signed-timestamp header set for one request.
func (a *SignedTimestampAuth) Headers(method, path, body string) map[string]string {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	message := timestamp + method + path + body
	mac := hmac.New(sha256.New, crypto.FromECDSA(a.privateKey))
	mac.Write([]byte(message))
	signature := hex.EncodeToString(mac.Sum(nil))

	return map[string]string{
		"X-API-KEY":   a.address.Hex(),
		"X-TIMESTAMP": timestamp,
		"X-SIGNATURE": signature,
	}
}
