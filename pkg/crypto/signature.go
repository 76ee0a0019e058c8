package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// UnsignedSignature marks a record written without a local signing key
const UnsignedSignature = "unsigned_transaction"

// Sign returns hex(keccak256(message + privateKeyHex + address)) without a
// 0x prefix. Anyone holding the private key can recompute it; it is a keyed
// hash, not a public-key signature.
func Sign(privateKeyHex, address, message string) string {
	return hex.EncodeToString(ethcrypto.Keccak256([]byte(message + privateKeyHex + address)))
}

// Verify recomputes the signature and compares in constant time
func Verify(privateKeyHex, address, message, signature string) bool {
	expected := Sign(privateKeyHex, address, message)
	got := strings.ToLower(strings.TrimPrefix(signature, "0x"))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
