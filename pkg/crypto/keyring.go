package crypto

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// EntropyBits yields a 12-word phrase
	EntropyBits = 128
	// DerivationPath is the only path wallets are derived at
	DerivationPath = "m/44'/60'/0'/0/0"
)

var ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

var derivationIndexes = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

var (
	newEntropy  = bip39.NewEntropy
	newMnemonic = bip39.NewMnemonic
)

// Keys is the key material derived from a phrase
type Keys struct {
	Address    string
	PrivateKey string
	PublicKey  string
}

// Keyring turns recovery phrases into wallet keys
type Keyring struct{}

func NewKeyring() *Keyring {
	return &Keyring{}
}

// Generate returns a fresh 12-word English phrase
func (k *Keyring) Generate() (string, error) {
	entropy, err := newEntropy(EntropyBits)
	if err != nil {
		return "", fmt.Errorf("failed to read entropy: %w", err)
	}
	phrase, err := newMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("failed to encode mnemonic: %w", err)
	}
	return phrase, nil
}

// Validate reports whether the phrase has a valid wordlist and checksum
func (k *Keyring) Validate(phrase string) bool {
	return bip39.IsMnemonicValid(NormalizeMnemonic(phrase))
}

// Derive computes the keys at DerivationPath. The same phrase always
// yields the same keys.
func (k *Keyring) Derive(phrase string) (*Keys, error) {
	phrase = NormalizeMnemonic(phrase)
	if !bip39.IsMnemonicValid(phrase) {
		return nil, ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(phrase, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create master key: %w", err)
	}
	for _, idx := range derivationIndexes {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("failed to derive child %d: %w", idx, err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract private key: %w", err)
	}
	pub, err := key.ECPubKey()
	if err != nil {
		return nil, fmt.Errorf("failed to extract public key: %w", err)
	}
	compressed := pub.SerializeCompressed()

	return &Keys{
		Address:    AddressFromCompressedKey(compressed),
		PrivateKey: hex.EncodeToString(priv.Serialize()),
		PublicKey:  hex.EncodeToString(compressed),
	}, nil
}

// AddressFromCompressedKey hashes the key without its prefix byte and keeps
// the last 20 bytes. Existing ledgers were written with this scheme, so it
// must not be swapped for the uncompressed Ethereum derivation.
func AddressFromCompressedKey(compressed []byte) string {
	if len(compressed) == 0 {
		return ""
	}
	digest := hex.EncodeToString(ethcrypto.Keccak256(compressed[1:]))
	return "0x" + digest[len(digest)-40:]
}

// NormalizeMnemonic collapses whitespace runs into single spaces
func NormalizeMnemonic(phrase string) string {
	return strings.Join(strings.Fields(phrase), " ")
}
