// Package keys generates and imports secp256k1 key pairs and derives their
// 20-byte account addresses.
package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PrivateKeyLen is the length of a raw secp256k1 private scalar.
const PrivateKeyLen = 32

// ErrMalformedKey is returned when raw key bytes are not a valid secp256k1
// private scalar.
var ErrMalformedKey = errors.New("malformed private key")

// KeyPair holds an unlocked private key. It must only live for the duration
// of a generate, import or unlock call; call Zero when done with it.
type KeyPair struct {
	Private *ecdsa.PrivateKey
}

// Public returns the public point of the pair.
func (kp *KeyPair) Public() *ecdsa.PublicKey {
	return &kp.Private.PublicKey
}

// Address returns the address derived from the public key.
func (kp *KeyPair) Address() common.Address {
	return DeriveAddress(kp.Public())
}

// Bytes returns the 32-byte big-endian private scalar. The caller owns the
// returned slice and should clear it after use.
func (kp *KeyPair) Bytes() []byte {
	return crypto.FromECDSA(kp.Private)
}

// Zero wipes the private scalar from memory.
func (kp *KeyPair) Zero() {
	if kp == nil {
		return
	}
	ZeroKey(kp.Private)
}

// Generator produces key pairs from a random source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{rand: rand.Reader}
}

// Generate creates a fresh key pair. An error here means the random source
// is exhausted or broken.
func (g *Generator) Generate() (*KeyPair, error) {
	priv, err := ecdsa.GenerateKey(crypto.S256(), g.rand)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &KeyPair{Private: priv}, nil
}

// Import builds a key pair from a raw 32-byte scalar. The scalar must lie in
// [1, N-1] where N is the curve order.
func Import(raw []byte) (*KeyPair, error) {
	if len(raw) != PrivateKeyLen {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d",
			ErrMalformedKey, PrivateKeyLen, len(raw))
	}

	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	return &KeyPair{Private: priv}, nil
}

// ImportHex is Import for a hex string with an optional 0x prefix.
func ImportHex(s string) (*KeyPair, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex", ErrMalformedKey)
	}
	defer clear(raw)

	return Import(raw)
}

// DeriveAddress returns the last 20 bytes of the Keccak-256 hash of the
// uncompressed public key without its 0x04 prefix.
func DeriveAddress(pub *ecdsa.PublicKey) common.Address {
	return crypto.PubkeyToAddress(*pub)
}

// ZeroKey overwrites the private scalar words in place.
func ZeroKey(k *ecdsa.PrivateKey) {
	if k == nil || k.D == nil {
		return
	}
	clear(k.D.Bits())
	k.D.SetInt64(0)
}
