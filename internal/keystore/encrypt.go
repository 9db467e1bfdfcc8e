package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/ethereum/go-ethereum/common"
)

// EncryptedKey is the at-rest form of one private key. It never holds
// plaintext; Ciphertext carries the GCM tag.
type EncryptedKey struct {
	Address    common.Address `json:"address"`
	Ciphertext []byte         `json:"ciphertext"`
	Salt       []byte         `json:"salt"`
	Nonce      []byte         `json:"nonce"`
}

// Clone returns a deep copy of the entry.
func (e EncryptedKey) Clone() EncryptedKey {
	return EncryptedKey{
		Address:    e.Address,
		Ciphertext: append([]byte(nil), e.Ciphertext...),
		Salt:       append([]byte(nil), e.Salt...),
		Nonce:      append([]byte(nil), e.Nonce...),
	}
}

// Cipher encrypts and decrypts keystore entries with one set of KDF parameters.
type Cipher struct {
	params KDFParams
	rand   io.Reader
}

// NewCipher validates params and returns a Cipher using crypto/rand for salts
// and nonces.
func NewCipher(params KDFParams) (*Cipher, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid kdf params: %w", err)
	}
	return &Cipher{params: params, rand: rand.Reader}, nil
}

// Params returns the KDF parameters of the cipher.
func (c *Cipher) Params() KDFParams {
	return c.params
}

// Encrypt seals privateKey under password. A fresh salt and nonce are drawn
// for every call, so encrypting the same key twice never yields the same entry.
// password must be []byte for security (caller should zero it after use)
func (c *Cipher) Encrypt(address common.Address, privateKey, password []byte) (*EncryptedKey, error) {
	// Generate salt and nonce
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(c.rand, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	aesGCM, err := c.newGCM(password, salt)
	if err != nil {
		return nil, err
	}

	return &EncryptedKey{
		Address:    address,
		Ciphertext: aesGCM.Seal(nil, nonce, privateKey, address.Bytes()),
		Salt:       salt,
		Nonce:      nonce,
	}, nil
}

// newGCM derives the symmetric key and wraps it in AES-GCM. The derived key
// is wiped before returning; the AEAD keeps its own expanded schedule only.
func (c *Cipher) newGCM(password, salt []byte) (cipher.AEAD, error) {
	key, err := c.params.deriveKey(password, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}

// ErrMalformedEntry is returned by Validate for entries that can never
// decrypt: wrong salt or nonce length, or a ciphertext too short to hold a key.
var ErrMalformedEntry = errors.New("malformed key entry")

// Validate checks the shape of the entry without a password.
func (e EncryptedKey) Validate() error {
	switch {
	case len(e.Salt) != saltLen:
		return fmt.Errorf("%w: salt is %d bytes", ErrMalformedEntry, len(e.Salt))
	case len(e.Nonce) != nonceLen:
		return fmt.Errorf("%w: nonce is %d bytes", ErrMalformedEntry, len(e.Nonce))
	case len(e.Ciphertext) != keyLen+tagLen:
		return fmt.Errorf("%w: ciphertext is %d bytes", ErrMalformedEntry, len(e.Ciphertext))
	}
	return nil
}
