package keystore

import (
	"errors"
)

// ErrAuthenticationFailed is returned when the GCM tag does not verify: the
// password is wrong or the entry was tampered with.
var ErrAuthenticationFailed = errors.New("authentication failed: wrong password or corrupted key entry")

// Decrypt opens entry with password and returns the raw private key.
// Any verification failure yields ErrAuthenticationFailed and no key bytes.
// The caller must clear the returned slice.
func (c *Cipher) Decrypt(entry *EncryptedKey, password []byte) ([]byte, error) {
	if entry == nil || len(entry.Salt) != saltLen || len(entry.Nonce) != nonceLen {
		return nil, ErrAuthenticationFailed
	}

	aesGCM, err := c.newGCM(password, entry.Salt)
	if err != nil {
		return nil, err
	}

	// The address is bound as additional data, so an entry moved under a
	// different address fails here as well.
	plaintext, err := aesGCM.Open(nil, entry.Nonce, entry.Ciphertext, entry.Address.Bytes())
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Verify reports whether password opens entry, without handing out the key.
func (c *Cipher) Verify(entry *EncryptedKey, password []byte) error {
	key, err := c.Decrypt(entry, password)
	if err != nil {
		return err
	}
	clear(key)
	return nil
}
