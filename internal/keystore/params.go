// Package keystore encrypts private keys at rest behind a password using a
// slow key derivation function and AES-256-GCM.
package keystore

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// KDF names a password-based key derivation function.
type KDF string

const (
	KDFScrypt KDF = "scrypt"
	KDFPBKDF2 KDF = "pbkdf2"
)

const (
	// scrypt parameters for the local keystore.
	//
	// N=2^18 (~256MB RAM, 0.5-2s) keeps brute force expensive while still
	// fitting in the memory budget of small hosts.
	DefaultScryptN = 1 << 18
	DefaultScryptR = 8
	DefaultScryptP = 1

	// PBKDF2-HMAC-SHA256 iteration count when pbkdf2 is selected.
	DefaultPBKDF2Iterations = 600_000

	MinScryptN          = 1 << 10
	MinPBKDF2Iterations = 10_000

	keyLen   = 32
	saltLen  = 32
	nonceLen = 12
	tagLen   = 16
)

// KDFParams is the tunable part of the cipher. It is configuration, not a
// property of a single entry: every entry in one keystore uses the same
// parameters, and backups record them in their header.
type KDFParams struct {
	Name       KDF `json:"name"`
	N          int `json:"n,omitempty"`
	R          int `json:"r,omitempty"`
	P          int `json:"p,omitempty"`
	Iterations int `json:"iterations,omitempty"`
}

// DefaultKDFParams returns the scrypt parameters used when nothing is configured.
func DefaultKDFParams() KDFParams {
	return KDFParams{
		Name: KDFScrypt,
		N:    DefaultScryptN,
		R:    DefaultScryptR,
		P:    DefaultScryptP,
	}
}

// Validate rejects unknown functions and settings below the minimum work factor.
func (p KDFParams) Validate() error {
	switch p.Name {
	case KDFScrypt:
		if p.N < MinScryptN || p.N&(p.N-1) != 0 {
			return fmt.Errorf("scrypt N must be a power of two >= %d, got %d", MinScryptN, p.N)
		}
		if p.R <= 0 || p.P <= 0 {
			return errors.New("scrypt r and p must be positive")
		}
	case KDFPBKDF2:
		if p.Iterations < MinPBKDF2Iterations {
			return fmt.Errorf("pbkdf2 iterations must be >= %d, got %d", MinPBKDF2Iterations, p.Iterations)
		}
	default:
		return fmt.Errorf("unknown kdf %q", p.Name)
	}
	return nil
}

// Equal reports whether both parameter sets derive identical keys.
func (p KDFParams) Equal(o KDFParams) bool {
	if p.Name != o.Name {
		return false
	}
	if p.Name == KDFPBKDF2 {
		return p.Iterations == o.Iterations
	}
	return p.N == o.N && p.R == o.R && p.P == o.P
}

func (p KDFParams) String() string {
	if p.Name == KDFPBKDF2 {
		return fmt.Sprintf("pbkdf2(sha256, iter=%d)", p.Iterations)
	}
	return fmt.Sprintf("scrypt(N=%d, r=%d, p=%d)", p.N, p.R, p.P)
}

// deriveKey stretches password into a 32-byte AES key. The caller clears it.
func (p KDFParams) deriveKey(password, salt []byte) ([]byte, error) {
	switch p.Name {
	case KDFScrypt:
		return scrypt.Key(password, salt, p.N, p.R, p.P, keyLen)
	case KDFPBKDF2:
		return pbkdf2.Key(password, salt, p.Iterations, keyLen, sha256.New), nil
	default:
		return nil, fmt.Errorf("unknown kdf %q", p.Name)
	}
}
