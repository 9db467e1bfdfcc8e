package wallet

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrMalformedSignature is returned for signatures that are not 65 bytes of
// 0x-prefixed hex with a recovery id of 0, 1, 27 or 28.
var ErrMalformedSignature = errors.New("malformed signature")

// SignMessage signs message with the EIP-191 personal-message prefix and
// returns the 65-byte [R || S || V] signature as 0x hex, V being 27 or 28.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) SignMessage(addr common.Address, message string, password []byte) (string, error) {
	kp, err := m.signer.Unlock(addr, password)
	if err != nil {
		return "", err
	}
	defer kp.Zero()

	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), kp.Private)
	if err != nil {
		return "", fmt.Errorf("failed to sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	return hexutil.Encode(sig), nil
}

// VerifySignature reports whether signature over message was produced by the
// key of addr. A well-formed signature that recovers to another address, or
// to no address at all, is reported as false without error.
func VerifySignature(message, signature string, addr common.Address) (bool, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrMalformedSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("%w: %d bytes", ErrMalformedSignature, len(sig))
	}

	v := sig[crypto.RecoveryIDOffset]
	if v >= 27 {
		v -= 27
	}
	if v > 1 {
		return false, fmt.Errorf("%w: recovery id %d", ErrMalformedSignature, sig[crypto.RecoveryIDOffset])
	}
	sig[crypto.RecoveryIDOffset] = v

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return false, nil
	}
	return crypto.PubkeyToAddress(*pub) == addr, nil
}

// VerifySignature is the package-level VerifySignature; it needs no wallet.
func (m *Manager) VerifySignature(message, signature string, addr common.Address) (bool, error) {
	return VerifySignature(message, signature, addr)
}
