package backup

import (
	"fmt"
	"maps"
	"slices"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/model"
)

// PasswordFunc supplies the password of one wallet. The returned slice is
// cleared after use.
type PasswordFunc func(addr common.Address) ([]byte, error)

// Rekey re-encrypts every keystore entry of doc from its recorded KDF to
// target, keeping each wallet's password. Wallet records are carried over
// unchanged. Nothing is returned unless every entry was re-encrypted.
func Rekey(doc *Document, target keystore.KDFParams, password PasswordFunc) (*Document, error) {
	from, err := keystore.NewCipher(doc.KDF)
	if err != nil {
		return nil, err
	}
	to, err := keystore.NewCipher(target)
	if err != nil {
		return nil, err
	}

	out := &Document{
		Version:  Version,
		KDF:      target,
		Wallets:  make(map[string]model.WalletRecord, len(doc.Wallets)),
		Keystore: make(map[string]keystore.EncryptedKey, len(doc.Keystore)),
	}

	for _, key := range slices.Sorted(maps.Keys(doc.Wallets)) {
		addr := common.HexToAddress(key)
		e := doc.Keystore[key]

		pw, err := password(addr)
		if err != nil {
			return nil, fmt.Errorf("password for %s: %w", addr, err)
		}
		next, err := reseal(from, to, &e, pw)
		clear(pw)
		if err != nil {
			return nil, fmt.Errorf("rekey %s: %w", addr, err)
		}

		out.Wallets[key] = doc.Wallets[key].Clone()
		out.Keystore[key] = *next
	}
	return out, nil
}

func reseal(from, to *keystore.Cipher, entry *keystore.EncryptedKey, password []byte) (*keystore.EncryptedKey, error) {
	raw, err := from.Decrypt(entry, password)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	return to.Encrypt(entry.Address, raw, password)
}

// Bytes encodes doc as Encode would.
func (d *Document) Bytes() ([]byte, error) {
	return Encode(d.Snapshot(), d.KDF)
}
