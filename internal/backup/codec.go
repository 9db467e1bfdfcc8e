// Package backup serializes the wallet registry and its keystore into a
// single JSON document and keeps that document on disk.
//
// The document has two top-level collections keyed by address string:
// wallet records and keystore entries. Keystore entries only ever carry
// {address, ciphertext, salt, nonce}; plaintext keys are never written.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/model"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
)

// Version is the only document version this package reads and writes.
const Version = 1

var (
	// ErrCorruptBackup is returned for documents that cannot be parsed or do
	// not match the expected schema.
	ErrCorruptBackup = errors.New("corrupt backup")

	// ErrKDFMismatch is returned when a backup was written with different KDF
	// parameters than the running keystore uses.
	ErrKDFMismatch = errors.New("backup kdf differs from keystore kdf")
)

// Document is the on-disk layout of a backup.
type Document struct {
	Version  int                              `json:"version"`
	KDF      keystore.KDFParams               `json:"kdf"`
	Wallets  map[string]model.WalletRecord    `json:"wallets"`
	Keystore map[string]keystore.EncryptedKey `json:"keystore"`
}

// Encode serializes snap. The output is deterministic for a given snapshot:
// map keys are emitted in sorted order.
func Encode(snap registry.Snapshot, kdf keystore.KDFParams) ([]byte, error) {
	doc := Document{
		Version:  Version,
		KDF:      kdf,
		Wallets:  make(map[string]model.WalletRecord, len(snap)),
		Keystore: make(map[string]keystore.EncryptedKey, len(snap)),
	}
	for addr, e := range snap {
		doc.Wallets[addr.Hex()] = e.Wallet
		doc.Keystore[addr.Hex()] = e.Key
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return data, nil
}

// Decode parses and validates a backup document. Every failure wraps
// ErrCorruptBackup.
func Decode(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptBackup, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing data after document", ErrCorruptBackup)
	}
	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptBackup, err)
	}
	return &doc, nil
}

func (d *Document) validate() error {
	if d.Version != Version {
		return fmt.Errorf("unsupported version %d", d.Version)
	}
	if err := d.KDF.Validate(); err != nil {
		return err
	}
	if len(d.Wallets) != len(d.Keystore) {
		return fmt.Errorf("%d wallets but %d keystore entries", len(d.Wallets), len(d.Keystore))
	}

	for key, w := range d.Wallets {
		addr, err := parseKey(key)
		if err != nil {
			return err
		}
		if w.Address != addr {
			return fmt.Errorf("wallet %s stored under %s", w.Address, key)
		}

		entry, ok := d.Keystore[key]
		if !ok {
			return fmt.Errorf("wallet %s has no keystore entry", key)
		}
		if entry.Address != addr {
			return fmt.Errorf("keystore entry %s stored under %s", entry.Address, key)
		}
		if err := entry.Validate(); err != nil {
			return fmt.Errorf("keystore entry %s: %w", key, err)
		}
		for _, tx := range w.Transactions {
			if !tx.Status.Valid() {
				return fmt.Errorf("wallet %s: transaction %s has status %q", key, tx.Hash, tx.Status)
			}
		}
	}
	return nil
}

// parseKey accepts only the canonical checksummed form Encode writes, so a
// document cannot carry the same address twice under different spellings.
func parseKey(key string) (common.Address, error) {
	if !common.IsHexAddress(key) {
		return common.Address{}, fmt.Errorf("invalid address key %q", key)
	}
	addr := common.HexToAddress(key)
	if addr.Hex() != key {
		return common.Address{}, fmt.Errorf("address key %q is not checksummed", key)
	}
	return addr, nil
}

// Snapshot converts the document into a registry snapshot.
func (d *Document) Snapshot() registry.Snapshot {
	snap := make(registry.Snapshot, len(d.Wallets))
	for key, w := range d.Wallets {
		addr := common.HexToAddress(key)
		snap[addr] = registry.Entry{Wallet: w, Key: d.Keystore[key]}
	}
	return snap
}

// RequireKDF fails with ErrKDFMismatch unless the document was written with
// params. Entries sealed under other parameters would never decrypt.
func (d *Document) RequireKDF(params keystore.KDFParams) error {
	if !d.KDF.Equal(params) {
		return fmt.Errorf("%w: backup uses %s, keystore uses %s", ErrKDFMismatch, d.KDF, params)
	}
	return nil
}
