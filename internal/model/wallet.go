package model

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WalletRecord is the registry's bookkeeping for one custodied address.
// It never contains key material.
type WalletRecord struct {
	Address      common.Address              `json:"address"`
	Name         string                      `json:"name"`
	Balance      *big.Int                    `json:"balance"`
	Nonce        uint64                      `json:"nonce"`
	Tokens       map[common.Address]*big.Int `json:"tokens"`
	Transactions []TransactionRecord         `json:"transactions"`
	CreatedAt    time.Time                   `json:"createdAt"`
}

// NewWalletRecord returns an empty record for address.
func NewWalletRecord(address common.Address, name string, now time.Time) WalletRecord {
	return WalletRecord{
		Address:      address,
		Name:         name,
		Balance:      new(big.Int),
		Tokens:       make(map[common.Address]*big.Int),
		Transactions: []TransactionRecord{},
		CreatedAt:    now.UTC(),
	}
}

// Clone returns a deep copy so callers cannot alias registry state.
func (w WalletRecord) Clone() WalletRecord {
	out := w
	out.Balance = cloneInt(w.Balance)

	out.Tokens = make(map[common.Address]*big.Int, len(w.Tokens))
	for k, v := range w.Tokens {
		out.Tokens[k] = cloneInt(v)
	}

	out.Transactions = make([]TransactionRecord, len(w.Transactions))
	for i, tx := range w.Transactions {
		out.Transactions[i] = tx.Clone()
	}
	return out
}

// WalletStats is a summary view of a wallet.
type WalletStats struct {
	Address          common.Address `json:"address"`
	Balance          *big.Int       `json:"balance"`
	Nonce            uint64         `json:"nonce"`
	TransactionCount int            `json:"transactionCount"`
	PendingCount     int            `json:"pendingCount"`
	TokenCount       int            `json:"tokenCount"`
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
