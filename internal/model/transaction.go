package model

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TxStatus is the lifecycle state of a submitted transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "PENDING"
	TxStatusConfirmed TxStatus = "CONFIRMED"
	TxStatusFailed    TxStatus = "FAILED"
)

// Valid reports whether s is one of the known statuses.
func (s TxStatus) Valid() bool {
	switch s {
	case TxStatusPending, TxStatusConfirmed, TxStatusFailed:
		return true
	}
	return false
}

// TransactionRecord is one outgoing transaction as seen by this process.
type TransactionRecord struct {
	Hash      common.Hash     `json:"hash"`
	From      common.Address  `json:"from"`
	To        *common.Address `json:"to,omitempty"`
	Value     *big.Int        `json:"value"`
	Nonce     uint64          `json:"nonce"`
	Timestamp time.Time       `json:"timestamp"`
	Status    TxStatus        `json:"status"`
	GasUsed   *uint64         `json:"gasUsed,omitempty"`
	GasPrice  *big.Int        `json:"gasPrice"`

	// Token is set for ERC-20 transfers. To and Value then hold the token
	// recipient and the amount in token units.
	Token *common.Address `json:"token,omitempty"`
}

// Clone returns a deep copy of the record.
func (t TransactionRecord) Clone() TransactionRecord {
	out := t
	if t.To != nil {
		to := *t.To
		out.To = &to
	}
	if t.Token != nil {
		token := *t.Token
		out.Token = &token
	}
	if t.GasUsed != nil {
		used := *t.GasUsed
		out.GasUsed = &used
	}
	out.Value = cloneInt(t.Value)
	out.GasPrice = cloneInt(t.GasPrice)
	return out
}

// TransactionRequest describes an outgoing transaction before signing.
// Unset optional fields are filled in by the signer.
type TransactionRequest struct {
	To       common.Address
	Value    *big.Int
	GasLimit *uint64
	GasPrice *big.Int
	Data     []byte
	Nonce    *uint64

	// Token describes the ERC-20 transfer encoded in Data, for bookkeeping.
	Token *TokenTransfer
}

// TokenTransfer is the recipient and amount of an ERC-20 transfer call.
type TokenTransfer struct {
	Recipient common.Address
	Amount    *big.Int
}

// HistoryFilter represents request parameters for GET /wallets/{address}/transactions
type HistoryFilter struct {
	Status *TxStatus
	To     *common.Address
	From   *time.Time
	Until  *time.Time
}

// Validate validates HistoryFilter parameters.
func (f *HistoryFilter) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return fmt.Errorf("status must be PENDING, CONFIRMED or FAILED")
	}
	if f.From != nil && f.Until != nil && f.Until.Before(*f.From) {
		return fmt.Errorf("until date must be after or equal to from date")
	}
	return nil
}

// Match reports whether tx passes the filter.
func (f *HistoryFilter) Match(tx TransactionRecord) bool {
	if f.Status != nil && tx.Status != *f.Status {
		return false
	}
	if f.To != nil && (tx.To == nil || *tx.To != *f.To) {
		return false
	}
	if f.From != nil && tx.Timestamp.Before(*f.From) {
		return false
	}
	if f.Until != nil && tx.Timestamp.After(*f.Until) {
		return false
	}
	return true
}
