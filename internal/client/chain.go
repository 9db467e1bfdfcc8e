package client

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallMsg describes a read-only or to-be-estimated call.
type CallMsg struct {
	From     common.Address
	To       *common.Address
	Value    *big.Int
	Data     []byte
	GasPrice *big.Int
}

// Chain is the network-facing collaborator of the wallet: it reads account
// state and broadcasts signed transactions. Every method fails with a
// *ChainClientError.
type Chain interface {
	ChainID(ctx context.Context) (*big.Int, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	Nonce(ctx context.Context, address common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)
	SubmitRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)
	Balance(ctx context.Context, address common.Address) (*big.Int, error)
	CallContract(ctx context.Context, msg CallMsg) ([]byte, error)
}

// ChainClientError wraps any failure reported by the chain client. Callers
// propagate it without interpreting the cause.
type ChainClientError struct {
	Op  string
	Err error
}

func (e *ChainClientError) Error() string {
	return fmt.Sprintf("chain client %s: %v", e.Op, e.Err)
}

func (e *ChainClientError) Unwrap() error {
	return e.Err
}

// wrap tags err with the failing operation.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ChainClientError{Op: op, Err: err}
}
