// Package clienttest provides an in-memory client.Chain for tests.
package clienttest

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AlexZinkM/custody-wallet/internal/client"
)

// balanceOfSelector is the 4-byte selector of balanceOf(address).
var balanceOfSelector = []byte{0x70, 0xa0, 0x82, 0x31}

var (
	nameSelector        = selector("name()")
	symbolSelector      = selector("symbol()")
	decimalsSelector    = selector("decimals()")
	totalSupplySelector = selector("totalSupply()")
)

func selector(sig string) string {
	return string(crypto.Keccak256([]byte(sig))[:4])
}

// TokenMeta is the ERC-20 metadata a fake token contract reports.
type TokenMeta struct {
	Name     string
	Symbol   string
	Decimals uint8
	Supply   *big.Int
}

// ErrRejected is the default submission failure.
var ErrRejected = errors.New("transaction rejected")

// Fake is a thread-safe in-memory chain. Zero values are usable after
// NewFake; tests tweak the exported fields before use.
type Fake struct {
	mu sync.Mutex

	ID         *big.Int
	Price      *big.Int
	Estimate   uint64
	Balances   map[common.Address]*big.Int
	Nonces     map[common.Address]uint64
	TokenBals  map[common.Address]map[common.Address]*big.Int
	TokenMeta  map[common.Address]TokenMeta
	FailGas    bool
	FailSubmit bool

	// OnSubmit, if set, runs before a submission is accepted. Returning an
	// error rejects the transaction.
	OnSubmit func(tx *types.Transaction) error

	submitted []*types.Transaction
}

// NewFake returns a chain with id 1337 and a 1 gwei gas price.
func NewFake() *Fake {
	return &Fake{
		ID:        big.NewInt(1337),
		Price:     big.NewInt(1_000_000_000),
		Estimate:  60_000,
		Balances:  make(map[common.Address]*big.Int),
		Nonces:    make(map[common.Address]uint64),
		TokenBals: make(map[common.Address]map[common.Address]*big.Int),
		TokenMeta: make(map[common.Address]TokenMeta),
	}
}

var _ client.Chain = (*Fake)(nil)

func (f *Fake) ChainID(context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.ID), nil
}

func (f *Fake) GasPrice(ctx context.Context) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailGas {
		return nil, &client.ChainClientError{Op: "gas price", Err: errors.New("unavailable")}
	}
	return new(big.Int).Set(f.Price), nil
}

func (f *Fake) Nonce(_ context.Context, address common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Nonces[address], nil
}

func (f *Fake) EstimateGas(context.Context, client.CallMsg) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailGas {
		return 0, &client.ChainClientError{Op: "estimate gas", Err: errors.New("unavailable")}
	}
	return f.Estimate, nil
}

func (f *Fake) SubmitRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, &client.ChainClientError{Op: "send raw transaction", Err: err}
	}

	f.mu.Lock()
	hook, fail := f.OnSubmit, f.FailSubmit
	f.mu.Unlock()

	if fail {
		return common.Hash{}, &client.ChainClientError{Op: "send raw transaction", Err: ErrRejected}
	}
	if hook != nil {
		if err := hook(tx); err != nil {
			return common.Hash{}, &client.ChainClientError{Op: "send raw transaction", Err: err}
		}
	}
	if err := ctx.Err(); err != nil {
		return common.Hash{}, &client.ChainClientError{Op: "send raw transaction", Err: err}
	}

	f.mu.Lock()
	f.submitted = append(f.submitted, tx)
	f.mu.Unlock()
	return tx.Hash(), nil
}

func (f *Fake) Balance(_ context.Context, address common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.Balances[address]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// CallContract understands balanceOf(address) against TokenBals and the
// metadata getters against TokenMeta. Anything else reverts.
func (f *Fake) CallContract(_ context.Context, msg client.CallMsg) ([]byte, error) {
	if msg.To != nil && len(msg.Data) == 4 {
		return f.callMeta(*msg.To, string(msg.Data))
	}
	if msg.To == nil || len(msg.Data) != 4+32 || !bytes.Equal(msg.Data[:4], balanceOfSelector) {
		return nil, errReverted
	}
	owner := common.BytesToAddress(msg.Data[4:])

	f.mu.Lock()
	defer f.mu.Unlock()

	bal := new(big.Int)
	if holders, ok := f.TokenBals[*msg.To]; ok && holders[owner] != nil {
		bal.Set(holders[owner])
	}
	return common.LeftPadBytes(bal.Bytes(), 32), nil
}

var errReverted = &client.ChainClientError{Op: "call contract", Err: errors.New("execution reverted")}

func (f *Fake) callMeta(token common.Address, sel string) ([]byte, error) {
	f.mu.Lock()
	meta, ok := f.TokenMeta[token]
	f.mu.Unlock()
	if !ok {
		return nil, errReverted
	}

	switch sel {
	case nameSelector:
		return encode("string", meta.Name)
	case symbolSelector:
		return encode("string", meta.Symbol)
	case decimalsSelector:
		return encode("uint8", meta.Decimals)
	case totalSupplySelector:
		supply := meta.Supply
		if supply == nil {
			supply = new(big.Int)
		}
		return encode("uint256", supply)
	default:
		return nil, errReverted
	}
}

func encode(typ string, v any) ([]byte, error) {
	t, err := abi.NewType(typ, "", nil)
	if err != nil {
		return nil, err
	}
	return abi.Arguments{{Type: t}}.Pack(v)
}

// SetFailSubmit toggles submission failure.
func (f *Fake) SetFailSubmit(fail bool) {
	f.mu.Lock()
	f.FailSubmit = fail
	f.mu.Unlock()
}

// Submitted returns the accepted transactions in submission order.
func (f *Fake) Submitted() []*types.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*types.Transaction(nil), f.submitted...)
}
