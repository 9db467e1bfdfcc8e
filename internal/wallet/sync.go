package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/client"
	"github.com/AlexZinkM/custody-wallet/internal/model"
)

// ErrTokenNotTracked is returned for token operations on a token that was
// never added to the wallet.
var ErrTokenNotTracked = errors.New("token not tracked by wallet")

// RefreshWallet pulls balance and nonce from the chain into the cached
// record. The cached nonce only moves forward.
func (m *Manager) RefreshWallet(ctx context.Context, addr common.Address) (model.WalletRecord, error) {
	if _, err := m.registry.Get(addr); err != nil {
		return model.WalletRecord{}, err
	}

	balance, err := m.chain.Balance(ctx, addr)
	if err != nil {
		return model.WalletRecord{}, err
	}
	nonce, err := m.chain.Nonce(ctx, addr)
	if err != nil {
		return model.WalletRecord{}, err
	}

	if _, err := m.signer.SyncNonce(ctx, addr, nonce); err != nil {
		return model.WalletRecord{}, err
	}

	var out model.WalletRecord
	err = m.registry.Mutate(addr, func(w *model.WalletRecord) error {
		w.Balance = balance
		out = w.Clone()
		return nil
	})
	if err != nil {
		return model.WalletRecord{}, err
	}

	m.log.Debug("wallet refreshed", zap.Stringer("address", addr),
		zap.Stringer("balance", balance), zap.Uint64("nonce", out.Nonce))
	return out, nil
}

// TokenBalance queries the ERC-20 balance of owner at token.
func (m *Manager) TokenBalance(ctx context.Context, owner, token common.Address) (*big.Int, error) {
	data, err := packBalanceOf(owner)
	if err != nil {
		return nil, fmt.Errorf("failed to encode balanceOf: %w", err)
	}

	out, err := m.chain.CallContract(ctx, client.CallMsg{From: owner, To: &token, Data: data})
	if err != nil {
		return nil, err
	}
	return unpackBalance(out)
}

// TokenInfo reads the ERC-20 metadata of token.
func (m *Manager) TokenInfo(ctx context.Context, token common.Address) (model.TokenInfo, error) {
	info := model.TokenInfo{Address: token.Hex()}
	var err error

	if info.Name, err = callToken[string](ctx, m.chain, token, "name"); err != nil {
		return model.TokenInfo{}, err
	}
	if info.Symbol, err = callToken[string](ctx, m.chain, token, "symbol"); err != nil {
		return model.TokenInfo{}, err
	}
	if info.Decimals, err = callToken[uint8](ctx, m.chain, token, "decimals"); err != nil {
		return model.TokenInfo{}, err
	}
	supply, err := callToken[*big.Int](ctx, m.chain, token, "totalSupply")
	if err != nil {
		return model.TokenInfo{}, err
	}
	info.TotalSupply = supply.String()
	return info, nil
}

func callToken[T any](ctx context.Context, chain client.Chain, token common.Address, method string) (T, error) {
	var zero T
	data, err := erc20.Pack(method)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s: %w", method, err)
	}
	out, err := chain.CallContract(ctx, client.CallMsg{To: &token, Data: data})
	if err != nil {
		return zero, err
	}
	return unpackSingle[T](method, out)
}

// AddToken starts tracking token for addr and records its current balance.
func (m *Manager) AddToken(ctx context.Context, addr, token common.Address) (*big.Int, error) {
	if _, err := m.registry.Get(addr); err != nil {
		return nil, err
	}

	bal, err := m.TokenBalance(ctx, addr, token)
	if err != nil {
		return nil, err
	}

	err = m.registry.Mutate(addr, func(w *model.WalletRecord) error {
		w.Tokens[token] = bal
		return nil
	})
	return bal, err
}

// RefreshToken updates the cached balance of a tracked token.
func (m *Manager) RefreshToken(ctx context.Context, addr, token common.Address) (*big.Int, error) {
	w, err := m.registry.Get(addr)
	if err != nil {
		return nil, err
	}
	if _, ok := w.Tokens[token]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrTokenNotTracked, token)
	}

	bal, err := m.TokenBalance(ctx, addr, token)
	if err != nil {
		return nil, err
	}

	err = m.registry.Mutate(addr, func(w *model.WalletRecord) error {
		// Removed while the call was in flight.
		if _, ok := w.Tokens[token]; !ok {
			return fmt.Errorf("%w: %s", ErrTokenNotTracked, token)
		}
		w.Tokens[token] = bal
		return nil
	})
	return bal, err
}

// RemoveToken stops tracking token for addr.
func (m *Manager) RemoveToken(addr, token common.Address) error {
	return m.registry.Mutate(addr, func(w *model.WalletRecord) error {
		if _, ok := w.Tokens[token]; !ok {
			return fmt.Errorf("%w: %s", ErrTokenNotTracked, token)
		}
		delete(w.Tokens, token)
		return nil
	})
}

// History returns the transactions of addr that pass filter, oldest first.
// A nil filter returns everything.
func (m *Manager) History(addr common.Address, filter *model.HistoryFilter) ([]model.TransactionRecord, error) {
	if filter != nil {
		if err := filter.Validate(); err != nil {
			return nil, err
		}
	}

	w, err := m.registry.Get(addr)
	if err != nil {
		return nil, err
	}

	out := make([]model.TransactionRecord, 0, len(w.Transactions))
	for _, tx := range w.Transactions {
		if filter == nil || filter.Match(tx) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// Stats summarizes the cached state of addr.
func (m *Manager) Stats(addr common.Address) (model.WalletStats, error) {
	w, err := m.registry.Get(addr)
	if err != nil {
		return model.WalletStats{}, err
	}

	stats := model.WalletStats{
		Address:          w.Address,
		Balance:          w.Balance,
		Nonce:            w.Nonce,
		TransactionCount: len(w.Transactions),
		TokenCount:       len(w.Tokens),
	}
	for _, tx := range w.Transactions {
		if tx.Status == model.TxStatusPending {
			stats.PendingCount++
		}
	}
	return stats, nil
}
