package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/AlexZinkM/custody-wallet/internal/client"
	"github.com/AlexZinkM/custody-wallet/internal/model"
)

var (
	// ErrCooldownActive is returned when an address sent too recently.
	ErrCooldownActive = errors.New("cooldown active")

	// ErrInvalidAmount is returned for negative transfer amounts.
	ErrInvalidAmount = errors.New("amount must not be negative")
)

// Send transfers value wei from from to to.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) Send(ctx context.Context, from, to common.Address, value *big.Int,
	password []byte) (common.Hash, error) {

	return m.SendTransaction(ctx, from, model.TransactionRequest{To: to, Value: value}, password)
}

// SendTransaction signs and submits a fully or partially specified request.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) SendTransaction(ctx context.Context, from common.Address, req model.TransactionRequest,
	password []byte) (common.Hash, error) {

	if req.Value != nil && req.Value.Sign() < 0 {
		return common.Hash{}, ErrInvalidAmount
	}

	cd, err := m.claimCooldown(from)
	if err != nil {
		return common.Hash{}, err
	}

	res, err := m.signer.Send(ctx, from, req, password)
	// A non-nil result with an error was submitted but not recorded: the
	// send happened and still starts the interval.
	m.settleCooldown(cd, res != nil)
	if err != nil {
		if res != nil {
			return res.Hash, err
		}
		return common.Hash{}, err
	}
	return res.Hash, nil
}

// SendToken transfers amount token units of the ERC-20 contract token from
// from to to.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) SendToken(ctx context.Context, from, to, token common.Address, amount *big.Int,
	password []byte) (common.Hash, error) {

	if amount == nil || amount.Sign() < 0 {
		return common.Hash{}, ErrInvalidAmount
	}
	data, err := packTransfer(to, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode transfer: %w", err)
	}

	hash, err := m.SendTransaction(ctx, from, model.TransactionRequest{
		To:    token,
		Value: new(big.Int),
		Data:  data,
		Token: &model.TokenTransfer{Recipient: to, Amount: new(big.Int).Set(amount)},
	}, password)
	if err != nil {
		return hash, err
	}

	m.refreshTrackedToken(ctx, from, token)
	return hash, nil
}

// refreshTrackedToken updates the cached balance of token after a transfer
// if addr tracks it. Failures are logged only.
func (m *Manager) refreshTrackedToken(ctx context.Context, addr, token common.Address) {
	w, err := m.registry.Get(addr)
	if err != nil {
		return
	}
	if _, ok := w.Tokens[token]; !ok {
		return
	}
	if _, err := m.RefreshToken(ctx, addr, token); err != nil {
		m.log.Warn("token balance refresh after transfer failed",
			zap.Stringer("address", addr), zap.Stringer("token", token), zap.Error(err))
	}
}

// BatchItem is one transaction of a batch.
type BatchItem struct {
	From    common.Address
	Request model.TransactionRequest
}

// BatchSend submits items with a shared password. Items from the same sender
// go out in order; different senders proceed concurrently. The first failure
// cancels everything not yet submitted. The returned hashes follow the input
// order; entries that were not submitted are zero.
// password must be []byte for security (caller should zero it after use)
func (m *Manager) BatchSend(ctx context.Context, items []BatchItem, password []byte) ([]common.Hash, error) {
	hashes := make([]common.Hash, len(items))

	bySender := make(map[common.Address][]int)
	var senders []common.Address
	for i, it := range items {
		if _, ok := bySender[it.From]; !ok {
			senders = append(senders, it.From)
		}
		bySender[it.From] = append(bySender[it.From], i)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, from := range senders {
		idx := bySender[from]
		g.Go(func() error {
			for _, i := range idx {
				if err := gctx.Err(); err != nil {
					return err
				}
				h, err := m.SendTransaction(gctx, from, items[i].Request, password)
				if err != nil {
					return fmt.Errorf("batch item %d from %s: %w", i, from, err)
				}
				hashes[i] = h
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		m.log.Warn("batch send stopped", zap.Int("items", len(items)), zap.Error(err))
	}
	return hashes, err
}

// EstimateGas asks the chain client for the gas req would use when sent
// from from.
func (m *Manager) EstimateGas(ctx context.Context, from common.Address, req model.TransactionRequest) (uint64, error) {
	to := req.To
	return m.chain.EstimateGas(ctx, client.CallMsg{
		From:     from,
		To:       &to,
		Value:    req.Value,
		Data:     req.Data,
		GasPrice: req.GasPrice,
	})
}

// GasPrice returns the chain's current legacy gas price.
func (m *Manager) GasPrice(ctx context.Context) (*big.Int, error) {
	return m.chain.GasPrice(ctx)
}

// cooldown is the send interval state of one address.
type cooldown struct {
	lim      *rate.Limiter
	inFlight bool
}

// claimCooldown fails while from is inside its send interval or while
// another send from it is in flight. A successful claim must be settled.
func (m *Manager) claimCooldown(from common.Address) (*cooldown, error) {
	if m.cfg.SendInterval <= 0 {
		return nil, nil
	}

	m.limitersMu.Lock()
	defer m.limitersMu.Unlock()

	cd, ok := m.limiters[from]
	if !ok {
		cd = &cooldown{lim: rate.NewLimiter(rate.Every(m.cfg.SendInterval), 1)}
		m.limiters[from] = cd
	}
	if cd.inFlight {
		return nil, fmt.Errorf("%w, another send from %s is in progress", ErrCooldownActive, from)
	}
	if tokens := cd.lim.Tokens(); tokens < 1 {
		wait := time.Duration((1 - tokens) * float64(m.cfg.SendInterval))
		return nil, fmt.Errorf("%w, please wait %v", ErrCooldownActive, wait.Round(time.Second))
	}
	cd.inFlight = true
	return cd, nil
}

// settleCooldown ends the claim. The interval only starts when the
// transaction was submitted, so failed sends can be retried immediately.
func (m *Manager) settleCooldown(cd *cooldown, submitted bool) {
	if cd == nil {
		return
	}

	m.limitersMu.Lock()
	defer m.limitersMu.Unlock()

	cd.inFlight = false
	if submitted {
		// The claim saw a full token and held inFlight since.
		cd.lim.Allow()
	}
}

func (m *Manager) forgetLimiter(addr common.Address) {
	m.limitersMu.Lock()
	delete(m.limiters, addr)
	m.limitersMu.Unlock()
}
