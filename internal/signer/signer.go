// Package signer builds, signs and submits outgoing transactions.
//
// An attempt moves through Requested -> Reserved -> Unlocked -> Priced ->
// Signed -> Submitted. The private key only exists between Unlocked and
// Signed and is wiped on every exit path. The sender's nonce is reserved
// before the key is unlocked, so sends of one address decrypt one at a time.
// It is only committed to the registry after the chain client accepted the
// transaction; any earlier failure releases it for a retry.
package signer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/client"
	"github.com/AlexZinkM/custody-wallet/internal/keys"
	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/metrics"
	"github.com/AlexZinkM/custody-wallet/internal/model"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
)

// DefaultGasLimit is the gas of a plain value transfer without payload.
const DefaultGasLimit = 21_000

var (
	// ErrSubmissionFailed is returned when the chain client rejected or
	// timed out on the signed transaction. The nonce was not consumed, so the
	// same request can be retried.
	ErrSubmissionFailed = errors.New("transaction submission failed")

	// ErrKeyMismatch is returned when a decrypted key does not belong to the
	// address it is stored under.
	ErrKeyMismatch = errors.New("decrypted key does not match wallet address")
)

// Config holds the signer's static parameters.
type Config struct {
	ChainID         *big.Int
	DefaultGasLimit uint64
}

// Signer turns transaction requests into submitted transactions.
type Signer struct {
	registry  *registry.Registry
	cipher    *keystore.Cipher
	chain     client.Chain
	sequencer *Sequencer
	signer    types.Signer
	gasLimit  uint64
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// New returns a Signer. cfg.ChainID is required.
func New(cfg Config, reg *registry.Registry, cipher *keystore.Cipher, chain client.Chain,
	m *metrics.Metrics, log *zap.Logger) (*Signer, error) {

	if cfg.ChainID == nil || cfg.ChainID.Sign() <= 0 {
		return nil, errors.New("chain id must be positive")
	}
	gasLimit := cfg.DefaultGasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}

	return &Signer{
		registry:  reg,
		cipher:    cipher,
		chain:     chain,
		sequencer: NewSequencer(reg),
		signer:    types.LatestSignerForChainID(cfg.ChainID),
		gasLimit:  gasLimit,
		metrics:   m,
		log:       log.Named("signer"),
		now:       time.Now,
	}, nil
}

// Result describes a submitted transaction.
type Result struct {
	Hash   common.Hash
	Nonce  uint64
	Record model.TransactionRecord
}

// Send signs req with the key of from, unlocked by password, and submits it.
// password must be []byte for security (caller should zero it after use)
func (s *Signer) Send(ctx context.Context, from common.Address, req model.TransactionRequest,
	password []byte) (*Result, error) {

	res, err := s.send(ctx, from, req, password)
	s.metrics.SignAttempts.WithLabelValues(outcome(err)).Inc()
	return res, err
}

func (s *Signer) send(ctx context.Context, from common.Address, req model.TransactionRequest,
	password []byte) (*Result, error) {

	// Reserved. The reservation is held until submission settles.
	resv, err := s.sequencer.Reserve(ctx, from)
	if err != nil {
		return nil, err
	}
	defer resv.Release()

	// Unlocked.
	kp, err := s.Unlock(from, password)
	if err != nil {
		return nil, err
	}
	defer kp.Zero()

	s.metrics.SignInFlight.Inc()
	defer s.metrics.SignInFlight.Dec()

	// Priced.
	nonce := resv.Nonce()
	if req.Nonce != nil {
		nonce = *req.Nonce
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		gasPrice, err = s.chain.GasPrice(ctx)
		if err != nil {
			return nil, err
		}
	}

	gasLimit, err := s.gasLimitFor(ctx, from, req, gasPrice)
	if err != nil {
		return nil, err
	}

	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	to := req.To

	// Signed.
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gasLimit,
		To:       &to,
		Value:    value,
		Data:     req.Data,
	})
	signed, err := types.SignTx(tx, s.signer, kp.Private)
	kp.Zero()
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}

	// Submitted.
	start := time.Now()
	hash, err := s.chain.SubmitRawTransaction(ctx, raw)
	s.metrics.SubmitDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.log.Warn("submission failed, nonce released",
			zap.Stringer("from", from), zap.Uint64("nonce", nonce), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	if hash != signed.Hash() {
		s.log.Warn("chain client reported unexpected hash",
			zap.Stringer("reported", hash), zap.Stringer("computed", signed.Hash()))
	}

	record := model.TransactionRecord{
		Hash:      hash,
		From:      from,
		To:        &to,
		Value:     new(big.Int).Set(value),
		Nonce:     nonce,
		Timestamp: s.now().UTC(),
		Status:    model.TxStatusPending,
		GasPrice:  new(big.Int).Set(gasPrice),
	}
	if req.Token != nil {
		contract, recipient := to, req.Token.Recipient
		record.Token = &contract
		record.To = &recipient
		record.Value = new(big.Int).Set(req.Token.Amount)
	}
	if err := resv.Commit(record); err != nil {
		// The transaction is already on its way; surface both facts.
		s.log.Error("transaction submitted but bookkeeping failed",
			zap.Stringer("hash", hash), zap.Stringer("from", from), zap.Error(err))
		return &Result{Hash: hash, Nonce: nonce, Record: record},
			fmt.Errorf("transaction %s submitted but not recorded: %w", hash, err)
	}

	s.log.Info("transaction submitted",
		zap.Stringer("hash", hash), zap.Stringer("from", from),
		zap.Stringer("to", to), zap.Uint64("nonce", nonce))

	return &Result{Hash: hash, Nonce: nonce, Record: record}, nil
}

// Unlock decrypts the key stored for addr. The caller must Zero the pair.
// password must be []byte for security (caller should zero it after use)
func (s *Signer) Unlock(addr common.Address, password []byte) (*keys.KeyPair, error) {
	entry, err := s.registry.KeyEntry(addr)
	if err != nil {
		return nil, err
	}

	raw, err := s.cipher.Decrypt(&entry, password)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	kp, err := keys.Import(raw)
	if err != nil {
		return nil, fmt.Errorf("stored key for %s unusable: %w", addr, err)
	}
	if kp.Address() != addr {
		kp.Zero()
		return nil, fmt.Errorf("%w: %s", ErrKeyMismatch, addr)
	}
	return kp, nil
}

// SyncNonce raises the cached nonce of addr to next if it is behind, e.g.
// after transactions were sent from another process. It waits for in-flight
// sends of addr and never lowers the nonce.
func (s *Signer) SyncNonce(ctx context.Context, addr common.Address, next uint64) (uint64, error) {
	resv, err := s.sequencer.Reserve(ctx, addr)
	if err != nil {
		return 0, err
	}
	defer resv.Release()

	var nonce uint64
	err = s.registry.Mutate(addr, func(w *model.WalletRecord) error {
		if next > w.Nonce {
			s.log.Info("nonce advanced from chain",
				zap.Stringer("address", addr), zap.Uint64("cached", w.Nonce), zap.Uint64("chain", next))
			w.Nonce = next
		}
		nonce = w.Nonce
		return nil
	})
	return nonce, err
}

func (s *Signer) gasLimitFor(ctx context.Context, from common.Address, req model.TransactionRequest,
	gasPrice *big.Int) (uint64, error) {

	if req.GasLimit != nil {
		return *req.GasLimit, nil
	}
	if len(req.Data) == 0 {
		return s.gasLimit, nil
	}

	to := req.To
	return s.chain.EstimateGas(ctx, client.CallMsg{
		From:     from,
		To:       &to,
		Value:    req.Value,
		Data:     req.Data,
		GasPrice: gasPrice,
	})
}

func outcome(err error) string {
	var chainErr *client.ChainClientError

	switch {
	case err == nil:
		return metrics.ResultOK
	case errors.Is(err, ErrSubmissionFailed):
		return metrics.ResultSubmissionFailed
	case errors.Is(err, keystore.ErrAuthenticationFailed):
		return metrics.ResultAuthFailed
	case errors.Is(err, registry.ErrWalletNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.ResultCanceled
	case errors.As(err, &chainErr):
		return metrics.ResultChainError
	default:
		return metrics.ResultInternal
	}
}
