package signer

import (
	"context"
	"errors"
	"math/big"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AlexZinkM/custody-wallet/internal/client"
	"github.com/AlexZinkM/custody-wallet/internal/client/clienttest"
	"github.com/AlexZinkM/custody-wallet/internal/keys"
	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/metrics"
	"github.com/AlexZinkM/custody-wallet/internal/model"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
)

type harness struct {
	reg     *registry.Registry
	cipher  *keystore.Cipher
	chain   *clienttest.Fake
	signer  *Signer
	metrics *metrics.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cipher, err := keystore.NewCipher(keystore.KDFParams{
		Name: keystore.KDFScrypt, N: keystore.MinScryptN, R: 8, P: 1,
	})
	require.NoError(t, err)

	h := &harness{
		reg:     registry.New(),
		cipher:  cipher,
		chain:   clienttest.NewFake(),
		metrics: metrics.NewNop(),
	}
	h.signer, err = New(Config{ChainID: big.NewInt(1337)}, h.reg, cipher, h.chain, h.metrics, zap.NewNop())
	require.NoError(t, err)
	return h
}

// addWallet generates a key, encrypts it under password and registers it.
func (h *harness) addWallet(t *testing.T, name, password string) common.Address {
	t.Helper()

	kp, err := keys.NewGenerator().Generate()
	require.NoError(t, err)
	defer kp.Zero()

	raw := kp.Bytes()
	defer clear(raw)

	addr := kp.Address()
	entry, err := h.cipher.Encrypt(addr, raw, []byte(password))
	require.NoError(t, err)
	require.NoError(t, h.reg.Register(model.NewWalletRecord(addr, name, time.Now()), *entry))
	return addr
}

func (h *harness) nonce(t *testing.T, addr common.Address) uint64 {
	t.Helper()

	w, err := h.reg.Get(addr)
	require.NoError(t, err)
	return w.Nonce
}

func transfer(to common.Address, wei int64) model.TransactionRequest {
	return model.TransactionRequest{To: to, Value: big.NewInt(wei)}
}

func TestAliceScenario(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	a := h.addWallet(t, "alice", "pw1")
	b := common.HexToAddress("0x00000000000000000000000000000000000000b0")

	require.Zero(t, h.nonce(t, a))

	res, err := h.signer.Send(ctx, a, transfer(b, 1), []byte("pw1"))
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.Nonce)
	require.Equal(t, uint64(1), h.nonce(t, a))

	_, err = h.signer.Send(ctx, a, transfer(b, 1), []byte("wrong"))
	require.ErrorIs(t, err, keystore.ErrAuthenticationFailed)
	require.Equal(t, uint64(1), h.nonce(t, a))

	// Only the first attempt reached the chain.
	require.Len(t, h.chain.Submitted(), 1)

	w, err := h.reg.Get(a)
	require.NoError(t, err)
	require.Len(t, w.Transactions, 1)
	rec := w.Transactions[0]
	require.Equal(t, res.Hash, rec.Hash)
	require.Equal(t, model.TxStatusPending, rec.Status)
	require.Equal(t, a, rec.From)
	require.Equal(t, b, *rec.To)
	require.Equal(t, int64(1), rec.Value.Int64())

	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SignAttempts.WithLabelValues(metrics.ResultOK)))
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SignAttempts.WithLabelValues(metrics.ResultAuthFailed)))
}

func TestSignedTransactionFields(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	a := h.addWallet(t, "alice", "pw")
	b := common.Address{0xb}

	_, err := h.signer.Send(ctx, a, transfer(b, 42), []byte("pw"))
	require.NoError(t, err)

	tx := h.chain.Submitted()[0]
	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1337)), tx)
	require.NoError(t, err)
	require.Equal(t, a, sender)
	require.Equal(t, uint64(DefaultGasLimit), tx.Gas())
	require.Equal(t, int64(1_000_000_000), tx.GasPrice().Int64())
	require.Equal(t, int64(42), tx.Value().Int64())
	require.Equal(t, b, *tx.To())
	require.Equal(t, int64(1337), tx.ChainId().Int64())

	// Payload transactions are estimated; explicit values win.
	_, err = h.signer.Send(ctx, a, model.TransactionRequest{To: b, Data: []byte{1, 2, 3}}, []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, uint64(60_000), h.chain.Submitted()[1].Gas())

	limit := uint64(99_000)
	explicitNonce := uint64(5)
	_, err = h.signer.Send(ctx, a, model.TransactionRequest{
		To:       b,
		Value:    big.NewInt(1),
		GasLimit: &limit,
		GasPrice: big.NewInt(7),
		Data:     []byte{9},
		Nonce:    &explicitNonce,
	}, []byte("pw"))
	require.NoError(t, err)

	last := h.chain.Submitted()[2]
	require.Equal(t, limit, last.Gas())
	require.Equal(t, int64(7), last.GasPrice().Int64())
	require.Equal(t, explicitNonce, last.Nonce())
	require.Equal(t, explicitNonce+1, h.nonce(t, a))
}

// TestConcurrentSendsUseDistinctNonces submits N requests for one address at
// once and checks that the nonces used are exactly start..start+N-1.
func TestConcurrentSendsUseDistinctNonces(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	a := h.addWallet(t, "alice", "pw")

	const start = 3
	require.NoError(t, h.reg.Mutate(a, func(w *model.WalletRecord) error {
		w.Nonce = start
		return nil
	}))

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.signer.Send(ctx, a, transfer(common.Address{0xb}, int64(i+1)), []byte("pw"))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var used []int
	for _, tx := range h.chain.Submitted() {
		used = append(used, int(tx.Nonce()))
	}
	sort.Ints(used)

	want := make([]int, n)
	for i := range want {
		want[i] = start + i
	}
	require.Equal(t, want, used)
	require.Equal(t, uint64(start+n), h.nonce(t, a))

	w, err := h.reg.Get(a)
	require.NoError(t, err)
	require.Len(t, w.Transactions, n)
}

func TestFailedSubmissionReleasesNonce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	a := h.addWallet(t, "alice", "pw")
	req := transfer(common.Address{0xb}, 1)

	h.chain.SetFailSubmit(true)
	_, err := h.signer.Send(ctx, a, req, []byte("pw"))
	require.ErrorIs(t, err, ErrSubmissionFailed)

	var chainErr *client.ChainClientError
	require.True(t, errors.As(err, &chainErr))
	require.ErrorIs(t, err, clienttest.ErrRejected)

	w, err := h.reg.Get(a)
	require.NoError(t, err)
	require.Zero(t, w.Nonce)
	require.Empty(t, w.Transactions)

	// The identical request succeeds on retry with the released nonce.
	h.chain.SetFailSubmit(false)
	res, err := h.signer.Send(ctx, a, req, []byte("pw"))
	require.NoError(t, err)
	require.Zero(t, res.Nonce)
	require.Equal(t, uint64(1), h.nonce(t, a))

	require.Equal(t, 1.0, testutil.ToFloat64(
		h.metrics.SignAttempts.WithLabelValues(metrics.ResultSubmissionFailed)))
}

func TestPricingFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a := h.addWallet(t, "alice", "pw")
	h.chain.FailGas = true

	_, err := h.signer.Send(context.Background(), a, transfer(common.Address{0xb}, 1), []byte("pw"))
	var chainErr *client.ChainClientError
	require.True(t, errors.As(err, &chainErr))
	require.NotErrorIs(t, err, ErrSubmissionFailed)

	require.Zero(t, h.nonce(t, a))
	require.Empty(t, h.chain.Submitted())
}

func TestUnknownSender(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.signer.Send(context.Background(), common.Address{0xee}, transfer(common.Address{1}, 1), []byte("pw"))
	require.ErrorIs(t, err, registry.ErrWalletNotFound)
}

func TestCanceledWhileWaitingForNonce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a := h.addWallet(t, "alice", "pw")

	held, err := h.signer.sequencer.Reserve(context.Background(), a)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = h.signer.Send(ctx, a, transfer(common.Address{0xb}, 1), []byte("pw"))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	held.Release()
	require.Zero(t, h.nonce(t, a))
	require.Empty(t, h.chain.Submitted())
	require.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SignAttempts.WithLabelValues(metrics.ResultCanceled)))
}

// TestIndependentAddressesDoNotBlock holds one sender inside submission and
// checks another sender completes meanwhile.
func TestIndependentAddressesDoNotBlock(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a := h.addWallet(t, "alice", "pw")
	b := h.addWallet(t, "bob", "pw")
	chainSigner := types.LatestSignerForChainID(big.NewInt(1337))

	entered := make(chan struct{})
	unblock := make(chan struct{})
	h.chain.OnSubmit = func(tx *types.Transaction) error {
		from, err := types.Sender(chainSigner, tx)
		if err != nil {
			return err
		}
		if from == a {
			close(entered)
			<-unblock
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		_, err := h.signer.Send(context.Background(), a, transfer(common.Address{1}, 1), []byte("pw"))
		done <- err
	}()
	<-entered

	_, err := h.signer.Send(context.Background(), b, transfer(common.Address{1}, 1), []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.nonce(t, b))

	close(unblock)
	require.NoError(t, <-done)
	require.Equal(t, uint64(1), h.nonce(t, a))
}

func TestCommitNeverDecreasesNonce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a := h.addWallet(t, "alice", "pw")
	require.NoError(t, h.reg.Mutate(a, func(w *model.WalletRecord) error {
		w.Nonce = 10
		return nil
	}))

	// A replacement transaction with an older nonce is recorded but does not
	// move the cached nonce back.
	old := uint64(4)
	req := transfer(common.Address{1}, 1)
	req.Nonce = &old
	_, err := h.signer.Send(context.Background(), a, req, []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, uint64(10), h.nonce(t, a))
}

func TestNewRequiresChainID(t *testing.T) {
	t.Parallel()

	_, err := New(Config{}, registry.New(), nil, clienttest.NewFake(), metrics.NewNop(), zap.NewNop())
	require.Error(t, err)
}

func TestSyncNonce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	a := h.addWallet(t, "alice", "pw")

	n, err := h.signer.SyncNonce(ctx, a, 7)
	require.NoError(t, err)
	require.Equal(t, uint64(7), n)

	// A lagging chain view never moves the nonce back.
	n, err = h.signer.SyncNonce(ctx, a, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(7), n)

	res, err := h.signer.Send(ctx, a, transfer(common.Address{1}, 1), []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, uint64(7), res.Nonce)

	_, err = h.signer.SyncNonce(ctx, common.Address{0xee}, 1)
	require.ErrorIs(t, err, registry.ErrWalletNotFound)
}

func TestSequencerForgetsIdleAddresses(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	q := h.signer.sequencer
	a := h.addWallet(t, "alice", "pw")

	held, err := q.Reserve(context.Background(), a)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = q.Reserve(ctx, a)
	require.ErrorIs(t, err, context.Canceled)

	_, err = q.Reserve(context.Background(), common.Address{0xee})
	require.ErrorIs(t, err, registry.ErrWalletNotFound)

	q.mu.Lock()
	require.Len(t, q.sems, 1)
	q.mu.Unlock()

	held.Release()
	held.Release()

	_, err = h.signer.Send(context.Background(), a, transfer(common.Address{1}, 1), []byte("pw"))
	require.NoError(t, err)
	_, err = h.signer.Send(context.Background(), a, transfer(common.Address{1}, 1), []byte("wrong"))
	require.ErrorIs(t, err, keystore.ErrAuthenticationFailed)

	q.mu.Lock()
	defer q.mu.Unlock()
	require.Empty(t, q.sems)
}

// TestWrongPasswordWaitsForNonce checks the key is only decrypted once the
// sender's reservation is held.
func TestWrongPasswordWaitsForNonce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a := h.addWallet(t, "alice", "pw")

	held, err := h.signer.sequencer.Reserve(context.Background(), a)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	// A wrong password is not reported while another send holds the nonce.
	_, err = h.signer.Send(ctx, a, transfer(common.Address{1}, 1), []byte("wrong"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	held.Release()

	_, err = h.signer.Send(context.Background(), a, transfer(common.Address{1}, 1), []byte("wrong"))
	require.ErrorIs(t, err, keystore.ErrAuthenticationFailed)
	require.Zero(t, h.nonce(t, a))
	require.Empty(t, h.chain.Submitted())

	// The failed unlock released the reservation.
	_, err = h.signer.Send(context.Background(), a, transfer(common.Address{1}, 1), []byte("pw"))
	require.NoError(t, err)
	require.Equal(t, uint64(1), h.nonce(t, a))
}

func TestTokenTransferRecord(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	a := h.addWallet(t, "alice", "pw")
	contract := common.HexToAddress("0x00000000000000000000000000000000000000c0")
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000b0")

	req := model.TransactionRequest{
		To:    contract,
		Value: new(big.Int),
		Data:  []byte{0xa9, 0x05, 0x9c, 0xbb},
		Token: &model.TokenTransfer{Recipient: recipient, Amount: big.NewInt(250)},
	}
	res, err := h.signer.Send(context.Background(), a, req, []byte("pw"))
	require.NoError(t, err)

	// The signed transaction targets the contract.
	sent := h.chain.Submitted()
	require.Len(t, sent, 1)
	require.Equal(t, contract, *sent[0].To())
	require.Zero(t, sent[0].Value().Sign())

	// The record describes the transfer.
	require.Equal(t, recipient, *res.Record.To)
	require.Equal(t, contract, *res.Record.Token)
	require.Equal(t, int64(250), res.Record.Value.Int64())

	w, err := h.reg.Get(a)
	require.NoError(t, err)
	require.Len(t, w.Transactions, 1)
	require.Equal(t, recipient, *w.Transactions[0].To)
	require.Equal(t, contract, *w.Transactions[0].Token)
}
