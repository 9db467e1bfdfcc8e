package registry

import (
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/model"
)

func newEntry(addr common.Address, name string) (model.WalletRecord, keystore.EncryptedKey) {
	w := model.NewWalletRecord(addr, name, time.Unix(1700000000, 0))
	k := keystore.EncryptedKey{
		Address:    addr,
		Ciphertext: []byte{1, 2, 3},
		Salt:       make([]byte, 32),
		Nonce:      make([]byte, 12),
	}
	return w, k
}

func TestRegisterGet(t *testing.T) {
	t.Parallel()

	r := New()
	addr := common.Address{1}
	w, k := newEntry(addr, "alice")

	require.NoError(t, r.Register(w, k))
	require.ErrorIs(t, r.Register(w, k), ErrAddressAlreadyExists)

	got, err := r.Get(addr)
	require.NoError(t, err)
	require.Equal(t, "alice", got.Name)

	key, err := r.KeyEntry(addr)
	require.NoError(t, err)
	require.Equal(t, k, key)

	_, err = r.Get(common.Address{2})
	require.ErrorIs(t, err, ErrWalletNotFound)
	_, err = r.KeyEntry(common.Address{2})
	require.ErrorIs(t, err, ErrWalletNotFound)

	require.Equal(t, []common.Address{addr}, r.Addresses())
	require.Equal(t, 1, r.Len())
}

func TestRegisterRejectsMismatch(t *testing.T) {
	t.Parallel()

	r := New()
	w, _ := newEntry(common.Address{1}, "a")
	_, k := newEntry(common.Address{2}, "b")

	require.ErrorIs(t, r.Register(w, k), ErrAddressMismatch)
	require.Zero(t, r.Len())
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	r := New()
	addr := common.Address{1}
	w, k := newEntry(addr, "alice")
	require.NoError(t, r.Register(w, k))

	// Mutating the caller's original must not reach the registry either.
	w.Balance.SetInt64(42)
	k.Ciphertext[0] = 0xff

	got, err := r.Get(addr)
	require.NoError(t, err)
	require.Zero(t, got.Balance.Sign())

	got.Balance.SetInt64(7)
	got.Name = "mallory"

	again, err := r.Get(addr)
	require.NoError(t, err)
	require.Zero(t, again.Balance.Sign())
	require.Equal(t, "alice", again.Name)

	key, err := r.KeyEntry(addr)
	require.NoError(t, err)
	require.Equal(t, byte(1), key.Ciphertext[0])
}

func TestMutate(t *testing.T) {
	t.Parallel()

	r := New()
	addr := common.Address{1}
	w, k := newEntry(addr, "alice")
	require.NoError(t, r.Register(w, k))

	require.NoError(t, r.Mutate(addr, func(w *model.WalletRecord) error {
		w.Name = "bob"
		w.Balance = big.NewInt(100)
		return nil
	}))

	boom := errors.New("boom")
	err := r.Mutate(addr, func(w *model.WalletRecord) error {
		w.Name = "carol"
		w.Nonce = 99
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = r.Mutate(addr, func(w *model.WalletRecord) error {
		w.Address = common.Address{9}
		return nil
	})
	require.ErrorIs(t, err, ErrAddressMismatch)

	got, err := r.Get(addr)
	require.NoError(t, err)
	require.Equal(t, "bob", got.Name)
	require.Equal(t, int64(100), got.Balance.Int64())
	require.Zero(t, got.Nonce)

	err = r.Mutate(common.Address{3}, func(*model.WalletRecord) error { return nil })
	require.ErrorIs(t, err, ErrWalletNotFound)
}

func TestConcurrentMutateSameAddress(t *testing.T) {
	t.Parallel()

	r := New()
	addrs := []common.Address{{1}, {2}, {33}} // {1} and {33} share a shard
	for _, a := range addrs {
		w, k := newEntry(a, "w")
		require.NoError(t, r.Register(w, k))
	}

	const n = 200
	var wg sync.WaitGroup
	for _, a := range addrs {
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := r.Mutate(a, func(w *model.WalletRecord) error {
					w.Nonce++
					return nil
				})
				require.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	for _, a := range addrs {
		got, err := r.Get(a)
		require.NoError(t, err)
		require.Equal(t, uint64(n), got.Nonce)
	}
}

func TestReplaceKey(t *testing.T) {
	t.Parallel()

	r := New()
	addr := common.Address{1}
	w, k := newEntry(addr, "alice")
	require.NoError(t, r.Register(w, k))

	newKey := k.Clone()
	newKey.Ciphertext = []byte{9, 9}

	veto := errors.New("veto")
	err := r.ReplaceKey(addr, newKey, func(keystore.EncryptedKey) error { return veto })
	require.ErrorIs(t, err, veto)

	require.NoError(t, r.ReplaceKey(addr, newKey, func(cur keystore.EncryptedKey) error {
		require.Equal(t, k.Ciphertext, cur.Ciphertext)
		return nil
	}))

	got, err := r.KeyEntry(addr)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9}, got.Ciphertext)

	other := newKey.Clone()
	other.Address = common.Address{2}
	require.ErrorIs(t, r.ReplaceKey(addr, other, nil), ErrAddressMismatch)
	require.ErrorIs(t, r.ReplaceKey(common.Address{2}, other, nil), ErrWalletNotFound)
}

func TestRemove(t *testing.T) {
	t.Parallel()

	r := New()
	addr := common.Address{1}
	w, k := newEntry(addr, "alice")
	require.NoError(t, r.Register(w, k))

	veto := errors.New("veto")
	require.ErrorIs(t, r.Remove(addr, func(Entry) error { return veto }), veto)
	_, err := r.Get(addr)
	require.NoError(t, err)

	require.NoError(t, r.Remove(addr, nil))
	_, err = r.Get(addr)
	require.ErrorIs(t, err, ErrWalletNotFound)
	_, err = r.KeyEntry(addr)
	require.ErrorIs(t, err, ErrWalletNotFound)
	require.ErrorIs(t, r.Remove(addr, nil), ErrWalletNotFound)

	// The address can be registered again after removal.
	require.NoError(t, r.Register(w, k))
}

func TestSnapshotRestore(t *testing.T) {
	t.Parallel()

	src := New()
	for i := byte(0); i < 10; i++ {
		w, k := newEntry(common.Address{i, i}, "w")
		w.Nonce = uint64(i)
		require.NoError(t, src.Register(w, k))
	}
	snap := src.Snapshot()
	require.Len(t, snap, 10)

	dst := New()
	old, oldKey := newEntry(common.Address{0xaa}, "old")
	require.NoError(t, dst.Register(old, oldKey))

	require.NoError(t, dst.Restore(snap))
	require.Equal(t, src.Addresses(), dst.Addresses())
	require.Equal(t, snap, dst.Snapshot())

	_, err := dst.Get(common.Address{0xaa})
	require.ErrorIs(t, err, ErrWalletNotFound)

	// A bad snapshot leaves the registry untouched.
	bad := Snapshot{}
	w, _ := newEntry(common.Address{1}, "x")
	_, k := newEntry(common.Address{2}, "x")
	bad[common.Address{1}] = Entry{Wallet: w, Key: k}
	require.ErrorIs(t, dst.Restore(bad), ErrAddressMismatch)
	require.Equal(t, snap, dst.Snapshot())
}

func TestRestoreDuringMutations(t *testing.T) {
	t.Parallel()

	r := New()
	addr := common.Address{5}
	w, k := newEntry(addr, "w")
	require.NoError(t, r.Register(w, k))
	snap := r.Snapshot()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = r.Mutate(addr, func(w *model.WalletRecord) error {
				w.Nonce++
				return nil
			})
		}()
		go func() {
			defer wg.Done()
			require.NoError(t, r.Restore(snap))
		}()
	}
	wg.Wait()

	require.NoError(t, r.Restore(snap))
	got, err := r.Get(addr)
	require.NoError(t, err)
	require.Zero(t, got.Nonce)
}
