// Package registry holds wallet records and their encrypted keys in memory.
//
// Locking: the address space is split into shards. A shard's RWMutex guards
// which addresses exist; a per-address slot mutex guards both the wallet
// record and its keystore entry, so "wallet before keystore" is a single
// acquisition. A shard lock is always taken before a slot lock, and shards
// are always taken in index order when more than one is needed. Updater
// functions passed to Mutate run under the slot lock and must not call back
// into the registry.
package registry

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AlexZinkM/custody-wallet/internal/keystore"
	"github.com/AlexZinkM/custody-wallet/internal/model"
)

const numShards = 32

var (
	// ErrAddressAlreadyExists is returned when registering an address twice.
	ErrAddressAlreadyExists = errors.New("address already exists")

	// ErrWalletNotFound is returned for addresses that are not registered.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrAddressMismatch is returned when a record and key entry disagree on
	// their address.
	ErrAddressMismatch = errors.New("wallet and key entry addresses differ")
)

// Entry pairs a wallet record with its encrypted key.
type Entry struct {
	Wallet model.WalletRecord
	Key    keystore.EncryptedKey
}

func (e Entry) clone() Entry {
	return Entry{Wallet: e.Wallet.Clone(), Key: e.Key.Clone()}
}

func (e Entry) validate() error {
	if e.Wallet.Address != e.Key.Address {
		return fmt.Errorf("%w: %s != %s", ErrAddressMismatch, e.Wallet.Address, e.Key.Address)
	}
	return nil
}

// Snapshot is a point-in-time copy of the registry keyed by address.
type Snapshot map[common.Address]Entry

type slot struct {
	mu      sync.Mutex
	entry   Entry
	removed bool
}

type shard struct {
	mu    sync.RWMutex
	slots map[common.Address]*slot
}

// Registry is a concurrency-safe store of wallets keyed by address.
type Registry struct {
	shards [numShards]shard
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].slots = make(map[common.Address]*slot)
	}
	return r
}

func (r *Registry) shardFor(addr common.Address) *shard {
	return &r.shards[int(addr[0])%numShards]
}

// Register inserts a wallet and its key entry atomically.
func (r *Registry) Register(wallet model.WalletRecord, key keystore.EncryptedKey) error {
	e := Entry{Wallet: wallet, Key: key}
	if err := e.validate(); err != nil {
		return err
	}

	sh := r.shardFor(wallet.Address)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, ok := sh.slots[wallet.Address]; ok {
		return fmt.Errorf("%w: %s", ErrAddressAlreadyExists, wallet.Address)
	}
	sh.slots[wallet.Address] = &slot{entry: e.clone()}
	return nil
}

// lock returns the live slot for addr with its mutex held.
func (r *Registry) lock(addr common.Address) (*slot, error) {
	sh := r.shardFor(addr)
	for {
		sh.mu.RLock()
		s, ok := sh.slots[addr]
		sh.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, addr)
		}

		s.mu.Lock()
		if !s.removed {
			return s, nil
		}
		// Replaced by Remove or Restore while we waited; look again.
		s.mu.Unlock()
	}
}

// Get returns a copy of the wallet record for addr.
func (r *Registry) Get(addr common.Address) (model.WalletRecord, error) {
	s, err := r.lock(addr)
	if err != nil {
		return model.WalletRecord{}, err
	}
	defer s.mu.Unlock()

	return s.entry.Wallet.Clone(), nil
}

// KeyEntry returns a copy of the encrypted key for addr.
func (r *Registry) KeyEntry(addr common.Address) (keystore.EncryptedKey, error) {
	s, err := r.lock(addr)
	if err != nil {
		return keystore.EncryptedKey{}, err
	}
	defer s.mu.Unlock()

	return s.entry.Key.Clone(), nil
}

// Mutate applies fn to a copy of the record under exclusive access for addr
// and stores the result. If fn returns an error nothing is changed. fn may
// not change the address.
func (r *Registry) Mutate(addr common.Address, fn func(w *model.WalletRecord) error) error {
	s, err := r.lock(addr)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	updated := s.entry.Wallet.Clone()
	if err := fn(&updated); err != nil {
		return err
	}
	if updated.Address != addr {
		return fmt.Errorf("%w: updater changed address", ErrAddressMismatch)
	}
	s.entry.Wallet = updated
	return nil
}

// ReplaceKey swaps the encrypted key for addr, e.g. after a password change.
// check runs under the slot lock against the current entry before the swap.
func (r *Registry) ReplaceKey(addr common.Address, key keystore.EncryptedKey,
	check func(current keystore.EncryptedKey) error) error {

	if key.Address != addr {
		return fmt.Errorf("%w: %s != %s", ErrAddressMismatch, addr, key.Address)
	}

	s, err := r.lock(addr)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	if check != nil {
		if err := check(s.entry.Key.Clone()); err != nil {
			return err
		}
	}
	s.entry.Key = key.Clone()
	return nil
}

// Remove deletes the wallet record and its key entry as one unit. check, if
// set, runs under the locks before anything is deleted.
func (r *Registry) Remove(addr common.Address, check func(e Entry) error) error {
	sh := r.shardFor(addr)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	s, ok := sh.slots[addr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, addr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if check != nil {
		if err := check(s.entry.clone()); err != nil {
			return err
		}
	}

	s.removed = true
	delete(sh.slots, addr)
	return nil
}

// Addresses returns every registered address in ascending byte order.
func (r *Registry) Addresses() []common.Address {
	var out []common.Address
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for addr := range sh.slots {
			out = append(out, addr)
		}
		sh.mu.RUnlock()
	}

	slices.SortFunc(out, func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return out
}

// Len returns the number of registered wallets.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.slots)
		sh.mu.RUnlock()
	}
	return n
}

// Snapshot copies every entry. Membership is frozen for the duration of the
// copy; each entry is copied under its own slot lock.
func (r *Registry) Snapshot() Snapshot {
	for i := range r.shards {
		r.shards[i].mu.RLock()
	}
	defer func() {
		for i := range r.shards {
			r.shards[i].mu.RUnlock()
		}
	}()

	snap := make(Snapshot)
	for i := range r.shards {
		for addr, s := range r.shards[i].slots {
			s.mu.Lock()
			snap[addr] = s.entry.clone()
			s.mu.Unlock()
		}
	}
	return snap
}

// Restore replaces the whole registry with snap. The snapshot is validated
// first; on error the registry is untouched. Callers holding a slot from the
// previous contents observe it as removed and re-resolve the address.
func (r *Registry) Restore(snap Snapshot) error {
	fresh := make([]map[common.Address]*slot, numShards)
	for i := range fresh {
		fresh[i] = make(map[common.Address]*slot)
	}
	for addr, e := range snap {
		if err := e.validate(); err != nil {
			return err
		}
		if e.Wallet.Address != addr {
			return fmt.Errorf("%w: keyed under %s", ErrAddressMismatch, addr)
		}
		fresh[int(addr[0])%numShards][addr] = &slot{entry: e.clone()}
	}

	for i := range r.shards {
		r.shards[i].mu.Lock()
	}
	defer func() {
		for i := range r.shards {
			r.shards[i].mu.Unlock()
		}
	}()

	for i := range r.shards {
		sh := &r.shards[i]
		for _, s := range sh.slots {
			s.mu.Lock()
			s.removed = true
			s.mu.Unlock()
		}
		sh.slots = fresh[i]
	}
	return nil
}
