package signer

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/AlexZinkM/custody-wallet/internal/model"
	"github.com/AlexZinkM/custody-wallet/internal/registry"
)

// Sequencer hands out nonces per address. Holding a Reservation serializes
// the unlock-price-sign-submit window for that address, so two concurrent
// sends can never read the same cached nonce. Different addresses do not
// contend.
type Sequencer struct {
	registry *registry.Registry

	mu   sync.Mutex
	sems map[common.Address]*semaphore
}

// semaphore is dropped from the map once no caller holds or awaits it.
type semaphore struct {
	ch   chan struct{}
	refs int
}

// NewSequencer returns a Sequencer reading cached nonces from reg.
func NewSequencer(reg *registry.Registry) *Sequencer {
	return &Sequencer{
		registry: reg,
		sems:     make(map[common.Address]*semaphore),
	}
}

func (q *Sequencer) acquire(addr common.Address) *semaphore {
	q.mu.Lock()
	defer q.mu.Unlock()

	s, ok := q.sems[addr]
	if !ok {
		s = &semaphore{ch: make(chan struct{}, 1)}
		q.sems[addr] = s
	}
	s.refs++
	return s
}

func (q *Sequencer) drop(addr common.Address, s *semaphore) {
	q.mu.Lock()
	defer q.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(q.sems, addr)
	}
}

// Reserve waits for exclusive use of addr's nonce, or until ctx is done.
// The returned reservation must be finished with Commit or Release.
func (q *Sequencer) Reserve(ctx context.Context, addr common.Address) (*Reservation, error) {
	sem := q.acquire(addr)

	select {
	case sem.ch <- struct{}{}:
	case <-ctx.Done():
		q.drop(addr, sem)
		return nil, ctx.Err()
	}

	w, err := q.registry.Get(addr)
	if err != nil {
		<-sem.ch
		q.drop(addr, sem)
		return nil, err
	}

	return &Reservation{
		seq:   q,
		addr:  addr,
		sem:   sem,
		nonce: w.Nonce,
	}, nil
}

// Reservation is a claimed nonce for one address.
type Reservation struct {
	seq   *Sequencer
	addr  common.Address
	sem   *semaphore
	nonce uint64
	done  bool
}

// Nonce returns the cached nonce at reservation time.
func (r *Reservation) Nonce() uint64 {
	return r.nonce
}

// Commit records a submitted transaction and advances the cached nonce past
// the nonce it used. The nonce never moves backwards.
func (r *Reservation) Commit(rec model.TransactionRecord) error {
	defer r.finish()

	return r.seq.registry.Mutate(r.addr, func(w *model.WalletRecord) error {
		w.Transactions = append(w.Transactions, rec.Clone())
		if rec.Nonce+1 > w.Nonce {
			w.Nonce = rec.Nonce + 1
		}
		return nil
	})
}

// Release gives the nonce back unused. It is a no-op after Commit.
func (r *Reservation) Release() {
	r.finish()
}

func (r *Reservation) finish() {
	if r.done {
		return
	}
	r.done = true
	<-r.sem.ch
	r.seq.drop(r.addr, r.sem)
}
