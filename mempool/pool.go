// Copyright 2026 The Drift Authors
// This file is part of the drift library.
//
// The drift library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The drift library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the drift library. If not, see <http://www.gnu.org/licenses/>.

// Package mempool is the TransactionPool: a bounded, ordered
// pending-transaction set with per-sender nonce discipline and durable
// spill-over to a Redis-compatible KV.
package mempool

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/types"
)

// AddResult reports whether Add admitted a transaction, and why not.
type AddResult struct {
	OK     bool
	Reason error
}

// Mempool error kinds.
var (
	ErrDuplicate        = errors.New("mempool: duplicate transaction")
	ErrNonceTooLow      = errors.New("mempool: nonce too low")
	ErrInsufficientFee  = errors.New("mempool: insufficient fee")
	ErrExpired          = errors.New("mempool: transaction expired")
	ErrPoolFull         = errors.New("mempool: pool full")
	ErrInvalidSignature = errors.New("mempool: invalid signature")
)

// NonceSource resolves the last committed nonce for an address, so the
// pool can require a submitted nonce of lastCommittedNonce(sender)+1 when
// the sender has no pending transaction.
type NonceSource interface {
	LastCommittedNonce(addr types.Address) uint64
}

// Config bundles the pool's size and expiration limits.
type Config struct {
	MaxTransactions int
	MaxSizeBytes    int64
	ExpirationTime  time.Duration
	MinFee          types.Amount
}

type entry struct {
	tx       *types.Transaction
	addedAt  time.Time
}

// Pool is the TransactionPool.
type Pool struct {
	mu     sync.RWMutex
	cfg    Config
	nonces NonceSource
	log    log15.Logger

	byHash   map[crypto.Hash]*entry
	bySender map[types.Address]map[uint64]*entry // sender -> nonce -> entry
	size     int64
}

func New(cfg Config, nonces NonceSource) *Pool {
	return &Pool{
		cfg:      cfg,
		nonces:   nonces,
		log:      nodelog.New("mempool"),
		byHash:   make(map[crypto.Hash]*entry),
		bySender: make(map[types.Address]map[uint64]*entry),
	}
}

// Add validates tx and inserts it into the pool.
func (p *Pool) Add(tx *types.Transaction) AddResult {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := tx.Hash()
	if _, exists := p.byHash[h]; exists {
		return AddResult{Reason: ErrDuplicate}
	}
	if tx.Fee < p.cfg.MinFee {
		return AddResult{Reason: ErrInsufficientFee}
	}
	if err := tx.VerifySignature(); err != nil {
		return AddResult{Reason: ErrInvalidSignature}
	}

	pending := p.bySender[tx.From]
	if len(pending) == 0 {
		want := p.nonces.LastCommittedNonce(tx.From) + 1
		if tx.Nonce != want {
			return AddResult{Reason: ErrNonceTooLow}
		}
	} else {
		highest := highestNonce(pending)
		if tx.Nonce <= highest {
			// A resubmission at an already-pending nonce is a replace-by-fee
			// scenario the design leaves unhandled; treat as too low.
			return AddResult{Reason: ErrNonceTooLow}
		}
		if tx.Nonce != highest+1 {
			return AddResult{Reason: ErrNonceTooLow}
		}
	}

	if p.size+int64(tx.Size()) > p.cfg.MaxSizeBytes || len(p.byHash) >= p.cfg.MaxTransactions {
		if !p.evictForSpace(tx) {
			return AddResult{Reason: ErrPoolFull}
		}
	}

	e := &entry{tx: tx, addedAt: time.Now()}
	p.byHash[h] = e
	if p.bySender[tx.From] == nil {
		p.bySender[tx.From] = make(map[uint64]*entry)
	}
	p.bySender[tx.From][tx.Nonce] = e
	p.size += int64(tx.Size())
	return AddResult{OK: true}
}

func highestNonce(pending map[uint64]*entry) uint64 {
	var max uint64
	first := true
	for n := range pending {
		if first || n > max {
			max = n
			first = false
		}
	}
	return max
}

// evictForSpace drops the lowest-fee transaction whose removal does not
// create a nonce gap for its sender.
// It returns false if no such victim exists (e.g. candidate is itself the
// cheapest and its sender has no safely-evictable tail).
func (p *Pool) evictForSpace(candidate *types.Transaction) bool {
	var victim *entry
	for _, e := range p.byHash {
		pending := p.bySender[e.tx.From]
		if highestNonce(pending) != e.tx.Nonce {
			continue // would create a nonce gap if removed
		}
		if victim == nil || e.tx.Fee < victim.tx.Fee {
			victim = e
		}
	}
	if victim == nil || victim.tx.Fee >= candidate.Fee {
		return false
	}
	p.removeLocked(victim.tx.Hash())
	return true
}

// Remove deletes the transaction with the given hash.
func (p *Pool) Remove(hash crypto.Hash) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(hash)
}

func (p *Pool) removeLocked(hash crypto.Hash) bool {
	e, ok := p.byHash[hash]
	if !ok {
		return false
	}
	delete(p.byHash, hash)
	delete(p.bySender[e.tx.From], e.tx.Nonce)
	if len(p.bySender[e.tx.From]) == 0 {
		delete(p.bySender, e.tx.From)
	}
	p.size -= int64(e.tx.Size())
	return true
}

// Get returns the pending transaction with the given hash, if any.
func (p *Pool) Get(hash crypto.Hash) (*types.Transaction, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.byHash[hash]
	if !ok {
		return nil, false
	}
	return e.tx, true
}

// GetBySender returns every pending transaction from addr, ordered by nonce.
func (p *Pool) GetBySender(addr types.Address) []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pending := p.bySender[addr]
	out := make([]*types.Transaction, 0, len(pending))
	for _, e := range pending {
		out = append(out, e.tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return out
}

// All returns every pending transaction.
func (p *Pool) All() []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*types.Transaction, 0, len(p.byHash))
	for _, e := range p.byHash {
		out = append(out, e.tx)
	}
	return out
}

// Len reports the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byHash)
}

// Size reports the total byte size of pending transactions.
func (p *Pool) Size() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// PickForBlock selects transactions in decreasing fee order, respecting
// nonce continuity per sender, up to limit transactions and maxBytes total.
func (p *Pool) PickForBlock(limit int, maxBytes int) []*types.Transaction {
	p.mu.RLock()
	defer p.mu.RUnlock()

	type candidate struct {
		tx   *types.Transaction
	}
	bySenderSorted := make(map[types.Address][]*types.Transaction, len(p.bySender))
	for addr, pending := range p.bySender {
		list := make([]*types.Transaction, 0, len(pending))
		for _, e := range pending {
			list = append(list, e.tx)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Nonce < list[j].Nonce })
		bySenderSorted[addr] = list
	}

	cursor := make(map[types.Address]int) // next index to consider per sender
	var heap []candidate
	for addr, list := range bySenderSorted {
		if len(list) > 0 {
			heap = append(heap, candidate{tx: list[0]})
			cursor[addr] = 0
		}
	}

	var picked []*types.Transaction
	var totalBytes int
	for len(picked) < limit && len(heap) > 0 {
		best := 0
		for i := 1; i < len(heap); i++ {
			if heap[i].tx.Fee > heap[best].tx.Fee {
				best = i
			}
		}
		tx := heap[best].tx
		if totalBytes+tx.Size() > maxBytes {
			heap = append(heap[:best], heap[best+1:]...)
			continue
		}
		picked = append(picked, tx)
		totalBytes += tx.Size()

		addr := tx.From
		cursor[addr]++
		list := bySenderSorted[addr]
		if cursor[addr] < len(list) {
			heap[best] = candidate{tx: list[cursor[addr]]}
		} else {
			heap = append(heap[:best], heap[best+1:]...)
		}
	}
	return picked
}

// RemoveCommitted drops every transaction in txs from the pool, called by
// the consensus engine on finalization.
func (p *Pool) RemoveCommitted(txs []*types.Transaction) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, tx := range txs {
		p.removeLocked(tx.Hash())
	}
}

// Cleanup drops every entry older than ExpirationTime.
func (p *Pool) Cleanup(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var removed int
	for h, e := range p.byHash {
		if now.Sub(e.addedAt) > p.cfg.ExpirationTime {
			p.removeLocked(h)
			removed++
		}
	}
	return removed
}
