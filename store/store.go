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

package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/edsrzf/mmap-go"
	"github.com/inconshreveable/log15"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/types"
)

// KeyLookup resolves a validator address to the public key that must have
// signed a block proposed by that address. The ValidatorManager implements
// this; Store only depends on the narrow interface, never mutating another
// subsystem's state directly.
type KeyLookup interface {
	PublicKey(addr types.Address) (*crypto.PublicKey, bool)
}

// Config bundles the storage-policy knobs.
type Config struct {
	DataDir            string
	HalvingInterval    uint64
	MaxSupply          types.Amount
	CheckpointInterval uint64
	CheckpointsKept    int
	BlockSizeLimit     int
}

// Event is emitted on BlockAdded, always delivered in height order.
type Event struct {
	Block  *types.Block
	Reward types.Amount
}

// Store is the BlockchainStore: append-only blocks.dat plus an
// index.dat height/hash index, atomic commit, periodic checkpoints.
type Store struct {
	cfg Config
	log log15.Logger

	mu         sync.RWMutex // single-writer lock across addBlock; readers take RLock
	blocksFile *os.File
	blocksMap  mmap.MMap // read-only view of blocksFile, remapped on every append
	idx        *index

	accounts    map[types.Address]*types.Account
	totalIssued types.Amount

	txLoc *fastcache.Cache // tx hash -> encoded block height

	events chan<- Event
}

// blockRecordHeader precedes each serialized block in blocks.dat: a 4-byte
// big-endian length prefix.
const blockRecordHeaderSize = 4

// Open initializes data files and loads the index. On a corrupted trailing
// record it reconciles the index tail against the blocks log tail,
// truncating the partial record.
func Open(cfg Config, events chan<- Event) (*Store, error) {
	if cfg.BlockSizeLimit == 0 {
		cfg.BlockSizeLimit = 2 << 20
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	blocksPath := filepath.Join(cfg.DataDir, "blocks.dat")
	bf, err := os.OpenFile(blocksPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open blocks log: %w", err)
	}
	idx, err := openIndex(filepath.Join(cfg.DataDir, "index.dat"))
	if err != nil {
		bf.Close()
		return nil, err
	}

	s := &Store{
		cfg:        cfg,
		log:        nodelog.New("store"),
		blocksFile: bf,
		idx:        idx,
		accounts:   make(map[types.Address]*types.Account),
		txLoc:      fastcache.New(32 << 20),
		events:     events,
	}

	if err := s.remapLocked(); err != nil {
		bf.Close()
		idx.close()
		return nil, err
	}

	if err := s.recover(); err != nil {
		s.unmapLocked()
		bf.Close()
		idx.close()
		return nil, err
	}
	return s, nil
}

// remapLocked refreshes the read-only mmap view of blocks.dat to cover the
// file's current size; callers must already hold s.mu (or call it before the
// Store is shared, as Open does). Readers then index into the mapped bytes
// directly instead of seeking the shared *os.File, which would race under
// concurrent RLock holders.
func (s *Store) remapLocked() error {
	s.unmapLocked()
	info, err := s.blocksFile.Stat()
	if err != nil {
		return fmt.Errorf("store: stat blocks log: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}
	m, err := mmap.Map(s.blocksFile, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("store: mmap blocks log: %w", err)
	}
	s.blocksMap = m
	return nil
}

func (s *Store) unmapLocked() {
	if s.blocksMap == nil {
		return
	}
	s.blocksMap.Unmap()
	s.blocksMap = nil
}

// recover replays every block the index lists to rebuild account state,
// cutting the index back at the first unreadable record. The latest
// checkpoint is only compared against the index prefix: a mismatch is
// logged, and replay always starts from the first indexed block rather than
// from the checkpoint.
func (s *Store) recover() error {
	height, hasIdx := s.idx.height()
	if !hasIdx {
		return nil
	}

	cp, ok, err := latestCheckpoint(filepath.Join(s.cfg.DataDir, "checkpoints"))
	if err != nil {
		return err
	}
	if ok && cp.Height <= height {
		if checkpointDigest(s.idx, cp.Height) != cp.IndexDigest {
			// Checkpoint doesn't match the observed index prefix; fall back
			// to replaying everything the index believes is durable.
			s.log.Warn("checkpoint digest mismatch, replaying full index", "checkpoint_height", cp.Height)
		}
	}

	// Replay every block the index claims exists to rebuild account state
	// and the tx location cache; a short read at the tail means the blocks
	// log is missing a record the index promised, which truncates the index
	// there; blocks.dat itself is left as it is.
	for i := 0; i < len(s.idx.entries); i++ {
		e := s.idx.entries[i]
		blk, err := s.readBlockAt(e.Offset)
		if err != nil {
			s.log.Warn("truncating index after unreadable block record", "height", e.Height, "err", err)
			if err := s.idx.truncateTo(e.Height - 1); err != nil {
				return err
			}
			break
		}
		s.applyBlock(blk, RewardAt(blk.Height, s.cfg.HalvingInterval))
	}
	return nil
}

// readBlockAt decodes the record at offset out of the mmap'd blocks log.
// Safe to call from any RLock holder: it only slices the mapped bytes, never
// touches blocksFile's shared seek position.
func (s *Store) readBlockAt(offset uint64) (*types.Block, error) {
	if s.blocksMap == nil || offset+blockRecordHeaderSize > uint64(len(s.blocksMap)) {
		return nil, fmt.Errorf("%w: offset %d beyond mapped blocks log", ErrCorruptedLog, offset)
	}
	n := binary.BigEndian.Uint32(s.blocksMap[offset : offset+blockRecordHeaderSize])
	start := offset + blockRecordHeaderSize
	end := start + uint64(n)
	if end > uint64(len(s.blocksMap)) {
		return nil, fmt.Errorf("%w: truncated record at offset %d", ErrCorruptedLog, offset)
	}
	var wire wireBlock
	if err := json.Unmarshal(s.blocksMap[start:end], &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedLog, err)
	}
	return wire.toBlock(), nil
}

// AddBlock appends block iff it extends the current head, the proposer's
// signature verifies, and every transaction validates against committed
// account state.
func (s *Store) AddBlock(block *types.Block, proposer types.Address, keys KeyLookup) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	currentHeight, hasAny := s.idx.height()
	wantHeight := uint64(0)
	if hasAny {
		wantHeight = currentHeight + 1
	}
	if block.Height != wantHeight {
		if hasAny && block.Height <= currentHeight {
			if _, dup := s.idx.at(block.Height); dup {
				return false, ErrDuplicateBlock
			}
		}
		return false, ErrHeightMismatch
	}

	if hasAny {
		head, _ := s.idx.at(currentHeight)
		if block.PreviousHash != head.Hash {
			return false, ErrPrevHashMismatch
		}
	} else if !block.PreviousHash.IsZero() {
		return false, ErrPrevHashMismatch
	}

	pub, ok := keys.PublicKey(proposer)
	if !ok {
		return false, fmt.Errorf("%w: unknown proposer %s", ErrSignatureInvalid, proposer)
	}
	if err := block.VerifySignature(pub); err != nil {
		return false, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	if block.Size() > s.cfg.BlockSizeLimit {
		return false, fmt.Errorf("%w: block size %d exceeds limit %d", ErrTxInvalid, block.Size(), s.cfg.BlockSizeLimit)
	}
	if err := s.validateTransactions(block); err != nil {
		return false, err
	}

	reward := RewardAt(block.Height, s.cfg.HalvingInterval)
	if s.totalIssued+reward > s.cfg.MaxSupply {
		reward = s.cfg.MaxSupply - s.totalIssued
	}

	offset, err := s.appendBlockRecord(block)
	if err != nil {
		return false, err
	}
	if err := s.remapLocked(); err != nil {
		return false, err
	}
	if err := s.idx.append(indexEntry{Height: block.Height, Offset: offset, Hash: block.Hash()}); err != nil {
		return false, err
	}

	s.applyBlock(block, reward)

	if s.events != nil {
		s.events <- Event{Block: block, Reward: reward}
	}

	if s.cfg.CheckpointInterval > 0 && block.Height%s.cfg.CheckpointInterval == 0 {
		cp := types.Checkpoint{
			Height:      block.Height,
			Hash:        block.Hash(),
			CreatedAt:   time.Now().Unix(),
			IndexDigest: checkpointDigest(s.idx, block.Height),
		}
		if err := writeCheckpoint(filepath.Join(s.cfg.DataDir, "checkpoints"), cp, s.cfg.CheckpointsKept); err != nil {
			s.log.Warn("checkpoint write failed", "height", block.Height, "err", err)
		}
	}

	return true, nil
}

// validateTransactions enforces: signatures verify, nonces extend committed
// account state by exactly 1 per tx in order, amount/fee are non-negative
// (encoded as unsigned types so always true) and the sender can afford
// amount+fee.
func (s *Store) validateTransactions(block *types.Block) error {
	seen := map[types.Address]uint64{}
	for _, tx := range block.Transactions {
		if err := tx.VerifySignature(); err != nil {
			return fmt.Errorf("%w: tx %s: %v", ErrTxInvalid, tx.Hash(), err)
		}
		want, ok := seen[tx.From]
		if !ok {
			acc := s.accounts[tx.From]
			if acc == nil {
				want = 1
			} else {
				want = acc.Nonce + 1
			}
		} else {
			want = want + 1
		}
		if tx.Nonce != want {
			return fmt.Errorf("%w: tx %s: nonce %d, want %d", ErrTxInvalid, tx.Hash(), tx.Nonce, want)
		}
		seen[tx.From] = tx.Nonce

		acc := s.accounts[tx.From]
		var balance types.Amount
		if acc != nil {
			balance = acc.Balance
		}
		if balance < tx.Amount+tx.Fee {
			return fmt.Errorf("%w: tx %s: insufficient balance", ErrTxInvalid, tx.Hash())
		}
	}
	return nil
}

// applyBlock mutates committed account state and bookkeeping for a block
// already accepted by AddBlock (or replayed during recovery).
func (s *Store) applyBlock(block *types.Block, reward types.Amount) {
	now := block.Timestamp
	for _, tx := range block.Transactions {
		from := s.account(tx.From)
		from.Debit(tx.Amount+tx.Fee, now) //nolint:errcheck // already validated
		from.Nonce = tx.Nonce
		to := s.account(tx.To)
		to.Credit(tx.Amount, now)
		s.txLoc.Set(tx.Hash().Bytes(), encodeTxLoc(block.Height))
	}
	proposerAcc := s.account(block.Proposer)
	proposerAcc.Credit(reward, now)
	s.totalIssued += reward
}

func (s *Store) account(addr types.Address) *types.Account {
	acc, ok := s.accounts[addr]
	if !ok {
		acc = &types.Account{Address: addr, CreatedAt: time.Now().Unix()}
		s.accounts[addr] = acc
	}
	return acc
}

func encodeTxLoc(height uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], height)
	return b[:]
}

func (s *Store) appendBlockRecord(block *types.Block) (uint64, error) {
	wire := newWireBlock(block)
	payload, err := json.Marshal(wire)
	if err != nil {
		return 0, err
	}
	offset, err := s.blocksFile.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	var lenBuf [blockRecordHeaderSize]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := s.blocksFile.Write(lenBuf[:]); err != nil {
		return 0, err
	}
	if _, err := s.blocksFile.Write(payload); err != nil {
		return 0, err
	}
	if err := s.blocksFile.Sync(); err != nil {
		return 0, err
	}
	return uint64(offset), nil
}

// GetHeight returns the height of the most recently committed block.
func (s *Store) GetHeight() (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idx.height()
}

// GetBlockByHeight returns the committed block at height, if any.
func (s *Store) GetBlockByHeight(height uint64) (*types.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.idx.at(height)
	if !ok {
		return nil, ErrNotFound
	}
	return s.readBlockAt(e.Offset)
}

// GetBlockByHash returns the committed block with the given hash, if any.
func (s *Store) GetBlockByHash(h crypto.Hash) (*types.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.idx.byHash(h)
	if !ok {
		return nil, ErrNotFound
	}
	return s.readBlockAt(e.Offset)
}

// GetTransactionByHash scans the block it was indexed under for the
// matching transaction.
func (s *Store) GetTransactionByHash(h crypto.Hash) (*types.Transaction, error) {
	s.mu.RLock()
	loc, ok := s.txLoc.HasGet(nil, h.Bytes())
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	height := binary.BigEndian.Uint64(loc)
	blk, err := s.GetBlockByHeight(height)
	if err != nil {
		return nil, err
	}
	for _, tx := range blk.Transactions {
		if tx.Hash() == h {
			return tx, nil
		}
	}
	return nil, ErrNotFound
}

// Account returns a copy of the committed account state for addr.
func (s *Store) Account(addr types.Address) types.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acc, ok := s.accounts[addr]; ok {
		return *acc
	}
	return types.Account{Address: addr}
}

// LastCommittedNonce implements mempool.NonceSource.
func (s *Store) LastCommittedNonce(addr types.Address) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if acc, ok := s.accounts[addr]; ok {
		return acc.Nonce
	}
	return 0
}

// TotalIssued returns the cumulative reward issued so far, never exceeding
// cfg.MaxSupply.
func (s *Store) TotalIssued() types.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalIssued
}

// Close flushes and releases the underlying files.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unmapLocked()
	err1 := s.blocksFile.Close()
	err2 := s.idx.close()
	if err1 != nil {
		return err1
	}
	return err2
}
