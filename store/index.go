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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/driftchain/driftd/crypto"
)

// indexEntrySize is the on-disk size of one (height, offset, hash) record.
const indexEntrySize = 8 + 8 + crypto.HashLength

// indexEntry is one record of index.dat.
type indexEntry struct {
	Height uint64
	Offset uint64
	Hash   crypto.Hash
}

func (e indexEntry) encode() []byte {
	buf := make([]byte, indexEntrySize)
	binary.BigEndian.PutUint64(buf[0:8], e.Height)
	binary.BigEndian.PutUint64(buf[8:16], e.Offset)
	copy(buf[16:], e.Hash[:])
	return buf
}

func decodeIndexEntry(buf []byte) indexEntry {
	var e indexEntry
	e.Height = binary.BigEndian.Uint64(buf[0:8])
	e.Offset = binary.BigEndian.Uint64(buf[8:16])
	copy(e.Hash[:], buf[16:])
	return e
}

// index is the in-memory mirror of index.dat, offering O(1) height lookup.
// It is appended to under the store's single-writer lock; readers iterate a
// length-bounded snapshot, so they see only fully committed blocks.
type index struct {
	f       *os.File
	entries []indexEntry
	byH     map[crypto.Hash]int // hash -> position in entries, for O(1) getBlockByHash
}

func openIndex(path string) (*index, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("store: open index: %w", err)
	}
	idx := &index{f: f}
	if err := idx.load(); err != nil {
		f.Close()
		return nil, err
	}
	return idx, nil
}

// load replays index.dat, truncating any trailing partial record left by a
// crash mid-append.
func (idx *index) load() error {
	info, err := idx.f.Stat()
	if err != nil {
		return err
	}
	n := info.Size() / indexEntrySize
	validSize := n * indexEntrySize
	if validSize != info.Size() {
		if err := idx.f.Truncate(validSize); err != nil {
			return fmt.Errorf("store: truncate partial index record: %w", err)
		}
	}
	if _, err := idx.f.Seek(0, 0); err != nil {
		return err
	}
	r := bufio.NewReader(idx.f)
	buf := make([]byte, indexEntrySize)
	idx.entries = make([]indexEntry, 0, n)
	idx.byH = make(map[crypto.Hash]int, n)
	for i := int64(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%w: %v", ErrCorruptedLog, err)
		}
		e := decodeIndexEntry(buf)
		idx.byH[e.Hash] = len(idx.entries)
		idx.entries = append(idx.entries, e)
	}
	return nil
}

// append writes e to index.dat with an fsync. Callers fsync the blocks log
// record first, then call append, preserving write-then-fsync,
// append-index-then-fsync ordering.
func (idx *index) append(e indexEntry) error {
	if _, err := idx.f.Seek(0, 2); err != nil {
		return err
	}
	if _, err := idx.f.Write(e.encode()); err != nil {
		return err
	}
	if err := idx.f.Sync(); err != nil {
		return err
	}
	idx.byH[e.Hash] = len(idx.entries)
	idx.entries = append(idx.entries, e)
	return nil
}

// truncateTo drops every entry with Height > height, used by checkpoint
// recovery (spec scenario S5).
func (idx *index) truncateTo(height uint64) error {
	cut := len(idx.entries)
	for i, e := range idx.entries {
		if e.Height > height {
			cut = i
			break
		}
	}
	for _, e := range idx.entries[cut:] {
		delete(idx.byH, e.Hash)
	}
	idx.entries = idx.entries[:cut]
	if err := idx.f.Truncate(int64(cut) * indexEntrySize); err != nil {
		return err
	}
	_, err := idx.f.Seek(0, 2)
	return err
}

func (idx *index) height() (uint64, bool) {
	if len(idx.entries) == 0 {
		return 0, false
	}
	return idx.entries[len(idx.entries)-1].Height, true
}

func (idx *index) at(height uint64) (indexEntry, bool) {
	// entries are append-ordered by strictly increasing height, so this is
	// effectively O(1) for the common case of looking near the tail.
	for i := len(idx.entries) - 1; i >= 0; i-- {
		if idx.entries[i].Height == height {
			return idx.entries[i], true
		}
		if idx.entries[i].Height < height {
			break
		}
	}
	return indexEntry{}, false
}

func (idx *index) byHash(h crypto.Hash) (indexEntry, bool) {
	pos, ok := idx.byH[h]
	if !ok {
		return indexEntry{}, false
	}
	return idx.entries[pos], true
}

func (idx *index) close() error { return idx.f.Close() }
