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

// Package peerstore is the durable, bounded set of known peer addresses
// consulted by seed discovery and reseeding.
package peerstore

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/driftchain/driftd/internal/nodelog"
)

// Record is one persisted peer entry.
type Record struct {
	Address  string    `json:"address"`
	LastSeen time.Time `json:"lastSeen"`
	Score    float64   `json:"score"`
	Services uint32    `json:"services"`
}

// Config bundles the PeerStore policy knobs.
type Config struct {
	Path         string
	MaxPeers     int
	ExpiryDays   int
	SaveInterval time.Duration
}

// Store is the PeerStore. Records live in memory for fast eviction/ranking
// decisions and are mirrored to an on-disk leveldb database so a restart
// does not lose the known-good peer set.
type Store struct {
	cfg Config
	log log15.Logger
	db  *leveldb.DB

	mu      sync.Mutex
	records map[string]*Record
	dirty   map[string]bool // address -> pending write; absent once flushed
	tombstones map[string]bool
}

func Open(cfg Config) (*Store, error) {
	if cfg.MaxPeers <= 0 {
		cfg.MaxPeers = 1000
	}
	var (
		db  *leveldb.DB
		err error
	)
	if cfg.Path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(cfg.Path, nil)
	}
	if err != nil {
		return nil, err
	}
	s := &Store{
		cfg:        cfg,
		log:        nodelog.New("peerstore"),
		db:         db,
		records:    make(map[string]*Record),
		dirty:      make(map[string]bool),
		tombstones: make(map[string]bool),
	}
	if err := s.load(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	iter := s.db.NewIterator(nil, nil)
	defer iter.Release()
	s.mu.Lock()
	defer s.mu.Unlock()
	for iter.Next() {
		var r Record
		if err := json.Unmarshal(iter.Value(), &r); err != nil {
			continue
		}
		rec := r
		s.records[rec.Address] = &rec
	}
	return iter.Error()
}

// Save flushes every pending insert/remove to the leveldb database in one
// batch.
func (s *Store) Save() error {
	s.mu.Lock()
	batch := new(leveldb.Batch)
	for addr := range s.dirty {
		if r, ok := s.records[addr]; ok {
			raw, err := json.Marshal(r)
			if err != nil {
				s.mu.Unlock()
				return err
			}
			batch.Put([]byte(addr), raw)
		}
	}
	for addr := range s.tombstones {
		batch.Delete([]byte(addr))
	}
	s.dirty = make(map[string]bool)
	s.tombstones = make(map[string]bool)
	s.mu.Unlock()

	if batch.Len() == 0 {
		return nil
	}
	return s.db.Write(batch, nil)
}

// Insert adds or refreshes addr, evicting the lowest combined-rank entry
// (0.7·score + 0.3·recency) when over capacity.
func (s *Store) Insert(addr string, score float64, services uint32, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[addr]; ok {
		r.LastSeen = now
		r.Score = score
		r.Services = services
		s.dirty[addr] = true
		return
	}
	if len(s.records) >= s.cfg.MaxPeers {
		s.evictLockedFor(now)
	}
	s.records[addr] = &Record{Address: addr, LastSeen: now, Score: score, Services: services}
	s.dirty[addr] = true
}

func (s *Store) evictLockedFor(now time.Time) {
	var worst string
	var worstRank float64
	first := true
	for addr, r := range s.records {
		rank := combinedRank(r, now)
		if first || rank < worstRank {
			worst = addr
			worstRank = rank
			first = false
		}
	}
	if worst != "" {
		delete(s.records, worst)
		delete(s.dirty, worst)
		s.tombstones[worst] = true
	}
}

func combinedRank(r *Record, now time.Time) float64 {
	recency := 0.0
	if !r.LastSeen.IsZero() && now.After(r.LastSeen) {
		age := now.Sub(r.LastSeen).Hours()
		total := now.Sub(time.Unix(0, 0)).Hours()
		if total > 0 {
			recency = 1 - (age / total)
		}
	}
	return 0.7*r.Score + 0.3*recency
}

func (s *Store) isStale(r *Record, now time.Time) bool {
	if s.cfg.ExpiryDays <= 0 {
		return false
	}
	return now.Sub(r.LastSeen) > time.Duration(s.cfg.ExpiryDays)*24*time.Hour
}

// Good returns non-stale addresses, best score first.
func (s *Store) Good(now time.Time) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Record, 0, len(s.records))
	for _, r := range s.records {
		if !s.isStale(r, now) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	addrs := make([]string, len(out))
	for i, r := range out {
		addrs[i] = r.Address
	}
	return addrs
}

// Remove drops addr from the set.
func (s *Store) Remove(addr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, addr)
	delete(s.dirty, addr)
	s.tombstones[addr] = true
}

// Len reports the number of tracked addresses.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close flushes pending writes and releases the underlying database.
func (s *Store) Close() error {
	if err := s.Save(); err != nil {
		s.log.Warn("final peerstore save", "err", err)
	}
	return s.db.Close()
}

// SaveLoop periodically persists the store until stop is closed.
func (s *Store) SaveLoop(stop <-chan struct{}) {
	interval := s.cfg.SaveInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			_ = s.Save()
			return
		case <-ticker.C:
			if err := s.Save(); err != nil {
				s.log.Warn("save peerstore", "err", err)
			}
		}
	}
}
