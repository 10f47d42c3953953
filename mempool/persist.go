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

package mempool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/inconshreveable/log15"
	"github.com/redis/go-redis/v9"

	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/types"
)

// PersistConfig configures the Redis-backed durability layer that lets a
// restarted node recover in-flight transactions instead of waiting for
// peers to regossip them.
type PersistConfig struct {
	Addr     string
	Password string
	DB       int
	KeyPrefix string
	TTL      time.Duration
}

// Persister mirrors pending transactions into Redis keyed by hash so a
// node restart can rehydrate the pool before the first new block arrives.
type Persister struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	log    log15.Logger
}

func NewPersister(cfg PersistConfig) *Persister {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "driftd:mempool:"
	}
	return &Persister{rdb: rdb, prefix: prefix, ttl: cfg.TTL, log: nodelog.New("mempool.persist")}
}

func (p *Persister) key(hash string) string {
	return p.prefix + hash
}

// Save mirrors tx into Redis. Failures are logged, not returned, since the
// mempool must keep operating without durability on a transient outage.
func (p *Persister) Save(ctx context.Context, tx *types.Transaction) {
	raw, err := json.Marshal(tx)
	if err != nil {
		p.log.Error("marshal transaction for persistence", "err", err)
		return
	}
	if err := p.rdb.Set(ctx, p.key(tx.Hash().String()), raw, p.ttl).Err(); err != nil {
		p.log.Warn("persist transaction", "err", err)
	}
}

// Drop removes a committed or evicted transaction from the durable set.
func (p *Persister) Drop(ctx context.Context, hash string) {
	if err := p.rdb.Del(ctx, p.key(hash)).Err(); err != nil {
		p.log.Warn("drop persisted transaction", "err", err)
	}
}

// LoadAll scans every persisted transaction back into memory on startup.
func (p *Persister) LoadAll(ctx context.Context) ([]*types.Transaction, error) {
	var out []*types.Transaction
	iter := p.rdb.Scan(ctx, 0, p.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		raw, err := p.rdb.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			continue
		}
		var tx types.Transaction
		if err := json.Unmarshal(raw, &tx); err != nil {
			continue
		}
		out = append(out, &tx)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("mempool: scan persisted transactions: %w", err)
	}
	return out, nil
}

func (p *Persister) Close() error {
	return p.rdb.Close()
}
