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

package peerstore

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/driftchain/driftd/internal/nodelog"
)

// SeedConfig bundles the sources SeedDiscovery consults on cold start.
type SeedConfig struct {
	HardcodedSeeds []string
	DNSSeeds       []string
	DefaultPort    int
	ProbeBatch     int
	ProbeTimeout   time.Duration
	MinReachable   int
}

// SeedDiscovery resolves a deduplicated, reachability-checked address list
// for the PeerManager to dial.
type SeedDiscovery struct {
	cfg   SeedConfig
	store *Store
	log   log15.Logger
}

func NewSeedDiscovery(cfg SeedConfig, store *Store) *SeedDiscovery {
	if cfg.ProbeBatch <= 0 {
		cfg.ProbeBatch = 5
	}
	if cfg.MinReachable <= 0 {
		cfg.MinReachable = 5
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 3 * time.Second
	}
	return &SeedDiscovery{cfg: cfg, store: store, log: nodelog.New("peerstore.discovery")}
}

// Discover runs the three-source cascade and returns reachable addresses,
// stopping once at least MinReachable have been confirmed.
func (d *SeedDiscovery) Discover(ctx context.Context) []string {
	candidates := d.candidates()
	seen := make(map[string]bool, len(candidates))
	var ordered []string
	for _, c := range candidates {
		if !seen[c] {
			seen[c] = true
			ordered = append(ordered, c)
		}
	}

	var reachable []string
	for i := 0; i < len(ordered) && len(reachable) < d.cfg.MinReachable; i += d.cfg.ProbeBatch {
		end := i + d.cfg.ProbeBatch
		if end > len(ordered) {
			end = len(ordered)
		}
		reachable = append(reachable, d.probeBatch(ctx, ordered[i:end])...)
	}
	return reachable
}

func (d *SeedDiscovery) candidates() []string {
	var out []string
	out = append(out, d.cfg.HardcodedSeeds...)

	for _, zone := range d.cfg.DNSSeeds {
		ips, err := net.LookupIP(zone)
		if err != nil {
			d.log.Debug("dns seed lookup failed", "zone", zone, "err", err)
			continue
		}
		for _, ip := range ips {
			out = append(out, fmt.Sprintf("%s:%d", ip.String(), d.cfg.DefaultPort))
		}
	}

	if d.store != nil {
		out = append(out, d.store.Good(time.Now())...)
	}
	return out
}

func (d *SeedDiscovery) probeBatch(ctx context.Context, batch []string) []string {
	var wg sync.WaitGroup
	results := make(chan string, len(batch))
	for _, addr := range batch {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			dialer := net.Dialer{Timeout: d.cfg.ProbeTimeout}
			conn, err := dialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return
			}
			_ = conn.Close()
			results <- addr
		}(addr)
	}
	wg.Wait()
	close(results)

	var ok []string
	for addr := range results {
		ok = append(ok, addr)
	}
	return ok
}
