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

// Package seeds publishes and resolves the DNS-seed zone consulted by
// SeedDiscovery's second cascade source.
package seeds

import (
	"context"
	"fmt"
	"net"

	"github.com/driftchain/driftd/internal/nodelog"
)

// Publisher publishes the addresses of reachable, healthy peers. The Route53
// and Cloudflare backends write A-records into a managed DNS zone; the Azure
// backend uploads the list as a plain-text blob and ignores zone and name.
type Publisher interface {
	// PublishAddrs replaces the published address list for name with ips.
	PublishAddrs(ctx context.Context, zone, name string, ips []net.IP) error
}

// Resolve performs the plain runtime lookup SeedDiscovery uses on cold
// start: A-records for zone, formatted as "ip:defaultPort".
func Resolve(ctx context.Context, zone string, defaultPort int) ([]string, error) {
	log := nodelog.New("seeds")
	var resolver net.Resolver
	ips, err := resolver.LookupIP(ctx, "ip4", zone)
	if err != nil {
		return nil, fmt.Errorf("seeds: resolve %s: %w", zone, err)
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, fmt.Sprintf("%s:%d", ip.String(), defaultPort))
	}
	log.Debug("resolved dns seeds", "zone", zone, "count", len(out))
	return out, nil
}
