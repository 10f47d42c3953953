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

package seeds

import (
	"context"
	"fmt"
	"net"

	"github.com/cloudflare/cloudflare-go"
)

// CloudflarePublisher publishes seed addresses as Cloudflare DNS A-records,
// one record per IP, replacing whatever previously matched name.
type CloudflarePublisher struct {
	api *cloudflare.API
	ttl int
}

func NewCloudflarePublisher(apiToken string, ttl int) (*CloudflarePublisher, error) {
	api, err := cloudflare.NewWithAPIToken(apiToken)
	if err != nil {
		return nil, fmt.Errorf("seeds: cloudflare client: %w", err)
	}
	if ttl <= 0 {
		ttl = 300
	}
	return &CloudflarePublisher{api: api, ttl: ttl}, nil
}

func (p *CloudflarePublisher) PublishAddrs(ctx context.Context, zone, name string, ips []net.IP) error {
	zoneID, err := p.api.ZoneIDByName(zone)
	if err != nil {
		return fmt.Errorf("seeds: cloudflare zone lookup: %w", err)
	}
	rc := cloudflare.ZoneIdentifier(zoneID)

	existing, _, err := p.api.ListDNSRecords(ctx, rc, cloudflare.ListDNSRecordsParams{Type: "A", Name: name + "." + zone})
	if err == nil {
		for _, rec := range existing {
			_ = p.api.DeleteDNSRecord(ctx, rc, rec.ID)
		}
	}

	for _, ip := range ips {
		_, err := p.api.CreateDNSRecord(ctx, rc, cloudflare.CreateDNSRecordParams{
			Type:    "A",
			Name:    name,
			Content: ip.String(),
			TTL:     p.ttl,
		})
		if err != nil {
			return fmt.Errorf("seeds: cloudflare create record: %w", err)
		}
	}
	return nil
}
