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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Publisher publishes seed addresses as a Route53 A-record set.
type Route53Publisher struct {
	client  *route53.Client
	zoneID  string
	ttl     int64
}

func NewRoute53Publisher(ctx context.Context, zoneID string, ttl int64) (*Route53Publisher, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("seeds: load aws config: %w", err)
	}
	if ttl <= 0 {
		ttl = 300
	}
	return &Route53Publisher{client: route53.NewFromConfig(cfg), zoneID: zoneID, ttl: ttl}, nil
}

func (p *Route53Publisher) PublishAddrs(ctx context.Context, zone, name string, ips []net.IP) error {
	records := make([]types.ResourceRecord, 0, len(ips))
	for _, ip := range ips {
		v := ip.String()
		records = append(records, types.ResourceRecord{Value: aws.String(v)})
	}
	fqdn := name + "." + zone

	_, err := p.client.ChangeResourceRecordSets(ctx, &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(p.zoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: types.ChangeActionUpsert,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name:            aws.String(fqdn),
						Type:            types.RRTypeA,
						TTL:             aws.Int64(p.ttl),
						ResourceRecords: records,
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("seeds: route53 publish: %w", err)
	}
	return nil
}
