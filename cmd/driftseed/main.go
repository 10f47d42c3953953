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

// Command driftseed resolves or republishes the DNS seed list consulted by
// a node's SeedDiscovery, the same zone a node is given with driftd's
// --seed flag.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/urfave/cli.v1"

	"github.com/driftchain/driftd/seeds"
)

func main() {
	app := cli.NewApp()
	app.Name = "driftseed"
	app.Usage = "resolve or publish the drift seed DNS zone"
	app.Commands = []cli.Command{
		{
			Name:      "resolve",
			Usage:     "look up reachable seed addresses for a zone",
			ArgsUsage: "<zone>",
			Flags: []cli.Flag{
				cli.IntFlag{Name: "port", Usage: "default port appended to resolved addresses", Value: 26656},
			},
			Action: resolveCmd,
		},
		{
			Name:      "publish",
			Usage:     "replace a zone's A-records with the given addresses",
			ArgsUsage: "<zone> <name> <ip...>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "backend", Usage: "route53, cloudflare or azure", Value: "route53"},
				cli.StringFlag{Name: "zone-id", Usage: "Route53 hosted zone ID"},
				cli.Int64Flag{Name: "ttl", Usage: "DNS record TTL in seconds", Value: 300},
				cli.StringFlag{Name: "cf-token", Usage: "Cloudflare API token", EnvVar: "CLOUDFLARE_API_TOKEN"},
				cli.StringFlag{Name: "azure-account", Usage: "Azure storage account name"},
				cli.StringFlag{Name: "azure-key", Usage: "Azure storage account key", EnvVar: "AZURE_STORAGE_KEY"},
				cli.StringFlag{Name: "azure-container", Usage: "Azure blob container holding the seed snapshot"},
				cli.StringFlag{Name: "azure-blob", Usage: "Azure blob name for the seed snapshot", Value: "seeds.json"},
			},
			Action: publishCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "driftseed:", err)
		os.Exit(1)
	}
}

func resolveCmd(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return cli.NewExitError("driftseed: resolve requires a zone argument", 1)
	}
	addrs, err := seeds.Resolve(context.Background(), ctx.Args().First(), ctx.Int("port"))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	for _, addr := range addrs {
		fmt.Println(addr)
	}
	return nil
}

func publisherFor(ctx *cli.Context) (seeds.Publisher, error) {
	switch ctx.String("backend") {
	case "route53":
		zoneID := ctx.String("zone-id")
		if zoneID == "" {
			return nil, fmt.Errorf("driftseed: --zone-id is required for the route53 backend")
		}
		return seeds.NewRoute53Publisher(context.Background(), zoneID, ctx.Int64("ttl"))
	case "cloudflare":
		token := ctx.String("cf-token")
		if token == "" {
			return nil, fmt.Errorf("driftseed: --cf-token (or CLOUDFLARE_API_TOKEN) is required for the cloudflare backend")
		}
		return seeds.NewCloudflarePublisher(token, int(ctx.Int64("ttl")))
	case "azure":
		return seeds.NewAzureBlobSnapshotter(ctx.String("azure-account"), ctx.String("azure-key"), ctx.String("azure-container"), ctx.String("azure-blob"))
	default:
		return nil, fmt.Errorf("driftseed: unknown backend %q", ctx.String("backend"))
	}
}

func publishCmd(ctx *cli.Context) error {
	if ctx.NArg() < 3 {
		return cli.NewExitError("driftseed: publish requires <zone> <name> <ip...>", 1)
	}
	zone := ctx.Args().Get(0)
	name := ctx.Args().Get(1)
	ipArgs := ctx.Args()[2:]

	ips := make([]net.IP, 0, len(ipArgs))
	for _, raw := range ipArgs {
		ip := net.ParseIP(strings.TrimSpace(raw))
		if ip == nil {
			return cli.NewExitError(fmt.Sprintf("driftseed: invalid IP address %q", raw), 1)
		}
		ips = append(ips, ip)
	}

	publisher, err := publisherFor(ctx)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	if err := publisher.PublishAddrs(context.Background(), zone, name, ips); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Printf("published %d address(es) for %s.%s\n", len(ips), name, zone)
	return nil
}
