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

package main

import (
	"flag"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"
)

func publishContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	app := cli.NewApp()
	flags := []cli.Flag{
		cli.StringFlag{Name: "backend", Value: "route53"},
		cli.StringFlag{Name: "zone-id"},
		cli.Int64Flag{Name: "ttl", Value: 300},
		cli.StringFlag{Name: "cf-token"},
		cli.StringFlag{Name: "azure-account"},
		cli.StringFlag{Name: "azure-key"},
		cli.StringFlag{Name: "azure-container"},
		cli.StringFlag{Name: "azure-blob", Value: "seeds.json"},
	}
	fs := flag.NewFlagSet("driftseed", flag.ContinueOnError)
	for _, f := range flags {
		f.Apply(fs)
	}
	require.NoError(t, fs.Parse(args))
	return cli.NewContext(app, fs, nil)
}

func TestPublisherForUnknownBackend(t *testing.T) {
	ctx := publishContext(t, "--backend=carrier-pigeon")
	_, err := publisherFor(ctx)
	require.Error(t, err)
}

func TestPublisherForRoute53RequiresZoneID(t *testing.T) {
	ctx := publishContext(t, "--backend=route53")
	_, err := publisherFor(ctx)
	require.ErrorContains(t, err, "--zone-id")
}

func TestPublisherForCloudflareRequiresToken(t *testing.T) {
	ctx := publishContext(t, "--backend=cloudflare")
	_, err := publisherFor(ctx)
	require.ErrorContains(t, err, "cf-token")
}

func TestResolveCmdRequiresZoneArg(t *testing.T) {
	app := cli.NewApp()
	fs := flag.NewFlagSet("driftseed", flag.ContinueOnError)
	ctx := cli.NewContext(app, fs, nil)
	require.Error(t, resolveCmd(ctx))
}

func TestPublishCmdRejectsMalformedIP(t *testing.T) {
	app := cli.NewApp()
	fs := flag.NewFlagSet("driftseed", flag.ContinueOnError)
	require.NoError(t, fs.Parse([]string{"example.com", "seed1", "not-an-ip"}))
	ctx := cli.NewContext(app, fs, nil)
	require.Error(t, publishCmd(ctx))
}

func TestPublishCmdRequiresThreeArgs(t *testing.T) {
	app := cli.NewApp()
	fs := flag.NewFlagSet("driftseed", flag.ContinueOnError)
	require.NoError(t, fs.Parse([]string{"example.com", "seed1"}))
	ctx := cli.NewContext(app, fs, nil)
	require.Error(t, publishCmd(ctx))
}
