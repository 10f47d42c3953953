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

// Command driftd runs a drift node: network substrate, mempool, blockchain
// store and consensus engine wired together by the integrator.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/inconshreveable/log15"
	"gopkg.in/urfave/cli.v1"

	"github.com/driftchain/driftd/config"
	"github.com/driftchain/driftd/consensus"
	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/integrator"
	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/mempool"
	"github.com/driftchain/driftd/p2p"
	"github.com/driftchain/driftd/p2p/peerstore"
	"github.com/driftchain/driftd/store"
	"github.com/driftchain/driftd/types"
	"github.com/driftchain/driftd/validator"
)

var (
	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the node's ledger, peer store and key file",
		Value: "./data",
	}
	listenAddrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "Listen address for the peer-to-peer transport",
		Value: "0.0.0.0:26656",
	}
	seedsFlag = cli.StringSliceFlag{
		Name:  "seed",
		Usage: "DNS seed zone whose A-records are resolved to peer addresses, may be repeated",
	}
	validatorFlag = cli.BoolFlag{
		Name:  "validator",
		Usage: "Run the consensus engine using this node's key as a validator",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "driftd"
	app.Usage = "drift blockchain node"
	app.Flags = []cli.Flag{configFileFlag, dataDirFlag, listenAddrFlag, seedsFlag, validatorFlag}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "driftd:", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	cfg := config.Default()
	if path := ctx.String(configFileFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	dataDir := ctx.String(dataDirFlag.Name)
	cfg.Storage.DataDir = dataDir
	cfg.Network.Port = 0

	log := nodelog.New("driftd")
	log.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StreamHandler(os.Stderr, log15.TerminalFormat())))

	key, err := crypto.LoadOrGenerateKeyFile(filepath.Join(dataDir, "nodekey"))
	if err != nil {
		return fmt.Errorf("load node key: %w", err)
	}
	selfAddr := key.Public().Address()
	log.Info("node identity", "address", fmt.Sprintf("%x", selfAddr))

	events := make(chan store.Event, 64)
	st, err := store.Open(store.Config{
		DataDir:            dataDir,
		HalvingInterval:    cfg.Storage.HalvingInterval,
		MaxSupply:          types.Amount(cfg.Storage.MaxSupply),
		CheckpointInterval: cfg.Storage.CheckpointInterval,
		CheckpointsKept:    cfg.Storage.CheckpointsKept,
		BlockSizeLimit:     cfg.Storage.BlockSizeLimit,
	}, events)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	go drainEvents(events, log)

	validators := validator.New(validator.Config{
		MinStake:               1,
		MissedBlocksBeforeJail: cfg.Consensus.MissedBlocksBeforeJail,
		JailTime:               cfg.Consensus.JailTime,
		BlockTime:              cfg.Consensus.BlockTime,
		SlashingPenalty:        cfg.Consensus.SlashingPenalty,
		DistributionPeriodDays: cfg.Distribution.DistributionPeriodDays,
		DeveloperReward:        types.Amount(cfg.Distribution.DeveloperReward),
		ValidatorReward:        types.Amount(cfg.Distribution.ValidatorReward),
	})

	pool := mempool.New(mempool.Config{
		MaxTransactions: cfg.Mempool.MaxTransactions,
		MaxSizeBytes:    cfg.Mempool.MaxSizeBytes,
		ExpirationTime:  cfg.Mempool.ExpirationTime,
	}, st)

	var persister *mempool.Persister
	if cfg.Mempool.RedisAddr != "" {
		persister = mempool.NewPersister(mempool.PersistConfig{Addr: cfg.Mempool.RedisAddr})
		pctx, cancel := context.WithTimeout(context.Background(), cfg.Consensus.BlockTime)
		if pending, err := persister.LoadAll(pctx); err == nil {
			for _, tx := range pending {
				pool.Add(tx)
			}
		}
		cancel()
		defer persister.Close()
	}

	ps, err := peerstore.Open(peerstore.Config{
		Path:         filepath.Join(dataDir, "peers"),
		MaxPeers:     cfg.Network.MaxPeers * 4,
		SaveInterval: cfg.Mempool.PersistenceInterval,
	})
	if err != nil {
		return fmt.Errorf("open peer store: %w", err)
	}

	discovery := peerstore.NewSeedDiscovery(peerstore.SeedConfig{
		HardcodedSeeds: cfg.Network.SeedNodes,
		DNSSeeds:       append([]string{}, ctx.StringSlice(seedsFlag.Name)...),
		DefaultPort:    cfg.Network.Port,
		ProbeBatch:     8,
		ProbeTimeout:   cfg.Network.HandshakeTimeout,
		MinReachable:   cfg.Network.MinPeers,
	}, ps)

	localID, err := crypto.NewPeerID()
	if err != nil {
		return fmt.Errorf("generate local peer id: %w", err)
	}
	transport := p2p.New(p2p.Config{
		ListenAddr:            ctx.String(listenAddrFlag.Name),
		MaxPeers:              cfg.Network.MaxPeers,
		MinPeers:              cfg.Network.MinPeers,
		SeedNodes:             cfg.Network.SeedNodes,
		ValidatorPriority:     cfg.Network.ValidatorPriority,
		HandshakeTimeout:      cfg.Network.HandshakeTimeout,
		PingInterval:          cfg.Network.PeerPingInterval,
		DiscoveryInterval:     cfg.Network.PeerDiscoveryInterval,
		BanDuration:           cfg.Consensus.BlockTime * time.Duration(cfg.Consensus.JailTime),
		MalformedBanThreshold: 5,
		LocalID:               localID,
		LocalVersion:          1,
	}, func() uint64 {
		h, _ := st.GetHeight()
		return h
	})

	var engine *consensus.Engine
	if ctx.Bool(validatorFlag.Name) {
		engine = consensus.New(consensus.Config{
			BlockTime:             cfg.Consensus.BlockTime,
			MinValidators:         cfg.Consensus.MinValidators,
			FinalizationThreshold: cfg.Consensus.FinalizationThreshold,
			BlockProposalTimeout:  cfg.Consensus.BlockProposalTimeout,
			VotingTimeout:         cfg.Consensus.VotingTimeout,
			MaxRound:              uint64(cfg.Consensus.MaxRound),
			BlockSizeLimit:        cfg.Storage.BlockSizeLimit,
			ReputationNormalizer:  cfg.Consensus.ReputationNormalizer,
			ReputationCeiling:     cfg.Consensus.ReputationBonusCeiling,
			ReputationDecayFactor: cfg.Consensus.ReputationDecayFactor,
			ReputationGainFactor:  cfg.Consensus.ReputationGainFactor,
		}, &consensus.Self{Address: selfAddr, Key: key}, st, pool, validators, integrator.NewTransportAdapter(transport), nil)
	}

	node := integrator.New(transport, st, pool, engine, ps, discovery, validators)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:    ctx.String(listenAddrFlag.Name),
		Handler: http.HandlerFunc(transport.ServeHTTP),
	}
	httpErrCh := make(chan error, 1)
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErrCh <- err
			return
		}
		httpErrCh <- nil
	}()
	go func() {
		<-runCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http server shutdown", "err", err)
		}
	}()

	for _, addr := range discovery.Discover(runCtx) {
		transport.AddPeer(addr)
	}

	ipcPath := filepath.Join(dataDir, "driftd.ipc")
	log.Info("driftd starting", "addr", ctx.String(listenAddrFlag.Name), "validator", ctx.Bool(validatorFlag.Name), "ipc", ipcPath)
	runErr := node.Run(runCtx, ipcPath)
	stop()
	if httpErr := <-httpErrCh; httpErr != nil {
		log.Warn("p2p listener stopped", "err", httpErr)
	}
	if runErr != nil {
		return fmt.Errorf("node stopped: %w", runErr)
	}
	return nil
}

func drainEvents(events <-chan store.Event, log log15.Logger) {
	for ev := range events {
		log.Info("block committed", "height", ev.Block.Height, "hash", ev.Block.Hash(), "reward", ev.Reward)
	}
}
