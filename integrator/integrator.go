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

// Package integrator is the sole cross-subsystem mediator: it owns the
// gossip router that dispatches decoded p2p frames into the consensus
// engine, mempool and peerstore, and supervises every long-running
// goroutine with an errgroup so one subsystem's failure tears down the
// node instead of wedging silently.
package integrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru"
	"github.com/inconshreveable/log15"
	"golang.org/x/sync/errgroup"

	"github.com/driftchain/driftd/consensus"
	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/mempool"
	"github.com/driftchain/driftd/p2p"
	"github.com/driftchain/driftd/p2p/peerstore"
	"github.com/driftchain/driftd/p2p/scoring"
	"github.com/driftchain/driftd/store"
	"github.com/driftchain/driftd/types"
	"github.com/driftchain/driftd/validator"
)

// maxTrackedPeerScores bounds the scoring cache so a churn of short-lived
// connections cannot grow it without limit; the least-recently-used peer's
// score is evicted first.
const maxTrackedPeerScores = 4096

// Node wires every subsystem together and supervises their goroutines.
type Node struct {
	log log15.Logger

	transport  *p2p.Manager
	store      *store.Store
	pool       *mempool.Pool
	engine     *consensus.Engine
	peerStore  *peerstore.Store
	discovery  *peerstore.SeedDiscovery
	validators *validator.Manager

	scores *lru.Cache // crypto.PeerID -> *scoring.Score
}

// New assembles a Node from already-constructed subsystems; cmd/driftd is
// responsible for building each piece from Config and passing them here.
func New(transport *p2p.Manager, st *store.Store, pool *mempool.Pool, engine *consensus.Engine, ps *peerstore.Store, sd *peerstore.SeedDiscovery, validators *validator.Manager) *Node {
	scores, _ := lru.New(maxTrackedPeerScores)
	return &Node{
		log:        nodelog.New("integrator"),
		transport:  transport,
		store:      st,
		pool:       pool,
		engine:     engine,
		peerStore:  ps,
		discovery:  sd,
		validators: validators,
		scores:     scores,
	}
}

// scoreFor returns the peer's scoring state, creating it on first contact.
func (n *Node) scoreFor(id crypto.PeerID) *scoring.Score {
	if v, ok := n.scores.Get(id); ok {
		return v.(*scoring.Score)
	}
	s := scoring.New()
	n.scores.Add(id, s)
	return s
}

// addrFor resolves a connected peer's dial address, for BanPeer's
// address-keyed ban list.
func (n *Node) addrFor(id crypto.PeerID) string {
	if n.transport == nil {
		return ""
	}
	for _, p := range n.transport.Peers() {
		if p.ID == id {
			return p.Address
		}
	}
	return ""
}

// reactToScore acts on a threshold crossing for peer id: ban, disconnect or
// log its new standing.
func (n *Node) reactToScore(id crypto.PeerID, ev scoring.Event) {
	if n.transport == nil {
		return
	}
	switch ev {
	case scoring.EventBan:
		if addr := n.addrFor(id); addr != "" {
			n.transport.BanPeer(addr, time.Hour)
		}
		n.transport.Disconnect(id, "score: banned")
	case scoring.EventDisconnect:
		n.transport.Disconnect(id, "score: disconnected")
	case scoring.EventProbation:
		n.log.Debug("peer entered probation", "peer", id)
	case scoring.EventTrusted:
		n.log.Debug("peer reached trusted threshold", "peer", id)
	}
}

// transportAdapter satisfies consensus.Transport by broadcasting encoded
// votes and blocks over the p2p Manager.
type transportAdapter struct {
	m *p2p.Manager
}

func (t transportAdapter) BroadcastBlock(b *types.Block) {
	t.m.Broadcast(p2p.MsgNewBlock, b, crypto.PeerID{})
}

func (t transportAdapter) BroadcastVote(v consensus.Vote) {
	t.m.Broadcast(p2p.MsgValidatorUpdate, v, crypto.PeerID{})
}

// NewTransportAdapter exposes transportAdapter for cmd/driftd wiring.
func NewTransportAdapter(m *p2p.Manager) consensus.Transport {
	return transportAdapter{m: m}
}

// Run starts the gossip router, consensus engine, and periodic maintenance
// timers under a single errgroup. If ipcPath is non-empty, the node also
// serves its local control socket for cmd/driftcli.
func (n *Node) Run(ctx context.Context, ipcPath string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n.routeInbound(ctx)
		return ctx.Err()
	})

	if ipcPath != "" {
		g.Go(func() error {
			if err := n.ServeIPC(ctx, ipcPath); err != nil && ctx.Err() == nil {
				return err
			}
			return ctx.Err()
		})
	}

	if n.engine != nil {
		g.Go(func() error {
			n.engine.Run(ctx)
			return ctx.Err()
		})
	}

	if n.transport != nil {
		g.Go(func() error {
			n.transport.PingLoop(ctx)
			return ctx.Err()
		})
		g.Go(func() error {
			n.transport.DiscoveryLoop(ctx, n.reseed)
			return ctx.Err()
		})
	}

	g.Go(func() error {
		n.mempoolMaintenance(ctx)
		return ctx.Err()
	})

	if n.peerStore != nil {
		g.Go(func() error {
			stop := make(chan struct{})
			go func() {
				<-ctx.Done()
				close(stop)
			}()
			n.peerStore.SaveLoop(stop)
			if err := n.peerStore.Close(); err != nil {
				n.log.Warn("close peerstore", "err", err)
			}
			return ctx.Err()
		})
	}

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// routeInbound dispatches decoded transport frames to the subsystem that
// owns the corresponding message type: a single logical task reading the
// gossip router and fanning decoded messages out to subsystem queues.
func (n *Node) routeInbound(ctx context.Context) {
	if n.transport == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-n.transport.Incoming():
			if !ok {
				return
			}
			n.dispatch(msg)
		}
	}
}

func (n *Node) dispatch(msg p2p.InboundMessage) {
	score := n.scoreFor(msg.Peer)
	switch msg.Type {
	case p2p.MsgNewBlock:
		var b types.Block
		if err := json.Unmarshal(msg.Data, &b); err != nil {
			n.log.Debug("malformed block frame", "peer", msg.Peer, "err", err)
			n.reactToScore(msg.Peer, score.ApplyBehavior(scoring.DeltaInvalidMessage))
			return
		}
		propagationMS := float64(time.Now().Unix()-b.Timestamp) * 1000
		score.RecordBlock(true, propagationMS)
		n.reactToScore(msg.Peer, score.Event())
		if n.engine != nil {
			n.engine.ReceiveProposal(&b)
		}
	case p2p.MsgNewTransaction:
		var tx types.Transaction
		if err := json.Unmarshal(msg.Data, &tx); err != nil {
			n.log.Debug("malformed transaction frame", "peer", msg.Peer, "err", err)
			n.reactToScore(msg.Peer, score.ApplyBehavior(scoring.DeltaInvalidMessage))
			return
		}
		res := n.pool.Add(&tx)
		relayMS := float64(time.Now().Unix()-tx.Timestamp) * 1000
		score.RecordTransaction(res.OK, relayMS)
		n.reactToScore(msg.Peer, score.Event())
		if !res.OK {
			n.log.Debug("rejected gossiped transaction", "reason", res.Reason)
		}
	case p2p.MsgValidatorUpdate:
		var v consensus.Vote
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			n.log.Debug("malformed vote frame", "peer", msg.Peer, "err", err)
			return
		}
		if n.engine != nil {
			n.engine.ReceiveVote(v)
		}
	case p2p.MsgGetPeers:
		if n.peerStore != nil && n.transport != nil {
			addrs := n.peerStore.Good(time.Now())
			n.transport.Send(msg.Peer, p2p.MsgPeers, p2p.PeersPayload{Addrs: addrs})
		}
	case p2p.MsgPeers:
		var payload p2p.PeersPayload
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			return
		}
		for _, addr := range payload.Addrs {
			if n.peerStore != nil {
				n.peerStore.Insert(addr, 0, 0, time.Now())
			}
		}
	}
}

func (n *Node) reseed() {
	if n.discovery == nil || n.transport == nil {
		return
	}
	for _, addr := range n.discovery.Discover(context.Background()) {
		n.transport.AddPeer(addr)
	}
}

// mempoolMaintenance runs the periodic cleanup timer.
func (n *Node) mempoolMaintenance(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := n.pool.Cleanup(time.Now())
			if removed > 0 {
				n.log.Debug("expired mempool entries", "count", removed)
			}
		}
	}
}
