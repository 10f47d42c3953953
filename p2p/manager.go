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

package p2p

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/inconshreveable/log15"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/internal/nodelog"
	"github.com/driftchain/driftd/types"
)

var (
	ErrBanned   = errors.New("p2p: peer banned")
	ErrTimeout  = errors.New("p2p: handshake timeout")
	ErrRefused  = errors.New("p2p: connection refused")
	ErrPoolFull = errors.New("p2p: peer pool full")
)

// Config bundles the Network group of options.
type Config struct {
	ListenAddr            string
	MaxPeers              int
	MinPeers              int
	SeedNodes             []string
	ValidatorPriority     bool
	HandshakeTimeout      time.Duration
	PingInterval          time.Duration
	DiscoveryInterval     time.Duration
	BanDuration           time.Duration
	MalformedBanThreshold int
	LocalID               crypto.PeerID
	LocalVersion          uint32
}

// Manager is the Transport & PeerManager.
type Manager struct {
	cfg      Config
	log      log15.Logger
	upgrader websocket.Upgrader

	mu          sync.RWMutex
	sessions    map[crypto.PeerID]*session
	banned      map[string]time.Time
	malformedAt map[crypto.PeerID][]time.Time

	heightFn func() uint64

	incoming chan InboundMessage
}

// InboundMessage is a decoded frame dispatched to the gossip router.
type InboundMessage struct {
	Peer crypto.PeerID
	Type MessageType
	Data []byte
}

func New(cfg Config, heightFn func() uint64) *Manager {
	return &Manager{
		cfg:         cfg,
		log:         nodelog.New("p2p"),
		upgrader:    websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		sessions:    make(map[crypto.PeerID]*session),
		banned:      make(map[string]time.Time),
		malformedAt: make(map[crypto.PeerID][]time.Time),
		heightFn:    heightFn,
		incoming:    make(chan InboundMessage, 1024),
	}
}

// Incoming exposes the decoded-message channel for the gossip router.
func (m *Manager) Incoming() <-chan InboundMessage { return m.incoming }

// ServeHTTP upgrades inbound HTTP connections to websocket sessions.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	addr := r.RemoteAddr
	if m.isBanned(addr) {
		http.Error(w, "banned", http.StatusForbidden)
		return
	}
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Debug("upgrade failed", "addr", addr, "err", err)
		return
	}
	id, err := crypto.NewPeerID()
	if err != nil {
		m.log.Debug("peer id generation failed", "addr", addr, "err", err)
		conn.Close()
		return
	}
	s := newSession(id, addr, conn, true)
	_ = conn.SetReadDeadline(time.Now().Add(m.cfg.HandshakeTimeout))
	if hello, err := s.readFrame(); err != nil || hello.Type != MsgHandshake {
		m.log.Debug("inbound handshake failed", "addr", addr, "err", ErrTimeout)
		_ = s.close()
		return
	}
	reply, err := newFrame(MsgHandshake, HandshakePayload{ID: m.cfg.LocalID.String(), Version: m.cfg.LocalVersion, Height: m.heightFn()})
	if err == nil {
		err = s.writeFrame(reply)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if err == nil {
		err = m.acceptSession(s)
	}
	if err != nil {
		m.log.Debug("inbound handshake failed", "addr", addr, "err", err)
		_ = s.close()
		return
	}
	go m.readLoop(s)
}

// Connect dials addr and performs the handshake.
func (m *Manager) Connect(addr string) (crypto.PeerID, error) {
	if m.isBanned(addr) {
		return crypto.PeerID{}, ErrBanned
	}
	m.mu.RLock()
	full := len(m.sessions) >= m.cfg.MaxPeers
	m.mu.RUnlock()
	if full {
		return crypto.PeerID{}, ErrPoolFull
	}

	dialer := websocket.Dialer{HandshakeTimeout: m.cfg.HandshakeTimeout}
	conn, _, err := dialer.Dial(fmt.Sprintf("ws://%s/drift", addr), nil)
	if err != nil {
		return crypto.PeerID{}, fmt.Errorf("%w: %v", ErrRefused, err)
	}
	id, err := crypto.NewPeerID()
	if err != nil {
		conn.Close()
		return crypto.PeerID{}, fmt.Errorf("p2p: generate peer id: %w", err)
	}
	s := newSession(id, addr, conn, false)
	if err := m.initiateHandshake(s); err != nil {
		_ = s.close()
		return crypto.PeerID{}, err
	}
	if err := m.acceptSession(s); err != nil {
		_ = s.close()
		return crypto.PeerID{}, err
	}
	go m.readLoop(s)
	return id, nil
}

func (m *Manager) initiateHandshake(s *session) error {
	payload := HandshakePayload{ID: m.cfg.LocalID.String(), Version: m.cfg.LocalVersion, Height: m.heightFn()}
	f, err := newFrame(MsgHandshake, payload)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(m.cfg.HandshakeTimeout)
	_ = s.conn.SetReadDeadline(deadline)
	if err := s.writeFrame(f); err != nil {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	reply, err := s.readFrame()
	if err != nil || reply.Type != MsgHandshake {
		return ErrTimeout
	}
	_ = s.conn.SetReadDeadline(time.Time{})
	return nil
}

// acceptSession admits s into the pool, applying validator-priority
// eviction when the pool is saturated.
func (m *Manager) acceptSession(s *session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.cfg.MaxPeers {
		if m.cfg.ValidatorPriority && s.snapshot().IsValidator {
			if victim, ok := m.lowestReputationNonValidatorLocked(); ok {
				delete(m.sessions, victim.ID)
				go func() { _ = m.Disconnect(victim.ID, "evicted for validator priority") }()
			} else {
				return ErrPoolFull
			}
		} else {
			return ErrPoolFull
		}
	}
	s.setState(types.PeerConnected)
	m.sessions[s.record.ID] = s
	return nil
}

func (m *Manager) lowestReputationNonValidatorLocked() (types.Peer, bool) {
	var victim *types.Peer
	for _, s := range m.sessions {
		p := s.snapshot()
		if p.IsValidator {
			continue
		}
		if victim == nil || p.Reputation < victim.Reputation {
			pc := p
			victim = &pc
		}
	}
	if victim == nil {
		return types.Peer{}, false
	}
	return *victim, true
}

// Send delivers a typed payload to a single peer.
func (m *Manager) Send(peerID crypto.PeerID, t MessageType, payload interface{}) bool {
	m.mu.RLock()
	s, ok := m.sessions[peerID]
	m.mu.RUnlock()
	if !ok {
		return false
	}
	f, err := newFrame(t, payload)
	if err != nil {
		return false
	}
	if err := s.writeFrame(f); err != nil {
		m.log.Debug("send failed", "peer", peerID, "err", err)
		m.penalize(peerID, -1)
		return false
	}
	s.mu.Lock()
	s.record.MessagesSent++
	s.mu.Unlock()
	return true
}

// Broadcast delivers a payload to every connected peer except exclude,
// returning the delivery count.
func (m *Manager) Broadcast(t MessageType, payload interface{}, exclude crypto.PeerID) int {
	m.mu.RLock()
	targets := make([]crypto.PeerID, 0, len(m.sessions))
	for id := range m.sessions {
		if id != exclude {
			targets = append(targets, id)
		}
	}
	m.mu.RUnlock()

	var delivered int
	for _, id := range targets {
		if m.Send(id, t, payload) {
			delivered++
		}
	}
	return delivered
}

// Disconnect drops a session. Always safe and idempotent.
func (m *Manager) Disconnect(peerID crypto.PeerID, reason string) error {
	m.mu.Lock()
	s, ok := m.sessions[peerID]
	if ok {
		delete(m.sessions, peerID)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}
	m.log.Debug("peer disconnected", "peer", peerID, "reason", reason)
	return s.close()
}

// AddPeer dials addr through Connect, logging rather than returning any
// failure.
func (m *Manager) AddPeer(addr string) {
	if _, err := m.Connect(addr); err != nil {
		m.log.Debug("addPeer failed", "addr", addr, "err", err)
	}
}

// BanPeer bans an address for duration.
func (m *Manager) BanPeer(addr string, duration time.Duration) {
	m.mu.Lock()
	m.banned[addr] = time.Now().Add(duration)
	m.mu.Unlock()
}

func (m *Manager) isBanned(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	until, ok := m.banned[addr]
	if !ok {
		until, ok = m.banned[host]
	}
	return ok && time.Now().Before(until)
}

func (m *Manager) penalize(peerID crypto.PeerID, delta int) {
	m.mu.RLock()
	s, ok := m.sessions[peerID]
	m.mu.RUnlock()
	if !ok {
		return
	}
	if s.adjustReputation(delta, time.Now(), m.cfg.BanDuration) {
		m.log.Warn("peer auto-banned on zero reputation", "peer", peerID)
		_ = m.Disconnect(peerID, "reputation exhausted")
	}
}

// readLoop decodes frames off s until the connection closes, handling
// ping/pong and malformed-frame penalties. The handshake is completed
// before the loop starts.
func (m *Manager) readLoop(s *session) {
	for {
		f, err := s.readFrame()
		if err != nil {
			m.penalize(s.record.ID, -1)
			_ = m.Disconnect(s.record.ID, "read error")
			return
		}
		if !validType(f.Type) {
			m.flagMalformed(s)
			continue
		}
		s.touch(time.Now())
		s.mu.Lock()
		s.record.MessagesRecv++
		s.mu.Unlock()

		switch f.Type {
		case MsgPing:
			_ = s.writeFrame(Frame{Type: MsgPong, TS: f.TS})
			continue
		case MsgPong:
			continue
		}
		select {
		case m.incoming <- InboundMessage{Peer: s.record.ID, Type: f.Type, Data: f.Data}:
		default:
			m.log.Warn("inbound queue full, dropping frame", "peer", s.record.ID, "type", f.Type)
		}
	}
}

// flagMalformed applies the −3 penalty and escalates to a ban on repeated
// malformed frames within one minute.
func (m *Manager) flagMalformed(s *session) {
	m.penalize(s.record.ID, -3)

	m.mu.Lock()
	now := time.Now()
	history := append(m.malformedAt[s.record.ID], now)
	cutoff := now.Add(-time.Minute)
	kept := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	m.malformedAt[s.record.ID] = kept
	threshold := m.cfg.MalformedBanThreshold
	if threshold <= 0 {
		threshold = 3
	}
	repeat := len(kept) >= threshold
	m.mu.Unlock()

	if repeat {
		m.BanPeer(s.record.Address, time.Hour)
		_ = m.Disconnect(s.record.ID, "repeated malformed frames")
	}
}

// PingLoop sends periodic pings to every connected peer until ctx is done.
func (m *Manager) PingLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Broadcast(MsgPing, struct{}{}, crypto.PeerID{})
		}
	}
}

// DiscoveryLoop runs the discovery timer: asks a handful of
// connected peers for more addresses, and re-seeds when below minPeers.
func (m *Manager) DiscoveryLoop(ctx context.Context, reseed func()) {
	ticker := time.NewTicker(m.cfg.DiscoveryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runDiscovery(reseed)
		}
	}
}

func (m *Manager) runDiscovery(reseed func()) {
	m.mu.RLock()
	count := len(m.sessions)
	ids := make([]crypto.PeerID, 0, count)
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	if count < m.cfg.MinPeers && reseed != nil {
		reseed()
	}
	if count >= m.cfg.MaxPeers {
		return
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if len(ids) > 3 {
		ids = ids[:3]
	}
	for _, id := range ids {
		m.Send(id, MsgGetPeers, struct{}{})
	}
}

// Peers returns a snapshot of every connected session.
func (m *Manager) Peers() []types.Peer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Peer, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.snapshot())
	}
	return out
}

// Count returns the number of currently connected peers.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
