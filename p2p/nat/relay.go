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

package nat

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"errors"
	"sync"
	"time"

	"github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/driftchain/driftd/internal/nodelog"
)

var (
	ErrOverloaded       = errors.New("nat: relay overloaded")
	ErrTTLExpired       = errors.New("nat: relay message ttl expired")
	ErrDuplicateMessage = errors.New("nat: duplicate relay message")
	ErrPayloadTooLarge  = errors.New("nat: relay payload too large")
)

// RelayMessage is the store-and-forward envelope.
type RelayMessage struct {
	ID        string
	Src       string
	Dst       string
	Payload   []byte
	Encrypted bool
	TTL       int
	Timestamp time.Time
}

// RelayConfig bundles the MessageRelay policy knobs.
type RelayConfig struct {
	MaxRelayedPerMinute int
	MaxPayloadBytes     int
	MessageExpiry       time.Duration
	CleanupInterval     time.Duration
	MaxDeliveredIDs     int
}

type pendingPeer struct {
	pubKey   *rsa.PublicKey
	lastSeen time.Time
}

// MessageRelay provides store-and-forward delivery for peers unreachable
// directly, with opportunistic per-peer public-key encryption.
type MessageRelay struct {
	cfg     RelayConfig
	limiter *rate.Limiter

	mu        sync.Mutex
	delivered mapset.Set[string]
	pending   map[string][]RelayMessage // dst -> queued messages
	peers     map[string]*pendingPeer
}

func NewMessageRelay(cfg RelayConfig) *MessageRelay {
	if cfg.MaxRelayedPerMinute <= 0 {
		cfg.MaxRelayedPerMinute = 120
	}
	if cfg.MaxDeliveredIDs <= 0 {
		cfg.MaxDeliveredIDs = 10_000
	}
	return &MessageRelay{
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.MaxRelayedPerMinute)), cfg.MaxRelayedPerMinute),
		delivered: mapset.NewSet[string](),
		pending:   make(map[string][]RelayMessage),
		peers:     make(map[string]*pendingPeer),
	}
}

// RegisterKey records dst's public key for opportunistic payload encryption.
func (r *MessageRelay) RegisterKey(dst string, pub *rsa.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.peers[dst] = &pendingPeer{pubKey: pub, lastSeen: time.Now()}
}

// Submit accepts a message for relay, applying rate limiting, TTL, dedup
// and payload-size checks.
func (r *MessageRelay) Submit(msg RelayMessage) error {
	if !r.limiter.Allow() {
		return ErrOverloaded
	}
	if msg.TTL <= 0 {
		return ErrTTLExpired
	}
	if r.cfg.MaxPayloadBytes > 0 && len(msg.Payload) > r.cfg.MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.delivered.Contains(msg.ID) {
		return ErrDuplicateMessage
	}

	if peer, ok := r.peers[msg.Dst]; ok && peer.pubKey != nil && !msg.Encrypted {
		if enc, err := encryptPayload(peer.pubKey, msg.Payload); err == nil {
			msg.Payload = enc
			msg.Encrypted = true
		}
	}

	msg.TTL--
	msg.Timestamp = time.Now()
	r.pending[msg.Dst] = append(r.pending[msg.Dst], msg)
	return nil
}

func encryptPayload(pub *rsa.PublicKey, payload []byte) ([]byte, error) {
	hash := sha256.New()
	return rsa.EncryptOAEP(hash, rand.Reader, pub, payload, nil)
}

// Drain returns and clears every message queued for dst.
func (r *MessageRelay) Drain(dst string) []RelayMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.pending[dst]
	delete(r.pending, dst)
	for _, m := range msgs {
		r.delivered.Add(m.ID)
		if r.delivered.Cardinality() > r.cfg.MaxDeliveredIDs {
			r.delivered.Clear()
		}
	}
	return msgs
}

// Cleanup expires pending messages past MessageExpiry and drops peers not
// seen for 3x cleanupInterval.
func (r *MessageRelay) Cleanup(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for dst, msgs := range r.pending {
		var kept []RelayMessage
		for _, m := range msgs {
			if now.Sub(m.Timestamp) < r.cfg.MessageExpiry {
				kept = append(kept, m)
			}
		}
		if len(kept) == 0 {
			delete(r.pending, dst)
		} else {
			r.pending[dst] = kept
		}
	}

	staleAfter := 3 * r.cfg.CleanupInterval
	for dst, p := range r.peers {
		if now.Sub(p.lastSeen) > staleAfter {
			delete(r.peers, dst)
		}
	}
}

// CleanupLoop runs Cleanup on a ticker until stop is closed.
func (r *MessageRelay) CleanupLoop(stop <-chan struct{}) {
	log := nodelog.New("nat.relay")
	interval := r.cfg.CleanupInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.Cleanup(time.Now())
			log.Debug("relay cleanup swept")
		}
	}
}
