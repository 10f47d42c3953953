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

package types

import (
	"time"

	"github.com/driftchain/driftd/crypto"
)

// PeerState is the connection lifecycle of a Peer.
type PeerState int

const (
	PeerDisconnected PeerState = iota
	PeerConnecting
	PeerConnected
	PeerBanned
)

func (s PeerState) String() string {
	switch s {
	case PeerConnecting:
		return "connecting"
	case PeerConnected:
		return "connected"
	case PeerBanned:
		return "banned"
	default:
		return "disconnected"
	}
}

// MinReputation and MaxReputation bound Peer.Reputation; it monotone-clamps
// to this range.
const (
	MinReputation = 0
	MaxReputation = 200
)

// Peer is the PeerManager-owned session record.
type Peer struct {
	ID             crypto.PeerID
	Address        string
	State          PeerState
	Reputation     int
	Height         uint64
	IsValidator    bool
	ValidatorAddr  Address
	LastSeen       time.Time
	BytesSent      uint64
	BytesReceived  uint64
	MessagesSent   uint64
	MessagesRecv   uint64
	BanUntil       time.Time
}

// ClampReputation enforces the [0,200] invariant and bans the peer for
// banDuration once reputation hits zero. It returns true if the clamp
// caused a new ban to be applied.
func (p *Peer) ClampReputation(now time.Time, banDuration time.Duration) (banned bool) {
	if p.Reputation < MinReputation {
		p.Reputation = MinReputation
	}
	if p.Reputation > MaxReputation {
		p.Reputation = MaxReputation
	}
	if p.Reputation == 0 && p.State != PeerBanned {
		p.State = PeerBanned
		p.BanUntil = now.Add(banDuration)
		return true
	}
	return false
}

// IsBanned reports whether the peer is currently serving a ban: it is in
// Banned state and now is still before banUntil.
func (p *Peer) IsBanned(now time.Time) bool {
	return p.State == PeerBanned && now.Before(p.BanUntil)
}
