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
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

// session wraps a live websocket connection and its accounting, presented
// to the rest of the node as a types.Peer.
type session struct {
	conn *websocket.Conn

	mu      sync.Mutex
	record  types.Peer
	pingAt  time.Time
	writeMu sync.Mutex
}

func newSession(id crypto.PeerID, addr string, conn *websocket.Conn, inbound bool) *session {
	return &session{
		conn: conn,
		record: types.Peer{
			ID:      id,
			Address: addr,
			State:   types.PeerConnecting,
			LastSeen: time.Now(),
		},
	}
}

func (s *session) writeFrame(f Frame) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(f)
}

func (s *session) readFrame() (Frame, error) {
	var f Frame
	err := s.conn.ReadJSON(&f)
	return f, err
}

func (s *session) snapshot() types.Peer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

func (s *session) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.LastSeen = now
}

func (s *session) setState(st types.PeerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.State = st
}

func (s *session) adjustReputation(delta int, now time.Time, banDuration time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record.Reputation += delta
	return s.record.ClampReputation(now, banDuration)
}

func (s *session) close() error {
	return s.conn.Close()
}
