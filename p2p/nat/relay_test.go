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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmitRejectsExpiredTTL(t *testing.T) {
	r := NewMessageRelay(RelayConfig{MaxPayloadBytes: 1024})
	err := r.Submit(RelayMessage{Dst: "peerA", Payload: []byte("hi"), TTL: 0})
	require.ErrorIs(t, err, ErrTTLExpired)
}

func TestSubmitRejectsOversizedPayload(t *testing.T) {
	r := NewMessageRelay(RelayConfig{MaxPayloadBytes: 4})
	err := r.Submit(RelayMessage{Dst: "peerA", Payload: []byte("too big"), TTL: 3})
	require.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestSubmitThenDrainDelivers(t *testing.T) {
	r := NewMessageRelay(RelayConfig{MaxPayloadBytes: 1024})
	err := r.Submit(RelayMessage{ID: "m1", Dst: "peerA", Payload: []byte("hi"), TTL: 3})
	require.NoError(t, err)

	msgs := r.Drain("peerA")
	require.Len(t, msgs, 1)
	require.Equal(t, 2, msgs[0].TTL)

	require.Empty(t, r.Drain("peerA"))
}

func TestSubmitRejectsDuplicateAfterDelivery(t *testing.T) {
	r := NewMessageRelay(RelayConfig{MaxPayloadBytes: 1024})
	require.NoError(t, r.Submit(RelayMessage{ID: "dup", Dst: "peerA", Payload: []byte("hi"), TTL: 3}))
	r.Drain("peerA")
	err := r.Submit(RelayMessage{ID: "dup", Dst: "peerA", Payload: []byte("hi"), TTL: 3})
	require.ErrorIs(t, err, ErrDuplicateMessage)
}

func TestCleanupExpiresOldMessages(t *testing.T) {
	r := NewMessageRelay(RelayConfig{MaxPayloadBytes: 1024, MessageExpiry: time.Millisecond})
	require.NoError(t, r.Submit(RelayMessage{ID: "m1", Dst: "peerA", Payload: []byte("hi"), TTL: 3}))
	time.Sleep(5 * time.Millisecond)
	r.Cleanup(time.Now())
	require.Empty(t, r.Drain("peerA"))
}
