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
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func listenUDP(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.ParseIP("127.0.0.1")})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHolePunchSucceedsOnReply(t *testing.T) {
	local := listenUDP(t)
	peer := listenUDP(t)

	peerAddr := peer.LocalAddr().(*net.UDPAddr)
	localAddr := local.LocalAddr().(*net.UDPAddr)

	go func() {
		buf := make([]byte, 64)
		for i := 0; i < 5; i++ {
			peer.SetReadDeadline(time.Now().Add(time.Second))
			n, addr, err := peer.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if n > 0 {
				peer.WriteToUDP([]byte("ack"), addr)
				return
			}
		}
	}()

	err := HolePunch(context.Background(), local, peerAddr, time.Second)
	require.NoError(t, err)
	_ = localAddr
}

func TestHolePunchTimesOutWithoutReply(t *testing.T) {
	local := listenUDP(t)
	deadEnd := &net.UDPAddr{IP: net.ParseIP("127.0.0.1"), Port: listenUDP(t).LocalAddr().(*net.UDPAddr).Port}

	err := HolePunch(context.Background(), local, deadEnd, 50*time.Millisecond)
	require.ErrorIs(t, err, ErrPunchTimeout)
}

func TestHolePunchHonorsContextCancellation(t *testing.T) {
	local := listenUDP(t)
	peer := listenUDP(t)
	peerAddr := peer.LocalAddr().(*net.UDPAddr)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- HolePunch(ctx, local, peerAddr, 5*time.Second) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrPunchTimeout)
	case <-time.After(time.Second):
		t.Fatal("HolePunch did not return after context cancellation")
	}
}
