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
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/crypto"
)

func mustPeerID() crypto.PeerID {
	id, err := crypto.NewPeerID()
	if err != nil {
		panic(err)
	}
	return id
}

func testConfig() Config {
	return Config{
		MaxPeers:              8,
		MinPeers:              1,
		HandshakeTimeout:      2 * time.Second,
		PingInterval:          time.Minute,
		DiscoveryInterval:     time.Minute,
		BanDuration:           time.Hour,
		MalformedBanThreshold: 3,
		LocalID:               mustPeerID(),
		LocalVersion:          1,
	}
}

func newTestServer(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	m := New(testConfig(), func() uint64 { return 0 })
	srv := httptest.NewServer(http.HandlerFunc(m.ServeHTTP))
	t.Cleanup(srv.Close)
	return m, srv
}

func TestConnectHandshakeEstablishesSession(t *testing.T) {
	server, srv := newTestServer(t)
	client := New(testConfig(), func() uint64 { return 0 })

	addr := strings.TrimPrefix(srv.URL, "http://")
	id, err := client.Connect(addr)
	require.NoError(t, err)
	require.NotEqual(t, crypto.PeerID{}, id)

	require.Eventually(t, func() bool { return server.Count() == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, 1, client.Count())
}

func TestBroadcastWithNoPeersDeliversNothing(t *testing.T) {
	m := New(testConfig(), func() uint64 { return 0 })
	require.Equal(t, 0, m.Broadcast(MsgPing, struct{}{}, crypto.PeerID{}))
}

func TestBanPeerBlocksConnect(t *testing.T) {
	m := New(testConfig(), func() uint64 { return 0 })
	m.BanPeer("127.0.0.1:9999", time.Hour)
	_, err := m.Connect("127.0.0.1:9999")
	require.ErrorIs(t, err, ErrBanned)
}
