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

package integrator

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/p2p/peerstore"
	"github.com/driftchain/driftd/store"
	"github.com/driftchain/driftd/types"
	"github.com/driftchain/driftd/validator"
)

func newIPCTestNode(t *testing.T) *Node {
	t.Helper()
	st, err := store.Open(store.Config{DataDir: t.TempDir(), HalvingInterval: 1000}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	ps, err := peerstore.Open(peerstore.Config{MaxPeers: 10})
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })

	vm := validator.New(validator.Config{MinStake: 1, BlockTime: time.Second})
	_, err = vm.Register(types.Address{1}, []byte{1, 2, 3}, 100, "alice")
	require.NoError(t, err)

	return New(nil, st, nil, nil, ps, nil, vm)
}

func TestHandleIPCStatus(t *testing.T) {
	n := newIPCTestNode(t)
	resp := n.handleIPC(IPCRequest{Method: "status"})
	require.Empty(t, resp.Error)
	status, ok := resp.Result.(StatusInfo)
	require.True(t, ok)
	require.Equal(t, uint64(0), status.Height)
	require.False(t, status.Proposing)
}

func TestHandleIPCValidators(t *testing.T) {
	n := newIPCTestNode(t)
	resp := n.handleIPC(IPCRequest{Method: "validators"})
	require.Empty(t, resp.Error)
	validators, ok := resp.Result.([]types.Validator)
	require.True(t, ok)
	require.Len(t, validators, 1)
	require.Equal(t, "alice", validators[0].Moniker)
}

func TestHandleIPCBalanceUnknownAddress(t *testing.T) {
	n := newIPCTestNode(t)
	params, err := json.Marshal(map[string]string{"address": "0x0000000000000000000000000000000000002a"})
	require.NoError(t, err)
	resp := n.handleIPC(IPCRequest{Method: "balance", Params: params})
	require.Empty(t, resp.Error)
	account, ok := resp.Result.(types.Account)
	require.True(t, ok)
	require.Equal(t, types.Amount(0), account.Balance)
}

func TestHandleIPCUnknownMethod(t *testing.T) {
	n := newIPCTestNode(t)
	resp := n.handleIPC(IPCRequest{Method: "bogus"})
	require.NotEmpty(t, resp.Error)
}

func TestServeIPCRoundTrip(t *testing.T) {
	n := newIPCTestNode(t)
	sockPath := filepath.Join(t.TempDir(), "driftd.ipc")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.ServeIPC(ctx, sockPath) }()
	require.Eventually(t, func() bool {
		_, err := net.Dial("unix", sockPath)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	conn, err := net.Dial("unix", sockPath)
	require.NoError(t, err)
	defer conn.Close()

	req := IPCRequest{Method: "status"}
	b, err := json.Marshal(req)
	require.NoError(t, err)
	_, err = conn.Write(append(b, '\n'))
	require.NoError(t, err)

	scanner := bufio.NewScanner(conn)
	require.True(t, scanner.Scan())
	var resp IPCResponse
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &resp))
	require.Empty(t, resp.Error)

	cancel()
	require.NoError(t, <-done)
}
