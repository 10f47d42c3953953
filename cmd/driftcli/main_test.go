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

package main

import (
	"bufio"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/integrator"
)

// stubNode serves one IPCRequest per accepted connection, returning resp.
func stubNode(t *testing.T, handler func(integrator.IPCRequest) integrator.IPCResponse) string {
	t.Helper()
	sockPath := filepath.Join(t.TempDir(), "driftd.ipc")
	ln, err := net.Listen("unix", sockPath)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				scanner := bufio.NewScanner(conn)
				if !scanner.Scan() {
					return
				}
				var req integrator.IPCRequest
				if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
					return
				}
				json.NewEncoder(conn).Encode(handler(req))
			}()
		}
	}()
	return sockPath
}

func TestPrintStatusReachesNode(t *testing.T) {
	sock := stubNode(t, func(req integrator.IPCRequest) integrator.IPCResponse {
		require.Equal(t, "status", req.Method)
		return integrator.IPCResponse{Result: integrator.StatusInfo{Height: 7, PeerCount: 2}}
	})
	require.NoError(t, printStatus(sock))
}

func TestPrintBalanceSendsAddress(t *testing.T) {
	sock := stubNode(t, func(req integrator.IPCRequest) integrator.IPCResponse {
		require.Equal(t, "balance", req.Method)
		var params map[string]string
		require.NoError(t, json.Unmarshal(req.Params, &params))
		require.Equal(t, "0x2a", params["address"])
		return integrator.IPCResponse{Result: map[string]interface{}{"Address": "0x2a", "Balance": 100}}
	})
	require.NoError(t, printBalance(sock, "0x2a"))
}

func TestPrintValidatorsColorizesState(t *testing.T) {
	sock := stubNode(t, func(req integrator.IPCRequest) integrator.IPCResponse {
		require.Equal(t, "validators", req.Method)
		return integrator.IPCResponse{Result: []map[string]interface{}{
			{"Address": "0x1", "Moniker": "alice", "State": "jailed"},
		}}
	})
	require.NoError(t, printValidators(sock))
}

func TestCallSurfacesNodeError(t *testing.T) {
	sock := stubNode(t, func(req integrator.IPCRequest) integrator.IPCResponse {
		return integrator.IPCResponse{Error: "boom"}
	})
	require.Error(t, printStatus(sock))
}

func TestDialPathUnreachableSocket(t *testing.T) {
	_, err := dialPath(filepath.Join(t.TempDir(), "nothing.ipc"))
	require.Error(t, err)
}
