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
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/driftchain/driftd/types"
)

// IPCRequest is a single newline-delimited request read from the node's
// local control socket. It intentionally mirrors neither JSON-RPC 2.0 nor
// any HTTP API framing: cmd/driftcli is the only intended client.
type IPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// IPCResponse carries either Result or Error, never both.
type IPCResponse struct {
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// StatusInfo summarizes a running node for the operational CLI.
type StatusInfo struct {
	Height      uint64 `json:"height"`
	PeerCount   int    `json:"peer_count"`
	TotalIssued uint64 `json:"total_issued"`
	Proposing   bool   `json:"proposing"`
}

// Status reports the node's current chain height, peer count and total
// issued supply.
func (n *Node) Status() StatusInfo {
	height, _ := n.store.GetHeight()
	info := StatusInfo{Height: height, TotalIssued: uint64(n.store.TotalIssued())}
	if n.transport != nil {
		info.PeerCount = n.transport.Count()
	}
	info.Proposing = n.engine != nil
	return info
}

// Balance returns the ledger account for addr, zero-valued if unknown.
func (n *Node) Balance(addr types.Address) types.Account {
	return n.store.Account(addr)
}

// Validators returns every validator record known to the local registry.
func (n *Node) Validators() []types.Validator {
	if n.validators == nil {
		return nil
	}
	return n.validators.All()
}

type balanceParams struct {
	Address string `json:"address"`
}

func (n *Node) handleIPC(req IPCRequest) IPCResponse {
	switch req.Method {
	case "status":
		return IPCResponse{Result: n.Status()}
	case "balance":
		var p balanceParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			return IPCResponse{Error: fmt.Sprintf("decode params: %v", err)}
		}
		addr, err := types.ParseAddress(p.Address)
		if err != nil {
			return IPCResponse{Error: err.Error()}
		}
		return IPCResponse{Result: n.Balance(addr)}
	case "validators":
		return IPCResponse{Result: n.Validators()}
	default:
		return IPCResponse{Error: fmt.Sprintf("unknown method %q", req.Method)}
	}
}

// ServeIPC listens on a unix domain socket at path, serving one
// newline-delimited JSON request per connection. It is the sole transport
// cmd/driftcli uses to inspect a running node; there is no HTTP or
// JSON-RPC surface.
func (n *Node) ServeIPC(ctx context.Context, path string) error {
	os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("integrator: listen ipc: %w", err)
	}
	defer ln.Close()
	defer os.Remove(path)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return fmt.Errorf("integrator: accept ipc: %w", err)
		}
		go n.serveIPCConn(conn)
	}
}

func (n *Node) serveIPCConn(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}
	var req IPCRequest
	resp := IPCResponse{}
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		resp.Error = fmt.Sprintf("decode request: %v", err)
	} else {
		resp = n.handleIPC(req)
	}
	enc := json.NewEncoder(conn)
	if err := enc.Encode(resp); err != nil {
		n.log.Debug("ipc response encode failed", "err", err)
	}
}
