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

// Package p2p is the Transport & PeerManager substrate: JSON-framed
// sessions over WebSocket, with handshake, ping/pong, discovery and
// reputation-weighted peer eviction. Sessions are not authenticated: the
// handshake carries unsigned identity, version and height fields.
package p2p

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType enumerates every wire message kind.
type MessageType string

const (
	MsgHandshake         MessageType = "HANDSHAKE"
	MsgPing              MessageType = "PING"
	MsgPong              MessageType = "PONG"
	MsgGetPeers          MessageType = "GET_PEERS"
	MsgPeers             MessageType = "PEERS"
	MsgGetBlocks         MessageType = "GET_BLOCKS"
	MsgBlocks            MessageType = "BLOCKS"
	MsgNewBlock          MessageType = "NEW_BLOCK"
	MsgGetTransactions   MessageType = "GET_TRANSACTIONS"
	MsgTransactions      MessageType = "TRANSACTIONS"
	MsgNewTransaction    MessageType = "NEW_TRANSACTION"
	MsgValidatorUpdate   MessageType = "VALIDATOR_UPDATE"
	MsgVersion           MessageType = "VERSION"
	MsgVerack            MessageType = "VERACK"
	MsgAddr              MessageType = "ADDR"
	MsgGetAddr           MessageType = "GETADDR"
)

// Frame is the on-wire envelope: {type, data, timestamp}.
type Frame struct {
	Type MessageType `json:"type"`
	Data []byte      `json:"data"`
	TS   uint64      `json:"timestamp"`
}

func newFrame(t MessageType, payload interface{}) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, fmt.Errorf("p2p: encode %s payload: %w", t, err)
	}
	return Frame{Type: t, Data: raw, TS: uint64(time.Now().Unix())}, nil
}

// HandshakePayload is exchanged on session open (spec external interface).
type HandshakePayload struct {
	ID               string `json:"id"`
	Version          uint32 `json:"version"`
	Height           uint64 `json:"height"`
	IsValidator      bool   `json:"isValidator"`
	ValidatorAddress string `json:"validatorAddress,omitempty"`
}

// PeersPayload lists reachable addresses, "ip:port" formatted.
type PeersPayload struct {
	Addrs []string `json:"addrs"`
}

var (
	ErrMalformedFrame  = errors.New("p2p: malformed frame")
	ErrUnknownType     = errors.New("p2p: unknown message type")
	ErrVersionMismatch = errors.New("p2p: version mismatch")
)

func validType(t MessageType) bool {
	switch t {
	case MsgHandshake, MsgPing, MsgPong, MsgGetPeers, MsgPeers, MsgGetBlocks, MsgBlocks,
		MsgNewBlock, MsgGetTransactions, MsgTransactions, MsgNewTransaction, MsgValidatorUpdate,
		MsgVersion, MsgVerack, MsgAddr, MsgGetAddr:
		return true
	default:
		return false
	}
}
