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

// Package crypto fills the SIG and H roles named by the design: secp256k1
// signatures and Keccak256 hashing. Neither scheme is novel; this package
// only gives them a stable, narrow surface for the rest of the module.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// HashLength is the size in bytes of an H digest.
const HashLength = 32

// Hash is the H role: a 32-byte Keccak256 digest.
type Hash [HashLength]byte

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte { return h[:] }

// String renders the hash as a 0x-prefixed hex string.
func (h Hash) String() string { return fmt.Sprintf("0x%x", h[:]) }

// IsZero reports whether the hash is the zero value (used as the
// previousHash of the genesis block).
func (h Hash) IsZero() bool { return h == Hash{} }

// MarshalJSON renders the hash as a hex string for wire/checkpoint encoding.
func (h Hash) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.String())
}

// UnmarshalJSON parses the hex string produced by MarshalJSON.
func (h *Hash) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	s = trimHexPrefix(s)
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("crypto: decode hash: %w", err)
	}
	*h = BytesToHash(b)
	return nil
}

func trimHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// BytesToHash truncates/left-zero-pads b into a Hash.
func BytesToHash(b []byte) Hash {
	var h Hash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Keccak256 computes H over the concatenation of data.
func Keccak256(data ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var h Hash
	d.Sum(h[:0])
	return h
}

// RandomBytes returns n cryptographically random bytes, used for PeerID
// generation and message/relay IDs that don't warrant a full uuid.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("crypto: read random bytes: %w", err)
	}
	return b, nil
}
