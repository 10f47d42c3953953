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

package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

// ErrInvalidSignature is returned by Verify when the signature does not
// match the given hash and public key.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// PrivateKey is a secp256k1 signing key (the SIG role).
type PrivateKey struct{ key *btcec.PrivateKey }

// PublicKey is the counterpart used to verify signatures and to derive an
// address.
type PublicKey struct{ key *btcec.PublicKey }

// GenerateKey creates a new random signing key.
func GenerateKey() (*PrivateKey, error) {
	k, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("crypto: generate key: %w", err)
	}
	return &PrivateKey{key: k}, nil
}

// Public returns the public half of k.
func (k *PrivateKey) Public() *PublicKey { return &PublicKey{key: k.key.PubKey()} }

// Sign produces a deterministic (RFC6979) ECDSA signature over digest.
// digest must already be the output of Keccak256 (or equivalent) — Sign
// never hashes its input; callers sign the canonical encoding of the
// transaction or block header.
func (k *PrivateKey) Sign(digest Hash) []byte {
	sig := ecdsa.Sign(k.key, digest[:])
	return sig.Serialize()
}

// Bytes returns the raw 33-byte compressed public key.
func (p *PublicKey) Bytes() []byte { return p.key.SerializeCompressed() }

// Address derives the 20-byte account/validator address from the public
// key, taking the low 20 bytes of Keccak256(pubkey) as go-ethereum style
// addresses do.
func (p *PublicKey) Address() [20]byte {
	h := Keccak256(p.key.SerializeUncompressed()[1:])
	var addr [20]byte
	copy(addr[:], h[12:])
	return addr
}

// ParsePublicKey decodes a compressed or uncompressed secp256k1 public key.
func ParsePublicKey(b []byte) (*PublicKey, error) {
	k, err := btcec.ParsePubKey(b)
	if err != nil {
		return nil, fmt.Errorf("crypto: parse public key: %w", err)
	}
	return &PublicKey{key: k}, nil
}

// Verify checks that sig is a valid DER-encoded signature over digest by
// the holder of pub.
func Verify(pub *PublicKey, digest Hash, sig []byte) error {
	parsed, err := ecdsa.ParseDERSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !parsed.Verify(digest[:], pub.key) {
		return ErrInvalidSignature
	}
	return nil
}

// PeerID is a 128-bit random identifier for a p2p peer.
type PeerID [16]byte

// NewPeerID generates a fresh random PeerID.
func NewPeerID() (PeerID, error) {
	var id PeerID
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("crypto: new peer id: %w", err)
	}
	return id, nil
}

func (id PeerID) String() string { return fmt.Sprintf("%x", id[:]) }

// MarshalJSON renders the peer id as a hex string.
func (id PeerID) MarshalJSON() ([]byte, error) { return []byte(`"` + id.String() + `"`), nil }

// UnmarshalJSON parses the hex string produced by MarshalJSON.
func (id *PeerID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	b, err := hexDecode(s)
	if err != nil {
		return err
	}
	if len(b) != len(id) {
		return fmt.Errorf("crypto: peer id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return nil
}

func hexDecode(s string) ([]byte, error) { return hex.DecodeString(s) }
