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
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Bytes returns the raw 32-byte scalar backing k.
func (k *PrivateKey) Bytes() []byte {
	b := k.key.Serialize()
	return b
}

// PrivateKeyFromBytes parses a raw 32-byte scalar into a PrivateKey.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("crypto: private key must be 32 bytes, got %d", len(b))
	}
	priv := btcec.PrivKeyFromBytes(b)
	return &PrivateKey{key: priv}, nil
}

// LoadKeyFile reads a hex-encoded private key from file.
func LoadKeyFile(file string) (*PrivateKey, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	b, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("crypto: decode key file: %w", err)
	}
	return PrivateKeyFromBytes(b)
}

// SaveKeyFile writes k hex-encoded to file, readable only by its owner.
func SaveKeyFile(file string, k *PrivateKey) error {
	return os.WriteFile(file, []byte(hex.EncodeToString(k.Bytes())), 0o600)
}

// LoadOrGenerateKeyFile loads the key at file, generating and persisting a
// fresh one if it does not yet exist.
func LoadOrGenerateKeyFile(file string) (*PrivateKey, error) {
	if _, err := os.Stat(file); err == nil {
		return LoadKeyFile(file)
	}
	k, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := SaveKeyFile(file, k); err != nil {
		return nil, err
	}
	return k, nil
}
