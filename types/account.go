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

// Package types holds the wire and ledger data model shared by every
// subsystem: accounts, transactions, blocks, peers, validators and
// checkpoints.
package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// Address is a 20-byte account or validator identifier, the low 20 bytes of
// Keccak256(pubkey) (see crypto.PublicKey.Address).
type Address [20]byte

func (a Address) String() string { return fmt.Sprintf("0x%x", a[:]) }

// MarshalJSON renders the address as a hex string.
func (a Address) MarshalJSON() ([]byte, error) { return json.Marshal(a.String()) }

// UnmarshalJSON parses the hex string produced by MarshalJSON.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("types: decode address: %w", err)
	}
	if len(b) > len(a) {
		return fmt.Errorf("types: address too long: %d bytes", len(b))
	}
	copy(a[len(a)-len(b):], b)
	return nil
}

// ParseAddress decodes a hex address string, with or without a 0x prefix,
// left-padding short inputs the same way UnmarshalJSON does.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return a, fmt.Errorf("types: decode address: %w", err)
	}
	if len(b) > len(a) {
		return a, fmt.Errorf("types: address too long: %d bytes", len(b))
	}
	copy(a[len(a)-len(b):], b)
	return a, nil
}

// Less provides the lexicographic address ordering used to break
// proposer-selection ties.
func (a Address) Less(b Address) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// Amount is a balance/fee/stake quantity in driftoshi (1 drift = 1e8
// driftoshi), fixed-point to keep reward-halving arithmetic exact.
type Amount uint64

const OneDrift Amount = 100_000_000

// Account is the ledger-owned per-address balance/stake/nonce record.
type Account struct {
	Address     Address
	Balance     Amount
	Nonce       uint64
	Stake       Amount
	CreatedAt   int64
	LastUpdated int64
}

var (
	// ErrInsufficientBalance is returned by Debit when balance < amount.
	ErrInsufficientBalance = errors.New("types: insufficient balance")
	// ErrInsufficientStake is returned by RemoveStake when stake < amount.
	ErrInsufficientStake = errors.New("types: insufficient stake")
)

// Credit increases the account balance by amount and bumps LastUpdated.
func (a *Account) Credit(amount Amount, now int64) {
	a.Balance += amount
	a.LastUpdated = now
}

// Debit decreases the account balance by amount, enforcing
// balance >= amount.
func (a *Account) Debit(amount Amount, now int64) error {
	if a.Balance < amount {
		return ErrInsufficientBalance
	}
	a.Balance -= amount
	a.LastUpdated = now
	return nil
}

// AddStake moves amount from balance into stake; it is balance-conserving,
// moving stake only through AddStake/RemoveStake.
func (a *Account) AddStake(amount Amount, now int64) error {
	if err := a.Debit(amount, now); err != nil {
		return err
	}
	a.Stake += amount
	return nil
}

// RemoveStake moves amount from stake back into balance.
func (a *Account) RemoveStake(amount Amount, now int64) error {
	if a.Stake < amount {
		return ErrInsufficientStake
	}
	a.Stake -= amount
	a.Credit(amount, now)
	return nil
}
