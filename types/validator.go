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

package types

// ValidatorState is the lifecycle state of a Validator.
type ValidatorState int

const (
	ValidatorInactive ValidatorState = iota
	ValidatorActive
	ValidatorJailed
	ValidatorTombstoned
)

func (s ValidatorState) String() string {
	switch s {
	case ValidatorActive:
		return "active"
	case ValidatorJailed:
		return "jailed"
	case ValidatorTombstoned:
		return "tombstoned"
	default:
		return "inactive"
	}
}

// Validator is the ValidatorManager-owned record backing rPoS proposer
// selection.
type Validator struct {
	Address         Address
	PublicKey       []byte
	Moniker         string
	Stake           Amount
	Reputation      float64 // arbitrary-unit score feeding the voting-power bonus
	State           ValidatorState
	ProducedBlocks  uint64
	MissedBlocks    uint64 // consecutive misses; reset to 0 on a committed proposal
	JailedUntil     int64
	IsDeveloperNode bool
	EarnedBonus     bool // whether the one-time distribution-period bonus has been paid
}

// Eligible reports whether v may be selected as proposer: Active, not
// jailed, not tombstoned.
func (v *Validator) Eligible() bool {
	return v.State == ValidatorActive
}
