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

// Package store is the BlockchainStore: an append-only,
// crash-recoverable ledger with O(1) height lookup and periodic
// checkpoints.
package store

import "github.com/driftchain/driftd/types"

// initialReward is R0, expressed in driftoshi.
const initialReward = 21 * types.OneDrift

// RewardAt computes reward(h) = R0 / 2^floor(h/halvingInterval), saturating
// to zero once the exponent would shift the reward out entirely.
func RewardAt(height, halvingInterval uint64) types.Amount {
	if halvingInterval == 0 {
		halvingInterval = 1
	}
	halvings := height / halvingInterval
	if halvings >= 64 {
		return 0
	}
	return types.Amount(uint64(initialReward) >> halvings)
}
