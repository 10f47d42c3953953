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

import "github.com/driftchain/driftd/crypto"

// Checkpoint is an atomic snapshot of the BlockchainStore's index and last
// committed block hash.
type Checkpoint struct {
	Height      uint64
	Hash        crypto.Hash
	CreatedAt   int64
	IndexDigest crypto.Hash // digest of the index prefix up to Height, for recovery matching
}
