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

package consensus

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftchain/driftd/crypto"
	"github.com/driftchain/driftd/types"
)

func TestVoteSetWeightForSumsMatchingVotes(t *testing.T) {
	vs := newVoteSet()
	a, b, c := types.Address{1}, types.Address{2}, types.Address{3}
	h := crypto.Keccak256([]byte("block"))

	vs.add(Vote{Validator: a, Hash: h})
	vs.add(Vote{Validator: b, Hash: h})
	vs.add(Vote{Validator: c, IsNil: true})

	powers := map[types.Address]float64{a: 10, b: 20, c: 5}
	require.Equal(t, 30.0, vs.weightFor(h, powers))
	require.Equal(t, 35.0, vs.totalWeight(powers))
}

func TestVoteSetAddDetectsEquivocation(t *testing.T) {
	vs := newVoteSet()
	a := types.Address{1}
	h1 := crypto.Keccak256([]byte("one"))
	h2 := crypto.Keccak256([]byte("two"))

	_, eq := vs.add(Vote{Validator: a, Hash: h1})
	require.False(t, eq)

	prior, eq := vs.add(Vote{Validator: a, Hash: h2})
	require.True(t, eq)
	require.Equal(t, h1, prior.Hash)
}

func TestVoteSetLeadingHashPicksHighestWeight(t *testing.T) {
	vs := newVoteSet()
	a, b := types.Address{1}, types.Address{2}
	h1 := crypto.Keccak256([]byte("one"))
	h2 := crypto.Keccak256([]byte("two"))

	vs.add(Vote{Validator: a, Hash: h1})
	vs.add(Vote{Validator: b, Hash: h2})

	powers := map[types.Address]float64{a: 5, b: 50}
	leading, weight := vs.leadingHash(powers)
	require.Equal(t, h2, leading)
	require.Equal(t, 50.0, weight)
}

func TestPurgeRemovesVote(t *testing.T) {
	vs := newVoteSet()
	a := types.Address{1}
	h := crypto.Keccak256([]byte("x"))
	vs.add(Vote{Validator: a, Hash: h})
	vs.purge(a)
	require.Equal(t, 0.0, vs.weightFor(h, map[types.Address]float64{a: 10}))
}
