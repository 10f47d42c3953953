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

package peerstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInsertEvictsLowestRankOverCapacity(t *testing.T) {
	s, err := Open(Config{MaxPeers: 2})
	require.NoError(t, err)

	now := time.Now()
	s.Insert("a:1", 0.9, 0, now)
	s.Insert("b:1", 0.1, 0, now)
	require.Equal(t, 2, s.Len())

	s.Insert("c:1", 0.95, 0, now)
	require.Equal(t, 2, s.Len())
	good := s.Good(now)
	require.Contains(t, good, "a:1")
	require.Contains(t, good, "c:1")
	require.NotContains(t, good, "b:1")
}

func TestGoodExcludesStaleEntries(t *testing.T) {
	s, err := Open(Config{MaxPeers: 10, ExpiryDays: 1})
	require.NoError(t, err)

	now := time.Now()
	s.Insert("fresh:1", 0.5, 0, now)
	s.Insert("stale:1", 0.5, 0, now.Add(-48*time.Hour))

	good := s.Good(now)
	require.Contains(t, good, "fresh:1")
	require.NotContains(t, good, "stale:1")
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "peers.dat")

	s, err := Open(Config{MaxPeers: 10, Path: path})
	require.NoError(t, err)
	s.Insert("a:1", 0.5, 0, time.Now())
	require.NoError(t, s.Save())
	require.NoError(t, s.Close())

	reloaded, err := Open(Config{MaxPeers: 10, Path: path})
	require.NoError(t, err)
	defer reloaded.Close()
	require.Equal(t, 1, reloaded.Len())
}
