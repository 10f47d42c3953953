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

package nat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDiscoverExternalRejectsUnresolvableServer(t *testing.T) {
	_, err := DiscoverExternal("not-a-real-host.invalid:3478", 200*time.Millisecond)
	require.Error(t, err)
}

func TestDiscoverExternalTimesOutAgainstBlackhole(t *testing.T) {
	// 192.0.2.0/24 is reserved for documentation (RFC 5737) and never routed,
	// so a STUN binding request sent there never gets a reply.
	_, err := DiscoverExternal("192.0.2.1:3478", 100*time.Millisecond)
	require.Error(t, err)
}
