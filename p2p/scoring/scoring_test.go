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

package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBanThresholdOnRepeatedSpam(t *testing.T) {
	s := New()
	var last Event
	for i := 0; i < 120; i++ {
		last = s.ApplyBehavior(DeltaSpam)
	}
	require.Equal(t, EventBan, last)
	require.Equal(t, -100.0, s.Total())
}

func TestTrustedThresholdOnGoodBehavior(t *testing.T) {
	s := New()
	s.SetValidator(true)
	s.SetUptime(0.999)
	s.RecordLatency(10 * time.Millisecond)
	s.RecordBlock(true, 50)
	require.Equal(t, EventTrusted, s.ApplyBehavior(700))
	require.Equal(t, 100.0, s.Total())
}

func TestDecayShrinksBehaviorAfterIdlePeriod(t *testing.T) {
	s := New()
	s.ApplyBehavior(DeltaGoodBlock * 10)
	before := s.Total()
	s.Decay(time.Now().Add(2*time.Hour), time.Hour, 0.95)
	after := s.Total()
	require.Less(t, after, before)
}
