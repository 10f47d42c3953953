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
	"context"
	"errors"
	"net"
	"time"

	"github.com/driftchain/driftd/internal/nodelog"
)

var ErrPunchTimeout = errors.New("nat: hole punch timed out")

const holePunchMessage = "HOLE_PUNCH"

// HolePunch sends a short datagram to remote every 500ms until a reply
// arrives or punchTimeout elapses.
func HolePunch(ctx context.Context, local *net.UDPConn, remote *net.UDPAddr, punchTimeout time.Duration) error {
	log := nodelog.New("nat.holepunch")
	ctx, cancel := context.WithTimeout(ctx, punchTimeout)
	defer cancel()

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	replies := make(chan struct{}, 1)
	go func() {
		buf := make([]byte, 64)
		for {
			_ = local.SetReadDeadline(time.Now().Add(punchTimeout))
			n, addr, err := local.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if addr.String() == remote.String() && n > 0 {
				select {
				case replies <- struct{}{}:
				default:
				}
				return
			}
		}
	}()

	if _, err := local.WriteToUDP([]byte(holePunchMessage), remote); err != nil {
		log.Debug("initial punch send failed", "err", err)
	}

	for {
		select {
		case <-replies:
			log.Debug("hole punch succeeded", "remote", remote)
			return nil
		case <-ctx.Done():
			return ErrPunchTimeout
		case <-ticker.C:
			_, _ = local.WriteToUDP([]byte(holePunchMessage), remote)
		}
	}
}
