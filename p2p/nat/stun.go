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

// Package nat discovers the node's externally reachable address and
// provides UDP hole-punching with a port-mapping fallback.
package nat

import (
	"fmt"
	"net"
	"time"

	"github.com/jackpal/go-nat-pmp"
	"github.com/huin/goupnp/dcps/internetgateway2"
	"github.com/pion/stun"

	"github.com/driftchain/driftd/internal/nodelog"
)

// ExternalAddr is the result of a STUN binding request.
type ExternalAddr struct {
	IP   net.IP
	Port int
}

// DiscoverExternal performs a single STUN XOR-MAPPED-ADDRESS lookup against
// stunServer.
func DiscoverExternal(stunServer string, timeout time.Duration) (ExternalAddr, error) {
	log := nodelog.New("nat.stun")

	conn, err := net.DialTimeout("udp4", stunServer, timeout)
	if err != nil {
		return ExternalAddr{}, fmt.Errorf("nat: dial stun server: %w", err)
	}
	defer conn.Close()

	client, err := stun.NewClient(conn)
	if err != nil {
		return ExternalAddr{}, fmt.Errorf("nat: stun client: %w", err)
	}
	defer client.Close()

	message := stun.MustBuild(stun.TransactionID, stun.BindingRequest)

	var result ExternalAddr
	var doErr error
	done := make(chan struct{})
	err = client.Start(message, func(res stun.Event) {
		defer close(done)
		if res.Error != nil {
			doErr = res.Error
			return
		}
		var xorAddr stun.XORMappedAddress
		if err := xorAddr.GetFrom(res.Message); err != nil {
			doErr = err
			return
		}
		result = ExternalAddr{IP: xorAddr.IP, Port: xorAddr.Port}
	})
	if err != nil {
		return ExternalAddr{}, err
	}
	select {
	case <-done:
	case <-time.After(timeout):
		return ExternalAddr{}, fmt.Errorf("nat: stun request timed out")
	}
	if doErr != nil {
		return ExternalAddr{}, doErr
	}
	log.Debug("stun binding discovered", "ip", result.IP, "port", result.Port)
	return result, nil
}

// MapPort attempts NAT-PMP first, then UPnP IGDv2, returning the external
// port actually mapped.
func MapPort(internalPort int, lifetime time.Duration) (externalPort int, err error) {
	log := nodelog.New("nat.map")

	if gw, gerr := discoverGatewayIP(); gerr == nil {
		client := natpmp.NewClient(gw)
		res, perr := client.AddPortMapping("tcp", internalPort, internalPort, int(lifetime.Seconds()))
		if perr == nil {
			log.Debug("nat-pmp mapping established", "external_port", res.MappedExternalPort)
			return int(res.MappedExternalPort), nil
		}
		log.Debug("nat-pmp mapping failed, trying upnp", "err", perr)
	}

	clients, _, uerr := internetgateway2.NewWANIPConnection1Clients()
	if uerr != nil || len(clients) == 0 {
		return 0, fmt.Errorf("nat: no upnp gateway found: %w", uerr)
	}
	client := clients[0]
	if err := client.AddPortMapping("", uint16(internalPort), "TCP", uint16(internalPort), "", true, "driftd", uint32(lifetime.Seconds())); err != nil {
		return 0, fmt.Errorf("nat: upnp port mapping failed: %w", err)
	}
	return internalPort, nil
}

func discoverGatewayIP() (net.IP, error) {
	conn, err := net.Dial("udp4", "8.8.8.8:80")
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	localAddr := conn.LocalAddr().(*net.UDPAddr)
	gw := localAddr.IP.Mask(localAddr.IP.DefaultMask())
	gw[len(gw)-1] = 1
	return gw, nil
}
