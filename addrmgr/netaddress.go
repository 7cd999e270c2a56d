// Copyright (c) 2021-2025 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"fmt"
	"net"
	"net/netip"
	"strconv"
)

// NetAddress identifies a peer on the network by its IP address and port.  It
// is comparable and therefore suitable for use as a map key.
type NetAddress struct {
	// Host is the IP address of the peer.  IPv4-mapped IPv6 addresses are
	// always stored in their IPv4 form so that both spellings of the same
	// address map to a single key.
	Host netip.Addr

	// Port is the port of the remote peer.
	Port uint16
}

// NewNetAddress returns a network address for the provided IP literal and
// port.  An error of kind ErrMalformedAddress is returned when the host is not
// a valid IP address, is unspecified, or the port is outside of the valid
// range.
func NewNetAddress(host string, port int) (NetAddress, error) {
	if port <= 0 || port > 65535 {
		str := fmt.Sprintf("port %d for host %q is out of range", port, host)
		return NetAddress{}, makeError(ErrMalformedAddress, str)
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		str := fmt.Sprintf("host %q is not an IP address", host)
		return NetAddress{}, makeError(ErrMalformedAddress, str)
	}
	if ip.Zone() != "" {
		str := fmt.Sprintf("host %q must not carry a zone", host)
		return NetAddress{}, makeError(ErrMalformedAddress, str)
	}
	ip = ip.Unmap()
	if ip.IsUnspecified() {
		str := fmt.Sprintf("host %q is unspecified", host)
		return NetAddress{}, makeError(ErrMalformedAddress, str)
	}
	return NetAddress{Host: ip, Port: uint16(port)}, nil
}

// ParseNetAddress parses a host:port string into a network address.
func ParseNetAddress(addr string) (NetAddress, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		str := fmt.Sprintf("address %q: %v", addr, err)
		return NetAddress{}, makeError(ErrMalformedAddress, str)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		str := fmt.Sprintf("address %q has invalid port %q", addr, portStr)
		return NetAddress{}, makeError(ErrMalformedAddress, str)
	}
	return NewNetAddress(host, int(port))
}

// IsValid returns whether or not the network address was created from a
// usable host and port.
func (na NetAddress) IsValid() bool {
	return na.Host.IsValid() && !na.Host.IsUnspecified() && na.Port != 0
}

// Key returns a string that can be used to uniquely represent the network
// address and includes the port.
func (na NetAddress) Key() string {
	portString := strconv.FormatUint(uint64(na.Port), 10)
	return net.JoinHostPort(na.Host.String(), portString)
}

// String returns a human-readable string for the network address.  This is
// equivalent to calling Key, but is provided so the type can be used as a
// fmt.Stringer.
func (na NetAddress) String() string {
	return na.Key()
}

// Network returns the name of the network the address belongs to which, along
// with String, allows the type to satisfy the net.Addr interface.
func (na NetAddress) Network() string {
	return "tcp"
}

// AddrPort returns the address as a netip.AddrPort.
func (na NetAddress) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(na.Host, na.Port)
}
