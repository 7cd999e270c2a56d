// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/netip"
)

const (
	torGeneralError      = 0x01
	torNotAllowed        = 0x02
	torNetUnreachable    = 0x03
	torHostUnreachable   = 0x04
	torConnectionRefused = 0x05
	torTTLExpired        = 0x06
	torCmdNotSupported   = 0x07
	torAddrNotSupported  = 0x08

	torATypeIPv4       = 1
	torATypeDomainName = 3
	torATypeIPv6       = 4

	torCmdResolve = 240
)

var torStatusErrors = map[byte]Error{
	torGeneralError:      MakeError(ErrTorGeneralError, "tor general error"),
	torNotAllowed:        MakeError(ErrTorNotAllowed, "tor not allowed"),
	torNetUnreachable:    MakeError(ErrTorNetUnreachable, "tor network is unreachable"),
	torHostUnreachable:   MakeError(ErrTorHostUnreachable, "tor host is unreachable"),
	torConnectionRefused: MakeError(ErrTorConnectionRefused, "tor connection refused"),
	torTTLExpired:        MakeError(ErrTorTTLExpired, "tor TTL expired"),
	torCmdNotSupported:   MakeError(ErrTorCmdNotSupported, "tor command not supported"),
	torAddrNotSupported:  MakeError(ErrTorAddrNotSupported, "tor address type not supported"),
}

// TorLookupIP uses Tor to resolve DNS via the passed SOCKS proxy.  It is used
// to query the DNS seeds without leaking the lookups when a proxy is
// configured.
func TorLookupIP(ctx context.Context, host, proxy string) ([]netip.Addr, error) {
	if len(host) > 255 {
		str := fmt.Sprintf("host %q is too long to resolve", host)
		return nil, MakeError(ErrTorInvalidAddressResponse, str)
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", proxy)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	// Negotiate the SOCKS5 protocol without authentication.
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return nil, err
	}
	var hello [2]byte
	if _, err := io.ReadFull(conn, hello[:]); err != nil {
		return nil, err
	}
	if hello[0] != 0x05 {
		return nil, MakeError(ErrTorInvalidProxyResponse,
			"invalid SOCKS proxy version")
	}
	if hello[1] != 0x00 {
		return nil, MakeError(ErrTorUnrecognizedAuthMethod,
			"invalid proxy authentication method")
	}

	buf := make([]byte, 7+len(host))
	buf[0] = 5 // socks protocol version
	buf[1] = torCmdResolve
	buf[2] = 0 // reserved
	buf[3] = torATypeDomainName
	buf[4] = byte(len(host))
	copy(buf[5:], host)
	// The final two bytes are port 0.

	if _, err := conn.Write(buf); err != nil {
		return nil, err
	}

	var header [4]byte
	if _, err := io.ReadFull(conn, header[:]); err != nil {
		return nil, err
	}
	if header[0] != 5 {
		return nil, MakeError(ErrTorInvalidProxyResponse,
			"invalid SOCKS proxy version")
	}
	if header[1] != 0 {
		if err, ok := torStatusErrors[header[1]]; ok {
			return nil, err
		}
		return nil, MakeError(ErrTorInvalidProxyResponse,
			fmt.Sprintf("unknown SOCKS status %d", header[1]))
	}

	var addrLen int
	switch header[3] {
	case torATypeIPv4:
		addrLen = 4
	case torATypeIPv6:
		addrLen = 16
	default:
		return nil, MakeError(ErrTorInvalidAddressResponse,
			"unknown address type")
	}

	// The reply is the address followed by a two byte port.
	reply := make([]byte, addrLen+2)
	if _, err := io.ReadFull(conn, reply); err != nil {
		return nil, err
	}
	addr, ok := netip.AddrFromSlice(reply[:addrLen])
	if !ok {
		return nil, MakeError(ErrTorInvalidAddressResponse,
			"invalid IP address")
	}
	return []netip.Addr{addr.Unmap()}, nil
}
