// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
p2poold is the peer discovery and connection management daemon of a Dash p2pool
node.  It keeps a scored database of Dash network peers, keeps the local dashd
node connected at all times, and maintains a bounded set of connections to the
best scoring peers for broadcasting shares and blocks.

The default options are sane for most users.  This means p2poold will work 'out
of the box' for most users.  However, there are also a wide variety of flags
that can be used to control it.

The following section provides a usage overview which enumerates the flags.  An
interesting point to note is that the long form of all of these options
(except -C) can be specified in a configuration file that is automatically
parsed when p2poold starts up.  By default, the configuration file is located
at ~/.p2poold/p2poold.conf on POSIX-style operating systems and
%LOCALAPPDATA%\P2poold\p2poold.conf on Windows.  The -C (--configfile) flag, as
shown below, can be used to override this location.

Usage:

	p2poold [OPTIONS]

Application Options:

	-V, --version                Display version information and exit
	-A, --appdata=               Path to application home directory
	-C, --configfile=            Path to configuration file
	-b, --datadir=               Directory to store the peer database
	    --logdir=                Directory to log output
	    --nofilelogging          Disable file logging
	    --maxlogrolls=           Number of rolled log files to keep (default: 8)
	-d, --debuglevel=            Logging level for all subsystems {trace, debug,
	                             info, warn, error, critical} -- You may also
	                             specify
	                             <subsystem>=<level>,<subsystem2>=<level>,... to
	                             set the log level for individual subsystems --
	                             Use show to list available subsystems (info)
	    --profile=               Enable HTTP profiling and metrics on given
	                             [addr:]port -- NOTE port must be between 1024
	                             and 65535
	    --testnet                Use the test network
	    --regtest                Use the regression test network
	    --trustednode=           Address of the local dashd node that is always
	                             kept connected -- Set to an empty value to
	                             disable (default: 127.0.0.1)
	-a, --addpeer=               Add a peer to connect with at startup
	    --externalip=            Add an ip to the list of local addresses this
	                             node is reachable at
	    --minpeers=              Number of outbound connections to maintain
	                             (default: 4)
	    --maxpeers=              Max number of outbound connections (default: 8)
	    --maxknownpeers=         Max number of peers remembered in the peer
	                             database (default: 2000)
	    --maintenanceinterval=   Time between connection maintenance cycles
	                             (default: 30s)
	    --dialtimeout=           How long to wait for TCP connection completion
	                             (default: 30s)
	    --noseeders              Disable seeding for peer discovery
	    --resetcorruptpeers      Move an unreadable peer database aside and
	                             start with an empty one instead of failing
	    --proxy=                 Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)
	    --proxyuser=             Username for proxy server
	    --proxypass=             Password for proxy server
	    --torisolation           Enable Tor stream isolation by randomizing user
	                             credentials for each connection

Help Options:

	-h, --help           Show this help message
*/
package main
