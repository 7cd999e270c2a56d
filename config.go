// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dashpool/p2poold/addrmgr"
	"github.com/dashpool/p2poold/connmgr"
	"github.com/dashpool/p2poold/internal/version"
	"github.com/dashpool/p2poold/sampleconfig"
	"github.com/decred/go-socks/socks"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename      = "p2poold.conf"
	defaultDataDirname         = "data"
	defaultLogLevel            = "info"
	defaultLogDirname          = "logs"
	defaultLogFilename         = "p2poold.log"
	defaultMaxLogRolls         = 8
	defaultMinPeers            = 4
	defaultMaxPeers            = 8
	defaultMaxKnownPeers       = addrmgr.DefaultMaxKnownPeers
	defaultDialTimeout         = time.Second * 30
	defaultMaintenanceInterval = time.Second * 30
	defaultTrustedNode         = "127.0.0.1"
)

var (
	defaultHomeDir    = appDataDir("p2poold")
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for p2poold.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior.
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string `short:"b" long:"datadir" description:"Directory to store the peer database"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	MaxLogRolls   int    `long:"maxlogrolls" description:"Number of rolled log files to keep"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	Profile       string `long:"profile" description:"Enable HTTP profiling and metrics on given [addr:]port -- NOTE port must be between 1024 and 65535"`

	// Network settings.
	TestNet bool `long:"testnet" description:"Use the test network"`
	RegNet  bool `long:"regtest" description:"Use the regression test network"`

	// Peer settings.
	TrustedNode         string        `long:"trustednode" description:"Address of the local dashd node that is always kept connected -- Set to an empty value to disable"`
	AddPeers            []string      `short:"a" long:"addpeer" description:"Add a peer to connect with at startup"`
	ExternalIPs         []string      `long:"externalip" description:"Add an ip to the list of local addresses this node is reachable at"`
	MinPeers            int           `long:"minpeers" description:"Number of outbound connections to maintain"`
	MaxPeers            int           `long:"maxpeers" description:"Max number of outbound connections"`
	MaxKnownPeers       int           `long:"maxknownpeers" description:"Max number of peers remembered in the peer database"`
	MaintenanceInterval time.Duration `long:"maintenanceinterval" description:"Time between connection maintenance cycles"`
	DialTimeout         time.Duration `long:"dialtimeout" description:"How long to wait for TCP connection completion"`
	NoSeeders           bool          `long:"noseeders" description:"Disable seeding for peer discovery"`
	ResetCorruptPeers   bool          `long:"resetcorruptpeers" description:"Move an unreadable peer database aside and start with an empty one instead of failing"`

	// Proxy settings.
	Proxy        string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser    string `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass    string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	TorIsolation bool   `long:"torisolation" description:"Enable Tor stream isolation by randomizing user credentials for each connection"`

	// The following fields are derived from the options above.
	params      *params
	trustedNode addrmgr.NetAddress
	addPeers    []addrmgr.NetAddress
	localAddrs  []addrmgr.NetAddress
	dial        func(ctx context.Context, network, addr string) (net.Conn, error)
	lookup      connmgr.LookupFunc
}

// errSuppressUsage signifies that an error that happened during the initial
// configuration phase should suppress the usage output since it was not caused
// by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// appDataDir returns the default application data directory for the provided
// application name on the current operating system.
func appDataDir(appName string) string {
	appNameUpper := strings.ToUpper(appName[:1]) + appName[1:]
	appNameLower := strings.ToLower(appName[:1]) + appName[1:]

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	switch runtime.GOOS {
	case "windows":
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData != "" {
			return filepath.Join(appData, appNameUpper)
		}
	case "darwin":
		return filepath.Join(homeDir, "Library", "Application Support",
			appNameUpper)
	}
	return filepath.Join(homeDir, "."+appNameLower)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		var rest string
		if i := strings.IndexAny(path, `/\`); i != -1 {
			rest = path[i+1:]
		}
		if dir, err := os.UserHomeDir(); err == nil {
			homeDir = dir
		}
		path = filepath.Join(homeDir, rest)
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// normalizeAddress returns addr with the passed default port appended if there
// is not already a port specified.
func normalizeAddress(addr, defaultPort string) string {
	_, _, err := net.SplitHostPort(addr)
	if err != nil {
		return net.JoinHostPort(addr, defaultPort)
	}
	return addr
}

// parsePeerAddresses normalizes the provided addresses with the default port
// and parses them into peer addresses.
func parsePeerAddresses(addrs []string, defaultPort string) ([]addrmgr.NetAddress, error) {
	nas := make([]addrmgr.NetAddress, 0, len(addrs))
	for _, addr := range addrs {
		na, err := addrmgr.ParseNetAddress(normalizeAddress(addr, defaultPort))
		if err != nil {
			return nil, fmt.Errorf("invalid address %q: %w", addr, err)
		}
		nas = append(nas, na)
	}
	return nas, nil
}

// parseExternalIPs parses the provided IP addresses, which may optionally
// include a port, into the addresses the local node is reachable at.
func parseExternalIPs(ips []string, defaultPort string) ([]addrmgr.NetAddress, error) {
	nas := make([]addrmgr.NetAddress, 0, len(ips))
	for _, ip := range ips {
		host, portStr, err := net.SplitHostPort(ip)
		if err != nil {
			host, portStr = ip, defaultPort
		}
		addr, err := netip.ParseAddr(host)
		if err != nil {
			return nil, fmt.Errorf("invalid external ip %q: %w", ip, err)
		}
		port, _ := strconv.Atoi(portStr)
		na, err := addrmgr.NewNetAddress(addr.String(), port)
		if err != nil {
			return nil, fmt.Errorf("invalid external ip %q: %w", ip, err)
		}
		nas = append(nas, na)
	}
	return nas, nil
}

// createDefaultConfigFile creates a config file at the provided path with the
// sample config contents.
func createDefaultConfigFile(destPath string) error {
	// Create the destination directory if it does not exist.
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}

	return os.WriteFile(destPath, []byte(sampleconfig.P2poold()), 0600)
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in p2poold functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig(appName string, args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		HomeDir:             defaultHomeDir,
		ConfigFile:          defaultConfigFile,
		DataDir:             defaultDataDir,
		LogDir:              defaultLogDir,
		MaxLogRolls:         defaultMaxLogRolls,
		DebugLevel:          defaultLogLevel,
		TrustedNode:         defaultTrustedNode,
		MinPeers:            defaultMinPeers,
		MaxPeers:            defaultMaxPeers,
		MaxKnownPeers:       defaultMaxKnownPeers,
		MaintenanceInterval: defaultMaintenanceInterval,
		DialTimeout:         defaultDialTimeout,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS,
			runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory for p2poold if specified.  Since the home
	// directory is updated, other variables need to be updated to reflect
	// the new changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(cleanAndExpandPath(preCfg.HomeDir))

		if preCfg.ConfigFile == defaultConfigFile {
			defaultConfigFile = filepath.Join(cfg.HomeDir,
				defaultConfigFilename)
			preCfg.ConfigFile = defaultConfigFile
			cfg.ConfigFile = defaultConfigFile
		} else {
			cfg.ConfigFile = preCfg.ConfigFile
		}
		if preCfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		} else {
			cfg.DataDir = preCfg.DataDir
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Create a default config file when one does not exist and the user did
	// not specify an override.
	preCfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)
	if preCfg.ConfigFile == defaultConfigFile {
		if _, err := os.Stat(preCfg.ConfigFile); os.IsNotExist(err) {
			if err := createDefaultConfigFile(preCfg.ConfigFile); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating a default config "+
					"file: %v\n", err)
			}
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		var e *os.PathError
		if !errors.As(err, &e) {
			err = fmt.Errorf("error parsing config file: %w", err)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	cfg.params = &mainNetParams
	numNets := 0
	if cfg.TestNet {
		numNets++
		cfg.params = &testNet3Params
	}
	if cfg.RegNet {
		numNets++
		cfg.params = &regNetParams
	}
	if numNets > 1 {
		str := "%s: the testnet and regtest params can't be used together " +
			"-- choose one of the two"
		return nil, nil, fmt.Errorf(str, "loadConfig")
	}
	defaultPort := strconv.Itoa(int(cfg.params.DefaultPort))

	// Expand the data and log directories.  Logs are kept per network.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.params.Name)

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	if !cfg.NoFileLogging {
		initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename),
			cfg.MaxLogRolls)
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", "loadConfig", err)
	}

	// Validate the peer limits.
	if cfg.MaxPeers < 1 {
		str := "%s: the maxpeers option must be at least 1 -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, "loadConfig", cfg.MaxPeers)
	}
	if cfg.MinPeers < 1 || cfg.MinPeers > cfg.MaxPeers {
		str := "%s: the minpeers option must be between 1 and maxpeers " +
			"(%d) -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, "loadConfig", cfg.MaxPeers,
			cfg.MinPeers)
	}
	if cfg.MaxKnownPeers < cfg.MaxPeers {
		str := "%s: the maxknownpeers option must be at least maxpeers " +
			"(%d) -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, "loadConfig", cfg.MaxPeers,
			cfg.MaxKnownPeers)
	}

	// Parse the peer addresses.
	if cfg.TrustedNode != "" {
		nas, err := parsePeerAddresses([]string{cfg.TrustedNode}, defaultPort)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: trustednode: %w", "loadConfig",
				err)
		}
		cfg.trustedNode = nas[0]
	}
	cfg.addPeers, err = parsePeerAddresses(cfg.AddPeers, defaultPort)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: addpeer: %w", "loadConfig", err)
	}
	cfg.localAddrs, err = parseExternalIPs(cfg.ExternalIPs, defaultPort)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: externalip: %w", "loadConfig", err)
	}

	// Setup dial and DNS resolution (lookup) functions depending on the
	// specified options.  The default is to use the standard net.DialContext
	// function as well as the system DNS resolver.  When a proxy is
	// specified, the dial function is set to the proxy specific dial
	// function and the lookup is set to use tor.
	var dialer net.Dialer
	cfg.dial = dialer.DialContext
	cfg.lookup = func(ctx context.Context, host string) ([]netip.Addr, error) {
		return net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	}
	if cfg.Proxy != "" {
		_, _, err := net.SplitHostPort(cfg.Proxy)
		if err != nil {
			str := "%s: proxy address '%s' is invalid: %w"
			return nil, nil, fmt.Errorf(str, "loadConfig", cfg.Proxy, err)
		}

		proxy := &socks.Proxy{
			Addr:         cfg.Proxy,
			Username:     cfg.ProxyUser,
			Password:     cfg.ProxyPass,
			TorIsolation: cfg.TorIsolation,
		}
		cfg.dial = proxy.DialContext
		proxyAddr := cfg.Proxy
		cfg.lookup = func(ctx context.Context, host string) ([]netip.Addr, error) {
			return connmgr.TorLookupIP(ctx, host, proxyAddr)
		}
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		p2pdLog.Warnf("%v", configFileError)
	}

	return &cfg, remainingArgs, nil
}
