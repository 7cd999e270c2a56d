// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dashpool/p2poold/internal/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

// p2pooldMain is the real main function for p2poold.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func p2pooldMain() (err error) {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	cfg, _, err := loadConfig(appName, os.Args[1:])
	if err != nil {
		usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return err
	}
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal has been
	// triggered from an OS signal such as SIGINT (Ctrl+C).
	ctx := shutdownListener()
	defer p2pdLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	p2pdLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	p2pdLog.Infof("Home dir: %s", cfg.HomeDir)
	p2pdLog.Infof("Active network: %s", cfg.params.Name)
	if cfg.NoFileLogging {
		p2pdLog.Info("File logging disabled")
	}

	// Metrics of all subsystems are gathered by a single registry which is
	// served along with the profiling endpoints.
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Enable http profile server if requested.  The stop call is always
	// deferred to ensure it is stopped during process shutdown.
	profiler := newProfileServer(registry)
	defer func() {
		err = multierr.Append(err, profiler.Stop())
	}()
	if cfg.Profile != "" {
		const allowNonLoopback = true
		if err := profiler.Start(cfg.Profile, allowNonLoopback); err != nil {
			p2pdLog.Warnf("unable to start profile server: %v", err)
			return err
		}
	}

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	// Create server.
	svr, err := newServer(cfg, registry)
	if err != nil {
		p2pdLog.Errorf("Unable to start server: %v", err)
		return err
	}

	// Run the server.  This will block until the context is cancelled which
	// happens when the interrupt signal is received.
	if err := svr.Run(ctx); err != nil {
		for _, err := range multierr.Errors(err) {
			srvrLog.Errorf("%v", err)
		}
		return err
	}
	srvrLog.Infof("Server shutdown complete")
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := p2pooldMain(); err != nil {
		os.Exit(1)
	}
}
