// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
)

// forceExitSignals is the number of interrupt signals after which the process
// exits without waiting for the shutdown to complete.
const forceExitSignals = 3

// interruptSignals defines the default signals to catch in order to do a proper
// shutdown.  This may be modified during init depending on the platform.
var interruptSignals = []os.Signal{os.Interrupt}

// shutdownListener listens for OS Signals such as SIGINT (Ctrl+C).  It returns
// a context that is canceled when the first signal is received.
func shutdownListener() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		interruptChannel := make(chan os.Signal, 1)
		signal.Notify(interruptChannel, interruptSignals...)

		// Listen for initial shutdown signal and cancel the returned context.
		sig := <-interruptChannel
		p2pdLog.Infof("Received signal (%s).  Shutting down...", sig)
		cancel()

		// Listen for repeated signals and display a message so the user
		// knows the shutdown is in progress and the process is not hung.
		// Closing connections to unresponsive peers can take a while, so
		// give up on a clean shutdown when the user insists.
		for received := 2; ; received++ {
			sig := <-interruptChannel
			if received >= forceExitSignals {
				p2pdLog.Warnf("Received signal (%s).  Forcing exit without "+
					"saving peers", sig)
				if logRotator != nil {
					logRotator.Close()
				}
				os.Exit(1)
			}
			p2pdLog.Infof("Received signal (%s).  Already shutting down... "+
				"(%d more to force exit)", sig, forceExitSignals-received)
		}
	}()

	return ctx
}

// shutdownRequested returns true when the context returned by shutdownListener
// was canceled.  This simplifies early shutdown slightly since the caller can
// just use an if statement instead of a select.
func shutdownRequested(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}

	return false
}
