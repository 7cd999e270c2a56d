// Copyright (c) 2024-2025 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"net/netip"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// portToLocalHostAddr prepends a default host of 127.0.0.1 when the provided
// address is solely a port number.
func portToLocalHostAddr(addr string) string {
	if _, err := strconv.Atoi(addr); err == nil {
		addr = net.JoinHostPort("127.0.0.1", addr)
	}
	return addr
}

// validateProfileAddr ensures the provided address is of the form "host:port"
// and that the port is between 1024 and 65535.
func validateProfileAddr(addr string) error {
	// Ensure the address is valid host:port syntax.
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}

	// Ensure the port is in range.
	if port, _ := strconv.Atoi(portStr); port < 1024 || port > 65535 {
		str := "address %q: port must be between 1024 and 65535"
		return fmt.Errorf(str, addr)
	}

	return nil
}

// profileServer provides facilities for starting and stopping an HTTP server
// that serves the pprof profiling endpoints along with the Prometheus metrics
// of the provided gatherer.
type profileServer struct {
	wg       sync.WaitGroup
	mtx      sync.Mutex
	gatherer prometheus.Gatherer
	server   *http.Server
	listener string
}

// newProfileServer returns a profile server that serves the metrics of the
// provided gatherer.
func newProfileServer(gatherer prometheus.Gatherer) *profileServer {
	return &profileServer{gatherer: gatherer}
}

// handler returns the HTTP handler for the profiling and metrics endpoints.
func (s *profileServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer,
		promhttp.HandlerOpts{}))
	mux.Handle("/", http.RedirectHandler("/debug/pprof/", http.StatusSeeOther))
	return mux
}

// Start binds a listener to the provided address and launches an HTTP server
// that handles profiling and metrics endpoints in the background using that
// listener.  An error is returned when the listener fails to bind.
//
// Unless the flag to allow non loopback addresses is set, an error is returned
// when the provided listen address is not an IPv4 or IPv6 loopback address.
//
// It has no effect when the server is already running, so it may be called
// multiple times without error.
//
// It is the caller's responsibility to call the Stop method to shutdown the
// server.
func (s *profileServer) Start(listenAddr string, allowNonLoopback bool) error {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	// Nothing to do when the server is already running.
	if s.server != nil {
		return nil
	}

	// Potentially convert a raw port to an IPv4 localhost address (aka prepend
	// 127.0.0.1).
	listenAddr = portToLocalHostAddr(listenAddr)

	// Ensure the provided address is a valid hostname and port with a port that
	// is in range.
	if err := validateProfileAddr(listenAddr); err != nil {
		return err
	}

	// Reject non loopback addresses when requested.
	if !allowNonLoopback {
		addr, _ := netip.ParseAddrPort(listenAddr)
		if !addr.IsValid() || !addr.Addr().IsLoopback() {
			return fmt.Errorf("not permitted to listen on non loopback "+
				"address %q without setting the flag to allow it", listenAddr)
		}
	}

	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", listenAddr, err)
	}
	s.listener = listener.Addr().String()

	// Create a new HTTP server and serve it in a separate goroutine.
	s.server = &http.Server{
		Addr:              listenAddr,
		Handler:           s.handler(),
		ReadHeaderTimeout: time.Second * 3,
	}
	p2pdLog.Infof("Profiling server listening on %s", listener.Addr())
	s.wg.Add(1)
	go func(httpServer *http.Server) {
		defer s.wg.Done()

		err := httpServer.Serve(listener)
		if !errors.Is(err, http.ErrServerClosed) {
			p2pdLog.Errorf("Profiling server listening on %s exited with "+
				"unexpected error: %v", listener.Addr(), err)
		}
	}(s.server)

	return nil
}

// Stop immediately closes the active listener and any connections to the
// profile server.
//
// It has no effect when the server is not running, so it may be called multiple
// times without error.
func (s *profileServer) Stop() error {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	// Nothing to do when the server is not running.
	if s.server == nil {
		return nil
	}

	// Shutdown the server and wait for the serving goroutine to finish.  Also,
	// clear the server field and listener since they are no longer valid.
	err := s.server.Close()
	s.server = nil
	s.listener = ""
	s.wg.Wait()
	if err != nil {
		p2pdLog.Errorf("Profiling server stopped with unexpected error: %v",
			err)
		return err
	}

	p2pdLog.Info("Profiling server stopped")
	return nil
}

// Listener returns the address the profile server is currently listening on.
// It may also be used as a means to tell if the server is currently running
// since it is only set when it is.
func (s *profileServer) Listener() string {
	defer s.mtx.Unlock()
	s.mtx.Lock()

	return s.listener
}
