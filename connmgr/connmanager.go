// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2017-2020 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/dashpool/p2poold/addrmgr"
	"github.com/decred/dcrd/container/lru"
	"github.com/prometheus/client_golang/prometheus"
)

// maxRetryDuration is the max duration of time retrying of a protected
// connection is allowed to grow to.  This is necessary since the retry logic
// uses a backoff mechanism which increases the interval base times the number
// of retries that have been done.
var maxRetryDuration = time.Minute * 5

const (
	// defaultRetryDuration is the default duration of time for retrying
	// protected connections.
	defaultRetryDuration = time.Second * 5

	// defaultMinPeers is the default number of connections the maintenance
	// cycle restores.
	defaultMinPeers = uint32(4)

	// defaultMaxPeers is the default maximum number of connections.
	defaultMaxPeers = uint32(8)

	// defaultMaintenanceInterval is the default interval between maintenance
	// cycles.
	defaultMaintenanceInterval = time.Second * 30

	// defaultFailedDialCooldown is the default duration a peer is skipped
	// for after a failed connection attempt.
	defaultFailedDialCooldown = time.Minute * 5

	// failedDialCacheSize is the number of recently failed peers that are
	// remembered.
	failedDialCacheSize = 1024
)

// AddressBook is the source of peers to connect to and the sink for the
// outcome of connections.  *addrmgr.AddrManager satisfies it.
type AddressBook interface {
	// Records returns a snapshot of all known peers.
	Records() []addrmgr.PeerRecord

	// Record returns the known peer with the provided address.
	Record(na addrmgr.NetAddress) (addrmgr.PeerRecord, bool)

	// Score returns the current desirability of the provided peer.
	Score(rec *addrmgr.PeerRecord) float64

	// AddAddress adds a peer the caller asked to connect to.
	AddAddress(na addrmgr.NetAddress, source addrmgr.Source) (bool, error)

	// IsLocalAddress returns whether the address belongs to the local node.
	IsLocalAddress(na addrmgr.NetAddress) bool

	// Connected, Disconnected, and Failed record connection outcomes.
	Connected(na addrmgr.NetAddress) error
	Disconnected(na addrmgr.NetAddress, graceful bool) error
	Failed(na addrmgr.NetAddress) error

	// Released records the end of a session without an outcome.
	Released(na addrmgr.NetAddress) error
}

// ConnectionRecord describes a live connection to a peer.
type ConnectionRecord struct {
	// ID uniquely identifies the connection attempt that established the
	// connection.
	ID uint64

	// Addr is the address of the peer.
	Addr addrmgr.NetAddress

	// ConnectedAt is when the connection was established.
	ConnectedAt time.Time

	// Protected is the protection of the peer at the time the connection was
	// established.  Protected connections are never evicted or
	// disconnected.
	Protected bool
}

// String returns a human-readable string for the connection.
func (c *ConnectionRecord) String() string {
	return fmt.Sprintf("%s (connid %d)", c.Addr, c.ID)
}

// Config holds the configuration options related to the connection manager.
type Config struct {
	// AddrBook provides the known peers and records connection outcomes.
	AddrBook AddressBook

	// MinPeers is the number of connections the maintenance cycle restores
	// when enough candidates are known.  Defaults to 4.
	MinPeers uint32

	// MaxPeers is the maximum number of connections.  The maintenance cycle
	// drops the lowest scoring unprotected peers beyond it.  Defaults to 8.
	MaxPeers uint32

	// MaintenanceInterval is the interval between maintenance cycles.
	// Defaults to 30s.
	MaintenanceInterval time.Duration

	// FailedDialCooldown is how long a peer is skipped for after a failed
	// connection attempt.  Defaults to 5m.
	FailedDialCooldown time.Duration

	// RetryDuration is the base backoff for reconnecting to protected peers.
	// Defaults to 5s.
	RetryDuration time.Duration

	// Dial connects to the address on the named network.
	Dial func(ctx context.Context, network, addr string) (net.Conn, error)

	// Timeout specifies the amount of time to wait for a connection
	// to complete before giving up.
	Timeout time.Duration

	// Session runs the protocol over an established connection.  It must
	// return once the session ends or the context is canceled.  A nil or
	// io.EOF error marks a graceful end.  It defaults to reading from the
	// connection until the remote peer closes it.
	Session func(ctx context.Context, addr addrmgr.NetAddress, conn net.Conn) error

	// OnConnection is a callback that is fired when a new outbound
	// connection is established.
	OnConnection func(ConnectionRecord)

	// OnDisconnection is a callback that is fired when an outbound
	// connection ends.  The error is nil for a graceful end.
	OnDisconnection func(ConnectionRecord, error)

	// Clock is the time source.  Defaults to the wall clock.
	Clock clock.Clock

	// Registerer is used to register the connection manager metrics when
	// it is not nil.
	Registerer prometheus.Registerer
}

// pendingConn is a connection attempt in progress.
type pendingConn struct {
	id        uint64
	addr      addrmgr.NetAddress
	protected bool
	cancel    context.CancelFunc
}

// liveConn is an established connection along with the means to end its
// session.
type liveConn struct {
	ConnectionRecord
	conn   net.Conn
	cancel context.CancelFunc
}

// retryState tracks the reconnection backoff of a protected peer.
type retryState struct {
	count uint32
	next  time.Time
}

// ConnManager provides a manager to handle network connections.
type ConnManager struct {
	// The following variables must only be used atomically.
	//
	// connReqCount is the number of connection requests that have been made and
	// is primarily used to assign unique connection request IDs.
	connReqCount atomic.Uint64

	// The following fields are used for lifecycle management of the connection
	// manager.
	wg   sync.WaitGroup
	quit chan struct{}

	// cfg specifies the configuration of the connection manager and is set at
	// creating time and treated as immutable after that.
	cfg Config

	metrics *metrics

	// requests is used internally to interact with the connection handler
	// goroutine.
	requests chan interface{}

	// The following fields are owned by the connection handler and must not
	// be accessed outside of it.
	//
	// pending holds the connection attempts in progress keyed by address.
	//
	// conns holds the live connections keyed by address.
	//
	// retries holds the reconnection backoff of protected peers.
	//
	// failedDials maps recently failed peers to the time of the failure.
	pending     map[addrmgr.NetAddress]*pendingConn
	conns       map[addrmgr.NetAddress]*liveConn
	retries     map[addrmgr.NetAddress]*retryState
	failedDials *lru.Map[addrmgr.NetAddress, time.Time]
}

// drainSession is the default session.  It discards everything the remote
// peer sends until it closes the connection.
func drainSession(_ context.Context, _ addrmgr.NetAddress, conn net.Conn) error {
	_, err := io.Copy(io.Discard, conn)
	return err
}

// isGraceful returns whether a session that ended with the provided error
// ended gracefully.
func isGraceful(err error) bool {
	return err == nil || errors.Is(err, io.EOF)
}

// connHandler handles all connection related requests.  It must be run as a
// goroutine.
//
// The connection handler makes sure that we maintain a pool of active outbound
// connections so that we remain connected to the network.  It owns all of the
// connection state, so every change to it is made here in response to the
// events and requests delivered through the requests channel.
func (cm *ConnManager) connHandler(ctx context.Context) {
	ticker := cm.cfg.Clock.Ticker(cm.cfg.MaintenanceInterval)
	defer ticker.Stop()

	// Run the first maintenance cycle right away rather than waiting for
	// the first tick.
	cm.maintain(ctx)

out:
	for {
		select {
		case req := <-cm.requests:
			switch msg := req.(type) {
			case connectionEstablished:
				cm.handleEstablished(ctx, msg)

			case connectionFailed:
				cm.handleFailed(ctx, msg)

			case connectionClosed:
				cm.handleClosed(ctx, msg)

			case connectRequest:
				msg.done <- cm.handleConnect(ctx, msg.addr)

			case disconnectRequest:
				msg.done <- cm.handleDisconnect(msg.addr)

			case maintenanceRequest:
				cm.maintain(ctx)
				if msg.done != nil {
					close(msg.done)
				}

			case connectionsQuery:
				msg.reply <- cm.connectionRecords()
			}

		case <-ticker.C:
			cm.maintain(ctx)

		case <-ctx.Done():
			break out
		}
	}

	// Abandon all connection attempts in progress and end every session.
	for addr, p := range cm.pending {
		p.cancel()
		delete(cm.pending, addr)
	}
	for _, lc := range cm.conns {
		cm.release(lc)
	}
	cm.updateGauges()

	cm.wg.Done()
	log.Trace("Connection handler done")
}

// startDial registers a connection attempt to the provided address and dials
// it in a separate goroutine.  The outcome is delivered back to the connection
// handler.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) startDial(ctx context.Context, addr addrmgr.NetAddress, protected bool) {
	dialCtx, cancel := context.WithCancel(ctx)
	p := &pendingConn{
		id:        cm.connReqCount.Add(1),
		addr:      addr,
		protected: protected,
		cancel:    cancel,
	}
	cm.pending[addr] = p
	log.Debugf("Attempting to connect to %v (reqid %d)", addr, p.id)

	cm.wg.Add(1)
	go cm.dial(dialCtx, p.id, addr)
}

// dial connects to the provided address using the configured dial function
// and reports the outcome to the connection handler.  It must be run as a
// goroutine.
func (cm *ConnManager) dial(ctx context.Context, id uint64, addr addrmgr.NetAddress) {
	defer cm.wg.Done()

	if cm.cfg.Timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cm.cfg.Timeout)
		defer cancel()
	}
	conn, err := cm.cfg.Dial(ctx, addr.Network(), addr.String())
	var msg interface{}
	if err != nil {
		msg = connectionFailed{id: id, addr: addr, err: err}
	} else {
		msg = connectionEstablished{id: id, addr: addr, conn: conn}
	}

	select {
	case cm.requests <- msg:
	case <-cm.quit:
		// Nobody is left to take ownership of the connection.
		if conn != nil {
			conn.Close()
		}
	}
}

// runSession runs the configured session over the provided connection and
// reports its end to the connection handler.  It must be run as a goroutine.
func (cm *ConnManager) runSession(ctx context.Context, lc *liveConn) {
	defer cm.wg.Done()

	err := cm.cfg.Session(ctx, lc.Addr, lc.conn)
	select {
	case cm.requests <- connectionClosed{id: lc.ID, addr: lc.Addr, err: err}:
	case <-cm.quit:
	}
}

// handleEstablished takes ownership of a newly established connection and
// starts its session.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) handleEstablished(ctx context.Context, msg connectionEstablished) {
	p, ok := cm.pending[msg.addr]
	if !ok || p.id != msg.id {
		msg.conn.Close()
		log.Debugf("Ignoring connection for canceled connreq %d to %v",
			msg.id, msg.addr)
		return
	}
	delete(cm.pending, msg.addr)
	p.cancel()

	// The protection of the peer at connection time governs the connection
	// for its whole lifetime.
	protected := p.protected
	if rec, ok := cm.cfg.AddrBook.Record(msg.addr); ok {
		protected = rec.Protected
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	lc := &liveConn{
		ConnectionRecord: ConnectionRecord{
			ID:          msg.id,
			Addr:        msg.addr,
			ConnectedAt: cm.cfg.Clock.Now(),
			Protected:   protected,
		},
		conn:   msg.conn,
		cancel: cancel,
	}
	cm.conns[msg.addr] = lc
	delete(cm.retries, msg.addr)
	cm.failedDials.Delete(msg.addr)
	if err := cm.cfg.AddrBook.Connected(msg.addr); err != nil {
		log.Warnf("Unable to mark %v connected: %v", msg.addr, err)
	}
	cm.metrics.dials.WithLabelValues("success").Inc()
	log.Debugf("Connected to %v", &lc.ConnectionRecord)

	cm.wg.Add(1)
	go cm.runSession(sessionCtx, lc)

	if cm.cfg.OnConnection != nil {
		go cm.cfg.OnConnection(lc.ConnectionRecord)
	}
	cm.updateGauges()
}

// handleFailed records a failed connection attempt and looks for another peer
// when the node is short of connections.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) handleFailed(ctx context.Context, msg connectionFailed) {
	p, ok := cm.pending[msg.addr]
	if !ok || p.id != msg.id {
		log.Debugf("Ignoring failure for canceled connreq %d to %v",
			msg.id, msg.addr)
		return
	}
	delete(cm.pending, msg.addr)
	p.cancel()

	log.Debugf("Failed to connect to %v: %v", msg.addr, msg.err)
	now := cm.cfg.Clock.Now()
	cm.failedDials.Put(msg.addr, now)
	if err := cm.cfg.AddrBook.Failed(msg.addr); err != nil {
		log.Warnf("Unable to record failure for %v: %v", msg.addr, err)
	}
	cm.metrics.dials.WithLabelValues("failure").Inc()
	if p.protected {
		cm.scheduleRetry(msg.addr, now)
	}
	cm.updateGauges()

	if cm.shortOfPeers() {
		cm.maintain(ctx)
	}
}

// handleClosed records the end of a session and looks for another peer when
// the node is short of connections.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) handleClosed(ctx context.Context, msg connectionClosed) {
	lc, ok := cm.conns[msg.addr]
	if !ok || lc.ID != msg.id {
		// The connection was already torn down.
		return
	}
	delete(cm.conns, msg.addr)
	lc.cancel()
	lc.conn.Close()

	graceful := isGraceful(msg.err)
	if err := cm.cfg.AddrBook.Disconnected(msg.addr, graceful); err != nil {
		log.Warnf("Unable to mark %v disconnected: %v", msg.addr, err)
	}
	var sessionErr error
	if graceful {
		cm.metrics.closes.WithLabelValues("graceful").Inc()
		log.Debugf("Disconnected from %v", &lc.ConnectionRecord)
	} else {
		sessionErr = msg.err
		cm.metrics.closes.WithLabelValues("error").Inc()
		log.Debugf("Lost connection to %v: %v", &lc.ConnectionRecord,
			msg.err)
	}
	if cm.cfg.OnDisconnection != nil {
		go cm.cfg.OnDisconnection(lc.ConnectionRecord, sessionErr)
	}
	if lc.Protected {
		cm.scheduleRetry(msg.addr, cm.cfg.Clock.Now())
	}
	cm.updateGauges()

	if cm.shortOfPeers() {
		cm.maintain(ctx)
	}
}

// handleConnect starts a connection to a peer the caller asked for.  Such
// connections are not limited by the maximum number of peers, although the
// maintenance cycle may drop them later.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) handleConnect(ctx context.Context, addr addrmgr.NetAddress) error {
	if _, ok := cm.conns[addr]; ok {
		str := fmt.Sprintf("already connected to %v", addr)
		return MakeError(ErrAlreadyConnected, str)
	}
	if _, ok := cm.pending[addr]; ok {
		str := fmt.Sprintf("already connecting to %v", addr)
		return MakeError(ErrAlreadyConnected, str)
	}

	rec, ok := cm.cfg.AddrBook.Record(addr)
	if !ok {
		if _, err := cm.cfg.AddrBook.AddAddress(addr, addrmgr.SourceManual); err != nil {
			return err
		}
		rec, ok = cm.cfg.AddrBook.Record(addr)
		if !ok {
			str := fmt.Sprintf("unable to track %v", addr)
			return MakeError(ErrNotConnected, str)
		}
	}

	cm.failedDials.Delete(addr)
	cm.startDial(ctx, addr, rec.Protected)
	cm.updateGauges()
	return nil
}

// handleDisconnect tears down the connection to the provided peer.  Requests
// to disconnect a protected peer are ignored without error.  A connection
// attempt in progress is canceled.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) handleDisconnect(addr addrmgr.NetAddress) error {
	lc, connected := cm.conns[addr]
	protected := connected && lc.Protected
	if rec, ok := cm.cfg.AddrBook.Record(addr); ok && rec.Protected {
		protected = true
	}
	if protected {
		cm.metrics.protectedIgnored.Inc()
		log.Debugf("Ignoring request to disconnect protected peer %v", addr)
		return nil
	}

	if connected {
		cm.teardown(lc, "requested")
		cm.updateGauges()
		return nil
	}
	if p, ok := cm.pending[addr]; ok {
		p.cancel()
		delete(cm.pending, addr)
		log.Debugf("Canceled pending connection to %v", addr)
		cm.updateGauges()
		return nil
	}

	str := fmt.Sprintf("not connected to %v", addr)
	return MakeError(ErrNotConnected, str)
}

// teardown deliberately ends the session with the provided peer.  A
// deliberate teardown counts as a graceful end of the session.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) teardown(lc *liveConn, reason string) {
	cm.endSession(lc, reason)
	if err := cm.cfg.AddrBook.Disconnected(lc.Addr, true); err != nil {
		log.Warnf("Unable to mark %v disconnected: %v", lc.Addr, err)
	}
}

// release ends the session with the provided peer during shutdown.  The peer
// had no part in ending the session, so no outcome is recorded for it.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) release(lc *liveConn) {
	cm.endSession(lc, "shutdown")
	if err := cm.cfg.AddrBook.Released(lc.Addr); err != nil {
		log.Warnf("Unable to release %v: %v", lc.Addr, err)
	}
}

// endSession closes the connection to the provided peer and reports the end
// of the session.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) endSession(lc *liveConn, reason string) {
	delete(cm.conns, lc.Addr)
	lc.cancel()
	lc.conn.Close()

	cm.metrics.closes.WithLabelValues(reason).Inc()
	log.Debugf("Disconnected from %v (%s)", &lc.ConnectionRecord, reason)
	if cm.cfg.OnDisconnection != nil {
		go cm.cfg.OnDisconnection(lc.ConnectionRecord, nil)
	}
}

// scheduleRetry backs off reconnecting to a protected peer and arranges for a
// maintenance cycle to run once the backoff expires.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) scheduleRetry(addr addrmgr.NetAddress, now time.Time) {
	r, ok := cm.retries[addr]
	if !ok {
		r = &retryState{}
		cm.retries[addr] = r
	}
	r.count++
	d := time.Duration(r.count) * cm.cfg.RetryDuration
	if d > maxRetryDuration {
		d = maxRetryDuration
	}
	r.next = now.Add(d)
	log.Debugf("Retrying connection to protected peer %v in %v", addr, d)

	cm.cfg.Clock.AfterFunc(d, func() {
		select {
		case cm.requests <- maintenanceRequest{}:
		case <-cm.quit:
		}
	})
}

// connectionRecords returns a snapshot of the live connections.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) connectionRecords() []ConnectionRecord {
	recs := make([]ConnectionRecord, 0, len(cm.conns))
	for _, lc := range cm.conns {
		recs = append(recs, lc.ConnectionRecord)
	}
	return recs
}

// updateGauges refreshes the connection gauges.
//
// This function MUST only be called from the connection handler.
func (cm *ConnManager) updateGauges() {
	var protected int
	for _, lc := range cm.conns {
		if lc.Protected {
			protected++
		}
	}
	cm.metrics.connected.Set(float64(len(cm.conns)))
	cm.metrics.connecting.Set(float64(len(cm.pending)))
	cm.metrics.protectedConnected.Set(float64(protected))
}

// Connect asks the connection manager to connect to the provided peer.  The
// peer is added to the address book as a manual peer when it is unknown.
// Connections requested this way are not limited by the maximum number of
// peers, so the next maintenance cycle may drop them again if they score
// poorly.
//
// An error of kind ErrAlreadyConnected is returned when the peer is already
// connected or being connected to.
func (cm *ConnManager) Connect(ctx context.Context, addr addrmgr.NetAddress) error {
	done := make(chan error, 1)
	select {
	case cm.requests <- connectRequest{addr: addr, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	case <-cm.quit:
		return MakeError(ErrShuttingDown, "connection manager stopped")
	}

	select {
	case err := <-done:
		return err
	case <-cm.quit:
		return MakeError(ErrShuttingDown, "connection manager stopped")
	}
}

// Disconnect tears down the connection to the provided peer and keeps the
// peer in the address book.  A connection attempt in progress is canceled.
//
// Disconnecting a protected peer is a no-op that returns nil and leaves the
// connection untouched.  An error of kind ErrNotConnected is returned when
// the peer is neither connected nor being connected to.
func (cm *ConnManager) Disconnect(addr addrmgr.NetAddress) error {
	done := make(chan error, 1)
	select {
	case cm.requests <- disconnectRequest{addr: addr, done: done}:
	case <-cm.quit:
		return MakeError(ErrShuttingDown, "connection manager stopped")
	}

	select {
	case err := <-done:
		return err
	case <-cm.quit:
		return MakeError(ErrShuttingDown, "connection manager stopped")
	}
}

// Connections returns a snapshot of the live connections.  It returns nil once
// the connection manager is stopped.
func (cm *ConnManager) Connections() []ConnectionRecord {
	reply := make(chan []ConnectionRecord, 1)
	select {
	case cm.requests <- connectionsQuery{reply: reply}:
	case <-cm.quit:
		return nil
	}

	select {
	case recs := <-reply:
		return recs
	case <-cm.quit:
		return nil
	}
}

// ConnectedCount returns the number of live connections.
func (cm *ConnManager) ConnectedCount() int {
	return len(cm.Connections())
}

// Maintain runs a maintenance cycle right away and waits for it to complete.
// It does not wait for the connection attempts the cycle starts.
func (cm *ConnManager) Maintain() error {
	done := make(chan struct{})
	select {
	case cm.requests <- maintenanceRequest{done: done}:
	case <-cm.quit:
		return MakeError(ErrShuttingDown, "connection manager stopped")
	}

	select {
	case <-done:
		return nil
	case <-cm.quit:
		return MakeError(ErrShuttingDown, "connection manager stopped")
	}
}

// Run starts the connection manager and begins connecting to the network.  It
// blocks until the provided context is cancelled, all sessions have ended, and
// all connection attempts have been abandoned.
func (cm *ConnManager) Run(ctx context.Context) {
	log.Trace("Starting connection manager")

	// Start the connection handler goroutine.
	cm.wg.Add(1)
	go cm.connHandler(ctx)

	// Shutdown the connection manager when the context is canceled.
	cm.wg.Add(1)
	go func(ctx context.Context) {
		<-ctx.Done()
		close(cm.quit)
		cm.wg.Done()
	}(ctx)

	cm.wg.Wait()
	log.Trace("Connection manager stopped")
}

// New returns a new connection manager with the provided configuration.
//
// Use Run to start connecting to the network.
func New(cfg *Config) (*ConnManager, error) {
	if cfg.Dial == nil {
		return nil, MakeError(ErrDialNil, "dial can't be nil")
	}
	if cfg.AddrBook == nil {
		return nil, MakeError(ErrAddrBookNil, "address book can't be nil")
	}
	// Default to sane values
	if cfg.MinPeers == 0 {
		cfg.MinPeers = defaultMinPeers
	}
	if cfg.MaxPeers == 0 {
		cfg.MaxPeers = defaultMaxPeers
	}
	if cfg.MinPeers > cfg.MaxPeers {
		str := fmt.Sprintf("min peers %d exceeds max peers %d", cfg.MinPeers,
			cfg.MaxPeers)
		return nil, MakeError(ErrInvalidPeerLimits, str)
	}
	if cfg.MaintenanceInterval <= 0 {
		cfg.MaintenanceInterval = defaultMaintenanceInterval
	}
	if cfg.FailedDialCooldown <= 0 {
		cfg.FailedDialCooldown = defaultFailedDialCooldown
	}
	if cfg.RetryDuration <= 0 {
		cfg.RetryDuration = defaultRetryDuration
	}
	if cfg.Session == nil {
		cfg.Session = drainSession
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	cm := ConnManager{
		cfg:         *cfg, // Copy so caller can't mutate
		metrics:     newMetrics(cfg.Registerer),
		requests:    make(chan interface{}),
		quit:        make(chan struct{}),
		pending:     make(map[addrmgr.NetAddress]*pendingConn),
		conns:       make(map[addrmgr.NetAddress]*liveConn),
		retries:     make(map[addrmgr.NetAddress]*retryState),
		failedDials: lru.NewMap[addrmgr.NetAddress, time.Time](failedDialCacheSize),
	}
	return &cm, nil
}
