// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	// dumpAddressInterval is the interval used to dump the address cache to
	// disk for future use.
	dumpAddressInterval = time.Minute * 10

	// needAddressThreshold is the number of addresses under which the
	// address manager will claim to need more addresses.
	needAddressThreshold = 64

	// DefaultMaxKnownPeers is the default number of peers the address
	// manager keeps before it starts evicting poorly scoring ones.
	DefaultMaxKnownPeers = 2000
)

// Config houses the configuration of an address manager.
type Config struct {
	// DataDir is the directory the peer database is stored in.
	DataDir string

	// Network names the network the peers belong to.  It is part of the
	// database filename so multiple networks never share a database.
	Network string

	// LocalAddresses are the addresses this node listens on.  They are never
	// added to the address manager.
	LocalAddresses []NetAddress

	// MaxKnownPeers bounds the number of known peers.  Defaults to
	// DefaultMaxKnownPeers.
	MaxKnownPeers int

	// Scoring overrides the default scoring parameters when set.
	Scoring *ScoringParams

	// Clock is the time source.  Defaults to the wall clock.
	Clock clock.Clock
}

// AddrManager provides a concurrency safe address manager for caching potential
// peers on the network along with their connection history.
type AddrManager struct {
	// mtx is used to ensure safe concurrent access to fields on an instance
	// of the address manager.
	mtx sync.Mutex

	// peersFile is the path of file that the address manager's serialized state
	// is saved to and loaded from.
	peersFile string
	network   string

	clock      clock.Clock
	scoring    ScoringParams
	maxKnown   int
	localAddrs map[NetAddress]struct{}

	// store holds every known peer.
	store *PeerStore

	// connected tracks the peers that currently have a live session.  They
	// are never evicted to make room for new peers.
	connected map[NetAddress]struct{}

	// bootstrapped signals whether the initial bootstrap discovery completed.
	bootstrapped bool

	// changes counts the modifications made to the persisted state while
	// savedChanges is its value as of the last successful save.  The state
	// needs to be saved when they differ.
	changes      uint64
	savedChanges uint64

	// saveMtx serializes writers of the peers file.
	saveMtx sync.Mutex

	// started signals whether the address manager has been started.  Its value
	// is 1 or more if started.
	started int32

	// shutdown signals whether a shutdown of the address manager has been
	// initiated.  Its value is 1 or more if a shutdown is done or in progress.
	shutdown int32

	// The following fields are used for lifecycle management of the
	// address manager.
	wg       sync.WaitGroup
	quit     chan struct{}
	saveErrs chan error
}

// New returns a new address manager with the provided configuration.  Use
// Load to read previously known peers and Start to begin periodically saving
// them.
func New(cfg *Config) *AddrManager {
	am := AddrManager{
		peersFile:  PeersFilePath(cfg.DataDir, cfg.Network),
		network:    cfg.Network,
		clock:      cfg.Clock,
		scoring:    DefaultScoringParams,
		maxKnown:   cfg.MaxKnownPeers,
		localAddrs: make(map[NetAddress]struct{}, len(cfg.LocalAddresses)),
		store:      NewPeerStore(),
		connected:  make(map[NetAddress]struct{}),
		quit:       make(chan struct{}),
		saveErrs:   make(chan error, 1),
	}
	if am.clock == nil {
		am.clock = clock.New()
	}
	if cfg.Scoring != nil {
		am.scoring = *cfg.Scoring
	}
	if am.maxKnown <= 0 {
		am.maxKnown = DefaultMaxKnownPeers
	}
	for _, na := range cfg.LocalAddresses {
		am.localAddrs[na] = struct{}{}
	}
	return &am
}

// PeersFile returns the path of the peer database.
func (a *AddrManager) PeersFile() string {
	return a.peersFile
}

// Load replaces the known peers with those stored in the peer database.  A
// missing database is not an error.  A database that can not be read results
// in an error of kind ErrDatabaseCorrupt and leaves the known peers untouched.
//
// Protection is not restored from the database.  The trusted peer of the
// current run must be registered with RegisterTrusted after loading.  Peers
// beyond the configured capacity are dropped, lowest scoring first.
//
// This function is safe for concurrent access.
func (a *AddrManager) Load() error {
	store, bootstrapped, err := LoadPeers(a.peersFile, a.network)
	if err != nil {
		return err
	}

	var modified bool
	for _, rec := range store.records {
		if rec.Protected {
			rec.Protected = false
			modified = true
		}
	}
	now := a.clock.Now()
	var dropped int
	for store.Size() > a.maxKnown {
		victim, _ := store.evictionCandidate(&a.scoring, now, nil)
		if victim == nil {
			break
		}
		store.Remove(victim.Addr)
		dropped++
		modified = true
	}
	if dropped > 0 {
		log.Infof("Dropped %d addresses exceeding the capacity of %d",
			dropped, a.maxKnown)
	}

	a.mtx.Lock()
	a.store = store
	a.bootstrapped = bootstrapped
	a.savedChanges = a.changes
	if modified {
		a.changes++
	}
	numAddrs := a.store.Size()
	a.mtx.Unlock()

	log.Infof("Loaded %d addresses from file '%s'", numAddrs, a.peersFile)
	return nil
}

// DiscardCorruptDatabase moves an unreadable peer database aside so that the
// address manager can continue with an empty set of known peers.  The next
// save writes a fresh database.
func (a *AddrManager) DiscardCorruptDatabase() error {
	a.saveMtx.Lock()
	defer a.saveMtx.Unlock()

	if err := quarantineCorrupt(a.peersFile); err != nil {
		return err
	}
	log.Warnf("Moved unreadable peer database to %s.corrupt", a.peersFile)

	a.mtx.Lock()
	a.changes++
	a.mtx.Unlock()
	return nil
}

// addressHandler is the main handler for the address manager.  It must be run
// as a goroutine.
func (a *AddrManager) addressHandler() {
	dumpAddressTicker := a.clock.Ticker(dumpAddressInterval)
	defer dumpAddressTicker.Stop()
out:
	for {
		select {
		case <-dumpAddressTicker.C:
			if err := a.Save(); err != nil {
				log.Errorf("Unable to save peers: %v", err)
			}

		case <-a.quit:
			break out
		}
	}
	a.saveErrs <- a.Save()
	a.wg.Done()
	log.Trace("Address handler done")
}

// Save writes the known peers and bootstrap flag to the peer database when
// they changed since the last save.  The in-memory state is not affected by a
// failed save.
//
// This function is safe for concurrent access.
func (a *AddrManager) Save() error {
	a.saveMtx.Lock()
	defer a.saveMtx.Unlock()

	a.mtx.Lock()
	if a.changes == a.savedChanges {
		// Nothing changed since last save.
		a.mtx.Unlock()
		return nil
	}
	recs := a.store.Snapshot()
	bootstrapped := a.bootstrapped
	changes := a.changes
	a.mtx.Unlock()

	if err := SavePeers(a.peersFile, a.network, recs, bootstrapped); err != nil {
		return err
	}

	a.mtx.Lock()
	a.savedChanges = changes
	a.mtx.Unlock()
	log.Debugf("Saved %d addresses to %s", len(recs), a.peersFile)
	return nil
}

// Start begins the core address handler which periodically saves the known
// peers.  If the address manager is starting or has already been started,
// invoking this method has no effect.
//
// This function is safe for concurrent access.
func (a *AddrManager) Start() {
	// Return early if the address manager has already been started.
	if atomic.AddInt32(&a.started, 1) != 1 {
		return
	}

	log.Trace("Starting address manager")

	// Start the address ticker to save addresses periodically.
	a.wg.Add(1)
	go a.addressHandler()
}

// Stop gracefully shuts down the address manager by stopping the main handler
// which saves the known peers one final time.  The result of that save is
// returned.
//
// This function is safe for concurrent access.
func (a *AddrManager) Stop() error {
	// Return early if the address manager has already been stopped.
	if atomic.AddInt32(&a.shutdown, 1) != 1 {
		log.Warnf("Address manager is already in the process of shutting down")
		return nil
	}

	log.Infof("Address manager shutting down")
	close(a.quit)
	a.wg.Wait()
	if atomic.LoadInt32(&a.started) == 0 {
		return a.Save()
	}
	return <-a.saveErrs
}

// isLocal returns whether the address is one the local node listens on.
func (a *AddrManager) isLocal(na NetAddress) bool {
	_, ok := a.localAddrs[na]
	return ok
}

// isConnected returns whether the address has a live session.
//
// This function MUST be called with the address manager lock held (for reads).
func (a *AddrManager) isConnected(na NetAddress) bool {
	_, ok := a.connected[na]
	return ok
}

// addAddress merges a sighting of the provided address into the known peers,
// evicting a poorly scoring peer when the address manager is at capacity.  It
// returns whether a new record was created.
//
// This function MUST be called with the address manager lock held (for writes).
func (a *AddrManager) addAddress(na NetAddress, source Source) (bool, error) {
	if a.isLocal(na) {
		str := fmt.Sprintf("address %v belongs to the local node", na)
		return false, makeError(ErrSelfAddress, str)
	}

	now := a.clock.Now()
	if a.store.lookup(na) == nil && a.store.Size() >= a.maxKnown {
		if !a.makeRoom(na, source, now) {
			log.Tracef("Ignoring %v: address manager is full", na)
			return false, nil
		}
	}

	_, created := a.store.Upsert(na, source, now)
	a.changes++
	return created, nil
}

// makeRoom evicts the lowest scoring peer that is neither protected nor
// connected when it scores lower than the provided address would as a new
// peer.  It returns whether room was made.
//
// This function MUST be called with the address manager lock held (for writes).
func (a *AddrManager) makeRoom(na NetAddress, source Source, now time.Time) bool {
	victim, victimScore := a.store.evictionCandidate(&a.scoring, now,
		a.isConnected)
	if victim == nil {
		return false
	}
	newcomerScore := a.scoring.Score(newPeerRecord(na, source, now), now)
	if victimScore >= newcomerScore {
		return false
	}
	log.Debugf("Evicting %v (score %.2f) to make room for %v", victim.Addr,
		victimScore, na)
	a.store.Remove(victim.Addr)
	a.changes++
	return true
}

// AddAddresses adds the provided addresses to the address manager with the
// provided source and returns the number of previously unknown addresses.
// Addresses that are already known only have their last seen time updated.
//
// This function is safe for concurrent access.
func (a *AddrManager) AddAddresses(addrs []NetAddress, source Source) int {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	var added int
	for _, na := range addrs {
		created, err := a.addAddress(na, source)
		if err != nil {
			log.Debugf("Ignoring address: %v", err)
			continue
		}
		if created {
			added++
		}
	}
	return added
}

// AddAddress adds the provided address to the address manager with the
// provided source.  It returns whether the address was previously unknown.
//
// This function is safe for concurrent access.
func (a *AddrManager) AddAddress(na NetAddress, source Source) (bool, error) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.addAddress(na, source)
}

// RegisterTrusted marks the provided address as the trusted peer.  The peer
// is added when unknown.  Trusted peers are protected: they always score at
// MaxScore and are never evicted or disconnected.
//
// This function is safe for concurrent access.
func (a *AddrManager) RegisterTrusted(na NetAddress) error {
	if !na.IsValid() {
		str := fmt.Sprintf("trusted address %v is not valid", na)
		return makeError(ErrMalformedAddress, str)
	}

	a.mtx.Lock()
	defer a.mtx.Unlock()

	rec := a.store.lookup(na)
	if rec == nil {
		rec = newPeerRecord(na, SourceBootstrap, a.clock.Now())
		a.store.records[na] = rec
	} else if rec.Source == SourceTest {
		rec.Source = SourceBootstrap
	}
	if !rec.Protected {
		rec.Protected = true
		a.changes++
		log.Infof("Registered trusted peer %v", na)
	}
	return nil
}

// RemoveAddress removes the provided address from the known peers.  Protected
// peers can not be removed.
//
// This function is safe for concurrent access.
func (a *AddrManager) RemoveAddress(na NetAddress) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	rec := a.store.lookup(na)
	if rec == nil {
		str := fmt.Sprintf("address %v not found", na)
		return makeError(ErrAddressNotFound, str)
	}
	if rec.Protected {
		str := fmt.Sprintf("address %v is protected", na)
		return makeError(ErrProtectedPeer, str)
	}
	a.store.Remove(na)
	a.changes++
	return nil
}

// Record returns a copy of the record for the provided address.
//
// This function is safe for concurrent access.
func (a *AddrManager) Record(na NetAddress) (PeerRecord, bool) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.store.Get(na)
}

// Records returns a point-in-time copy of all known peers.
//
// This function is safe for concurrent access.
func (a *AddrManager) Records() []PeerRecord {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.store.Snapshot()
}

// Score returns the current score of the provided record.
//
// This function is safe for concurrent access.
func (a *AddrManager) Score(rec *PeerRecord) float64 {
	return a.scoring.Score(rec, a.clock.Now())
}

// NumAddresses returns the number of addresses known to the address manager.
//
// This function is safe for concurrent access.
func (a *AddrManager) NumAddresses() int {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.store.Size()
}

// NeedMoreAddresses returns whether or not the address manager needs more
// addresses.
//
// This function is safe for concurrent access.
func (a *AddrManager) NeedMoreAddresses() bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.store.Size() < needAddressThreshold
}

// IsLocalAddress returns whether the address is one the local node listens on.
func (a *AddrManager) IsLocalAddress(na NetAddress) bool {
	return a.isLocal(na)
}

// Bootstrapped returns whether the initial bootstrap discovery completed.
//
// This function is safe for concurrent access.
func (a *AddrManager) Bootstrapped() bool {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	return a.bootstrapped
}

// SetBootstrapped records whether the initial bootstrap discovery completed.
//
// This function is safe for concurrent access.
func (a *AddrManager) SetBootstrapped(bootstrapped bool) {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	if a.bootstrapped != bootstrapped {
		a.bootstrapped = bootstrapped
		a.changes++
	}
}

// Connected marks the provided address as having a live session and updates
// its last seen time.
//
// This function is safe for concurrent access.
func (a *AddrManager) Connected(na NetAddress) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	rec := a.store.lookup(na)
	if rec == nil {
		str := fmt.Sprintf("address %v not found", na)
		return makeError(ErrAddressNotFound, str)
	}
	a.connected[na] = struct{}{}
	if t := roundTime(a.clock.Now()); t.After(rec.LastSeen) {
		rec.LastSeen = t
	}
	a.changes++
	return nil
}

// Disconnected records the end of the live session with the provided address.
// A graceful end counts as a successful session and updates the last seen
// time, otherwise it counts as a failed one.
//
// This function is safe for concurrent access.
func (a *AddrManager) Disconnected(na NetAddress, graceful bool) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	delete(a.connected, na)
	rec := a.store.lookup(na)
	if rec == nil {
		str := fmt.Sprintf("address %v not found", na)
		return makeError(ErrAddressNotFound, str)
	}
	if graceful {
		rec.SuccessfulBroadcasts++
		if t := roundTime(a.clock.Now()); t.After(rec.LastSeen) {
			rec.LastSeen = t
		}
	} else {
		rec.FailedBroadcasts++
	}
	a.changes++
	return nil
}

// Released records the end of the live session with the provided address
// without counting it as a successful or failed session.  It is used when the
// local node ends sessions for reasons unrelated to the peer, such as
// shutting down.
//
// This function is safe for concurrent access.
func (a *AddrManager) Released(na NetAddress) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	delete(a.connected, na)
	if a.store.lookup(na) == nil {
		str := fmt.Sprintf("address %v not found", na)
		return makeError(ErrAddressNotFound, str)
	}
	return nil
}

// Failed records a failed connection attempt to the provided address.
//
// This function is safe for concurrent access.
func (a *AddrManager) Failed(na NetAddress) error {
	a.mtx.Lock()
	defer a.mtx.Unlock()

	rec := a.store.lookup(na)
	if rec == nil {
		str := fmt.Sprintf("address %v not found", na)
		return makeError(ErrAddressNotFound, str)
	}
	rec.FailedBroadcasts++
	a.changes++
	return nil
}
