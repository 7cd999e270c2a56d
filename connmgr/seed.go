// Copyright (c) 2016 The btcsuite developers
// Copyright (c) 2019 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package connmgr

import (
	"context"
	"fmt"
	"net/netip"
	"sync/atomic"

	"github.com/dashpool/p2poold/addrmgr"
	"github.com/decred/dcrd/crypto/rand"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentSeeds is the maximum number of DNS seeds queried at once.
const maxConcurrentSeeds = 8

// OnSeed is the signature of the callback function which is invoked when DNS
// seeding is successful.  It may be invoked concurrently.
type OnSeed func(addrs []addrmgr.NetAddress)

// LookupFunc is the signature of the DNS lookup function.
type LookupFunc func(ctx context.Context, host string) ([]netip.Addr, error)

// SeedFromDNS queries the provided DNS seeds concurrently and invokes the seed
// callback with the addresses each of them returned using the default port of
// the network.  It blocks until every seed answered or the context is
// canceled and returns the total number of addresses found.
//
// A seed that fails to answer is logged and skipped.  An error of kind
// ErrNoSeedResults is returned when no seed returned any addresses.
func SeedFromDNS(ctx context.Context, dnsSeeds []string, defaultPort uint16,
	lookupFn LookupFunc, seedFn OnSeed) (int, error) {

	var total atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSeeds)
	for _, seed := range dnsSeeds {
		host := seed
		g.Go(func() error {
			seedIPs, err := lookupFn(gctx, host)
			if err != nil {
				log.Infof("DNS discovery failed on seed %s: %v", host, err)
				return nil
			}

			addrs := make([]addrmgr.NetAddress, 0, len(seedIPs))
			for _, ip := range seedIPs {
				na, err := addrmgr.NewNetAddress(ip.Unmap().String(),
					int(defaultPort))
				if err != nil {
					log.Debugf("Ignoring address from DNS seed %s: %v",
						host, err)
					continue
				}
				addrs = append(addrs, na)
			}
			log.Infof("%d addresses found from DNS seed %s", len(addrs), host)
			if len(addrs) == 0 {
				return nil
			}

			rand.Shuffle(len(addrs), func(i, j int) {
				addrs[i], addrs[j] = addrs[j], addrs[i]
			})
			seedFn(addrs)
			total.Add(int64(len(addrs)))
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return int(total.Load()), err
	}
	if total.Load() == 0 {
		str := fmt.Sprintf("no addresses found from %d DNS seeds",
			len(dnsSeeds))
		return 0, MakeError(ErrNoSeedResults, str)
	}
	return int(total.Load()), nil
}
