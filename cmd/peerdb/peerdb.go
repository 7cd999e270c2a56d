// Copyright (c) 2020-2025 The Decred developers
// Copyright (c) 2026 The p2poold developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// peerdb prints the peers stored in a p2poold peer database ordered by their
// current score.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dashpool/p2poold/addrmgr"
	flags "github.com/jessevdk/go-flags"
)

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}

func usage(parser *flags.Parser) {
	parser.WriteHelp(os.Stderr)
	os.Exit(2)
}

type config struct {
	Network   string `short:"n" description:"network the database belongs to (one of: mainnet, testnet3, regtest)"`
	Limit     int    `short:"l" description:"only print the given number of best scoring peers; 0 prints all"`
	Source    string `short:"s" description:"only print peers learned from the given source"`
	Protected bool   `short:"p" description:"only print protected peers"`
}

// scoredRecord is a peer record along with the score it had when the database
// was read.
type scoredRecord struct {
	addrmgr.PeerRecord
	score float64
}

// rankPeers returns the records that pass the filters of the provided config
// ordered from the highest to the lowest score.
func rankPeers(cfg *config, recs []addrmgr.PeerRecord, now time.Time) []scoredRecord {
	ranked := make([]scoredRecord, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		if cfg.Source != "" && rec.Source != addrmgr.Source(cfg.Source) {
			continue
		}
		if cfg.Protected && !rec.Protected {
			continue
		}
		ranked = append(ranked, scoredRecord{*rec, addrmgr.Score(rec, now)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].Addr.Key() < ranked[j].Addr.Key()
	})
	if cfg.Limit > 0 && len(ranked) > cfg.Limit {
		ranked = ranked[:cfg.Limit]
	}
	return ranked
}

// writePeers writes a table of the provided records to w.
func writePeers(w io.Writer, ranked []scoredRecord, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tSCORE\tSOURCE\tPROTECTED\tOK\tFAILED\tLAST SEEN")
	for _, r := range ranked {
		score := fmt.Sprintf("%.2f", r.score)
		if r.score == addrmgr.MaxScore {
			score = "max"
		}
		lastSeen := now.Sub(r.LastSeen).Truncate(time.Second)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%d\t%d\t%v ago\n", r.Addr,
			score, r.Source, r.Protected, r.SuccessfulBroadcasts,
			r.FailedBroadcasts, lastSeen)
	}
	return tw.Flush()
}

func main() {
	cfg := config{
		Network: "mainnet",
	}
	parser := flags.NewParser(&cfg, flags.Default)
	parser.Usage = "[OPTIONS] peers-file"
	args, err := parser.Parse()
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) {
			if e.Type != flags.ErrHelp {
				os.Exit(1)
			}
			os.Exit(0)
		}
		os.Exit(1)
	}

	if len(args) != 1 {
		usage(parser)
	}
	if cfg.Limit < 0 {
		fatalf("-l must not be negative\n")
	}
	if cfg.Source != "" && !addrmgr.Source(cfg.Source).IsValid() {
		fatalf("unknown source %q\n", cfg.Source)
	}

	store, bootstrapped, err := addrmgr.LoadPeers(args[0], cfg.Network)
	if err != nil {
		fatalf("%v\n", err)
	}

	now := time.Now()
	ranked := rankPeers(&cfg, store.Snapshot(), now)
	fmt.Printf("%d known peers, bootstrapped %v\n\n", store.Size(),
		bootstrapped)
	if err := writePeers(os.Stdout, ranked, now); err != nil {
		fatalf("%v\n", err)
	}
}
