package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"edchain/internal/directory"
)

// DriftStore records wallets that are visible on the ledger but missing
// from the directory.
type DriftStore interface {
	ReplaceDrift(ctx context.Context, wallets []string) error
}

var driftGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "edchain_directory_drift_wallets",
	Help: "Ledger submitter wallets with no directory entry, per last sweep.",
})

// Sweeper diffs ledger submitter wallets against the directory. The
// authorize path writes the ledger and the directory without a transaction,
// so the two can drift; the sweep makes the gap observable instead of
// assuming atomicity. Identity fields cannot be invented, so no automatic
// backfill happens here.
type Sweeper struct {
	ledger Ledger
	dir    Directory
	drift  DriftStore
}

// NewSweeper creates a sweeper. drift may be nil, in which case results are
// only returned, not stored.
func NewSweeper(l Ledger, d Directory, drift DriftStore) *Sweeper {
	return &Sweeper{ledger: l, dir: d, drift: drift}
}

// Run walks all submissions and returns the sorted set of submitter wallets
// that have no directory entry, updating the drift store on the way out.
func (s *Sweeper) Run(ctx context.Context) ([]string, error) {
	count, err := s.ledger.SubmissionCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: submission count: %w", err)
	}

	seen := make(map[string]bool)
	var missing []string
	for i := uint64(1); i <= count; i++ {
		sub, err := s.ledger.SubmissionAt(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("sweep: submission %d: %w", i, err)
		}
		if seen[sub.Student] {
			continue
		}
		seen[sub.Student] = true

		_, err = s.dir.FindByWallet(ctx, sub.Student)
		switch {
		case err == nil:
		case errors.Is(err, directory.ErrNotFound):
			missing = append(missing, sub.Student)
		default:
			return nil, fmt.Errorf("sweep: resolve wallet %s: %w", sub.Student, err)
		}
	}

	sort.Strings(missing)
	driftGauge.Set(float64(len(missing)))
	if s.drift != nil {
		if err := s.drift.ReplaceDrift(ctx, missing); err != nil {
			return nil, fmt.Errorf("sweep: store drift: %w", err)
		}
	}
	return missing, nil
}
