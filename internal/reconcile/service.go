// Package reconcile joins ledger-resident submission records with directory
// identity records into display-ready rows for the teacher dashboard.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"edchain/internal/directory"
	"edchain/internal/ledger"
)

// Sentinels used when a submitting wallet has no directory entry. A
// submission can legitimately exist on-chain for a wallet never registered
// locally, so a miss enriches with these instead of failing the query.
const (
	UnknownName         = "Unknown"
	UnknownRegistration = "N/A"
)

// Ledger is the read surface of the assignment contract.
type Ledger interface {
	AssignmentCount(ctx context.Context) (uint64, error)
	AssignmentAt(ctx context.Context, i uint64) (ledger.Assignment, error)
	SubmissionCount(ctx context.Context) (uint64, error)
	SubmissionAt(ctx context.Context, i uint64) (ledger.Submission, error)
}

// Directory resolves wallets to student identities.
type Directory interface {
	FindByWallet(ctx context.Context, walletAddress string) (directory.StudentRecord, error)
}

// Submission is the enriched view of one on-chain submission. Derived on
// every query, never persisted.
type Submission struct {
	AssignmentID       uint64 `json:"assignmentId"`
	WalletAddress      string `json:"walletAddress"`
	StudentName        string `json:"studentName"`
	RegistrationNumber string `json:"registrationNumber"`
	FileHash           string `json:"fileHash"`
	Timestamp          int64  `json:"timestamp"`
}

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "edchain_reconcile_runs_total",
		Help: "Reconciliation queries by outcome.",
	}, []string{"outcome"})
	unknownTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "edchain_reconcile_unknown_wallets_total",
		Help: "Submissions whose wallet had no directory entry.",
	})
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "edchain_reconcile_duration_seconds",
		Help:    "Wall time of a full reconciliation walk.",
		Buckets: prometheus.DefBuckets,
	})
)

// Service produces the reconciled submission view.
type Service struct {
	ledger Ledger
	dir    Directory
}

// NewService creates a service over a ledger reader and a directory.
func NewService(l Ledger, d Directory) *Service {
	return &Service{ledger: l, dir: d}
}

// Submissions walks every ledger submission index in order and enriches each
// record with directory identity. Output order equals ledger append order.
// A directory miss degrades to sentinel values; a directory or ledger outage
// fails the whole call rather than returning partial data.
func (s *Service) Submissions(ctx context.Context) ([]Submission, error) {
	start := time.Now()
	out, err := s.submissions(ctx)
	runDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	runsTotal.WithLabelValues("ok").Inc()
	return out, nil
}

func (s *Service) submissions(ctx context.Context) ([]Submission, error) {
	count, err := s.ledger.SubmissionCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("submission count: %w", err)
	}

	out := make([]Submission, 0, count)
	for i := uint64(1); i <= count; i++ {
		sub, err := s.ledger.SubmissionAt(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("submission %d: %w", i, err)
		}

		row := Submission{
			AssignmentID:       sub.AssignmentID,
			WalletAddress:      sub.Student,
			StudentName:        UnknownName,
			RegistrationNumber: UnknownRegistration,
			FileHash:           sub.FileHash,
			Timestamp:          sub.Timestamp,
		}

		student, err := s.dir.FindByWallet(ctx, sub.Student)
		switch {
		case err == nil:
			row.StudentName = student.Name
			row.RegistrationNumber = student.RegistrationNumber
		case errors.Is(err, directory.ErrNotFound):
			unknownTotal.Inc()
		default:
			return nil, fmt.Errorf("resolve wallet %s: %w", sub.Student, err)
		}

		out = append(out, row)
	}
	return out, nil
}

// Assignments walks every ledger assignment index in order.
func (s *Service) Assignments(ctx context.Context) ([]ledger.Assignment, error) {
	count, err := s.ledger.AssignmentCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("assignment count: %w", err)
	}
	out := make([]ledger.Assignment, 0, count)
	for i := uint64(1); i <= count; i++ {
		a, err := s.ledger.AssignmentAt(ctx, i)
		if err != nil {
			return nil, fmt.Errorf("assignment %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}
