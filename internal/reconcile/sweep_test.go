package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"edchain/internal/directory"
	"edchain/internal/ledger"
)

type fakeDrift struct {
	stored []string
	err    error
}

func (f *fakeDrift) ReplaceDrift(ctx context.Context, wallets []string) error {
	if f.err != nil {
		return f.err
	}
	f.stored = wallets
	return nil
}

func TestSweepFlagsUnregisteredWallets(t *testing.T) {
	l := &fakeLedger{submissions: []ledger.Submission{
		{AssignmentID: 1, Student: "0xcc", FileHash: "Qm1", Timestamp: 1},
		{AssignmentID: 1, Student: "0xaa", FileHash: "Qm2", Timestamp: 2},
		{AssignmentID: 2, Student: "0xcc", FileHash: "Qm3", Timestamp: 3}, // duplicate wallet
		{AssignmentID: 2, Student: "0xbb", FileHash: "Qm4", Timestamp: 4},
	}}
	d := &fakeDirectory{byWallet: map[string]directory.StudentRecord{
		"0xaa": {Name: "Alice", RegistrationNumber: "R1", WalletAddress: "0xaa"},
	}}
	drift := &fakeDrift{}

	missing, err := NewSweeper(l, d, drift).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"0xbb", "0xcc"}
	if len(missing) != 2 || missing[0] != want[0] || missing[1] != want[1] {
		t.Errorf("missing = %v, want %v (sorted, deduplicated)", missing, want)
	}
	if len(drift.stored) != 2 {
		t.Errorf("drift store not updated: %v", drift.stored)
	}
}

func TestSweepEmptyLedger(t *testing.T) {
	drift := &fakeDrift{stored: []string{"stale"}}
	missing, err := NewSweeper(&fakeLedger{}, &fakeDirectory{}, drift).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("missing = %v", missing)
	}
	if len(drift.stored) != 0 {
		t.Errorf("stale drift should be replaced, got %v", drift.stored)
	}
}

func TestSweepAbortsOnOutage(t *testing.T) {
	l := &fakeLedger{submissions: []ledger.Submission{{Student: "0xaa"}}}
	d := &fakeDirectory{err: fmt.Errorf("%w: timeout", directory.ErrUnavailable)}
	_, err := NewSweeper(l, d, &fakeDrift{}).Run(context.Background())
	if !errors.Is(err, directory.ErrUnavailable) {
		t.Fatalf("err = %v, want directory.ErrUnavailable", err)
	}
}

func TestSweepNilDriftStore(t *testing.T) {
	l := &fakeLedger{submissions: []ledger.Submission{{Student: "0xdd"}}}
	missing, err := NewSweeper(l, &fakeDirectory{}, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(missing) != 1 || missing[0] != "0xdd" {
		t.Errorf("missing = %v", missing)
	}
}
