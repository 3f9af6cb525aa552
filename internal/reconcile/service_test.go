package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"edchain/internal/directory"
	"edchain/internal/ledger"
)

type fakeLedger struct {
	assignments []ledger.Assignment
	submissions []ledger.Submission
	countErr    error
	atErr       error
}

func (f *fakeLedger) AssignmentCount(ctx context.Context) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return uint64(len(f.assignments)), nil
}

func (f *fakeLedger) AssignmentAt(ctx context.Context, i uint64) (ledger.Assignment, error) {
	if f.atErr != nil {
		return ledger.Assignment{}, f.atErr
	}
	if i == 0 || i > uint64(len(f.assignments)) {
		return ledger.Assignment{}, fmt.Errorf("index %d out of range", i)
	}
	return f.assignments[i-1], nil
}

func (f *fakeLedger) SubmissionCount(ctx context.Context) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return uint64(len(f.submissions)), nil
}

func (f *fakeLedger) SubmissionAt(ctx context.Context, i uint64) (ledger.Submission, error) {
	if f.atErr != nil {
		return ledger.Submission{}, f.atErr
	}
	if i == 0 || i > uint64(len(f.submissions)) {
		return ledger.Submission{}, fmt.Errorf("index %d out of range", i)
	}
	return f.submissions[i-1], nil
}

type fakeDirectory struct {
	byWallet map[string]directory.StudentRecord
	err      error
}

func (f *fakeDirectory) FindByWallet(ctx context.Context, wallet string) (directory.StudentRecord, error) {
	if f.err != nil {
		return directory.StudentRecord{}, f.err
	}
	rec, ok := f.byWallet[directory.NormalizeWallet(wallet)]
	if !ok {
		return directory.StudentRecord{}, directory.ErrNotFound
	}
	return rec, nil
}

func TestSubmissionsEmptyLedger(t *testing.T) {
	svc := NewService(&fakeLedger{}, &fakeDirectory{})
	out, err := svc.Submissions(context.Background())
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	if out == nil || len(out) != 0 {
		t.Errorf("want empty non-nil slice, got %#v", out)
	}
}

func TestSubmissionsEnrichesAndDegrades(t *testing.T) {
	l := &fakeLedger{submissions: []ledger.Submission{
		{AssignmentID: 1, Student: "0xaa", FileHash: "Qm1", Timestamp: 1000},
		{AssignmentID: 2, Student: "0xbb", FileHash: "Qm2", Timestamp: 2000},
	}}
	d := &fakeDirectory{byWallet: map[string]directory.StudentRecord{
		"0xaa": {Name: "Alice", RegistrationNumber: "R1", WalletAddress: "0xaa"},
	}}

	out, err := NewService(l, d).Submissions(context.Background())
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	want := []Submission{
		{AssignmentID: 1, WalletAddress: "0xaa", StudentName: "Alice", RegistrationNumber: "R1", FileHash: "Qm1", Timestamp: 1000},
		{AssignmentID: 2, WalletAddress: "0xbb", StudentName: UnknownName, RegistrationNumber: UnknownRegistration, FileHash: "Qm2", Timestamp: 2000},
	}
	if len(out) != len(want) {
		t.Fatalf("got %d rows, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, out[i], want[i])
		}
	}
}

func TestSubmissionsPreserveLedgerOrder(t *testing.T) {
	var subs []ledger.Submission
	for i := 1; i <= 7; i++ {
		subs = append(subs, ledger.Submission{
			AssignmentID: uint64(8 - i), // deliberately not monotonic
			Student:      fmt.Sprintf("0x%02d", i%3),
			FileHash:     fmt.Sprintf("Qm%d", i),
			Timestamp:    int64(1000 * i),
		})
	}
	out, err := NewService(&fakeLedger{submissions: subs}, &fakeDirectory{}).Submissions(context.Background())
	if err != nil {
		t.Fatalf("Submissions: %v", err)
	}
	for i := range subs {
		if out[i].FileHash != subs[i].FileHash {
			t.Errorf("row %d = %s, want %s (ledger append order)", i, out[i].FileHash, subs[i].FileHash)
		}
	}
}

func TestSubmissionsAbortOnDirectoryOutage(t *testing.T) {
	l := &fakeLedger{submissions: []ledger.Submission{
		{AssignmentID: 1, Student: "0xaa", FileHash: "Qm1", Timestamp: 1000},
	}}
	d := &fakeDirectory{err: fmt.Errorf("%w: connection reset", directory.ErrUnavailable)}

	_, err := NewService(l, d).Submissions(context.Background())
	if !errors.Is(err, directory.ErrUnavailable) {
		t.Fatalf("err = %v, want directory.ErrUnavailable (no partial data)", err)
	}
}

func TestSubmissionsAbortOnLedgerOutage(t *testing.T) {
	l := &fakeLedger{countErr: fmt.Errorf("%w: dial tcp", ledger.ErrUnavailable)}
	_, err := NewService(l, &fakeDirectory{}).Submissions(context.Background())
	if !errors.Is(err, ledger.ErrUnavailable) {
		t.Fatalf("err = %v, want ledger.ErrUnavailable", err)
	}
}

func TestAssignmentsWalk(t *testing.T) {
	l := &fakeLedger{assignments: []ledger.Assignment{
		{ID: 1, Description: "first", Deadline: 100, IsActive: true},
		{ID: 2, Description: "second", Deadline: 200, IsActive: false},
	}}
	out, err := NewService(l, &fakeDirectory{}).Assignments(context.Background())
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(out) != 2 || out[0].ID != 1 || out[1].ID != 2 {
		t.Errorf("out = %+v", out)
	}
}
