package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"edchain/internal/directory"
)

type fakeFinder struct {
	byReg map[string]directory.StudentRecord
	err   error
}

func (f *fakeFinder) FindByRegistrationNumber(ctx context.Context, reg string) (directory.StudentRecord, error) {
	if f.err != nil {
		return directory.StudentRecord{}, f.err
	}
	rec, ok := f.byReg[reg]
	if !ok {
		return directory.StudentRecord{}, directory.ErrNotFound
	}
	return rec, nil
}

func TestAuthenticateTeacher(t *testing.T) {
	g := NewGate("prof", "s3cret", nil)

	cases := []struct {
		name     string
		username string
		password string
		wantErr  bool
	}{
		{"correct", "prof", "s3cret", false},
		{"wrong password", "prof", "nope", true},
		{"wrong username", "admin", "s3cret", true},
		{"both wrong", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := g.AuthenticateTeacher(tc.username, tc.password)
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr = %v", err, tc.wantErr)
			}
			if tc.wantErr && !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestAuthenticateTeacherIdempotent(t *testing.T) {
	g := NewGate("prof", "s3cret", nil)
	for i := 0; i < 5; i++ {
		if err := g.AuthenticateTeacher("prof", "s3cret"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
}

func TestAuthenticateStudent(t *testing.T) {
	finder := &fakeFinder{byReg: map[string]directory.StudentRecord{
		"R1": {Name: "Alice", RegistrationNumber: "R1", WalletAddress: "0xaa"},
	}}
	g := NewGate("prof", "s3cret", finder)

	rec, err := g.AuthenticateStudent(context.Background(), "R1")
	if err != nil {
		t.Fatalf("AuthenticateStudent: %v", err)
	}
	if rec.Name != "Alice" || rec.WalletAddress != "0xaa" {
		t.Errorf("rec = %+v", rec)
	}

	// registration numbers compare case-sensitively
	if _, err := g.AuthenticateStudent(context.Background(), "r1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestAuthenticateStudentOutagePassesThrough(t *testing.T) {
	finder := &fakeFinder{err: fmt.Errorf("%w: no reachable servers", directory.ErrUnavailable)}
	g := NewGate("prof", "s3cret", finder)

	_, err := g.AuthenticateStudent(context.Background(), "R1")
	if errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("store outage must not look like a failed login")
	}
	if !errors.Is(err, directory.ErrUnavailable) {
		t.Errorf("err = %v, want directory.ErrUnavailable", err)
	}
}
