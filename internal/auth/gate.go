package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"edchain/internal/directory"
)

// ErrInvalidCredentials is returned for any failed login. Surfaced as 401.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// StudentFinder is the directory lookup the student gate needs.
type StudentFinder interface {
	FindByRegistrationNumber(ctx context.Context, registrationNumber string) (directory.StudentRecord, error)
}

// Gate holds the configured teacher credential pair and checks logins.
type Gate struct {
	teacherUsername string
	teacherPassword string
	students        StudentFinder
}

// NewGate creates a gate from the configured teacher pair and a directory.
func NewGate(teacherUsername, teacherPassword string, students StudentFinder) *Gate {
	return &Gate{
		teacherUsername: teacherUsername,
		teacherPassword: teacherPassword,
		students:        students,
	}
}

// AuthenticateTeacher compares the pair against the configured values.
// Pure comparison, no state mutation; repeated calls with the same
// credentials always give the same answer.
func (g *Gate) AuthenticateTeacher(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.teacherUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(g.teacherPassword)) == 1
	if !userOK || !passOK {
		return ErrInvalidCredentials
	}
	return nil
}

// AuthenticateStudent resolves a registration number to a student record.
// This gate checks the registration number only; verifying that the
// connected wallet equals the registered wallet is the caller's job.
// A directory outage is passed through distinct from a failed login.
func (g *Gate) AuthenticateStudent(ctx context.Context, registrationNumber string) (directory.StudentRecord, error) {
	rec, err := g.students.FindByRegistrationNumber(ctx, registrationNumber)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return directory.StudentRecord{}, ErrInvalidCredentials
		}
		return directory.StudentRecord{}, err
	}
	return rec, nil
}
