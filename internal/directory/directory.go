package directory

import (
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StudentRecord is the off-chain identity for an authorized wallet.
// Records are created when the teacher authorizes a student and are
// never mutated afterwards.
type StudentRecord struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	Name               string             `bson:"name" json:"name"`
	RegistrationNumber string             `bson:"registrationNumber" json:"registrationNumber"`
	WalletAddress      string             `bson:"walletAddress" json:"walletAddress"`
	CreatedAt          time.Time          `bson:"createdAt" json:"-"`
}

var (
	// ErrDuplicate means the registration number or wallet is already taken.
	ErrDuplicate = errors.New("directory: duplicate student")
	// ErrNotFound means the lookup matched no record. Distinct from
	// ErrUnavailable so callers can degrade on a miss but abort on an outage.
	ErrNotFound = errors.New("directory: student not found")
	// ErrUnavailable means the store could not be reached.
	ErrUnavailable = errors.New("directory: store unavailable")
)

// NormalizeWallet lower-cases a wallet address. Wallet addresses are
// case-insensitive keys; every ingestion point normalizes through here.
func NormalizeWallet(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
