package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Repository persists student records in the students collection.
type Repository struct {
	col *mongo.Collection
}

// NewRepository creates a repo over the given collection.
func NewRepository(col *mongo.Collection) *Repository {
	return &Repository{col: col}
}

// EnsureIndexes creates the unique indexes backing the directory invariants.
// Safe to call on every startup.
func (r *Repository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "registrationNumber", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "walletAddress", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Register inserts a new student record. The wallet address is stored
// lower-cased. Returns ErrDuplicate when the registration number or wallet
// is already present; the failed insert leaves no partial state behind.
func (r *Repository) Register(ctx context.Context, name, registrationNumber, walletAddress string) (StudentRecord, error) {
	if name == "" || registrationNumber == "" || walletAddress == "" {
		return StudentRecord{}, errors.New("directory: name, registration number and wallet required")
	}
	rec := StudentRecord{
		Name:               name,
		RegistrationNumber: registrationNumber,
		WalletAddress:      NormalizeWallet(walletAddress),
		CreatedAt:          time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return StudentRecord{}, ErrDuplicate
		}
		return StudentRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil
}

// FindByRegistrationNumber looks a student up by registration number.
// Registration numbers compare case-sensitively.
func (r *Repository) FindByRegistrationNumber(ctx context.Context, registrationNumber string) (StudentRecord, error) {
	return r.findOne(ctx, bson.M{"registrationNumber": registrationNumber})
}

// FindByWallet looks a student up by wallet address, normalized before the
// query so mixed-case chain addresses resolve.
func (r *Repository) FindByWallet(ctx context.Context, walletAddress string) (StudentRecord, error) {
	return r.findOne(ctx, bson.M{"walletAddress": NormalizeWallet(walletAddress)})
}

func (r *Repository) findOne(ctx context.Context, filter bson.M) (StudentRecord, error) {
	var rec StudentRecord
	err := r.col.FindOne(ctx, filter).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return StudentRecord{}, ErrNotFound
		}
		return StudentRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil
}

// ListAll returns every student record in insertion order.
func (r *Repository) ListAll(ctx context.Context) ([]StudentRecord, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer cur.Close(ctx)

	var out []StudentRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}
