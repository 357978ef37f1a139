package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/auth-api/internal/model"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

type accountDocument struct {
	ID               string     `bson:"_id"`
	FirstName        string     `bson:"first_name"`
	LastName         string     `bson:"last_name"`
	Email            string     `bson:"email"`
	PasswordHash     string     `bson:"password_hash,omitempty"`
	ResetTokenHash   *string    `bson:"reset_token_hash"`
	ResetTokenExpiry *time.Time `bson:"reset_token_expiry"`
	Verified         bool       `bson:"verified"`
	CreatedAt        time.Time  `bson:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at"`
}

func (d *accountDocument) public() *model.PublicUser {
	return &model.PublicUser{
		ID:        d.ID,
		FirstName: d.FirstName,
		LastName:  d.LastName,
		Email:     d.Email,
		Verified:  d.Verified,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

type MongoStore struct {
	db    *mongo.Database
	users *mongo.Collection
}

// NewMongoStore wraps db and makes sure the indexes the store relies on exist
func NewMongoStore(ctx context.Context, db *mongo.Database) (*MongoStore, error) {
	users := db.Collection(usersCollection)

	_, err := users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "reset_token_hash", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes, %w", err)
	}

	return &MongoStore{db: db, users: users}, nil
}

func (s *MongoStore) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	_, err := s.users.InsertOne(ctx, accountDocument{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		ResetTokenHash:   u.ResetTokenHash,
		ResetTokenExpiry: u.ResetTokenExpiry,
		Verified:         u.Verified,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrEmailTaken
		}

		return fmt.Errorf("failed to create user, %w", err)
	}

	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*model.PublicUser, error) {
	return s.findPublic(ctx, bson.M{"_id": id})
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	return s.findPublic(ctx, bson.M{"email": email})
}

func (s *MongoStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.PublicUser, error) {
	return s.findPublic(ctx, bson.M{
		"reset_token_hash":   tokenHash,
		"reset_token_expiry": bson.M{"$gt": now.UTC()},
	})
}

func (s *MongoStore) findPublic(ctx context.Context, filter bson.M) (*model.PublicUser, error) {
	var doc accountDocument

	opts := options.FindOne().SetProjection(bson.M{"password_hash": 0})
	if err := s.users.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	return doc.public(), nil
}

func (s *MongoStore) FindCredentials(ctx context.Context, email string) (*model.Credentials, error) {
	var doc accountDocument

	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch credentials, %w", err)
	}

	return &model.Credentials{
		User:         doc.public(),
		PasswordHash: doc.PasswordHash,
	}, nil
}

func (s *MongoStore) SetResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	r, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"reset_token_hash":   tokenHash,
			"reset_token_expiry": expiry.UTC(),
			"updated_at":         time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to store reset token, %w", err)
	}

	if r.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoStore) ClearResetToken(ctx context.Context, id, tokenHash string) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id, "reset_token_hash": tokenHash},
		clearResetToken(bson.M{}),
	)
	if err != nil {
		return fmt.Errorf("failed to clear reset token, %w", err)
	}

	return nil
}

func (s *MongoStore) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	// A single-document update is atomic, matching on hash and expiry makes
	// the token single-use even under concurrent resets
	r, err := s.users.UpdateOne(ctx,
		bson.M{
			"_id":                id,
			"reset_token_hash":   tokenHash,
			"reset_token_expiry": bson.M{"$gt": now.UTC()},
		},
		clearResetToken(bson.M{"password_hash": passwordHash}),
	)
	if err != nil {
		return fmt.Errorf("failed to consume reset token, %w", err)
	}

	if r.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	r, err := s.users.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"password_hash": passwordHash,
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update password hash, %w", err)
	}

	if r.MatchedCount == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *MongoStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	r, err := s.users.UpdateMany(ctx,
		bson.M{"reset_token_expiry": bson.M{"$lte": now.UTC()}},
		clearResetToken(bson.M{}),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens, %w", err)
	}

	return r.ModifiedCount, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

// clearResetToken builds a $set that nulls both token fields next to set
func clearResetToken(set bson.M) bson.M {
	set["reset_token_hash"] = nil
	set["reset_token_expiry"] = nil
	set["updated_at"] = time.Now().UTC()

	return bson.M{"$set": set}
}
