package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitwise74/auth-api/internal/model"

	"gorm.io/gorm"
)

// Columns safe to hand to anything but the login path
var publicColumns = []string{"id", "first_name", "last_name", "email", "verified", "created_at", "updated_at"}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Create(ctx context.Context, u *model.User) error {
	err := s.db.WithContext(ctx).Create(u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}

		return fmt.Errorf("failed to create user, %w", err)
	}

	return nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*model.PublicUser, error) {
	return s.findPublic(ctx, "id = ?", id)
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*model.PublicUser, error) {
	return s.findPublic(ctx, "email = ?", email)
}

func (s *GormStore) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.PublicUser, error) {
	return s.findPublic(ctx, "reset_token_hash = ? AND reset_token_expiry > ?", tokenHash, now.UTC())
}

func (s *GormStore) findPublic(ctx context.Context, query string, args ...any) (*model.PublicUser, error) {
	var user model.User

	err := s.db.
		WithContext(ctx).
		Model(&model.User{}).
		Select(publicColumns).
		Where(query, args...).
		Take(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch user, %w", err)
	}

	return user.Public(), nil
}

func (s *GormStore) FindCredentials(ctx context.Context, email string) (*model.Credentials, error) {
	var user model.User

	err := s.db.
		WithContext(ctx).
		Model(&model.User{}).
		Select(append(publicColumns, "password_hash")).
		Where("email = ?", email).
		Take(&user).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("failed to fetch credentials, %w", err)
	}

	return &model.Credentials{
		User:         user.Public(),
		PasswordHash: user.PasswordHash,
	}, nil
}

func (s *GormStore) SetResetToken(ctx context.Context, id, tokenHash string, expiry time.Time) error {
	r := s.db.
		WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reset_token_hash":   tokenHash,
			"reset_token_expiry": expiry.UTC(),
		})
	if r.Error != nil {
		return fmt.Errorf("failed to store reset token, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore) ClearResetToken(ctx context.Context, id, tokenHash string) error {
	err := s.db.
		WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND reset_token_hash = ?", id, tokenHash).
		Updates(map[string]any{
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
		}).
		Error
	if err != nil {
		return fmt.Errorf("failed to clear reset token, %w", err)
	}

	return nil
}

func (s *GormStore) ConsumeResetToken(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	// Hash and expiry are re-checked by the UPDATE itself so two requests
	// racing with the same token can't both change the password
	r := s.db.
		WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND reset_token_hash = ? AND reset_token_expiry > ?", id, tokenHash, now.UTC()).
		Updates(map[string]any{
			"password_hash":      passwordHash,
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
		})
	if r.Error != nil {
		return fmt.Errorf("failed to consume reset token, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	r := s.db.
		WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("password_hash", passwordHash)
	if r.Error != nil {
		return fmt.Errorf("failed to update password hash, %w", r.Error)
	}

	if r.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *GormStore) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	r := s.db.
		WithContext(ctx).
		Model(&model.User{}).
		Where("reset_token_expiry <= ?", now.UTC()).
		Updates(map[string]any{
			"reset_token_hash":   nil,
			"reset_token_expiry": nil,
		})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to clear expired reset tokens, %w", r.Error)
	}

	return r.RowsAffected, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}
