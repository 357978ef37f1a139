// Package db opens the database the account store runs on
package db

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bitwise74/auth-api/config"
	"bitwise74/auth-api/internal/model"
	"bitwise74/auth-api/pkg/util"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// migration is a named data fix applied once and recorded in the migrations table
type migration struct {
	name string
	run  func(tx *gorm.DB) error
}

var migrations = []migration{
	{
		// Accounts created before emails were normalized could hold mixed
		// case addresses and would never match a lookup again
		name: "normalize_emails",
		run: func(tx *gorm.DB) error {
			return tx.Exec("UPDATE users SET email = LOWER(TRIM(email))").Error
		},
	},
}

// New opens a SQL database for the sqlite or postgres driver and migrates it
func New(cfg *config.Database) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() {
			if _, err := os.Stat(cfg.DSN); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to %s", cfg.DSN)
			}
		}

		dialector = sqlite.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported SQL driver %q", cfg.Driver)
	}

	return Open(dialector)
}

// Open connects through dialector and brings the schema up to date
func Open(dialector gorm.Dialector) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	err = db.AutoMigrate(model.User{}, model.Migration{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

func runMigrations(db *gorm.DB) error {
	for _, m := range migrations {
		var applied int64

		err := db.Model(model.Migration{}).Where("name = ?", m.name).Count(&applied).Error
		if err != nil {
			return fmt.Errorf("failed to check migration %s, %w", m.name, err)
		}

		if applied > 0 {
			continue
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := m.run(tx); err != nil {
				return err
			}

			return tx.Create(&model.Migration{Name: m.name}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s, %w", m.name, err)
		}

		zap.L().Info("Applied migration", zap.String("name", m.name))
	}

	return nil
}

// NewMongo connects to a MongoDB deployment and returns the configured database
func NewMongo(ctx context.Context, cfg *config.Database) (*mongo.Database, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.DSN))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB, %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB, %w", err)
	}

	return client.Database(cfg.Name), nil
}
