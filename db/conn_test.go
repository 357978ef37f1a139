package db

import (
	"testing"

	"bitwise74/auth-api/config"
	"bitwise74/auth-api/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

func memoryDSN() string {
	return "file:" + uuid.NewString() + "?mode=memory&cache=shared"
}

func TestOpen_MigratesOnce(t *testing.T) {
	dsn := memoryDSN()

	db, err := Open(sqlite.Open(dsn))
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(model.Migration{}).Where("name = ?", "normalize_emails").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// Reopening the same database must not apply it again
	_, err = Open(sqlite.Open(dsn))
	require.NoError(t, err)

	require.NoError(t, db.Model(model.Migration{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestNormalizeEmailsMigration(t *testing.T) {
	db, err := Open(sqlite.Open(memoryDSN()))
	require.NoError(t, err)

	require.NoError(t, db.Create(&model.User{
		ID:           "legacy",
		FirstName:    "Jane",
		LastName:     "Doe",
		Email:        "  Jane@Example.COM ",
		PasswordHash: "x",
	}).Error)

	require.NoError(t, db.Transaction(migrations[0].run))

	var u model.User
	require.NoError(t, db.First(&u, "id = ?", "legacy").Error)
	assert.Equal(t, "jane@example.com", u.Email)
}

func TestNew_UnsupportedDriver(t *testing.T) {
	_, err := New(&config.Database{Driver: "mongo", DSN: "mongodb://localhost"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported SQL driver")
}
