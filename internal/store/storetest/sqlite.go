// Package storetest provides throwaway account stores for tests
package storetest

import (
	"testing"

	"bitwise74/auth-api/db"
	"bitwise74/auth-api/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// NewSQLite returns a store backed by a private in-memory sqlite database
// that is closed when the test ends
func NewSQLite(t testing.TB) *store.GormStore {
	t.Helper()

	gdb, err := db.Open(sqlite.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return store.NewGormStore(gdb)
}
