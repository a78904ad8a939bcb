package repository

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/nimasrn/store-ledger/pkg/pg"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with every table
// migrated. It is shared by the repository and service test suites.
func NewTestDB(t testing.TB) *pg.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), testGormConfig())
	require.NoError(t, err)

	// every pooled connection to :memory: would see its own empty database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	err = db.AutoMigrate(&CustomerEntity{}, &CreditTransactionEntity{}, &ProductEntity{}, &SaleEntity{})
	require.NoError(t, err)

	return pg.New(db, db)
}

// sqliteRewrites turns the postgres-only parts of the goose files into their
// sqlite equivalents. Everything else, constraints included, runs unchanged.
var sqliteRewrites = strings.NewReplacer(
	"TIMESTAMPTZ", "DATETIME",
	"NOW()", "CURRENT_TIMESTAMP",
)

// NewMigratedTestDB builds the schema from the goose files under migrations/
// instead of the entity tags, so the CHECK constraints shipped to production
// are the ones under test.
func NewMigratedTestDB(t testing.TB) *pg.DB {
	t.Helper()

	dir := t.TempDir()
	files, err := filepath.Glob(filepath.Join(MigrationsDir(t), "*.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "no migrations found")
	for _, f := range files {
		raw, err := os.ReadFile(f)
		require.NoError(t, err)
		out := sqliteRewrites.Replace(string(raw))
		require.NoError(t, os.WriteFile(filepath.Join(dir, filepath.Base(f)), []byte(out), 0o600))
	}

	db, err := gorm.Open(sqlite.Open(filepath.Join(dir, "ledger.db")), testGormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.Up(sqlDB, dir))

	return pg.New(db, db)
}

// MigrationsDir resolves the repository's migrations directory from this
// file's location.
func MigrationsDir(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

func testGormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}
