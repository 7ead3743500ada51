package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Kerhoff/IgrejaBoT/internal/config"
)

var (
	once      sync.Once
	sharedDSN string
	initErr   error
)

// setupTestDB starts a shared PostgreSQL container once per test run, applies
// the migrations with the production migrator and returns a connection with
// every table emptied.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped with -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	once.Do(func() {
		sharedDSN, initErr = startContainerAndMigrate()
	})
	if initErr != nil {
		t.Fatalf("failed to set up test database: %v", initErr)
	}

	db, err := sql.Open("postgres", sharedDSN)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`TRUNCATE members, discipleship_groups, new_member_classes RESTART IDENTITY CASCADE`)
	if err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return db
}

func startContainerAndMigrate() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("igreja"),
		tcpostgres.WithUsername("igreja"),
		tcpostgres.WithPassword("igreja"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return "", fmt.Errorf("connection string: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db, err := config.NewDatabase(dsn, config.PoolConfig{MaxOpenConns: 5, MaxIdleConns: 1}, logger)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if err := db.Migrate(migrationsPath()); err != nil {
		return "", err
	}
	return dsn, nil
}

// migrationsPath resolves the repository migrations/ directory relative to
// this file.
func migrationsPath() string {
	_, currentFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(currentFile), "..", "..", "..", "migrations")
}
