// Package integration runs the review cycle against a real PostgreSQL started
// with testcontainers. These tests require Docker and are skipped with -short.
//
//	go test ./tests/integration/
package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tropicaldog17/replyqueue/internal/db"
	"github.com/tropicaldog17/replyqueue/migrations"
)

// TestContainer holds the PostgreSQL container and connection details
type TestContainer struct {
	Container testcontainers.Container
	DB        *db.DB
	Config    *db.Config
}

var suiteContainer *TestContainer

// setupWithContext starts PostgreSQL and applies the embedded migrations.
func setupWithContext(ctx context.Context) (*TestContainer, error) {
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("replyqueue_test"),
		postgres.WithUsername("replyqueue"),
		postgres.WithPassword("replyqueue"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	host, err := pgContainer.Host(ctx)
	if err != nil {
		_ = pgContainer.Terminate(context.Background())
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = pgContainer.Terminate(context.Background())
		return nil, fmt.Errorf("container port: %w", err)
	}

	config := &db.Config{
		Driver:   db.DriverPostgres,
		Host:     host,
		Port:     port.Port(),
		User:     "replyqueue",
		Password: "replyqueue",
		Name:     "replyqueue_test",
		SSLMode:  "disable",
	}
	database, err := db.Connect(config)
	if err != nil {
		_ = pgContainer.Terminate(context.Background())
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := migrations.Run(ctx, database, nil); err != nil {
		_ = database.Close()
		_ = pgContainer.Terminate(context.Background())
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &TestContainer{Container: pgContainer, DB: database, Config: config}, nil
}

// Cleanup closes the connection and terminates the container.
func (tc *TestContainer) Cleanup() {
	if tc.DB != nil {
		_ = tc.DB.Close()
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(context.Background())
	}
}

// reset empties every domain table and clears the review lock.
func (tc *TestContainer) reset() error {
	return tc.DB.Exec(`
		TRUNCATE outbox_replies, review_items, review_batches, answer_vectors RESTART IDENTITY CASCADE;
		UPDATE system_state SET value = 'false' WHERE key = 'review_lock';
	`).Error
}
