package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T, driver string) *Repository {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	repo, err := NewPostgresRepository(&Credentials{
		Driver:   driver,
		Host:     host,
		Port:     port.Int(),
		User:     "testuser",
		Password: "testpass",
		DBName:   "testdb",
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunMigrations())
	return repo
}

func truncateOrders(t *testing.T, repo *Repository) {
	t.Helper()
	_, err := repo.DB().Exec(`TRUNCATE orders CASCADE`)
	require.NoError(t, err)
}

func TestPostgresRepository_LibPQ(t *testing.T) {
	repo := setupPostgres(t, "postgres")
	runOrderRepositoryTests(t, func(t *testing.T) OrderRepository {
		truncateOrders(t, repo)
		return repo
	})
}

func TestPostgresRepository_PGX(t *testing.T) {
	repo := setupPostgres(t, "pgx")
	runOrderRepositoryTests(t, func(t *testing.T) OrderRepository {
		truncateOrders(t, repo)
		return repo
	})
}
