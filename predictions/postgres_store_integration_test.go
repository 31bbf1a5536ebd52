//go:build integration

package predictions

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/liamcoop/aquasens/migrations"
)

// setupPostgres starts a PostgreSQL testcontainer and applies the embedded
// migrations.
func setupPostgres(t *testing.T) (*sql.DB, string) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("postgres://postgres:password@%s:%s/testdb?sslmode=disable", host, port.Port())

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for i := 0; i < 30; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.NoError(t, migrations.ApplyPostgres(connStr), "run migrations")
	return db, connStr
}

func TestPostgresStore(t *testing.T) {
	var _ Store = (*PostgresStore)(nil)

	db, _ := setupPostgres(t)
	testStoreContract(t, func(t *testing.T) Store {
		_, err := db.Exec(`TRUNCATE predictions`)
		require.NoError(t, err)
		return NewPostgresStore(db)
	})
}

func TestPostgresStore_MigrationsIdempotent(t *testing.T) {
	db, connStr := setupPostgres(t)

	require.NoError(t, migrations.ApplyPostgres(connStr), "second migration run")

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM predictions`).Scan(&count))
	assert.Zero(t, count)
}
