//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

func TestStoreRoundTripsDocument(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("tracker"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	store := NewStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))

	doc, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.DefaultCategories, doc.Categories)

	doc.Activities = append(doc.Activities, domain.Activity{
		ID:          1,
		Title:       "Talk",
		Description: "d",
		Category:    "Speaking Engagement",
		Date:        "2025-01-01T00:00:00",
		Tags:        []string{"go"},
	})
	require.NoError(t, store.Save(ctx, doc))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	if diff := cmp.Diff(doc, loaded); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}

	var rows int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM tracker_documents`).Scan(&rows))
	require.Equal(t, 1, rows)
}

func TestServiceOverPostgresKeepsIDsMonotonic(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("tracker"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	store := NewStore(pool)
	require.NoError(t, store.EnsureSchema(ctx))
	service := domain.NewService(store)

	for i := 1; i <= 2; i++ {
		created, err := service.CreateActivity(ctx, domain.CreateActivityInput{Title: "t", Description: "d", Category: "c"})
		require.NoError(t, err)
		require.Equal(t, i, created.ID)
	}
	require.NoError(t, service.DeleteActivity(ctx, 1))

	created, err := service.CreateActivity(ctx, domain.CreateActivityInput{Title: "t", Description: "d", Category: "c"})
	require.NoError(t, err)
	require.Equal(t, 3, created.ID)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
