//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/GFB-Team3/backend/internal/config"
	"github.com/GFB-Team3/backend/internal/database"
	"github.com/GFB-Team3/backend/internal/logging"
	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/store"
	"github.com/GFB-Team3/backend/internal/store/postgres"
)

// setupTestStore starts PostgreSQL in a container and migrates it.
func setupTestStore(t *testing.T) *postgres.Store {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:alpine",
		tcpostgres.WithDatabase("pins"),
		tcpostgres.WithUsername("pins"),
		tcpostgres.WithPassword("pins"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, config.DBConfig{
		URL:                    connStr,
		MaxOpenConns:           5,
		MaxIdleConns:           5,
		ConnMaxIdleMinutes:     1,
		ConnMaxLifetimeMinutes: 5,
	}, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.MigrateUp(ctx, db.DB))
	version, dirty, err := database.Version(ctx, db.DB)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	return postgres.New(db)
}

func TestIntegrationPinLifecycle(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	alice, err := s.CreateUser(ctx, models.User{Email: "a@example.com", Username: "alice", PasswordHash: "x"})
	require.NoError(t, err)
	bob, err := s.CreateUser(ctx, models.User{Email: "b@example.com", Username: "bob", PasswordHash: "x"})
	require.NoError(t, err)

	_, err = s.CreateUser(ctx, models.User{Email: "c@example.com", Username: "alice", PasswordHash: "x"})
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CreatePin(ctx, models.Pin{OwnerID: 999, Title: "orphan"})
	require.ErrorIs(t, err, store.ErrInvalidReference)
	assert.Equal(t, store.ConstraintPinsOwner, store.Constraint(err))

	pin, err := s.CreatePin(ctx, models.Pin{OwnerID: alice.ID, Title: "50% sunset"})
	require.NoError(t, err)
	_, err = s.CreatePin(ctx, models.Pin{OwnerID: alice.ID, Title: "500 sunsets"})
	require.NoError(t, err)

	found, err := s.SearchPins(ctx, "0%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, pin.ID, found[0].ID)

	_, err = s.CreateLike(ctx, models.Like{UserID: bob.ID, PinID: pin.ID})
	require.NoError(t, err)
	_, err = s.CreateLike(ctx, models.Like{UserID: bob.ID, PinID: pin.ID})
	require.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CreateComment(ctx, models.Comment{UserID: bob.ID, PinID: pin.ID, Content: "nice"})
	require.NoError(t, err)

	got, err := s.GetPin(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)

	liked, err := s.ListLikedPins(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, liked, 1)

	require.NoError(t, s.WithTx(ctx, func(repo store.Repository) error {
		return repo.DeletePin(ctx, pin.ID)
	}))

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Stats{Users: 2, Pins: 1, Likes: 0, Comments: 0}, stats)
}
