package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifiesLibPQErrors(t *testing.T) {
	err := fmt.Errorf("insert user: %w", &pq.Error{Code: "23505", Constraint: "users_email_key"})

	assert.True(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
	assert.Equal(t, "users_email_key", ConstraintName(err))
}

func TestClassifiesPgxErrors(t *testing.T) {
	err := fmt.Errorf("insert like: %w", &pgconn.PgError{Code: "23503", ConstraintName: "likes_pin_id_fkey"})

	assert.True(t, IsForeignKeyViolation(err))
	assert.False(t, IsUniqueViolation(err))
	assert.Equal(t, "likes_pin_id_fkey", ConstraintName(err))
}

func TestIgnoresOtherErrors(t *testing.T) {
	err := errors.New("duplicate key value violates unique constraint")

	assert.False(t, IsUniqueViolation(err))
	assert.False(t, IsForeignKeyViolation(err))
	assert.Empty(t, ConstraintName(err))
}

func TestMigrationsAreEmbedded(t *testing.T) {
	up, err := migrationFiles.ReadFile("migrations/000001_init.up.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(up), "CONSTRAINT likes_user_id_pin_id_key UNIQUE (user_id, pin_id)")

	down, err := migrationFiles.ReadFile("migrations/000001_init.down.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(down), "DROP TABLE IF EXISTS users")
}
