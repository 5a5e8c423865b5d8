// Package postgres implements store.Store on PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/GFB-Team3/backend/internal/database"
	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/store"
)

// Store is backed by a shared connection pool.
type Store struct {
	repo
	db *sqlx.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open pool.
func New(db *sqlx.DB) *Store {
	return &Store{repo: repo{q: db}, db: db}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(repo{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// repo runs queries on either the pool or a transaction.
type repo struct {
	q sqlx.ExtContext
}

var _ store.Repository = repo{}

const pinColumns = `
	p.id, p.owner_id, p.title, p.content, p.image,
	(SELECT COUNT(*) FROM likes l WHERE l.pin_id = p.id) AS like_count,
	p.created_at, p.updated_at`

const pinListOrder = ` ORDER BY p.updated_at DESC, p.id DESC`

// Users ----------------------------------------------------------------------

func (r repo) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	var created models.User
	err := sqlx.GetContext(ctx, r.q, &created, `
		INSERT INTO users (email, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, username, password_hash, created_at, updated_at
	`, user.Email, user.Username, user.PasswordHash)
	if err != nil {
		return models.User{}, translateError(err)
	}
	return created, nil
}

func (r repo) GetUser(ctx context.Context, id int) (models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, r.q, &user, `
		SELECT id, email, username, password_hash, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id)
	if err != nil {
		return models.User{}, translateError(err)
	}
	return user, nil
}

func (r repo) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, r.q, &user, `
		SELECT id, email, username, password_hash, created_at, updated_at
		FROM users
		WHERE email = $1
	`, email)
	if err != nil {
		return models.User{}, translateError(err)
	}
	return user, nil
}

func (r repo) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	var updated models.User
	err := sqlx.GetContext(ctx, r.q, &updated, `
		UPDATE users
		SET username = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, email, username, password_hash, created_at, updated_at
	`, user.ID, user.Username)
	if err != nil {
		return models.User{}, translateError(err)
	}
	return updated, nil
}

// Pins -----------------------------------------------------------------------

func (r repo) CreatePin(ctx context.Context, pin models.Pin) (models.Pin, error) {
	var created models.Pin
	err := sqlx.GetContext(ctx, r.q, &created, `
		INSERT INTO pins (owner_id, title, content, image)
		VALUES ($1, $2, $3, $4)
		RETURNING id, owner_id, title, content, image, 0 AS like_count, created_at, updated_at
	`, pin.OwnerID, pin.Title, pin.Content, pin.Image)
	if err != nil {
		return models.Pin{}, translateError(err)
	}
	return created, nil
}

func (r repo) GetPin(ctx context.Context, id int) (models.Pin, error) {
	var pin models.Pin
	err := sqlx.GetContext(ctx, r.q, &pin, `SELECT `+pinColumns+` FROM pins p WHERE p.id = $1`, id)
	if err != nil {
		return models.Pin{}, translateError(err)
	}
	return pin, nil
}

func (r repo) UpdatePin(ctx context.Context, pin models.Pin) (models.Pin, error) {
	var updated models.Pin
	err := sqlx.GetContext(ctx, r.q, &updated, `
		UPDATE pins p
		SET title = $2, content = $3, image = $4, updated_at = now()
		WHERE p.id = $1
		RETURNING `+pinColumns, pin.ID, pin.Title, pin.Content, pin.Image)
	if err != nil {
		return models.Pin{}, translateError(err)
	}
	return updated, nil
}

func (r repo) DeletePin(ctx context.Context, id int) error {
	return r.deleteByID(ctx, `DELETE FROM pins WHERE id = $1`, id)
}

func (r repo) ListPins(ctx context.Context) ([]models.Pin, error) {
	return r.selectPins(ctx, `SELECT `+pinColumns+` FROM pins p`+pinListOrder)
}

func (r repo) SearchPins(ctx context.Context, keyword string) ([]models.Pin, error) {
	return r.selectPins(ctx,
		`SELECT `+pinColumns+` FROM pins p WHERE p.title LIKE $1 ESCAPE '\'`+pinListOrder,
		"%"+escapeLike(keyword)+"%")
}

func (r repo) ListPinsByOwner(ctx context.Context, ownerID int) ([]models.Pin, error) {
	return r.selectPins(ctx, `SELECT `+pinColumns+` FROM pins p WHERE p.owner_id = $1`+pinListOrder, ownerID)
}

func (r repo) ListLikedPins(ctx context.Context, userID int) ([]models.Pin, error) {
	return r.selectPins(ctx, `
		SELECT `+pinColumns+`
		FROM likes lk
		JOIN pins p ON p.id = lk.pin_id
		WHERE lk.user_id = $1
		ORDER BY lk.created_at DESC, lk.id DESC
	`, userID)
}

func (r repo) selectPins(ctx context.Context, query string, args ...any) ([]models.Pin, error) {
	pins := make([]models.Pin, 0)
	if err := sqlx.SelectContext(ctx, r.q, &pins, query, args...); err != nil {
		return nil, translateError(err)
	}
	return pins, nil
}

// Likes ----------------------------------------------------------------------

func (r repo) CreateLike(ctx context.Context, like models.Like) (models.Like, error) {
	var created models.Like
	err := sqlx.GetContext(ctx, r.q, &created, `
		INSERT INTO likes (user_id, pin_id)
		VALUES ($1, $2)
		RETURNING id, user_id, pin_id, created_at, updated_at
	`, like.UserID, like.PinID)
	if err != nil {
		return models.Like{}, translateError(err)
	}
	return created, nil
}

func (r repo) ListLikesByPin(ctx context.Context, pinID int) ([]models.Like, error) {
	likes := make([]models.Like, 0)
	err := sqlx.SelectContext(ctx, r.q, &likes, `
		SELECT id, user_id, pin_id, created_at, updated_at
		FROM likes
		WHERE pin_id = $1
		ORDER BY id
	`, pinID)
	if err != nil {
		return nil, translateError(err)
	}
	return likes, nil
}

// Comments -------------------------------------------------------------------

func (r repo) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	var created models.Comment
	err := sqlx.GetContext(ctx, r.q, &created, `
		INSERT INTO comments (user_id, pin_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, pin_id, content, created_at, updated_at
	`, comment.UserID, comment.PinID, comment.Content)
	if err != nil {
		return models.Comment{}, translateError(err)
	}
	return created, nil
}

func (r repo) GetComment(ctx context.Context, id int) (models.Comment, error) {
	var comment models.Comment
	err := sqlx.GetContext(ctx, r.q, &comment, `
		SELECT id, user_id, pin_id, content, created_at, updated_at
		FROM comments
		WHERE id = $1
	`, id)
	if err != nil {
		return models.Comment{}, translateError(err)
	}
	return comment, nil
}

func (r repo) UpdateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	var updated models.Comment
	err := sqlx.GetContext(ctx, r.q, &updated, `
		UPDATE comments
		SET content = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, pin_id, content, created_at, updated_at
	`, comment.ID, comment.Content)
	if err != nil {
		return models.Comment{}, translateError(err)
	}
	return updated, nil
}

func (r repo) DeleteComment(ctx context.Context, id int) error {
	return r.deleteByID(ctx, `DELETE FROM comments WHERE id = $1`, id)
}

func (r repo) ListCommentsByPin(ctx context.Context, pinID int) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	err := sqlx.SelectContext(ctx, r.q, &comments, `
		SELECT id, user_id, pin_id, content, created_at, updated_at
		FROM comments
		WHERE pin_id = $1
		ORDER BY id
	`, pinID)
	if err != nil {
		return nil, translateError(err)
	}
	return comments, nil
}

// Stats ----------------------------------------------------------------------

func (r repo) Stats(ctx context.Context) (models.Stats, error) {
	var stats models.Stats
	err := sqlx.GetContext(ctx, r.q, &stats, `
		SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM pins) AS pins,
			(SELECT COUNT(*) FROM likes) AS likes,
			(SELECT COUNT(*) FROM comments) AS comments
	`)
	if err != nil {
		return models.Stats{}, translateError(err)
	}
	return stats, nil
}

func (r repo) deleteByID(ctx context.Context, query string, id int) error {
	res, err := r.q.ExecContext(ctx, query, id)
	if err != nil {
		return translateError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// translateError maps driver errors onto the store sentinels.
func translateError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case database.IsUniqueViolation(err):
		return &store.ConstraintError{Err: store.ErrConflict, Constraint: database.ConstraintName(err)}
	case database.IsForeignKeyViolation(err):
		return &store.ConstraintError{Err: store.ErrInvalidReference, Constraint: database.ConstraintName(err)}
	default:
		return err
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
