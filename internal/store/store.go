// Package store defines persistence contracts for users, pins, likes and comments.
package store

import (
	"context"
	"errors"

	"github.com/GFB-Team3/backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict = errors.New("duplicate key value")

	// ErrInvalidReference is returned when a foreign key target does not exist.
	ErrInvalidReference = errors.New("foreign key violation")
)

// ConstraintError reports which constraint rejected a write. Err is
// ErrConflict or ErrInvalidReference.
type ConstraintError struct {
	Err        error
	Constraint string
}

func (e *ConstraintError) Error() string {
	return e.Err.Error() + ": " + e.Constraint
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// Constraint returns the constraint named by err, or "" when err carries none.
func Constraint(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// Constraint names shared by the SQL schema and the in-memory store.
const (
	ConstraintUsersEmail    = "users_email_key"
	ConstraintUsersUsername = "users_username_key"
	ConstraintLikesUserPin  = "likes_user_id_pin_id_key"
	ConstraintPinsOwner     = "pins_owner_id_fkey"
	ConstraintLikesUser     = "likes_user_id_fkey"
	ConstraintLikesPin      = "likes_pin_id_fkey"
	ConstraintCommentsUser  = "comments_user_id_fkey"
	ConstraintCommentsPin   = "comments_pin_id_fkey"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user models.User) (models.User, error)
	GetUser(ctx context.Context, id int) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	UpdateUser(ctx context.Context, user models.User) (models.User, error)
}

// PinStore persists pins. Every list is ordered newest first.
type PinStore interface {
	CreatePin(ctx context.Context, pin models.Pin) (models.Pin, error)
	GetPin(ctx context.Context, id int) (models.Pin, error)
	UpdatePin(ctx context.Context, pin models.Pin) (models.Pin, error)
	// DeletePin removes the pin together with its likes and comments.
	DeletePin(ctx context.Context, id int) error
	ListPins(ctx context.Context) ([]models.Pin, error)
	SearchPins(ctx context.Context, keyword string) ([]models.Pin, error)
	ListPinsByOwner(ctx context.Context, ownerID int) ([]models.Pin, error)
	ListLikedPins(ctx context.Context, userID int) ([]models.Pin, error)
}

// LikeStore persists likes. (user_id, pin_id) is unique.
type LikeStore interface {
	CreateLike(ctx context.Context, like models.Like) (models.Like, error)
	ListLikesByPin(ctx context.Context, pinID int) ([]models.Like, error)
}

// CommentStore persists comments.
type CommentStore interface {
	CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error)
	GetComment(ctx context.Context, id int) (models.Comment, error)
	UpdateComment(ctx context.Context, comment models.Comment) (models.Comment, error)
	DeleteComment(ctx context.Context, id int) error
	ListCommentsByPin(ctx context.Context, pinID int) ([]models.Comment, error)
}

// Repository groups every entity store.
type Repository interface {
	UserStore
	PinStore
	LikeStore
	CommentStore
	Stats(ctx context.Context) (models.Stats, error)
}

// Store is a Repository that can scope a unit of work to one transaction.
type Store interface {
	Repository

	// WithTx runs fn inside a transaction. The transaction commits only when
	// fn returns nil and is rolled back on every other exit path.
	WithTx(ctx context.Context, fn func(repo Repository) error) error
	Ping(ctx context.Context) error
}
