package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/store"
)

// Store is an in-memory implementation of store.Store. It enforces the same
// unique, foreign key and cascade rules as the SQL schema and is safe for
// concurrent use. It is intended for tests and local development.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{state: newState()}
}

// WithTx runs fn against a private copy of the data and publishes the copy
// only when fn succeeds.
func (s *Store) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.state.clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.state = draft
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) CreateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateUser(ctx, user)
}

func (s *Store) GetUser(ctx context.Context, id int) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetUser(ctx, id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetUserByEmail(ctx, email)
}

func (s *Store) UpdateUser(ctx context.Context, user models.User) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateUser(ctx, user)
}

func (s *Store) CreatePin(ctx context.Context, pin models.Pin) (models.Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreatePin(ctx, pin)
}

func (s *Store) GetPin(ctx context.Context, id int) (models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetPin(ctx, id)
}

func (s *Store) UpdatePin(ctx context.Context, pin models.Pin) (models.Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdatePin(ctx, pin)
}

func (s *Store) DeletePin(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeletePin(ctx, id)
}

func (s *Store) ListPins(ctx context.Context) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListPins(ctx)
}

func (s *Store) SearchPins(ctx context.Context, keyword string) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SearchPins(ctx, keyword)
}

func (s *Store) ListPinsByOwner(ctx context.Context, ownerID int) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListPinsByOwner(ctx, ownerID)
}

func (s *Store) ListLikedPins(ctx context.Context, userID int) ([]models.Pin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListLikedPins(ctx, userID)
}

func (s *Store) CreateLike(ctx context.Context, like models.Like) (models.Like, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateLike(ctx, like)
}

func (s *Store) ListLikesByPin(ctx context.Context, pinID int) ([]models.Like, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListLikesByPin(ctx, pinID)
}

func (s *Store) CreateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CreateComment(ctx, comment)
}

func (s *Store) GetComment(ctx context.Context, id int) (models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.GetComment(ctx, id)
}

func (s *Store) UpdateComment(ctx context.Context, comment models.Comment) (models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UpdateComment(ctx, comment)
}

func (s *Store) DeleteComment(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.DeleteComment(ctx, id)
}

func (s *Store) ListCommentsByPin(ctx context.Context, pinID int) ([]models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.ListCommentsByPin(ctx, pinID)
}

func (s *Store) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Stats(ctx)
}

// state holds the tables. Its methods assume the caller holds the Store lock.
type state struct {
	users    map[int]models.User
	pins     map[int]models.Pin
	likes    map[int]models.Like
	comments map[int]models.Comment

	userSeq    int
	pinSeq     int
	likeSeq    int
	commentSeq int

	// lastStamp keeps timestamps strictly increasing so ordering by
	// updated_at is deterministic.
	lastStamp time.Time
}

var _ store.Repository = (*state)(nil)

func newState() *state {
	return &state{
		users:    make(map[int]models.User),
		pins:     make(map[int]models.Pin),
		likes:    make(map[int]models.Like),
		comments: make(map[int]models.Comment),
	}
}

func (st *state) clone() *state {
	next := *st
	next.users = make(map[int]models.User, len(st.users))
	for id, user := range st.users {
		next.users[id] = user
	}
	next.pins = make(map[int]models.Pin, len(st.pins))
	for id, pin := range st.pins {
		next.pins[id] = pin
	}
	next.likes = make(map[int]models.Like, len(st.likes))
	for id, like := range st.likes {
		next.likes[id] = like
	}
	next.comments = make(map[int]models.Comment, len(st.comments))
	for id, comment := range st.comments {
		next.comments[id] = comment
	}
	return &next
}

func (st *state) stamp() time.Time {
	now := time.Now().UTC()
	if !now.After(st.lastStamp) {
		now = st.lastStamp.Add(time.Microsecond)
	}
	st.lastStamp = now
	return now
}

func violation(sentinel error, constraint string) error {
	return &store.ConstraintError{Err: sentinel, Constraint: constraint}
}

// Users ----------------------------------------------------------------------

func (st *state) CreateUser(_ context.Context, user models.User) (models.User, error) {
	for _, existing := range st.users {
		if existing.Email == user.Email {
			return models.User{}, violation(store.ErrConflict, store.ConstraintUsersEmail)
		}
		if existing.Username == user.Username {
			return models.User{}, violation(store.ErrConflict, store.ConstraintUsersUsername)
		}
	}

	st.userSeq++
	now := st.stamp()
	user.ID = st.userSeq
	user.CreatedAt = now
	user.UpdatedAt = now
	st.users[user.ID] = user
	return user, nil
}

func (st *state) GetUser(_ context.Context, id int) (models.User, error) {
	user, ok := st.users[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return user, nil
}

func (st *state) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range st.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, store.ErrNotFound
}

func (st *state) UpdateUser(_ context.Context, user models.User) (models.User, error) {
	original, ok := st.users[user.ID]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	for id, existing := range st.users {
		if id != user.ID && existing.Username == user.Username {
			return models.User{}, violation(store.ErrConflict, store.ConstraintUsersUsername)
		}
	}

	original.Username = user.Username
	original.UpdatedAt = st.stamp()
	st.users[original.ID] = original
	return original, nil
}

// Pins -----------------------------------------------------------------------

func (st *state) CreatePin(_ context.Context, pin models.Pin) (models.Pin, error) {
	if _, ok := st.users[pin.OwnerID]; !ok {
		return models.Pin{}, violation(store.ErrInvalidReference, store.ConstraintPinsOwner)
	}

	st.pinSeq++
	now := st.stamp()
	pin.ID = st.pinSeq
	pin.LikeCount = 0
	pin.CreatedAt = now
	pin.UpdatedAt = now
	st.pins[pin.ID] = pin
	return pin, nil
}

func (st *state) GetPin(_ context.Context, id int) (models.Pin, error) {
	pin, ok := st.pins[id]
	if !ok {
		return models.Pin{}, store.ErrNotFound
	}
	return st.withLikeCount(pin), nil
}

func (st *state) UpdatePin(_ context.Context, pin models.Pin) (models.Pin, error) {
	original, ok := st.pins[pin.ID]
	if !ok {
		return models.Pin{}, store.ErrNotFound
	}

	original.Title = pin.Title
	original.Content = pin.Content
	original.Image = pin.Image
	original.UpdatedAt = st.stamp()
	st.pins[original.ID] = original
	return st.withLikeCount(original), nil
}

func (st *state) DeletePin(_ context.Context, id int) error {
	if _, ok := st.pins[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.pins, id)
	for likeID, like := range st.likes {
		if like.PinID == id {
			delete(st.likes, likeID)
		}
	}
	for commentID, comment := range st.comments {
		if comment.PinID == id {
			delete(st.comments, commentID)
		}
	}
	return nil
}

func (st *state) ListPins(_ context.Context) ([]models.Pin, error) {
	return st.collectPins(func(models.Pin) bool { return true }), nil
}

func (st *state) SearchPins(_ context.Context, keyword string) ([]models.Pin, error) {
	return st.collectPins(func(pin models.Pin) bool {
		return strings.Contains(pin.Title, keyword)
	}), nil
}

func (st *state) ListPinsByOwner(_ context.Context, ownerID int) ([]models.Pin, error) {
	return st.collectPins(func(pin models.Pin) bool {
		return pin.OwnerID == ownerID
	}), nil
}

func (st *state) ListLikedPins(_ context.Context, userID int) ([]models.Pin, error) {
	likes := make([]models.Like, 0)
	for _, like := range st.likes {
		if like.UserID == userID {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool {
		if !likes[i].CreatedAt.Equal(likes[j].CreatedAt) {
			return likes[i].CreatedAt.After(likes[j].CreatedAt)
		}
		return likes[i].ID > likes[j].ID
	})

	pins := make([]models.Pin, 0, len(likes))
	for _, like := range likes {
		if pin, ok := st.pins[like.PinID]; ok {
			pins = append(pins, st.withLikeCount(pin))
		}
	}
	return pins, nil
}

func (st *state) collectPins(match func(models.Pin) bool) []models.Pin {
	pins := make([]models.Pin, 0)
	for _, pin := range st.pins {
		if match(pin) {
			pins = append(pins, st.withLikeCount(pin))
		}
	}
	sort.Slice(pins, func(i, j int) bool {
		if !pins[i].UpdatedAt.Equal(pins[j].UpdatedAt) {
			return pins[i].UpdatedAt.After(pins[j].UpdatedAt)
		}
		return pins[i].ID > pins[j].ID
	})
	return pins
}

func (st *state) withLikeCount(pin models.Pin) models.Pin {
	pin.LikeCount = 0
	for _, like := range st.likes {
		if like.PinID == pin.ID {
			pin.LikeCount++
		}
	}
	return pin
}

// Likes ----------------------------------------------------------------------

func (st *state) CreateLike(_ context.Context, like models.Like) (models.Like, error) {
	if _, ok := st.users[like.UserID]; !ok {
		return models.Like{}, violation(store.ErrInvalidReference, store.ConstraintLikesUser)
	}
	if _, ok := st.pins[like.PinID]; !ok {
		return models.Like{}, violation(store.ErrInvalidReference, store.ConstraintLikesPin)
	}
	for _, existing := range st.likes {
		if existing.UserID == like.UserID && existing.PinID == like.PinID {
			return models.Like{}, violation(store.ErrConflict, store.ConstraintLikesUserPin)
		}
	}

	st.likeSeq++
	now := st.stamp()
	like.ID = st.likeSeq
	like.CreatedAt = now
	like.UpdatedAt = now
	st.likes[like.ID] = like
	return like, nil
}

func (st *state) ListLikesByPin(_ context.Context, pinID int) ([]models.Like, error) {
	likes := make([]models.Like, 0)
	for _, like := range st.likes {
		if like.PinID == pinID {
			likes = append(likes, like)
		}
	}
	sort.Slice(likes, func(i, j int) bool { return likes[i].ID < likes[j].ID })
	return likes, nil
}

// Comments -------------------------------------------------------------------

func (st *state) CreateComment(_ context.Context, comment models.Comment) (models.Comment, error) {
	if _, ok := st.users[comment.UserID]; !ok {
		return models.Comment{}, violation(store.ErrInvalidReference, store.ConstraintCommentsUser)
	}
	if _, ok := st.pins[comment.PinID]; !ok {
		return models.Comment{}, violation(store.ErrInvalidReference, store.ConstraintCommentsPin)
	}

	st.commentSeq++
	now := st.stamp()
	comment.ID = st.commentSeq
	comment.CreatedAt = now
	comment.UpdatedAt = now
	st.comments[comment.ID] = comment
	return comment, nil
}

func (st *state) GetComment(_ context.Context, id int) (models.Comment, error) {
	comment, ok := st.comments[id]
	if !ok {
		return models.Comment{}, store.ErrNotFound
	}
	return comment, nil
}

func (st *state) UpdateComment(_ context.Context, comment models.Comment) (models.Comment, error) {
	original, ok := st.comments[comment.ID]
	if !ok {
		return models.Comment{}, store.ErrNotFound
	}
	original.Content = comment.Content
	original.UpdatedAt = st.stamp()
	st.comments[original.ID] = original
	return original, nil
}

func (st *state) DeleteComment(_ context.Context, id int) error {
	if _, ok := st.comments[id]; !ok {
		return store.ErrNotFound
	}
	delete(st.comments, id)
	return nil
}

func (st *state) ListCommentsByPin(_ context.Context, pinID int) ([]models.Comment, error) {
	comments := make([]models.Comment, 0)
	for _, comment := range st.comments {
		if comment.PinID == pinID {
			comments = append(comments, comment)
		}
	}
	sort.Slice(comments, func(i, j int) bool { return comments[i].ID < comments[j].ID })
	return comments, nil
}

func (st *state) Stats(_ context.Context) (models.Stats, error) {
	return models.Stats{
		Users:    int64(len(st.users)),
		Pins:     int64(len(st.pins)),
		Likes:    int64(len(st.likes)),
		Comments: int64(len(st.comments)),
	}, nil
}
