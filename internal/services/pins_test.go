package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GFB-Team3/backend/internal/apperr"
	"github.com/GFB-Team3/backend/internal/events"
	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/store"
	"github.com/GFB-Team3/backend/internal/store/memory"
)

type pinFixture struct {
	store  *memory.Store
	blobs  *fakeBlobs
	cache  *fakeCache
	events *fakePublisher
	svc    *PinService
	alice  models.User
	bob    models.User
}

func newPinFixture(t *testing.T) *pinFixture {
	t.Helper()
	ctx := context.Background()
	f := &pinFixture{
		store:  memory.New(),
		blobs:  newFakeBlobs(),
		cache:  newFakeCache(),
		events: &fakePublisher{},
	}
	f.svc = NewPinService(f.store, f.blobs, WithCache(f.cache), WithEvents(f.events))

	users := NewUserService(f.store)
	var err error
	f.alice, err = users.SignUp(ctx, "alice@x.com", "alice", "pw")
	require.NoError(t, err)
	f.bob, err = users.SignUp(ctx, "bob@x.com", "bob", "pw")
	require.NoError(t, err)
	return f
}

func TestCreateThenFetchRoundTrips(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	created, err := f.svc.Create(ctx, f.alice.ID, "Cat nap", strPtr("zzz"), &Upload{Reader: strings.NewReader("img"), Ext: ".png"})
	require.NoError(t, err)
	require.NotNil(t, created.Image)

	got, err := f.svc.GetDetail(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cat nap", got.Title)
	require.NotNil(t, got.Content)
	assert.Equal(t, "zzz", *got.Content)
	assert.Equal(t, *created.Image, *got.Image)
	assert.Equal(t, 1, f.blobs.count())
	assert.Equal(t, []string{events.SubjectPinCreated}, f.events.subjects())
}

func TestCreateWithoutImageOrContent(t *testing.T) {
	f := newPinFixture(t)

	pin, err := f.svc.Create(context.Background(), f.alice.ID, "plain", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, pin.Image)
	assert.Nil(t, pin.Content)
}

func TestCreateRequiresTitle(t *testing.T) {
	f := newPinFixture(t)

	_, err := f.svc.Create(context.Background(), f.alice.ID, "   ", nil, nil)
	require.True(t, apperr.IsKind(err, apperr.KindBadRequest))
	assert.Equal(t, "title", apperr.From(err).Field)
}

func TestCreateForUnknownOwnerDiscardsImage(t *testing.T) {
	f := newPinFixture(t)

	_, err := f.svc.Create(context.Background(), 999, "orphan", nil, &Upload{Reader: strings.NewReader("img"), Ext: ".png"})
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, 0, f.blobs.count())
	assert.Len(t, f.blobs.deleted, 1)
}

func TestCreateSurfacesBlobFailure(t *testing.T) {
	f := newPinFixture(t)
	f.blobs.putErr = errors.New("disk full")

	_, err := f.svc.Create(context.Background(), f.alice.ID, "t", nil, &Upload{Reader: strings.NewReader("img"), Ext: ".png"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.From(err).Kind)
}

func TestUpdateByNonOwnerIsForbiddenAndLeavesRow(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	pin, err := f.svc.Create(ctx, f.alice.ID, "original", strPtr("body"), nil)
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, pin.ID, f.bob.ID, strPtr("hijacked"), nil, &Upload{Reader: strings.NewReader("x"), Ext: ".png"})
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Equal(t, "Not allowed to edit this pin", apperr.From(err).Message)

	stored, err := f.store.GetPin(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", stored.Title)
	assert.Equal(t, pin.UpdatedAt, stored.UpdatedAt)
	assert.Equal(t, 0, f.blobs.count(), "no image is stored for a rejected update")
}

func TestUpdateReplacesOnlySuppliedFields(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	pin, err := f.svc.Create(ctx, f.alice.ID, "title", strPtr("body"), &Upload{Reader: strings.NewReader("a"), Ext: ".png"})
	require.NoError(t, err)
	oldImage := *pin.Image

	updated, err := f.svc.Update(ctx, pin.ID, f.alice.ID, nil, nil, &Upload{Reader: strings.NewReader("b"), Ext: ".jpg"})
	require.NoError(t, err)
	assert.Equal(t, "title", updated.Title)
	assert.Equal(t, "body", *updated.Content)
	assert.NotEqual(t, oldImage, *updated.Image)
	assert.Equal(t, 2, f.blobs.count(), "the previous image is kept")

	updated, err = f.svc.Update(ctx, pin.ID, f.alice.ID, strPtr("renamed"), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Title)
	assert.True(t, updated.UpdatedAt.After(pin.UpdatedAt))
}

func TestUpdateMissingPin(t *testing.T) {
	f := newPinFixture(t)

	_, err := f.svc.Update(context.Background(), 77, f.alice.ID, strPtr("x"), nil, nil)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestDeleteCascadesLikesAndComments(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	pin, err := f.svc.Create(ctx, f.alice.ID, "doomed", nil, &Upload{Reader: strings.NewReader("a"), Ext: ".png"})
	require.NoError(t, err)
	_, err = f.svc.Like(ctx, pin.ID, f.bob.ID)
	require.NoError(t, err)
	comment, err := f.svc.AddComment(ctx, pin.ID, f.bob.ID, "bye")
	require.NoError(t, err)

	err = f.svc.Delete(ctx, pin.ID, f.bob.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Equal(t, "Not allowed to delete this pin", apperr.From(err).Message)

	require.NoError(t, f.svc.Delete(ctx, pin.ID, f.alice.ID))

	_, err = f.svc.GetDetail(ctx, pin.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	_, err = f.svc.ListComments(ctx, pin.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	_, err = f.svc.ListLikes(ctx, pin.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
	_, err = f.svc.GetComment(ctx, comment.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	liked, err := f.store.ListLikedPins(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Empty(t, liked)
	assert.Equal(t, 0, f.blobs.count(), "image is removed with the pin")

	err = f.svc.Delete(ctx, pin.ID, f.alice.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound), "second delete")
}

func TestLikeTwiceConflictsAndCountStaysOne(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	pin, err := f.svc.Create(ctx, f.alice.ID, "likeable", nil, nil)
	require.NoError(t, err)

	like, err := f.svc.Like(ctx, pin.ID, f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, pin.ID, like.PinID)

	_, err = f.svc.Like(ctx, pin.ID, f.bob.ID)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Equal(t, "Already liked", apperr.From(err).Message)

	got, err := f.svc.GetDetail(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)

	likes, err := f.svc.ListLikes(ctx, pin.ID)
	require.NoError(t, err)
	assert.Len(t, likes, 1)
}

func TestLikeMissingPinOrUser(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	_, err := f.svc.Like(ctx, 123, f.bob.ID)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "Pin not found", apperr.From(err).Message)

	pin, err := f.svc.Create(ctx, f.alice.ID, "p", nil, nil)
	require.NoError(t, err)
	_, err = f.svc.Like(ctx, pin.ID, 999)
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "User not found", apperr.From(err).Message)
}

func TestCommentByUnknownUserNamesTheUser(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	pin, err := f.svc.Create(ctx, f.alice.ID, "p", nil, nil)
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, pin.ID, 999, "hi")
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
	assert.Equal(t, "User not found", apperr.From(err).Message)
}

func TestReferenceNotFoundReadsTheConstraintNotTheMessage(t *testing.T) {
	// the wrapping text mentions the user constraint, the typed error names the pin
	err := fmt.Errorf("insert like for %s: %w", store.ConstraintLikesUser,
		&store.ConstraintError{Err: store.ErrInvalidReference, Constraint: store.ConstraintLikesPin})
	assert.Equal(t, "Pin not found", apperr.From(referenceNotFound(err)).Message)

	err = fmt.Errorf("insert comment: %w",
		&store.ConstraintError{Err: store.ErrInvalidReference, Constraint: store.ConstraintCommentsUser})
	assert.Equal(t, "User not found", apperr.From(referenceNotFound(err)).Message)

	assert.Equal(t, "Pin not found", apperr.From(referenceNotFound(store.ErrInvalidReference)).Message)
}

func TestSearchMatchesTitleNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	older, err := f.svc.Create(ctx, f.alice.ID, "black cat", nil, nil)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.alice.ID, "dog", strPtr("cat in content only"), nil)
	require.NoError(t, err)
	newer, err := f.svc.Create(ctx, f.alice.ID, "catalogue", nil, nil)
	require.NoError(t, err)

	pins, err := f.svc.Search(ctx, "cat")
	require.NoError(t, err)
	require.Len(t, pins, 2)
	assert.Equal(t, newer.ID, pins[0].ID)
	assert.Equal(t, older.ID, pins[1].ID)

	_, err = f.svc.Search(ctx, "  ")
	require.True(t, apperr.IsKind(err, apperr.KindBadRequest))
	assert.Equal(t, "Search keyword is required", apperr.From(err).Message)
}

func TestListUsesCacheAndInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	_, err := f.svc.Create(ctx, f.alice.ID, "first", nil, nil)
	require.NoError(t, err)

	pins, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, pins, 1)
	assert.True(t, f.cache.hasList)

	_, err = f.svc.Create(ctx, f.alice.ID, "second", nil, nil)
	require.NoError(t, err)
	assert.False(t, f.cache.hasList, "create drops the cached listing")

	pins, err = f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, 2)
}

func TestListFillRacingCreateIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	_, err := f.svc.Create(ctx, f.alice.ID, "first", nil, nil)
	require.NoError(t, err)

	racing := &racingStore{Store: f.store}
	svc := NewPinService(racing, f.blobs, WithCache(f.cache))
	racing.afterListPins = func() {
		_, err := f.svc.Create(ctx, f.alice.ID, "second", nil, nil)
		require.NoError(t, err)
	}

	pins, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, 1, "the racing read saw the store before the create")
	assert.False(t, f.cache.hasList, "a listing read before the create must not be cached")

	pins, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, 2)
}

func TestGetDetailFillRacingLikeIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	pin, err := f.svc.Create(ctx, f.alice.ID, "p", nil, nil)
	require.NoError(t, err)

	racing := &racingStore{Store: f.store}
	svc := NewPinService(racing, f.blobs, WithCache(f.cache))
	racing.afterGetPin = func() {
		_, err := f.svc.Like(ctx, pin.ID, f.bob.ID)
		require.NoError(t, err)
	}

	got, err := svc.GetDetail(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.LikeCount)
	_, cached := f.cache.pins[pin.ID]
	assert.False(t, cached, "a pin read before the like must not be cached")

	got, err = svc.GetDetail(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount)

	got, err = svc.GetDetail(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LikeCount, "served from cache")
}

func TestCacheAndEventFailuresDoNotFailRequests(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)
	f.cache.fail = true
	f.events.err = errors.New("nats down")

	pin, err := f.svc.Create(ctx, f.alice.ID, "resilient", nil, nil)
	require.NoError(t, err)

	got, err := f.svc.GetDetail(ctx, pin.ID)
	require.NoError(t, err)
	assert.Equal(t, "resilient", got.Title)

	pins, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, pins, 1)
}

func TestCommentLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newPinFixture(t)

	pin, err := f.svc.Create(ctx, f.alice.ID, "p", nil, nil)
	require.NoError(t, err)

	_, err = f.svc.AddComment(ctx, 999, f.bob.ID, "hi")
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	comment, err := f.svc.AddComment(ctx, pin.ID, f.bob.ID, "hi")
	require.NoError(t, err)

	_, err = f.svc.UpdateComment(ctx, comment.ID, f.alice.ID, "edited")
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Equal(t, "Not allowed to edit this comment", apperr.From(err).Message)

	updated, err := f.svc.UpdateComment(ctx, comment.ID, f.bob.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)

	err = f.svc.DeleteComment(ctx, comment.ID, f.alice.ID)
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))
	assert.Equal(t, "Not allowed to delete this comment", apperr.From(err).Message)

	require.NoError(t, f.svc.DeleteComment(ctx, comment.ID, f.bob.ID))

	comments, err := f.svc.ListComments(ctx, pin.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	err = f.svc.DeleteComment(ctx, comment.ID, f.bob.ID)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	assert.Contains(t, f.events.subjects(), events.SubjectCommentCreated)
	assert.Contains(t, f.events.subjects(), events.SubjectCommentUpdated)
	assert.Contains(t, f.events.subjects(), events.SubjectCommentDeleted)
}
