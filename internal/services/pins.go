package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/GFB-Team3/backend/internal/apperr"
	"github.com/GFB-Team3/backend/internal/blob"
	"github.com/GFB-Team3/backend/internal/events"
	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/store"
)

const (
	msgPinNotFound        = "Pin not found"
	msgCommentNotFound    = "Comment not found"
	msgUserNotFound       = "User not found"
	msgPinEditForbidden   = "Not allowed to edit this pin"
	msgPinDeleteForbidden = "Not allowed to delete this pin"
	msgCommentEditDenied  = "Not allowed to edit this comment"
	msgCommentDeleteDeny  = "Not allowed to delete this comment"
	msgAlreadyLiked       = "Already liked"
	msgKeywordRequired    = "Search keyword is required"
)

var timeNow = time.Now

// Upload is an image accepted by the HTTP layer. Ext includes the leading dot.
type Upload struct {
	Reader io.Reader
	Ext    string
}

// PinCache is a read-through cache of pin records. Every Invalidate bumps
// the generation; SetPin and SetPins drop the write when the generation no
// longer matches gen, so a fill loaded before a write cannot outlive it.
type PinCache interface {
	Generation(ctx context.Context) (int64, error)
	GetPin(ctx context.Context, id int) (models.Pin, bool, error)
	SetPin(ctx context.Context, pin models.Pin, gen int64) error
	GetPins(ctx context.Context) ([]models.Pin, bool, error)
	SetPins(ctx context.Context, pins []models.Pin, gen int64) error
	Invalidate(ctx context.Context, ids ...int) error
}

// EventPublisher announces committed changes.
type EventPublisher interface {
	Publish(ctx context.Context, subject string, payload any) error
}

type PinOption func(*PinService)

func WithCache(c PinCache) PinOption {
	return func(s *PinService) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithEvents(p EventPublisher) PinOption {
	return func(s *PinService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithLogger(log logrus.FieldLogger) PinOption {
	return func(s *PinService) {
		if log != nil {
			s.log = log
		}
	}
}

// PinService owns pins together with their likes and comments.
type PinService struct {
	store  store.Store
	blobs  blob.Store
	cache  PinCache
	events EventPublisher
	log    logrus.FieldLogger
}

func NewPinService(s store.Store, blobs blob.Store, opts ...PinOption) *PinService {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	svc := &PinService{
		store:  s,
		blobs:  blobs,
		cache:  noopCache{},
		events: noopPublisher{},
		log:    discard,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Create stores the optional image first and then the pin row. The image is
// removed again when the row cannot be written.
func (s *PinService) Create(ctx context.Context, ownerID int, title string, content *string, image *Upload) (models.Pin, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.Pin{}, apperr.BadRequestField("title", "title is required")
	}

	imagePath, err := s.putImage(ctx, image)
	if err != nil {
		return models.Pin{}, err
	}

	pin, err := s.store.CreatePin(ctx, models.Pin{
		OwnerID: ownerID,
		Title:   title,
		Content: content,
		Image:   imagePath,
	})
	if err != nil {
		s.discardImage(ctx, imagePath)
		if errors.Is(err, store.ErrInvalidReference) {
			return models.Pin{}, apperr.NotFound(msgUserNotFound)
		}
		return models.Pin{}, fmt.Errorf("create pin: %w", err)
	}

	s.invalidate(ctx)
	s.publish(ctx, events.SubjectPinCreated, events.PinEvent{
		PinID:     pin.ID,
		UserID:    pin.OwnerID,
		Title:     pin.Title,
		Timestamp: events.Timestamp(pin.CreatedAt),
	})
	return pin, nil
}

// Update replaces only the supplied fields. The previous image file is kept.
func (s *PinService) Update(ctx context.Context, pinID, ownerID int, title, content *string, image *Upload) (models.Pin, error) {
	if title != nil {
		trimmed := strings.TrimSpace(*title)
		if trimmed == "" {
			return models.Pin{}, apperr.BadRequestField("title", "title must not be empty")
		}
		title = &trimmed
	}

	var (
		updated   models.Pin
		imagePath *string
	)
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		pin, err := repo.GetPin(ctx, pinID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(msgPinNotFound)
		}
		if err != nil {
			return fmt.Errorf("load pin: %w", err)
		}
		if pin.OwnerID != ownerID {
			return apperr.Forbidden(msgPinEditForbidden)
		}

		imagePath, err = s.putImage(ctx, image)
		if err != nil {
			return err
		}

		if title != nil {
			pin.Title = *title
		}
		if content != nil {
			pin.Content = content
		}
		if imagePath != nil {
			pin.Image = imagePath
		}

		updated, err = repo.UpdatePin(ctx, pin)
		if err != nil {
			return fmt.Errorf("update pin: %w", err)
		}
		return nil
	})
	if err != nil {
		s.discardImage(ctx, imagePath)
		return models.Pin{}, err
	}

	s.invalidate(ctx, pinID)
	s.publish(ctx, events.SubjectPinUpdated, events.PinEvent{
		PinID:     updated.ID,
		UserID:    updated.OwnerID,
		Title:     updated.Title,
		Timestamp: events.Timestamp(updated.UpdatedAt),
	})
	return updated, nil
}

// Delete removes the pin; likes and comments go with it.
func (s *PinService) Delete(ctx context.Context, pinID, ownerID int) error {
	var image *string
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		pin, err := repo.GetPin(ctx, pinID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(msgPinNotFound)
		}
		if err != nil {
			return fmt.Errorf("load pin: %w", err)
		}
		if pin.OwnerID != ownerID {
			return apperr.Forbidden(msgPinDeleteForbidden)
		}
		image = pin.Image

		if err := repo.DeletePin(ctx, pinID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(msgPinNotFound)
			}
			return fmt.Errorf("delete pin: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.discardImage(ctx, image)
	s.invalidate(ctx, pinID)
	s.publish(ctx, events.SubjectPinDeleted, events.PinEvent{
		PinID:     pinID,
		UserID:    ownerID,
		Timestamp: events.Timestamp(timeNow()),
	})
	return nil
}

// Search matches keyword as a substring of the title.
func (s *PinService) Search(ctx context.Context, keyword string) ([]models.Pin, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperr.BadRequestField("search", msgKeywordRequired)
	}
	pins, err := s.store.SearchPins(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("search pins: %w", err)
	}
	return pins, nil
}

func (s *PinService) List(ctx context.Context) ([]models.Pin, error) {
	if pins, ok, err := s.cache.GetPins(ctx); err != nil {
		s.log.WithError(err).Warn("pin cache read failed")
	} else if ok {
		return pins, nil
	}
	// The generation must be read before the store so a concurrent write
	// invalidates this fill.
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.log.WithError(genErr).Warn("pin cache generation read failed")
	}

	pins, err := s.store.ListPins(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pins: %w", err)
	}
	if genErr == nil {
		if err := s.cache.SetPins(ctx, pins, gen); err != nil {
			s.log.WithError(err).Warn("pin cache write failed")
		}
	}
	return pins, nil
}

func (s *PinService) GetDetail(ctx context.Context, pinID int) (models.Pin, error) {
	if pin, ok, err := s.cache.GetPin(ctx, pinID); err != nil {
		s.log.WithError(err).WithField("pin_id", pinID).Warn("pin cache read failed")
	} else if ok {
		return pin, nil
	}
	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.log.WithError(genErr).WithField("pin_id", pinID).Warn("pin cache generation read failed")
	}

	pin, err := s.store.GetPin(ctx, pinID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Pin{}, apperr.NotFound(msgPinNotFound)
	}
	if err != nil {
		return models.Pin{}, fmt.Errorf("load pin: %w", err)
	}
	if genErr == nil {
		if err := s.cache.SetPin(ctx, pin, gen); err != nil {
			s.log.WithError(err).WithField("pin_id", pinID).Warn("pin cache write failed")
		}
	}
	return pin, nil
}

// Like records that userID favorited pinID. Duplicates are rejected by the
// store's (user_id, pin_id) constraint.
func (s *PinService) Like(ctx context.Context, pinID, userID int) (models.Like, error) {
	var like models.Like
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetPin(ctx, pinID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(msgPinNotFound)
			}
			return fmt.Errorf("load pin: %w", err)
		}

		var err error
		like, err = repo.CreateLike(ctx, models.Like{UserID: userID, PinID: pinID})
		switch {
		case errors.Is(err, store.ErrConflict):
			return apperr.Conflict(msgAlreadyLiked)
		case errors.Is(err, store.ErrInvalidReference):
			return referenceNotFound(err)
		case err != nil:
			return fmt.Errorf("create like: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Like{}, err
	}

	s.invalidate(ctx, pinID)
	s.publish(ctx, events.SubjectPinLiked, events.LikeEvent{
		LikeID:    like.ID,
		PinID:     like.PinID,
		UserID:    like.UserID,
		Timestamp: events.Timestamp(like.CreatedAt),
	})
	return like, nil
}

func (s *PinService) ListLikes(ctx context.Context, pinID int) ([]models.Like, error) {
	if err := s.ensurePin(ctx, pinID); err != nil {
		return nil, err
	}
	likes, err := s.store.ListLikesByPin(ctx, pinID)
	if err != nil {
		return nil, fmt.Errorf("list likes: %w", err)
	}
	return likes, nil
}

func (s *PinService) AddComment(ctx context.Context, pinID, userID int, content string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, apperr.BadRequestField("content", "content is required")
	}

	var comment models.Comment
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetPin(ctx, pinID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(msgPinNotFound)
			}
			return fmt.Errorf("load pin: %w", err)
		}

		var err error
		comment, err = repo.CreateComment(ctx, models.Comment{UserID: userID, PinID: pinID, Content: content})
		if errors.Is(err, store.ErrInvalidReference) {
			return referenceNotFound(err)
		}
		if err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}

	s.publish(ctx, events.SubjectCommentCreated, commentEvent(comment, comment.CreatedAt))
	return comment, nil
}

func (s *PinService) ListComments(ctx context.Context, pinID int) ([]models.Comment, error) {
	if err := s.ensurePin(ctx, pinID); err != nil {
		return nil, err
	}
	comments, err := s.store.ListCommentsByPin(ctx, pinID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *PinService) GetComment(ctx context.Context, commentID int) (models.Comment, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Comment{}, apperr.NotFound(msgCommentNotFound)
	}
	if err != nil {
		return models.Comment{}, fmt.Errorf("load comment: %w", err)
	}
	return comment, nil
}

func (s *PinService) UpdateComment(ctx context.Context, commentID, userID int, content string) (models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return models.Comment{}, apperr.BadRequestField("content", "content is required")
	}

	var updated models.Comment
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		comment, err := repo.GetComment(ctx, commentID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(msgCommentNotFound)
		}
		if err != nil {
			return fmt.Errorf("load comment: %w", err)
		}
		if comment.UserID != userID {
			return apperr.Forbidden(msgCommentEditDenied)
		}

		comment.Content = content
		updated, err = repo.UpdateComment(ctx, comment)
		if err != nil {
			return fmt.Errorf("update comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Comment{}, err
	}

	s.publish(ctx, events.SubjectCommentUpdated, commentEvent(updated, updated.UpdatedAt))
	return updated, nil
}

func (s *PinService) DeleteComment(ctx context.Context, commentID, userID int) error {
	var deleted models.Comment
	err := s.store.WithTx(ctx, func(repo store.Repository) error {
		comment, err := repo.GetComment(ctx, commentID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound(msgCommentNotFound)
		}
		if err != nil {
			return fmt.Errorf("load comment: %w", err)
		}
		if comment.UserID != userID {
			return apperr.Forbidden(msgCommentDeleteDeny)
		}
		deleted = comment

		if err := repo.DeleteComment(ctx, commentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound(msgCommentNotFound)
			}
			return fmt.Errorf("delete comment: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.SubjectCommentDeleted, commentEvent(deleted, timeNow()))
	return nil
}

func (s *PinService) ensurePin(ctx context.Context, pinID int) error {
	_, err := s.store.GetPin(ctx, pinID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(msgPinNotFound)
	}
	if err != nil {
		return fmt.Errorf("load pin: %w", err)
	}
	return nil
}

func (s *PinService) putImage(ctx context.Context, image *Upload) (*string, error) {
	if image == nil || image.Reader == nil {
		return nil, nil
	}
	stored, err := s.blobs.Put(ctx, image.Reader, image.Ext)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	return &stored, nil
}

func (s *PinService) discardImage(ctx context.Context, imagePath *string) {
	if imagePath == nil || *imagePath == "" {
		return
	}
	if err := s.blobs.Delete(ctx, *imagePath); err != nil {
		s.log.WithError(err).WithField("image", *imagePath).Warn("failed to remove image")
	}
}

func (s *PinService) invalidate(ctx context.Context, ids ...int) {
	if err := s.cache.Invalidate(ctx, ids...); err != nil {
		s.log.WithError(err).Warn("pin cache invalidation failed")
	}
}

func (s *PinService) publish(ctx context.Context, subject string, payload any) {
	if err := s.events.Publish(ctx, subject, payload); err != nil {
		s.log.WithError(err).WithField("subject", subject).Warn("event publish failed")
	}
}

// referenceNotFound names the missing parent of a rejected like or comment.
func referenceNotFound(err error) error {
	switch store.Constraint(err) {
	case store.ConstraintLikesUser, store.ConstraintCommentsUser:
		return apperr.NotFound(msgUserNotFound)
	default:
		return apperr.NotFound(msgPinNotFound)
	}
}

func commentEvent(comment models.Comment, at time.Time) events.CommentEvent {
	return events.CommentEvent{
		CommentID: comment.ID,
		PinID:     comment.PinID,
		UserID:    comment.UserID,
		Timestamp: events.Timestamp(at),
	}
}

type noopCache struct{}

func (noopCache) Generation(context.Context) (int64, error) { return 0, nil }
func (noopCache) GetPin(context.Context, int) (models.Pin, bool, error) { return models.Pin{}, false, nil }
func (noopCache) SetPin(context.Context, models.Pin, int64) error { return nil }
func (noopCache) GetPins(context.Context) ([]models.Pin, bool, error) { return nil, false, nil }
func (noopCache) SetPins(context.Context, []models.Pin, int64) error { return nil }
func (noopCache) Invalidate(context.Context, ...int) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
