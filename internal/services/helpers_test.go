package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/store"
)

// fakeBlobs keeps blobs in memory and records deletions.
type fakeBlobs struct {
	mu      sync.Mutex
	seq     int
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (f *fakeBlobs) Put(_ context.Context, r io.Reader, ext string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	p := fmt.Sprintf("/src/blob-%d%s", f.seq, ext)
	f.objects[p] = data
	return p, nil
}

func (f *fakeBlobs) Delete(_ context.Context, p string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, p)
	f.deleted = append(f.deleted, p)
	return nil
}

func (f *fakeBlobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeCache is a map-backed PinCache that can be told to fail. Like the Redis
// cache it drops fills carrying a generation older than the last Invalidate.
type fakeCache struct {
	pins        map[int]models.Pin
	list        []models.Pin
	hasList     bool
	gen         int64
	invalidated [][]int
	fail        bool
}

var errCacheDown = errors.New("cache down")

func newFakeCache() *fakeCache {
	return &fakeCache{pins: make(map[int]models.Pin)}
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	if c.fail {
		return 0, errCacheDown
	}
	return c.gen, nil
}

func (c *fakeCache) GetPin(_ context.Context, id int) (models.Pin, bool, error) {
	if c.fail {
		return models.Pin{}, false, errCacheDown
	}
	pin, ok := c.pins[id]
	return pin, ok, nil
}

func (c *fakeCache) SetPin(_ context.Context, pin models.Pin, gen int64) error {
	if c.fail {
		return errCacheDown
	}
	if gen == c.gen {
		c.pins[pin.ID] = pin
	}
	return nil
}

func (c *fakeCache) GetPins(context.Context) ([]models.Pin, bool, error) {
	if c.fail {
		return nil, false, errCacheDown
	}
	return c.list, c.hasList, nil
}

func (c *fakeCache) SetPins(_ context.Context, pins []models.Pin, gen int64) error {
	if c.fail {
		return errCacheDown
	}
	if gen == c.gen {
		c.list, c.hasList = pins, true
	}
	return nil
}

func (c *fakeCache) Invalidate(_ context.Context, ids ...int) error {
	c.invalidated = append(c.invalidated, ids)
	if c.fail {
		return errCacheDown
	}
	c.gen++
	c.list, c.hasList = nil, false
	for _, id := range ids {
		delete(c.pins, id)
	}
	return nil
}

// racingStore runs a hook once, right after a read returns. The hook stands
// in for a write committed between the read and the cache fill.
type racingStore struct {
	store.Store
	afterListPins func()
	afterGetPin   func()
}

func (s *racingStore) ListPins(ctx context.Context) ([]models.Pin, error) {
	pins, err := s.Store.ListPins(ctx)
	if hook := s.afterListPins; hook != nil {
		s.afterListPins = nil
		hook()
	}
	return pins, err
}

func (s *racingStore) GetPin(ctx context.Context, id int) (models.Pin, error) {
	pin, err := s.Store.GetPin(ctx, id)
	if hook := s.afterGetPin; hook != nil {
		s.afterGetPin = nil
		hook()
	}
	return pin, err
}

type publishedEvent struct {
	subject string
	payload any
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, payload any) error {
	p.events = append(p.events, publishedEvent{subject: subject, payload: payload})
	return p.err
}

func (p *fakePublisher) subjects() []string {
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.subject)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
