// Package events publishes domain events to NATS.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	SubjectPinCreated     = "pin.created"
	SubjectPinUpdated     = "pin.updated"
	SubjectPinDeleted     = "pin.deleted"
	SubjectPinLiked       = "pin.liked"
	SubjectCommentCreated = "comment.created"
	SubjectCommentUpdated = "comment.updated"
	SubjectCommentDeleted = "comment.deleted"
)

var errNotConnected = errors.New("nats: publisher not connected")

type PinEvent struct {
	PinID     int    `json:"pin_id"`
	UserID    int    `json:"user_id"`
	Title     string `json:"title,omitempty"`
	Timestamp string `json:"timestamp"`
}

type LikeEvent struct {
	LikeID    int    `json:"like_id"`
	PinID     int    `json:"pin_id"`
	UserID    int    `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

type CommentEvent struct {
	CommentID int    `json:"comment_id"`
	PinID     int    `json:"pin_id"`
	UserID    int    `json:"user_id"`
	Timestamp string `json:"timestamp"`
}

// Timestamp formats t the way every event payload carries it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// Publisher sends JSON-encoded events.
type Publisher struct {
	conn *nats.Conn
}

func Connect(url string) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("pins-api"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subject, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn == nil {
		return errNotConnected
	}
	return p.conn.Publish(subject, data)
}

// Close flushes pending messages before disconnecting.
func (p *Publisher) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Drain()
}
