package models

import (
	"time"
)

// Pin is a user-authored post with a title, optional text and an optional image path.
type Pin struct {
	ID        int       `json:"pin_id" db:"id"`
	OwnerID   int       `json:"user_id" db:"owner_id"`
	Title     string    `json:"title" db:"title"`
	Content   *string   `json:"content" db:"content"`
	Image     *string   `json:"image" db:"image"`
	LikeCount int       `json:"like_count" db:"like_count"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Like struct {
	ID        int       `json:"like_id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	PinID     int       `json:"pin_id" db:"pin_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Comment struct {
	ID        int       `json:"comment_id" db:"id"`
	UserID    int       `json:"user_id" db:"user_id"`
	PinID     int       `json:"pin_id" db:"pin_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Stats holds row counts used by the monitoring snapshot.
type Stats struct {
	Users    int64 `json:"users" db:"users"`
	Pins     int64 `json:"pins" db:"pins"`
	Likes    int64 `json:"likes" db:"likes"`
	Comments int64 `json:"comments" db:"comments"`
}
