package contracts

import (
	"time"

	"github.com/GFB-Team3/backend/internal/models"
)

const LoginMessage = "login ok"

// UserResponse never carries the password digest.
type UserResponse struct {
	UserID    int       `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserResponse(user models.User) UserResponse {
	return UserResponse{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

type LoginResponse struct {
	Message string `json:"message"`
	UserID  int    `json:"user_id"`
}

type PinResponse struct {
	PinID     int       `json:"pin_id"`
	UserID    int       `json:"user_id"`
	Title     string    `json:"title"`
	Content   *string   `json:"content"`
	Image     *string   `json:"image"`
	LikeCount int       `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewPinResponse(pin models.Pin) PinResponse {
	return PinResponse{
		PinID:     pin.ID,
		UserID:    pin.OwnerID,
		Title:     pin.Title,
		Content:   pin.Content,
		Image:     pin.Image,
		LikeCount: pin.LikeCount,
		CreatedAt: pin.CreatedAt,
		UpdatedAt: pin.UpdatedAt,
	}
}

// NewPinResponses always returns a non-nil slice so empty lists encode as [].
func NewPinResponses(pins []models.Pin) []PinResponse {
	out := make([]PinResponse, 0, len(pins))
	for _, pin := range pins {
		out = append(out, NewPinResponse(pin))
	}
	return out
}

type LikeResponse struct {
	LikeID    int       `json:"like_id"`
	UserID    int       `json:"user_id"`
	PinID     int       `json:"pin_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewLikeResponse(like models.Like) LikeResponse {
	return LikeResponse{
		LikeID:    like.ID,
		UserID:    like.UserID,
		PinID:     like.PinID,
		CreatedAt: like.CreatedAt,
		UpdatedAt: like.UpdatedAt,
	}
}

func NewLikeResponses(likes []models.Like) []LikeResponse {
	out := make([]LikeResponse, 0, len(likes))
	for _, like := range likes {
		out = append(out, NewLikeResponse(like))
	}
	return out
}

type CommentResponse struct {
	CommentID int       `json:"comment_id"`
	UserID    int       `json:"user_id"`
	PinID     int       `json:"pin_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewCommentResponse(comment models.Comment) CommentResponse {
	return CommentResponse{
		CommentID: comment.ID,
		UserID:    comment.UserID,
		PinID:     comment.PinID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
	}
}

func NewCommentResponses(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, comment := range comments {
		out = append(out, NewCommentResponse(comment))
	}
	return out
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Field string `json:"field,omitempty"`
}
