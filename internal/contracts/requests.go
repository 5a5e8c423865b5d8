// Package contracts holds the request and response shapes of the HTTP API
// together with their binding rules.
package contracts

type SignUpRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Username string `json:"username" binding:"required,min=1,max=50"`
	Password string `json:"password" binding:"required,min=1,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UserUpdateRequest carries a partial profile update. Absent fields are left unchanged.
type UserUpdateRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=50"`
}

// PinCreateForm is bound from multipart/form-data. The image part is read separately.
type PinCreateForm struct {
	UserID  int     `form:"user_id" binding:"required,gt=0"`
	Title   string  `form:"title" binding:"required,max=255"`
	Content *string `form:"content"`
}

type PinUpdateForm struct {
	UserID  int     `form:"user_id" binding:"required,gt=0"`
	Title   *string `form:"title" binding:"omitempty,min=1,max=255"`
	Content *string `form:"content"`
}

// UserIDRequest identifies the acting user for deletes and likes.
type UserIDRequest struct {
	UserID int `json:"user_id" binding:"required,gt=0"`
}

type CommentRequest struct {
	UserID  int    `json:"user_id" binding:"required,gt=0"`
	Content string `json:"content" binding:"required"`
}
