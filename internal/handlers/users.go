package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GFB-Team3/backend/internal/contracts"
)

// SignUp registers a new account.
func (h *Handler) SignUp(c *gin.Context) {
	var req contracts.SignUpRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.users.SignUp(c.Request.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contracts.NewUserResponse(user))
}

// LogIn checks credentials and answers with the user id.
func (h *Handler) LogIn(c *gin.Context) {
	var req contracts.LoginRequest
	if !h.bindJSON(c, &req) {
		return
	}

	userID, err := h.users.LogIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.LoginResponse{Message: contracts.LoginMessage, UserID: userID})
}

func (h *Handler) GetUser(c *gin.Context) {
	userID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewUserResponse(user))
}

func (h *Handler) UpdateUser(c *gin.Context) {
	userID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req contracts.UserUpdateRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, req.Username)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewUserResponse(user))
}

// ListUserPins returns the pins a user created, newest activity first.
func (h *Handler) ListUserPins(c *gin.Context) {
	userID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	pins, err := h.users.ListPinsByUser(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewPinResponses(pins))
}

// ListUserLikes returns the pins a user liked, most recent like first.
func (h *Handler) ListUserLikes(c *gin.Context) {
	userID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	pins, err := h.users.ListLikedPins(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewPinResponses(pins))
}
