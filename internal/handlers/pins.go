package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GFB-Team3/backend/internal/contracts"
	"github.com/GFB-Team3/backend/internal/models"
	"github.com/GFB-Team3/backend/internal/services"
)

const (
	msgPinDeleted     = "Pin deleted successfully"
	msgCommentDeleted = "Comment deleted successfully"
)

// CreatePin handles multipart pin creation with an optional image.
func (h *Handler) CreatePin(c *gin.Context) {
	h.limitBody(c)

	var form contracts.PinCreateForm
	if !h.bindForm(c, &form) {
		return
	}

	var pin models.Pin
	err := h.withImage(c, func(image *services.Upload) error {
		var createErr error
		pin, createErr = h.pins.Create(c.Request.Context(), form.UserID, form.Title, form.Content, image)
		return createErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contracts.NewPinResponse(pin))
}

// UpdatePin applies a partial update. Only the owner may edit.
func (h *Handler) UpdatePin(c *gin.Context) {
	pinID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	h.limitBody(c)

	var form contracts.PinUpdateForm
	if !h.bindForm(c, &form) {
		return
	}

	var pin models.Pin
	err := h.withImage(c, func(image *services.Upload) error {
		var updateErr error
		pin, updateErr = h.pins.Update(c.Request.Context(), pinID, form.UserID, form.Title, form.Content, image)
		return updateErr
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewPinResponse(pin))
}

func (h *Handler) DeletePin(c *gin.Context) {
	pinID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req contracts.UserIDRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.pins.Delete(c.Request.Context(), pinID, req.UserID); err != nil {
		h.respondError(c, err)
		return
	}
	respondMessage(c, msgPinDeleted)
}

// SearchPins matches the keyword against titles.
func (h *Handler) SearchPins(c *gin.Context) {
	pins, err := h.pins.Search(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewPinResponses(pins))
}

func (h *Handler) ListPins(c *gin.Context) {
	pins, err := h.pins.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewPinResponses(pins))
}

func (h *Handler) GetPin(c *gin.Context) {
	pinID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	pin, err := h.pins.GetDetail(c.Request.Context(), pinID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewPinResponse(pin))
}

func (h *Handler) LikePin(c *gin.Context) {
	pinID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req contracts.UserIDRequest
	if !h.bindJSON(c, &req) {
		return
	}

	like, err := h.pins.Like(c.Request.Context(), pinID, req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contracts.NewLikeResponse(like))
}

func (h *Handler) ListLikes(c *gin.Context) {
	pinID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	likes, err := h.pins.ListLikes(c.Request.Context(), pinID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewLikeResponses(likes))
}

func (h *Handler) AddComment(c *gin.Context) {
	pinID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req contracts.CommentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	comment, err := h.pins.AddComment(c.Request.Context(), pinID, req.UserID, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, contracts.NewCommentResponse(comment))
}

func (h *Handler) ListComments(c *gin.Context) {
	pinID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	comments, err := h.pins.ListComments(c.Request.Context(), pinID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewCommentResponses(comments))
}

func (h *Handler) GetComment(c *gin.Context) {
	commentID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	comment, err := h.pins.GetComment(c.Request.Context(), commentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewCommentResponse(comment))
}

// UpdateComment replaces the text. Only the author may edit.
func (h *Handler) UpdateComment(c *gin.Context) {
	commentID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req contracts.CommentRequest
	if !h.bindJSON(c, &req) {
		return
	}

	comment, err := h.pins.UpdateComment(c.Request.Context(), commentID, req.UserID, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, contracts.NewCommentResponse(comment))
}

func (h *Handler) DeleteComment(c *gin.Context) {
	commentID, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	var req contracts.UserIDRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if err := h.pins.DeleteComment(c.Request.Context(), commentID, req.UserID); err != nil {
		h.respondError(c, err)
		return
	}
	respondMessage(c, msgCommentDeleted)
}
