package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/GFB-Team3/backend/internal/apperr"
	"github.com/GFB-Team3/backend/internal/contracts"
	"github.com/GFB-Team3/backend/internal/services"
)

const (
	imageFormField = "image"
	// room for the non-file form fields and multipart framing
	multipartOverhead = 1 << 20
	sniffLen          = 3072
)

// supportedImageTypes maps a detected MIME type to the file extensions
// accepted for it. The first extension is the canonical one.
var supportedImageTypes = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/webp": {".webp"},
}

func normalizeMimeType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if separator := strings.Index(normalized, ";"); separator >= 0 {
		normalized = strings.TrimSpace(normalized[:separator])
	}
	return normalized
}

// imageExtension keeps the client's extension when it matches the detected
// type and falls back to the canonical one otherwise. The stored extension is
// always lowercase, so photo.JPG is stored as .jpg and a PNG named cat.jpg is
// stored as .png.
func imageExtension(filename string, allowed []string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, candidate := range allowed {
		if ext == candidate {
			return ext
		}
	}
	return allowed[0]
}

func (h *Handler) tryAcquireUploadSlot() bool {
	select {
	case h.uploadSlots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (h *Handler) releaseUploadSlot() {
	select {
	case <-h.uploadSlots:
	default:
	}
}

// limitBody caps multipart request bodies so an oversized upload fails while
// parsing instead of filling the temp directory.
func (h *Handler) limitBody(c *gin.Context) {
	if h.maxUploadBytes <= 0 {
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
}

func (h *Handler) tooLargeError() *apperr.Error {
	return apperr.TooLarge(fmt.Sprintf("Image is too large (max %d bytes)", h.maxUploadBytes))
}

func (h *Handler) bindForm(c *gin.Context, target any) bool {
	if err := c.ShouldBind(target); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondError(c, h.tooLargeError())
			return false
		}
		h.respondError(c, contracts.BindingError(err))
		return false
	}
	return true
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}

// withImage validates the optional "image" part and hands it to fn. fn gets
// nil when the request carries no image. Every image that reaches
// validation is accounted in the upload metrics.
func (h *Handler) withImage(c *gin.Context, fn func(image *services.Upload) error) error {
	file, header, err := c.Request.FormFile(imageFormField)
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
		return fn(nil)
	case err != nil:
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return h.tooLargeError()
		}
		return apperr.BadRequestField(imageFormField, "Error reading image")
	}
	defer file.Close()

	startedAt := time.Now()
	var storedBytes int64
	failureReason := ""
	defer func() {
		h.metrics.RecordUpload(storedBytes, time.Since(startedAt), failureReason == "", failureReason)
	}()

	if !h.tryAcquireUploadSlot() {
		failureReason = "parallel_upload_limit"
		return apperr.TooManyRequests("Too many concurrent uploads. Please retry shortly")
	}
	defer h.releaseUploadSlot()

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		failureReason = "file_too_large"
		return h.tooLargeError()
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		failureReason = "file_read_error"
		return apperr.BadRequestField(imageFormField, "Error reading image")
	}
	if n == 0 {
		failureReason = "file_empty"
		return apperr.BadRequestField(imageFormField, "Image is empty")
	}

	mimeType := normalizeMimeType(mimetype.Detect(head[:n]).String())
	extensions, ok := supportedImageTypes[mimeType]
	if !ok {
		failureReason = "unsupported_mime"
		return apperr.BadRequestField(imageFormField,
			fmt.Sprintf("Unsupported image format (%s). Allowed: jpeg, png, gif, webp", mimeType))
	}

	reader := &countingReader{r: io.MultiReader(bytes.NewReader(head[:n]), file)}
	err = fn(&services.Upload{Reader: reader, Ext: imageExtension(header.Filename, extensions)})
	storedBytes = reader.n
	if err != nil {
		if apperr.From(err).Kind == apperr.KindInternal {
			failureReason = "store_error"
		} else {
			failureReason = "rejected"
		}
	}
	return err
}
