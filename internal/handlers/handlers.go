// Package handlers exposes the pin board over HTTP.
package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/GFB-Team3/backend/internal/apperr"
	"github.com/GFB-Team3/backend/internal/contracts"
	"github.com/GFB-Team3/backend/internal/middleware"
	"github.com/GFB-Team3/backend/internal/monitoring"
	"github.com/GFB-Team3/backend/internal/services"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Users      *services.UserService
	Pins       *services.PinService
	Store      Pinger
	Monitoring *monitoring.Service
	Metrics    *monitoring.Metrics

	UploadsDir         string
	UploadsPrefix      string
	MaxUploadBytes     int64
	MaxParallelUploads int
	MonitoringKey      string

	Log logrus.FieldLogger
}

type Handler struct {
	users      *services.UserService
	pins       *services.PinService
	store      Pinger
	monitoring *monitoring.Service
	metrics    *monitoring.Metrics

	uploadsDir     string
	uploadsPrefix  string
	maxUploadBytes int64
	uploadSlots    chan struct{}
	monitoringKey  string

	log logrus.FieldLogger
}

func New(opts Options) *Handler {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = monitoring.NewMetrics()
	}
	parallel := opts.MaxParallelUploads
	if parallel < 1 {
		parallel = 1
	}

	contracts.RegisterValidation()

	return &Handler{
		users:          opts.Users,
		pins:           opts.Pins,
		store:          opts.Store,
		monitoring:     opts.Monitoring,
		metrics:        metrics,
		uploadsDir:     opts.UploadsDir,
		uploadsPrefix:  opts.UploadsPrefix,
		maxUploadBytes: opts.MaxUploadBytes,
		uploadSlots:    make(chan struct{}, parallel),
		monitoringKey:  opts.MonitoringKey,
		log:            log,
	}
}

// Register mounts every route on the engine: the API under /api, the
// operational endpoints at the root and the stored images under the
// uploads prefix.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	if h.uploadsDir != "" && h.uploadsPrefix != "" {
		r.Static(h.uploadsPrefix, h.uploadsDir)
	}

	api := r.Group("/api")
	api.GET("/status", h.Status)

	users := api.Group("/users")
	{
		users.POST("/signup", h.SignUp)
		users.POST("/login", h.LogIn)
		users.GET("/:id", h.GetUser)
		users.PUT("/:id", h.UpdateUser)
		users.GET("/:id/pins", h.ListUserPins)
		users.GET("/:id/likes", h.ListUserLikes)
	}

	pins := api.Group("/pins")
	{
		pins.POST("", h.CreatePin)
		pins.GET("", h.ListPins)
		pins.GET("/search", h.SearchPins)
		pins.GET("/:id", h.GetPin)
		pins.PUT("/:id", h.UpdatePin)
		pins.DELETE("/:id", h.DeletePin)
		pins.POST("/:id/likes", h.LikePin)
		pins.GET("/:id/likes", h.ListLikes)
		pins.POST("/:id/comments", h.AddComment)
		pins.GET("/:id/comments", h.ListComments)
		pins.GET("/comments/:id", h.GetComment)
		pins.PUT("/comments/:id", h.UpdateComment)
		pins.DELETE("/comments/:id", h.DeleteComment)
	}

	monitor := api.Group("/monitor")
	{
		monitor.GET("/status", h.MonitorStatus)
		monitor.GET("/storage", h.MonitorStorage)
		monitor.GET("/connections", h.MonitorConnections)
		monitor.GET("/runtime", h.MonitorRuntime)
		monitor.GET("/content", h.MonitorContent)
		monitor.GET("/all", h.MonitorAll)
		monitor.GET("/snapshot", h.MonitorSnapshot)
	}
}

func (h *Handler) parseID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		h.respondError(c, apperr.BadRequestField(name, "Invalid "+name))
		return 0, false
	}
	return id, true
}

func (h *Handler) bindJSON(c *gin.Context, target any) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		h.respondError(c, contracts.BindingError(err))
		return false
	}
	return true
}

// respondError writes the error body for err. Unclassified failures are
// logged with the request id and reported as a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		h.log.WithError(err).WithFields(logrus.Fields{
			"request_id": middleware.RequestIDFromContext(c),
			"method":     c.Request.Method,
			"path":       c.FullPath(),
		}).Error("request failed")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus(), contracts.ErrorResponse{
		Error: appErr.Message,
		Code:  string(appErr.Kind),
		Field: appErr.Field,
	})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, contracts.MessageResponse{Message: message})
}
