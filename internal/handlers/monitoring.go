package handlers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GFB-Team3/backend/internal/contracts"
)

const monitoringKeyHeader = "X-Monitoring-Key"

func (h *Handler) checkMonitoringToken(c *gin.Context) bool {
	expected := strings.TrimSpace(h.monitoringKey)
	if expected == "" || h.monitoring == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, contracts.ErrorResponse{
			Error: "Monitoring API is disabled",
			Code:  "unavailable",
		})
		return false
	}

	provided := strings.TrimSpace(c.GetHeader(monitoringKeyHeader))
	if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, contracts.ErrorResponse{
			Error: "Invalid monitoring key",
			Code:  "unauthorized",
		})
		return false
	}
	return true
}

func (h *Handler) MonitorStatus(c *gin.Context) {
	if !h.checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": h.monitoring.StatusText(c.Request.Context())})
}

func (h *Handler) MonitorStorage(c *gin.Context) {
	if !h.checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": h.monitoring.StorageText(c.Request.Context())})
}

func (h *Handler) MonitorConnections(c *gin.Context) {
	if !h.checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": h.monitoring.ConnectionsText()})
}

func (h *Handler) MonitorRuntime(c *gin.Context) {
	if !h.checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": h.monitoring.RuntimeText()})
}

func (h *Handler) MonitorContent(c *gin.Context) {
	if !h.checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": h.monitoring.ContentText(c.Request.Context())})
}

func (h *Handler) MonitorAll(c *gin.Context) {
	if !h.checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": h.monitoring.AllText(c.Request.Context())})
}

func (h *Handler) MonitorSnapshot(c *gin.Context) {
	if !h.checkMonitoringToken(c) {
		return
	}
	c.JSON(http.StatusOK, h.monitoring.Snapshot(c.Request.Context()))
}
