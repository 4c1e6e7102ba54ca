package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"product-lens/internal/ai"
	"product-lens/internal/bootstrap"
)

type HealthHandler struct {
	app *bootstrap.App
}

type dependencyStatus struct {
	OK       bool   `json:"ok"`
	Disabled bool   `json:"disabled,omitempty"`
	Message  string `json:"message,omitempty"`
}

func NewHealthHandler(app *bootstrap.App) *HealthHandler {
	return &HealthHandler{app: app}
}

func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	referenceStatus := h.checkReference(ctx)
	redisStatus := h.checkRedis(ctx)
	rmqStatus := h.checkRabbitMQ()

	allOK := referenceStatus.OK && redisStatus.OK && rmqStatus.OK
	statusCode := http.StatusOK
	if !allOK {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"app":        h.app.Config.App.Name,
		"env":        h.app.Config.App.Env,
		"uptime_sec": int(time.Since(h.app.StartedAt).Seconds()),
		"catalog": gin.H{
			"rows":     h.app.Catalog.Len(),
			"products": len(h.app.Catalog.Products()),
		},
		"reference": gin.H{
			"name": h.app.ReferenceFile.Name,
			"uri":  h.app.ReferenceFile.URI,
		},
		"dependencies": gin.H{
			"reference_file": referenceStatus,
			"redis":          redisStatus,
			"rabbitmq":       rmqStatus,
		},
	})
}

// checkReference re-reads the reference file state; the remote service
// expires uploads, after which classification cannot work.
func (h *HealthHandler) checkReference(ctx context.Context) dependencyStatus {
	f, err := h.app.Remote.GetFile(ctx, h.app.ReferenceFile.Name)
	if err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	if f.State != ai.FileStateActive {
		return dependencyStatus{OK: false, Message: "reference file is " + string(f.State)}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRedis(ctx context.Context) dependencyStatus {
	if h.app.Redis == nil {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if err := h.app.Redis.Ping(ctx).Err(); err != nil {
		return dependencyStatus{OK: false, Message: err.Error()}
	}
	return dependencyStatus{OK: true}
}

func (h *HealthHandler) checkRabbitMQ() dependencyStatus {
	if h.app.MQConn == nil {
		return dependencyStatus{OK: true, Disabled: true}
	}
	if h.app.MQConn.IsClosed() {
		return dependencyStatus{OK: false, Message: "connection closed"}
	}
	return dependencyStatus{OK: true}
}
