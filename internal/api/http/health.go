package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	DB        string    `json:"db,omitempty"`
	Redis     string    `json:"redis,omitempty"`
	Model     string    `json:"model,omitempty"`
}

// Pinger is satisfied by *pgxpool.Pool and by the redis client adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelStatus reports the name of the served model, empty when none is loaded.
type ModelStatus func() string

type HealthHandler struct {
	serviceName string
	version     string
	db          Pinger
	redis       Pinger
	model       ModelStatus
}

func NewHealthHandler(serviceName, version string, db, redis Pinger, model ModelStatus) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		db:          db,
		redis:       redis,
		model:       model,
	}
}

// HealthCheck always answers 200; dependency state is informational.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	status := "healthy"
	modelStatus := ""
	if h.model != nil {
		modelStatus = h.model()
		if modelStatus == "" {
			modelStatus = "none"
			status = "degraded"
		}
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   h.serviceName,
		Version:   h.version,
		DB:        ping(c.Request.Context(), h.db),
		Redis:     ping(c.Request.Context(), h.redis),
		Model:     modelStatus,
	})
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

func ping(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	pingCtx, cancel := context.WithTimeout(ctx, 1*time.Second)
	defer cancel()

	if err := p.Ping(pingCtx); err != nil {
		return "down"
	}
	return "up"
}
