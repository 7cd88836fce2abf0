package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/internal/api/http/middleware"
	cchttp "github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/http"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/service"
)

type V1Deps struct {
	Classification *service.ClassificationService
	Decisions      cchttp.DecisionReader
	CumulPoints    int
	RateLimitRPS   float64
	RateLimitBurst int
	Log            *zap.Logger
}

func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")

	var limit []gin.HandlerFunc
	if dep.RateLimitRPS > 0 && dep.RateLimitBurst > 0 {
		limit = append(limit, middleware.RateLimit(dep.RateLimitRPS, dep.RateLimitBurst))
	}

	h := cchttp.New(dep.Classification, dep.Decisions, dep.CumulPoints, dep.Log)
	h.Register(api, limit...)
}
