package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	httpapi "github.com/GoSim-25-26J-441/onionpop/internal/api/http"
	"github.com/GoSim-25-26J-441/onionpop/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/onionpop/internal/api/http/routes"
	cchttp "github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/http"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/service"
	"github.com/GoSim-25-26J-441/onionpop/internal/metrics"
)

type RouterDeps struct {
	ServiceName    string
	Version        string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	CumulPoints    int

	DB        *pgxpool.Pool
	Redis     *redis.Client
	Service   *service.ClassificationService
	Decisions cchttp.DecisionReader
	Metrics   *metrics.Registry
	Log       *zap.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Log))
	if dep.Metrics != nil {
		r.Use(middleware.Metrics(dep.Metrics))
		r.GET("/metrics", gin.WrapH(dep.Metrics.Handler()))
	}
	r.Use(cors.New(corsConfig(dep.CORSOrigins)))

	var db, rdb httpapi.Pinger
	if dep.DB != nil {
		db = dep.DB
	}
	if dep.Redis != nil {
		rdb = RedisPinger{Client: dep.Redis}
	}
	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, db, rdb, modelStatus(dep.Service))
	healthHandler.RegisterRoutes(r)

	routes.RegisterV1(r, routes.V1Deps{
		Classification: dep.Service,
		Decisions:      dep.Decisions,
		CumulPoints:    dep.CumulPoints,
		RateLimitRPS:   dep.RateLimitRPS,
		RateLimitBurst: dep.RateLimitBurst,
		Log:            dep.Log,
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func modelStatus(svc *service.ClassificationService) httpapi.ModelStatus {
	if svc == nil {
		return nil
	}
	return func() string {
		if m := svc.Current(); m != nil {
			return m.Name
		}
		return ""
	}
}
