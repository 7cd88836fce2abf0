package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/ingest/mapper"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/ingest/parser"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/service"
)

// DecisionReader looks up recorded decisions. *repository.DecisionRepository
// satisfies it.
type DecisionReader interface {
	GetByID(ctx context.Context, id string) (*domain.DecisionRecord, error)
	ListByModel(ctx context.Context, modelName string, limit int) ([]*domain.DecisionRecord, error)
	DetectionRate(ctx context.Context, modelName string, since time.Time) (float64, int64, error)
}

const (
	defaultDecisionLimit  = 50
	maxDecisionLimit      = 1000
	defaultDecisionWindow = 24 * time.Hour
)

type Handler struct {
	svc        *service.ClassificationService
	decisions  DecisionReader
	points     int
	convention features.SequenceConvention
	log        *zap.Logger
}

// New builds the handler. decisions may be nil, in which case decision
// lookups answer 404.
func New(svc *service.ClassificationService, decisions DecisionReader, points int, log *zap.Logger) *Handler {
	if points <= 0 {
		points = features.DefaultInterpolationPoints
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:        svc,
		decisions:  decisions,
		points:     points,
		convention: features.ConventionClient,
		log:        log,
	}
}

func (h *Handler) bindCircuits(c *gin.Context) ([]*domain.Circuit, bool) {
	var body parser.YTrace
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trace body"})
		return nil, false
	}
	return mapper.ToCircuits(&body), true
}

// Classify answers one decision for a single-circuit body and a list of
// per-circuit results for a "circuits" body.
func (h *Handler) Classify(c *gin.Context) {
	circuits, ok := h.bindCircuits(c)
	if !ok {
		return
	}
	if len(circuits) == 1 {
		rec, err := h.svc.Classify(c.Request.Context(), circuits[0])
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
		return
	}

	if h.svc.Current() == nil {
		h.fail(c, domain.ErrNoModelLoaded)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": h.svc.ClassifyAll(c.Request.Context(), circuits)})
}

// Features reports the extracted features. The CUMUL vector follows the
// served model's CUMUL stage when it has one.
func (h *Handler) Features(c *gin.Context) {
	circuits, ok := h.bindCircuits(c)
	if !ok {
		return
	}
	points, conv := h.svc.FeatureSettings(h.points, h.convention)
	reports := make([]*service.FeatureReport, 0, len(circuits))
	for _, circ := range circuits {
		r, err := service.ExtractFeatures(circ, points, conv)
		if err != nil {
			h.fail(c, err)
			return
		}
		reports = append(reports, r)
	}
	if len(reports) == 1 {
		c.JSON(http.StatusOK, reports[0])
		return
	}
	c.JSON(http.StatusOK, gin.H{"circuits": reports})
}

func (h *Handler) CurrentModel(c *gin.Context) {
	m := h.svc.Current()
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrNoModelLoaded.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *Handler) ListModels(c *gin.Context) {
	models, err := h.svc.Models(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"models": models})
}

// ModelDecisions lists a model's newest decisions and its detection rate
// over the ?since window (a Go duration, default 24h).
func (h *Handler) ModelDecisions(c *gin.Context) {
	if h.decisions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision log is disabled"})
		return
	}
	limit := defaultDecisionLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxDecisionLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and " + strconv.Itoa(maxDecisionLimit)})
			return
		}
		limit = n
	}
	window := defaultDecisionWindow
	if v := c.Query("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be a positive duration such as 1h"})
			return
		}
		window = d
	}

	ctx := c.Request.Context()
	name := c.Param("name")
	recs, err := h.decisions.ListByModel(ctx, name, limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	since := time.Now().UTC().Add(-window)
	rate, total, err := h.decisions.DetectionRate(ctx, name, since)
	if err != nil {
		h.fail(c, err)
		return
	}
	if recs == nil {
		recs = []*domain.DecisionRecord{}
	}
	c.JSON(http.StatusOK, gin.H{
		"model":          name,
		"decisions":      recs,
		"detection_rate": rate,
		"total":          total,
		"since":          since,
	})
}

func (h *Handler) GetDecision(c *gin.Context) {
	if h.decisions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "decision log is disabled"})
		return
	}
	rec, err := h.decisions.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *Handler) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed",
			zap.String("request_id", c.GetString("request_id")),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTrace):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDecisionNotFound), errors.Is(err, domain.ErrModelNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoFeatures), errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotTrained):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoModelLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrListingUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
