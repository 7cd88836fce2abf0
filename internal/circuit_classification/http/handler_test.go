package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/GoSim-25-26J-441/onionpop/internal/api/http/middleware"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/classifier"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/ingest/mapper"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/ingest/parser"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/modelstore"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/pipeline"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/service"
)

func dataCircuit(circID uint64, n int) parser.YCircuit {
	yc := parser.YCircuit{ChanID: 1, CircID: circID}
	for i := 0; i < n; i++ {
		yc.Cells = append(yc.Cells, parser.YCell{Timestamp: float64(i), Type: "relay", Command: "DATA"})
	}
	return yc
}

func extendCircuit(circID uint64) parser.YCircuit {
	return parser.YCircuit{ChanID: 1, CircID: circID, Cells: []parser.YCell{
		{Timestamp: 0, Type: "create2", Command: "UNKNOWN", IsSent: true, IsOutbound: true},
		{Timestamp: 1, Type: "relay_early", Command: "EXTEND2", IsSent: true, IsOutbound: true},
	}}
}

type fakeDecisions struct {
	sinceSeen *time.Time
}

func (fakeDecisions) GetByID(_ context.Context, id string) (*domain.DecisionRecord, error) {
	if id != "dec-1" {
		return nil, domain.ErrDecisionNotFound
	}
	return &domain.DecisionRecord{ID: id, ModelName: "m"}, nil
}

func (fakeDecisions) ListByModel(_ context.Context, model string, limit int) ([]*domain.DecisionRecord, error) {
	if model != "purpose.model" {
		return nil, nil
	}
	out := make([]*domain.DecisionRecord, 0, limit)
	for i := 0; i < limit && i < 3; i++ {
		out = append(out, &domain.DecisionRecord{ID: "dec-" + strconv.Itoa(i), ModelName: model})
	}
	return out, nil
}

func (f fakeDecisions) DetectionRate(_ context.Context, model string, since time.Time) (float64, int64, error) {
	if f.sinceSeen != nil {
		*f.sinceSeen = since
	}
	if model != "purpose.model" {
		return 0, 0, nil
	}
	return 0.25, 8, nil
}

func setupRouter(t *testing.T, loaded bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.NewClassificationService(nil, nil, nil, zaptest.NewLogger(t))
	if loaded {
		s, err := classifier.New(classifier.PurposeClassifierName, classifier.Params{"k": 1})
		require.NoError(t, err)
		X := [][]float64{
			features.ExtractCounting(mapper.ToCircuit(dataCircuit(1, 20))),
			features.ExtractCounting(mapper.ToCircuit(extendCircuit(2))),
		}
		require.NoError(t, s.Train(X, []float64{1, 0}))
		p, err := pipeline.FromStages(s)
		require.NoError(t, err)
		svc.Use("purpose.model", p)
	}

	return newTestEngine(t, svc, fakeDecisions{})
}

func newTestEngine(t *testing.T, svc *service.ClassificationService, decisions DecisionReader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(zaptest.NewLogger(t)))
	New(svc, decisions, 10, zaptest.NewLogger(t)).Register(r.Group("/api/v1"))
	return r
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.RequestIDHeader, "req-test")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestClassify(t *testing.T) {
	r := setupRouter(t, true)

	rr := do(r, http.MethodPost, "/api/v1/circuits/classify", dataCircuit(7, 20))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rec domain.DecisionRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.True(t, rec.Decision.Detected)
	assert.Equal(t, uint64(7), rec.CircID)
	assert.Equal(t, "req-test", rec.RequestID)
	assert.Equal(t, "purpose.model", rec.ModelName)
}

func TestClassify_Batch(t *testing.T) {
	r := setupRouter(t, true)

	body := parser.YTrace{Circuits: []parser.YCircuit{dataCircuit(1, 20), extendCircuit(2), {ChanID: 1, CircID: 3}}}
	rr := do(r, http.MethodPost, "/api/v1/circuits/classify", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Results []service.BatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)
	assert.True(t, resp.Results[0].Record.Decision.Detected)
	assert.False(t, resp.Results[1].Record.Decision.Detected)
	assert.Contains(t, resp.Results[2].Error, domain.ErrNoFeatures.Error())
}

func TestClassify_Errors(t *testing.T) {
	r := setupRouter(t, true)

	rr := do(r, http.MethodPost, "/api/v1/circuits/classify", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(r, http.MethodPost, "/api/v1/circuits/classify", parser.YCircuit{ChanID: 1, CircID: 1})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	empty := setupRouter(t, false)
	rr = do(empty, http.MethodPost, "/api/v1/circuits/classify", dataCircuit(1, 3))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	rr = do(empty, http.MethodPost, "/api/v1/circuits/classify", parser.YTrace{Circuits: []parser.YCircuit{dataCircuit(1, 3), dataCircuit(2, 3)}})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestFeatures(t *testing.T) {
	r := setupRouter(t, false)

	rr := do(r, http.MethodPost, "/api/v1/circuits/features", dataCircuit(1, 5))
	require.Equal(t, http.StatusOK, rr.Code)

	var rep service.FeatureReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Len(t, rep.Cumul, 14)
	assert.Equal(t, 5, rep.Counts["total_recv"])

	rr = do(r, http.MethodPost, "/api/v1/circuits/features", parser.YTrace{Circuits: []parser.YCircuit{dataCircuit(1, 2), dataCircuit(2, 3)}})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `"circuits"`))
}

func TestCurrentModel(t *testing.T) {
	rr := do(setupRouter(t, false), http.MethodGet, "/api/v1/models/current", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(setupRouter(t, true), http.MethodGet, "/api/v1/models/current", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var m service.LoadedModel
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &m))
	assert.Equal(t, "purpose.model", m.Name)
	assert.Equal(t, []string{classifier.PurposeClassifierName}, m.Stages)
}

func TestGetDecision(t *testing.T) {
	r := setupRouter(t, false)

	rr := do(r, http.MethodGet, "/api/v1/decisions/dec-1", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(r, http.MethodGet, "/api/v1/decisions/other", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestClassify_BatchCarriesRequestID(t *testing.T) {
	r := setupRouter(t, true)

	body := parser.YTrace{Circuits: []parser.YCircuit{dataCircuit(1, 20), extendCircuit(2)}}
	rr := do(r, http.MethodPost, "/api/v1/circuits/classify", body)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Results []service.BatchResult `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	for _, res := range resp.Results {
		require.NotNil(t, res.Record)
		assert.Equal(t, "req-test", res.Record.RequestID)
	}
}

func TestFeatures_FollowsServedCumulStage(t *testing.T) {
	svc := service.NewClassificationService(nil, nil, nil, zaptest.NewLogger(t))
	stage, err := classifier.New(classifier.OneClassCUMULName, classifier.Params{"interpolation_points": 3, "sequence": "outbound"})
	require.NoError(t, err)
	p, err := pipeline.FromStages(stage)
	require.NoError(t, err)
	svc.Use("webfp.model", p)
	r := newTestEngine(t, svc, nil)

	circ := parser.YCircuit{ChanID: 1, CircID: 1, Cells: []parser.YCell{
		{Timestamp: 0, Type: "create2", Command: "UNKNOWN", IsSent: true, IsOutbound: true},
		{Timestamp: 1, Type: "relay", Command: "DATA", IsOutbound: false},
	}}
	rr := do(r, http.MethodPost, "/api/v1/circuits/features", circ)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var rep service.FeatureReport
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rep))
	assert.Len(t, rep.Cumul, 7)

	want, err := features.New(mapper.ToCircuit(circ)).Cumul(3, features.ConventionOutbound)
	require.NoError(t, err)
	assert.Equal(t, want, rep.Cumul)
}

func TestListModels(t *testing.T) {
	dir := t.TempDir()
	store := modelstore.NewFileStore(dir)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "a.model", []byte("x")))
	require.NoError(t, store.Save(ctx, "b.model", []byte("x")))

	svc := service.NewClassificationService(store, nil, nil, zaptest.NewLogger(t))
	rr := do(newTestEngine(t, svc, nil), http.MethodGet, "/api/v1/models", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Models []service.ModelInfo `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Models, 2)
	assert.Equal(t, "a.model", resp.Models[0].Name)
	assert.Equal(t, "b.model", resp.Models[1].Name)

	rr = do(setupRouter(t, true), http.MethodGet, "/api/v1/models", nil)
	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}

func TestModelDecisions(t *testing.T) {
	var since time.Time
	svc := service.NewClassificationService(nil, nil, nil, zaptest.NewLogger(t))
	r := newTestEngine(t, svc, fakeDecisions{sinceSeen: &since})

	before := time.Now().UTC()
	rr := do(r, http.MethodGet, "/api/v1/models/purpose.model/decisions?limit=2&since=1h", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Model         string                   `json:"model"`
		Decisions     []*domain.DecisionRecord `json:"decisions"`
		DetectionRate float64                  `json:"detection_rate"`
		Total         int64                    `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "purpose.model", resp.Model)
	assert.Len(t, resp.Decisions, 2)
	assert.Equal(t, 0.25, resp.DetectionRate)
	assert.Equal(t, int64(8), resp.Total)
	assert.WithinDuration(t, before.Add(-time.Hour), since, 5*time.Second)

	rr = do(r, http.MethodGet, "/api/v1/models/other.model/decisions", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"decisions":[]`)
	assert.WithinDuration(t, time.Now().UTC().Add(-24*time.Hour), since, 5*time.Second)

	rr = do(r, http.MethodGet, "/api/v1/models/purpose.model/decisions?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = do(r, http.MethodGet, "/api/v1/models/purpose.model/decisions?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	disabled := newTestEngine(t, svc, nil)
	rr = do(disabled, http.MethodGet, "/api/v1/models/purpose.model/decisions", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
