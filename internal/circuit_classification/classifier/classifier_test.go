package classifier

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/features"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// receivedCircuit carries n inbound data cells seen by the client.
func receivedCircuit(n int) *domain.Circuit {
	c := domain.NewCircuit(1, 1, nil, nil)
	for i := 0; i < n; i++ {
		c.AddCell(domain.NewCell(1, 1, float64(i)*0.01, "relay", "DATA", false, false))
	}
	return c
}

func featuresOf(t *testing.T, s Stage, circuits ...*domain.Circuit) [][]float64 {
	t.Helper()
	X := make([][]float64, 0, len(circuits))
	for _, c := range circuits {
		fv, err := s.ExtractFeatures(features.New(c))
		require.NoError(t, err)
		X = append(X, fv)
	}
	return X
}

func trainedCumul(t *testing.T) *OneClassCUMUL {
	t.Helper()
	s, err := NewOneClassCUMUL(Params{"nu": 0.25, "interpolation_points": 4.0})
	require.NoError(t, err)
	X := featuresOf(t, s, receivedCircuit(10), receivedCircuit(10), receivedCircuit(11), receivedCircuit(11))
	require.NoError(t, s.Train(X, nil))
	return s
}

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{OneClassCUMULName, PositionClassifierName, PurposeClassifierName}, Names())

	_, err := New("RandomForest", nil)
	assert.True(t, errors.Is(err, domain.ErrUnknownClassifier))

	s, err := New(PurposeClassifierName, nil)
	require.NoError(t, err)
	assert.Equal(t, PurposeClassifierName, s.Name())
	assert.False(t, s.Trained())
}

func TestPredict_Untrained(t *testing.T) {
	for _, name := range Names() {
		s, err := New(name, nil)
		require.NoError(t, err)

		_, _, err = Predict(s, features.New(receivedCircuit(3)))
		assert.True(t, errors.Is(err, domain.ErrNotTrained), name)
	}
}

func TestOneClassCUMUL(t *testing.T) {
	s := trainedCumul(t)
	require.True(t, s.Trained())

	detected, conf, err := Predict(s, features.New(receivedCircuit(10)))
	require.NoError(t, err)
	assert.True(t, detected)
	assert.GreaterOrEqual(t, conf, 0.0)

	detected, conf, err = Predict(s, features.New(receivedCircuit(100)))
	require.NoError(t, err)
	assert.False(t, detected)
	assert.Less(t, conf, 0.0)
}

func TestOneClassCUMUL_NoFeatures(t *testing.T) {
	s := trainedCumul(t)

	_, _, err := Predict(s, features.New(domain.NewCircuit(1, 1, nil, nil)))
	assert.True(t, errors.Is(err, domain.ErrNoFeatures))
	assert.True(t, errors.Is(err, domain.ErrEmptyTrace))

	_, _, err = Predict(s, nil)
	assert.True(t, errors.Is(err, domain.ErrNoFeatures))

	_, _, err = Predict(s, features.New(nil))
	assert.True(t, errors.Is(err, domain.ErrNoFeatures))
}

func TestOneClassCUMUL_RejectsBadParams(t *testing.T) {
	_, err := NewOneClassCUMUL(Params{"interpolation_points": 0})
	assert.Error(t, err)
	_, err = NewOneClassCUMUL(Params{"nu": 1.5})
	assert.Error(t, err)
	_, err = NewOneClassCUMUL(Params{"sequence": "sideways"})
	assert.Error(t, err)
}

func TestOneClassCUMUL_CumulSettings(t *testing.T) {
	s, err := NewOneClassCUMUL(Params{"interpolation_points": 7.0, "sequence": "outbound"})
	require.NoError(t, err)
	points, conv := s.CumulSettings()
	assert.Equal(t, 7, points)
	assert.Equal(t, features.ConventionOutbound, conv)

	s, err = NewOneClassCUMUL(nil)
	require.NoError(t, err)
	points, conv = s.CumulSettings()
	assert.Equal(t, features.DefaultInterpolationPoints, points)
	assert.Equal(t, features.ConventionClient, conv)
}

func TestSnapshotRestore(t *testing.T) {
	s := trainedCumul(t)

	snap, err := s.Snapshot()
	require.NoError(t, err)
	raw, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	restored, err := Restore(decoded)
	require.NoError(t, err)
	require.True(t, restored.Trained())

	for _, n := range []int{10, 11, 40} {
		wantDet, wantConf, err := Predict(s, features.New(receivedCircuit(n)))
		require.NoError(t, err)
		gotDet, gotConf, err := Predict(restored, features.New(receivedCircuit(n)))
		require.NoError(t, err)
		assert.Equal(t, wantDet, gotDet)
		assert.InDelta(t, wantConf, gotConf, 1e-9)
	}
}

func introCircuit() *domain.Circuit {
	c := domain.NewCircuit(2, 7, nil, nil)
	c.AddCell(domain.NewCell(2, 7, 0, "create2", "UNKNOWN", true, true))
	c.AddCell(domain.NewCell(2, 7, 0.1, "created2", "UNKNOWN", false, false))
	c.AddCell(domain.NewCell(2, 7, 0.2, "relay_early", "EXTEND2", true, true))
	c.AddCell(domain.NewCell(2, 7, 0.3, "relay", "INTRODUCE1", true, true))
	return c
}

func TestCountingStages(t *testing.T) {
	for _, name := range []string{PositionClassifierName, PurposeClassifierName} {
		s, err := New(name, Params{"k": 1})
		require.NoError(t, err)

		general, intro := receivedCircuit(30), introCircuit()
		X := featuresOf(t, s, general, intro)
		require.Len(t, X[0], features.PurposeFeatureCount)
		require.NoError(t, s.Train(X, []float64{1, 0}))

		detected, conf, err := Predict(s, features.New(general))
		require.NoError(t, err, name)
		assert.True(t, detected, name)
		assert.Equal(t, 1.0, conf, name)

		detected, conf, err = Predict(s, features.New(intro))
		require.NoError(t, err, name)
		assert.False(t, detected, name)
		assert.Equal(t, 1.0, conf, name)

		snap, err := s.Snapshot()
		require.NoError(t, err)
		restored, err := Restore(snap)
		require.NoError(t, err)
		detected, _, err = Predict(restored, features.New(general))
		require.NoError(t, err)
		assert.True(t, detected, name)
	}
}

func TestStandardScaler(t *testing.T) {
	var s StandardScaler
	out, err := s.FitTransform([][]float64{{1, 5}, {3, 5}})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{-1, 0}, {1, 0}}, out)

	_, err = s.Transform([]float64{1})
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch))
}

func TestParams(t *testing.T) {
	p := Params{"f": 0.25, "i": 3.0, "s": "client", "n": "7", "bad": 2.5}

	f, err := p.Float("f", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	i, err := p.Int("i", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	i, err = p.Int("n", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	i, err = p.Int("missing", 42)
	require.NoError(t, err)
	assert.Equal(t, 42, i)

	_, err = p.Int("bad", 0)
	assert.Error(t, err)

	assert.Equal(t, "client", p.String("s", ""))
	assert.Equal(t, "x", Params(nil).String("s", "x"))
}

func TestCountingStage_EmptyCircuit(t *testing.T) {
	s, err := NewPurposeClassifier(Params{"k": 1})
	require.NoError(t, err)
	require.NoError(t, s.Train([][]float64{make([]float64, features.PurposeFeatureCount)}, []float64{1}))

	_, _, err = Predict(s, features.New(domain.NewCircuit(1, 1, nil, nil)))
	assert.True(t, errors.Is(err, domain.ErrNoFeatures))
	assert.True(t, errors.Is(err, domain.ErrEmptyTrace))
}
