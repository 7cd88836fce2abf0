package features

import (
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mixedCircuit() *domain.Circuit {
	c := domain.NewCircuit(5, 9, domain.NewNode("R1", "1.1.1.1", "0000", true, false, true), nil)
	c.AddCell(domain.NewCell(5, 9, 0.0, "create2", "UNKNOWN", true, true))
	c.AddCell(domain.NewCell(5, 9, 0.1, "created2", "UNKNOWN", false, false))
	c.AddCell(domain.NewCell(5, 9, 0.2, "relay", "DATA", true, false))
	c.AddCell(domain.NewCell(5, 9, 0.3, "relay", "DATA", false, false))
	c.AddCell(domain.NewCell(5, 9, 0.5, "relay", "DATA", false, false))
	return c
}

func TestFeatures_PurposeAndPositionShareComputation(t *testing.T) {
	f := New(mixedCircuit())

	purpose := f.Purpose()
	position := f.Position()
	require.Len(t, purpose, PurposeFeatureCount)
	assert.Equal(t, purpose, position)
	assert.Equal(t, purpose, f.Purpose())

	// both entry points read the one cache entry
	assert.Len(t, f.cache, 1)
}

func TestFeatures_ResultsAreCopies(t *testing.T) {
	f := New(mixedCircuit())

	purpose := f.Purpose()
	want := append([]float64(nil), purpose...)
	purpose[0] = -1
	assert.Equal(t, want, f.Purpose())
	assert.Equal(t, want, f.Position())

	position := f.Position()
	position[1] = -1
	assert.Equal(t, want, f.Purpose())

	fv, err := f.WebsiteFingerprint()
	require.NoError(t, err)
	wantFV := append([]float64(nil), fv...)
	fv[0] = 1000
	again, err := f.WebsiteFingerprint()
	require.NoError(t, err)
	assert.Equal(t, wantFV, again)
}

func TestFeatures_Reset(t *testing.T) {
	f := New(mixedCircuit())
	first := f.Purpose()
	f.Reset()
	second := f.Purpose()

	assert.Equal(t, first, second)
	assert.Len(t, f.cache, 1)
}

func TestFeatures_NilCircuit(t *testing.T) {
	f := New(nil)
	assert.Nil(t, f.Purpose())
	assert.Nil(t, f.Position())

	fv, err := f.WebsiteFingerprint()
	assert.NoError(t, err)
	assert.Nil(t, fv)
}

func TestFeatures_Cumul(t *testing.T) {
	f := New(mixedCircuit())

	fv, err := f.WebsiteFingerprint()
	require.NoError(t, err)
	require.Len(t, fv, 4+DefaultInterpolationPoints)
	// client side: recv, sent, recv, recv
	assert.Equal(t, []float64{3, 1, 1, 3}, fv[:4])

	again, err := f.Cumul(DefaultInterpolationPoints, ConventionClient)
	require.NoError(t, err)
	assert.Equal(t, fv, again)
	assert.Len(t, f.cache, 1)

	outbound, err := f.Cumul(10, ConventionOutbound)
	require.NoError(t, err)
	require.Len(t, outbound, 14)
	// every cell: one outbound, four inbound
	assert.Equal(t, []float64{1, 4, 4, 1}, outbound[:4])
}

func TestFeatures_CumulEmptyTrace(t *testing.T) {
	f := New(domain.NewCircuit(0, 0, nil, nil))
	_, err := f.WebsiteFingerprint()
	assert.True(t, errors.Is(err, domain.ErrEmptyTrace))

	// purpose features are still defined
	assert.Len(t, f.Purpose(), PurposeFeatureCount)
}

func TestExtractors(t *testing.T) {
	c := mixedCircuit()

	fv, err := ExtractCumul(c)
	require.NoError(t, err)
	assert.Len(t, fv, 4+DefaultInterpolationPoints)
	assert.Equal(t, PurposeFeatures(c), ExtractCounting(c))
	assert.Nil(t, ExtractCounting(nil))
}

func TestCellSequence(t *testing.T) {
	c := mixedCircuit()

	client := CellSequence(c, ConventionClient)
	require.Len(t, client, 4)
	assert.Equal(t, []float64{1, -1, 1, 1}, sizes(client))
	assert.Equal(t, 0.1, client[0].Timestamp)

	outbound := CellSequence(c, ConventionOutbound)
	assert.Equal(t, []float64{1, -1, -1, -1, -1}, sizes(outbound))
}

func sizes(seq []Packet) []float64 {
	out := make([]float64, len(seq))
	for i, p := range seq {
		out[i] = p.Size
	}
	return out
}

func TestParseSequenceConvention(t *testing.T) {
	conv, err := ParseSequenceConvention("")
	require.NoError(t, err)
	assert.Equal(t, ConventionClient, conv)

	conv, err = ParseSequenceConvention("OUTBOUND")
	require.NoError(t, err)
	assert.Equal(t, ConventionOutbound, conv)

	_, err = ParseSequenceConvention("server")
	assert.Error(t, err)
}

func TestInitialCellSequenceAndLifetime(t *testing.T) {
	c := mixedCircuit()
	assert.Equal(t, "+1-1-1", InitialCellSequence(c, 3))
	assert.Equal(t, "+1-1-1-1-1", InitialCellSequence(c, 50))
	assert.InDelta(t, 0.5, Lifetime(c), 1e-12)

	single := domain.NewCircuit(0, 0, nil, nil)
	single.AddCell(domain.NewCell(0, 0, 4, "create", "", true, true))
	assert.Zero(t, Lifetime(single))
	assert.Equal(t, "", InitialCellSequence(domain.NewCircuit(0, 0, nil, nil), 3))
}
