package features

import (
	"reflect"
	"testing"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sentOutboundCircuit() *domain.Circuit {
	c := domain.NewCircuit(0, 0, nil, nil)
	c.AddCell(domain.NewCell(0, 0, 0, "create", "UNKNOWN", true, true))
	c.AddCell(domain.NewCell(0, 0, 1, "created", "UNKNOWN", true, true))
	c.AddCell(domain.NewCell(0, 0, 1, "relay", "UNKNOWN", true, true))
	return c
}

func TestCountCells_SentOutbound(t *testing.T) {
	cc := CountCells(sentOutboundCircuit(), 0)

	assert.Equal(t, 3, cc.TotalSent)
	assert.Equal(t, 0, cc.TotalRecv)
	assert.Equal(t, 3, cc.SentOut)
	assert.Equal(t, 0, cc.SentIn)
	assert.Equal(t, 3, cc.TotalOut)
	assert.Equal(t, 0, cc.TotalIn)
}

func TestCountCells_Buckets(t *testing.T) {
	c := domain.NewCircuit(1, 1, nil, nil)
	c.AddCell(domain.NewCell(1, 1, 0, "relay", "DATA", true, true))   // sent_out
	c.AddCell(domain.NewCell(1, 1, 1, "relay", "DATA", true, false))  // sent_in
	c.AddCell(domain.NewCell(1, 1, 2, "relay", "DATA", false, true))  // recv_in
	c.AddCell(domain.NewCell(1, 1, 3, "relay", "DATA", false, false)) // recv_out
	c.AddCell(domain.NewCell(1, 1, 4, "relay", "DATA", false, false)) // recv_out

	cc := CountCells(c, 0)
	assert.Equal(t, CellCounts{
		SentOut: 1, SentIn: 1, RecvOut: 2, RecvIn: 1,
		TotalSent: 2, TotalRecv: 3, TotalOut: 3, TotalIn: 2,
	}, cc)
}

func TestCountCells_Limit(t *testing.T) {
	c := sentOutboundCircuit()
	c.AddCell(domain.NewCell(0, 0, 2, "relay", "DATA", false, false))

	limited := CountCells(c, 2)
	assert.Equal(t, 2, limited.TotalSent)
	assert.Equal(t, 0, limited.TotalRecv)

	named := limited.Named()
	assert.Equal(t, 2, named["total_sent_first_2"])
	assert.Equal(t, 0, named["recv_out_first_2"])
	_, plain := named["total_sent"]
	assert.False(t, plain)
	assert.Len(t, named, 8)

	full := CountCells(c, 0).Named()
	assert.Equal(t, 1, full["recv_out"])
	_, suffixed := full["recv_out_first_2"]
	assert.False(t, suffixed)
}

func TestCountTypeCommands(t *testing.T) {
	c := domain.NewCircuit(0, 0, nil, nil)
	c.AddCell(domain.NewCell(0, 0, 0, "relay_early", "EXTEND2", true, true))
	c.AddCell(domain.NewCell(0, 0, 1, "relay", "EXTENDED2", false, false))
	c.AddCell(domain.NewCell(0, 0, 2, "relay", "EXTENDED2", false, false))
	c.AddCell(domain.NewCell(0, 0, 3, "relay", "DATA", false, false))
	c.AddCell(domain.NewCell(0, 0, 4, "destroy", "EXTEND", false, false))

	got := CountTypeCommands(c,
		[]string{"relay_early_EXTEND2", "relay_EXTENDED2", "relay_DATA"},
		[]domain.CellType{domain.CellRelay, domain.CellRelayEarly},
		[]domain.CellCommand{domain.CmdExtend2, domain.CmdExtended2},
	)
	assert.Equal(t, map[string]int{
		"relay_early_EXTEND2": 1,
		"relay_EXTENDED2":     2,
		"relay_DATA":          0, // DATA is outside the command filter
	}, got)
}

func TestCountTypesAndCommands(t *testing.T) {
	c := sentOutboundCircuit()

	types := CountTypes(c, []domain.CellType{domain.CellCreate, domain.CellDestroy})
	assert.Equal(t, map[domain.CellType]int{domain.CellCreate: 1, domain.CellDestroy: 0}, types)

	cmds := CountCommands(c, []domain.CellCommand{domain.CmdUnknown, domain.CmdData})
	assert.Equal(t, map[domain.CellCommand]int{domain.CmdUnknown: 3, domain.CmdData: 0}, cmds)
}

func TestPurposeFeatures(t *testing.T) {
	prev := domain.NewNode("R1", "1.1.1.1", "0000", true, false, true)
	next := domain.NewNode("R2", "1.1.1.2", "FFFF", false, false, true)
	c := domain.NewCircuit(0, 0, prev, next)
	c.AddCell(domain.NewCell(0, 0, 0, "create", "UNKNOWN", true, true))
	c.AddCell(domain.NewCell(0, 0, 1, "relay_early", "EXTEND", true, true))
	c.AddCell(domain.NewCell(0, 0, 2, "relay", "EXTENDED", false, false))

	fv := PurposeFeatures(c)
	require.Len(t, fv, PurposeFeatureCount)
	require.Len(t, PurposeFeatureNames(), PurposeFeatureCount)

	want := []float64{
		// next relay/guard/exit, prev relay/guard/exit
		0, 1, 0, 1, 1, 0,
		// combination counts
		0, 0, 0, 0, 1, 1, 0, 0, 0, 0,
		// total_sent, total_recv, sent_out, sent_in, recv_out, recv_in
		2, 1, 2, 0, 1, 0,
	}
	assert.Equal(t, want, fv)
}

func TestPurposeFeatures_EmptyAndNil(t *testing.T) {
	assert.Nil(t, PurposeFeatures(nil))

	fv := PurposeFeatures(domain.NewCircuit(3, 4, nil, nil))
	require.Len(t, fv, PurposeFeatureCount)
	for _, v := range fv {
		assert.Zero(t, v)
	}
}

type rawCell struct {
	Sent     bool
	Outbound bool
}

func TestCountCells_Properties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	genCells := gen.SliceOf(gen.Struct(reflect.TypeOf(rawCell{}), map[string]gopter.Gen{
		"Sent":     gen.Bool(),
		"Outbound": gen.Bool(),
	}))

	properties.Property("directional totals add up to the trace length", prop.ForAll(
		func(raw []rawCell) bool {
			c := domain.NewCircuit(0, 0, nil, nil)
			for i, r := range raw {
				c.AddCell(domain.NewCell(0, 0, float64(i), "relay", "DATA", r.Sent, r.Outbound))
			}
			cc := CountCells(c, 0)
			n := len(raw)
			return cc.TotalSent+cc.TotalRecv == n &&
				cc.TotalIn+cc.TotalOut == n &&
				cc.SentOut+cc.SentIn == cc.TotalSent &&
				cc.RecvOut+cc.RecvIn == cc.TotalRecv
		},
		genCells,
	))

	properties.TestingRun(t)
}
