package features

import (
	"fmt"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// PurposeFeatureCount is the fixed width of the purpose/position vector.
const PurposeFeatureCount = 22

// CellCounts are directional cell counts. A received cell flagged outbound
// arrived from the inbound side and counts as RecvIn.
type CellCounts struct {
	SentOut   int
	SentIn    int
	RecvOut   int
	RecvIn    int
	TotalSent int
	TotalRecv int
	TotalOut  int
	TotalIn   int

	// Limit is the truncation window; zero means the whole trace.
	Limit int
}

// CountCells counts directions over the first limit cells, or over the whole
// trace when limit <= 0.
func CountCells(c *domain.Circuit, limit int) CellCounts {
	cc := CellCounts{}
	if limit > 0 {
		cc.Limit = limit
	}

	for i, cell := range c.Cells() {
		if limit > 0 && i >= limit {
			break
		}
		switch {
		case cell.IsSent && cell.IsOutbound:
			cc.SentOut++
			cc.TotalSent++
			cc.TotalOut++
		case cell.IsSent:
			cc.SentIn++
			cc.TotalSent++
			cc.TotalIn++
		case cell.IsOutbound:
			cc.RecvIn++
			cc.TotalRecv++
			cc.TotalIn++
		default:
			cc.RecvOut++
			cc.TotalRecv++
			cc.TotalOut++
		}
	}
	return cc
}

// Named returns the counts keyed by feature name. Limited counts carry a
// "_first_{limit}" suffix, so limited and unlimited sets never share keys.
func (cc CellCounts) Named() map[string]int {
	d := map[string]int{
		"recv_in":    cc.RecvIn,
		"sent_in":    cc.SentIn,
		"recv_out":   cc.RecvOut,
		"sent_out":   cc.SentOut,
		"total_in":   cc.TotalIn,
		"total_out":  cc.TotalOut,
		"total_recv": cc.TotalRecv,
		"total_sent": cc.TotalSent,
	}
	if cc.Limit <= 0 {
		return d
	}
	out := make(map[string]int, len(d))
	for k, v := range d {
		out[fmt.Sprintf("%s_first_%d", k, cc.Limit)] = v
	}
	return out
}

// CountTypeCommands counts cells whose type is in types and whose command is
// in commands, bucketed by "{type}_{command}". Only the requested labels are
// reported; every label starts at zero.
func CountTypeCommands(c *domain.Circuit, labels []string, types []domain.CellType, commands []domain.CellCommand) map[string]int {
	d := make(map[string]int, len(labels))
	for _, l := range labels {
		d[l] = 0
	}

	typeSet := make(map[domain.CellType]struct{}, len(types))
	for _, t := range types {
		typeSet[t] = struct{}{}
	}
	cmdSet := make(map[domain.CellCommand]struct{}, len(commands))
	for _, cmd := range commands {
		cmdSet[cmd] = struct{}{}
	}

	for _, cell := range c.Cells() {
		if _, ok := typeSet[cell.Type]; !ok {
			continue
		}
		if _, ok := cmdSet[cell.Command]; !ok {
			continue
		}
		k := domain.ComboLabel(cell.Type, cell.Command)
		if _, ok := d[k]; ok {
			d[k]++
		}
	}
	return d
}

func CountTypes(c *domain.Circuit, types []domain.CellType) map[domain.CellType]int {
	d := make(map[domain.CellType]int, len(types))
	for _, t := range types {
		d[t] = 0
	}
	for _, cell := range c.Cells() {
		if _, ok := d[cell.Type]; ok {
			d[cell.Type]++
		}
	}
	return d
}

func CountCommands(c *domain.Circuit, commands []domain.CellCommand) map[domain.CellCommand]int {
	d := make(map[domain.CellCommand]int, len(commands))
	for _, cmd := range commands {
		d[cmd] = 0
	}
	for _, cell := range c.Cells() {
		if _, ok := d[cell.Command]; ok {
			d[cell.Command]++
		}
	}
	return d
}

var (
	purposeTypes = []domain.CellType{
		domain.CellCreate, domain.CellCreated, domain.CellCreate2,
		domain.CellCreated2, domain.CellRelay, domain.CellRelayEarly,
	}
	purposeCommands = []domain.CellCommand{
		domain.CmdExtend, domain.CmdExtended, domain.CmdExtend2, domain.CmdExtended2,
	}
	// The *_UNKNOWN labels are outside the command filter and therefore always
	// zero. The trained models expect them in these slots.
	purposeCombos = []string{
		"create_UNKNOWN", "created_UNKNOWN", "create2_UNKNOWN", "created2_UNKNOWN",
		"relay_early_EXTEND", "relay_EXTENDED", "relay_early_EXTEND2", "relay_EXTENDED2",
		"relay_UNKNOWN", "relay_early_UNKNOWN",
	}
)

// PurposeFeatureNames labels each slot of PurposeFeatures.
func PurposeFeatureNames() []string {
	names := []string{
		"next_is_relay", "next_is_guard", "next_is_exit",
		"prev_is_relay", "prev_is_guard", "prev_is_exit",
	}
	names = append(names, purposeCombos...)
	return append(names,
		"total_sent", "total_recv", "sent_out", "sent_in", "recv_out", "recv_in",
	)
}

// PurposeFeatures builds the 22-value circuit purpose/position vector. A nil
// circuit yields nil: the features do not apply.
func PurposeFeatures(c *domain.Circuit) []float64 {
	if c == nil {
		return nil
	}

	out := make([]float64, 0, PurposeFeatureCount)
	out = append(out, nodeFlags(c.NextNode)...)
	out = append(out, nodeFlags(c.PrevNode)...)

	combos := CountTypeCommands(c, purposeCombos, purposeTypes, purposeCommands)
	for _, label := range purposeCombos {
		out = append(out, float64(combos[label]))
	}

	cc := CountCells(c, 0)
	return append(out,
		float64(cc.TotalSent),
		float64(cc.TotalRecv),
		float64(cc.SentOut),
		float64(cc.SentIn),
		float64(cc.RecvOut),
		float64(cc.RecvIn),
	)
}

func nodeFlags(n *domain.Node) []float64 {
	if n == nil {
		return []float64{0, 0, 0}
	}
	return []float64{boolFeature(n.IsRelay), boolFeature(n.IsGuard), boolFeature(n.IsExit)}
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
