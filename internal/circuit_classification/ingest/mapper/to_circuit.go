package mapper

import (
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/ingest/parser"
)

func toNode(n *parser.YNode) *domain.Node {
	if n == nil {
		return nil
	}
	return domain.NewNode(n.Nickname, n.Address, n.Fingerprint, n.IsRelay, n.IsExit, n.IsGuard)
}

// ToCircuit builds a circuit in document order. Cells that name another
// circuit are dropped by Circuit.AddCell.
func ToCircuit(yc parser.YCircuit) *domain.Circuit {
	c := domain.NewCircuit(yc.ChanID, yc.CircID, toNode(yc.PrevNode), toNode(yc.NextNode))
	for _, cell := range yc.Cells {
		chanID, circID := yc.ChanID, yc.CircID
		if cell.ChanID != nil {
			chanID = *cell.ChanID
		}
		if cell.CircID != nil {
			circID = *cell.CircID
		}
		c.AddCell(domain.NewCell(chanID, circID, cell.Timestamp, cell.Type, cell.Command, cell.IsSent, cell.IsOutbound))
	}
	return c
}

func ToCircuits(t *parser.YTrace) []*domain.Circuit {
	if t == nil {
		return nil
	}
	all := t.All()
	out := make([]*domain.Circuit, 0, len(all))
	for _, yc := range all {
		out = append(out, ToCircuit(yc))
	}
	return out
}
