package features

import (
	"fmt"
	"strings"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// SequenceConvention selects which cells enter the CUMUL sequence and how
// they are signed. The convention a model was trained with is stored with the
// model and must be reused at inference time.
type SequenceConvention string

const (
	// ConventionClient keeps only cells observed on the client side
	// (IsOutbound == false): received cells are +1, sent cells are -1.
	ConventionClient SequenceConvention = "client"
	// ConventionOutbound keeps every cell: +1 when the cell travels outbound,
	// -1 otherwise.
	ConventionOutbound SequenceConvention = "outbound"
)

func ParseSequenceConvention(s string) (SequenceConvention, error) {
	switch SequenceConvention(strings.ToLower(strings.TrimSpace(s))) {
	case "", ConventionClient:
		return ConventionClient, nil
	case ConventionOutbound:
		return ConventionOutbound, nil
	default:
		return "", fmt.Errorf("unknown sequence convention %q", s)
	}
}

// CellSequence turns the circuit trace into signed unit packets.
func CellSequence(c *domain.Circuit, conv SequenceConvention) []Packet {
	cells := c.Cells()
	seq := make([]Packet, 0, len(cells))
	for _, cell := range cells {
		switch conv {
		case ConventionOutbound:
			seq = append(seq, Packet{Timestamp: cell.Timestamp, Size: sign(cell.IsOutbound)})
		default:
			if cell.IsOutbound {
				continue
			}
			seq = append(seq, Packet{Timestamp: cell.Timestamp, Size: sign(!cell.IsSent)})
		}
	}
	return seq
}

func sign(positive bool) float64 {
	if positive {
		return 1
	}
	return -1
}

// InitialCellSequence encodes the direction of the first n cells as a string
// of "+1" (outbound side) and "-1" (inbound side) tokens.
func InitialCellSequence(c *domain.Circuit, n int) string {
	var b strings.Builder
	for i, cell := range c.Cells() {
		if i >= n {
			break
		}
		if cell.IsOutbound {
			b.WriteString("+1")
		} else {
			b.WriteString("-1")
		}
	}
	return b.String()
}

// Lifetime is the time between the first and the last cell, zero for traces
// with fewer than two cells.
func Lifetime(c *domain.Circuit) float64 {
	cells := c.Cells()
	if len(cells) < 2 {
		return 0
	}
	return cells[len(cells)-1].Timestamp - cells[0].Timestamp
}
