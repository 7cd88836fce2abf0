package domain

// Node is a relay adjacent to the observed circuit.
type Node struct {
	Nickname    string `json:"nickname" yaml:"nickname"`
	Address     string `json:"address" yaml:"address"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	IsRelay     bool   `json:"is_relay" yaml:"is_relay"`
	IsExit      bool   `json:"is_exit" yaml:"is_exit"`
	IsGuard     bool   `json:"is_guard" yaml:"is_guard"`
}

func NewNode(nickname, address, fingerprint string, isRelay, isExit, isGuard bool) *Node {
	return &Node{
		Nickname:    nickname,
		Address:     address,
		Fingerprint: fingerprint,
		IsRelay:     isRelay,
		IsExit:      isExit,
		IsGuard:     isGuard,
	}
}

// Cell is one observed protocol event. Cells are values; a Circuit keeps its
// own copy, so later changes to the caller's Cell do not leak into the trace.
type Cell struct {
	ChanID     uint64      `json:"chan_id"`
	CircID     uint64      `json:"circ_id"`
	Timestamp  float64     `json:"timestamp"`
	Type       CellType    `json:"type"`
	Command    CellCommand `json:"command"`
	IsSent     bool        `json:"is_sent"`
	IsOutbound bool        `json:"is_outbound"`
}

// NewCell normalizes the raw type and command labels. Unrecognized labels
// become CellUnknown / CmdUnknown; they are a category, not an error.
func NewCell(chanID, circID uint64, ts float64, rawType, rawCommand string, isSent, isOutbound bool) Cell {
	return Cell{
		ChanID:     chanID,
		CircID:     circID,
		Timestamp:  ts,
		Type:       ParseCellType(rawType),
		Command:    ParseCellCommand(rawCommand),
		IsSent:     isSent,
		IsOutbound: isOutbound,
	}
}

// Circuit aggregates the chronologically ordered cells seen on one
// (channel, circuit) pair.
//
// A Circuit must not be modified once feature extraction has started:
// extractors and the features facade read the cell slice without locking.
type Circuit struct {
	ChanID   uint64
	CircID   uint64
	PrevNode *Node
	NextNode *Node

	cells []Cell
}

func NewCircuit(chanID, circID uint64, prev, next *Node) *Circuit {
	return &Circuit{
		ChanID:   chanID,
		CircID:   circID,
		PrevNode: prev,
		NextNode: next,
		cells:    []Cell{},
	}
}

// AddCell appends cell when its keys match the circuit. Mismatched cells are
// dropped without an error.
func (c *Circuit) AddCell(cell Cell) {
	if cell.ChanID != c.ChanID || cell.CircID != c.CircID {
		return
	}
	c.cells = append(c.cells, cell)
}

// Cells returns the trace in arrival order. The slice is shared; treat it as
// read-only.
func (c *Circuit) Cells() []Cell {
	if c == nil {
		return nil
	}
	return c.cells
}

func (c *Circuit) Len() int {
	if c == nil {
		return 0
	}
	return len(c.cells)
}
