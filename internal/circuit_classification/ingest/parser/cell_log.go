package parser

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// ParseCellLog reads one cell per line:
//
//	<timestamp> <chan_id> <circ_id> <sent|recv> <out|in> <type> [command]
//
// Blank lines and '#' comments are skipped. Cells are grouped into
// circuits by (chan_id, circ_id) in order of first appearance. A missing
// command is UNKNOWN. A log without cells is ErrInvalidTrace.
func ParseCellLog(r io.Reader) (*YTrace, error) {
	type key struct{ chanID, circID uint64 }

	var (
		order []key
		byKey = map[key]*YCircuit{}
	)

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		f := strings.Fields(line)
		if len(f) == 0 {
			continue
		}
		if len(f) < 6 || len(f) > 7 {
			return nil, fmt.Errorf("cell log line %d: want 6 or 7 fields, got %d", lineNo, len(f))
		}

		ts, err := strconv.ParseFloat(f[0], 64)
		if err != nil {
			return nil, fmt.Errorf("cell log line %d: timestamp: %w", lineNo, err)
		}
		chanID, err := strconv.ParseUint(f[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cell log line %d: chan_id: %w", lineNo, err)
		}
		circID, err := strconv.ParseUint(f[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cell log line %d: circ_id: %w", lineNo, err)
		}
		isSent, err := direction(f[3], "sent", "recv")
		if err != nil {
			return nil, fmt.Errorf("cell log line %d: %w", lineNo, err)
		}
		isOutbound, err := direction(f[4], "out", "in")
		if err != nil {
			return nil, fmt.Errorf("cell log line %d: %w", lineNo, err)
		}
		cmd := "UNKNOWN"
		if len(f) == 7 {
			cmd = f[6]
		}

		k := key{chanID, circID}
		c, ok := byKey[k]
		if !ok {
			c = &YCircuit{ChanID: chanID, CircID: circID}
			byKey[k] = c
			order = append(order, k)
		}
		c.Cells = append(c.Cells, YCell{
			Timestamp:  ts,
			Type:       f[5],
			Command:    cmd,
			IsSent:     isSent,
			IsOutbound: isOutbound,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	if len(order) == 0 {
		return nil, fmt.Errorf("cell log: no cells: %w", domain.ErrInvalidTrace)
	}

	t := &YTrace{}
	for _, k := range order {
		t.Circuits = append(t.Circuits, *byKey[k])
	}
	return t, nil
}

func direction(tok, yes, no string) (bool, error) {
	switch strings.ToLower(tok) {
	case yes:
		return true, nil
	case no:
		return false, nil
	}
	return false, fmt.Errorf("expected %q or %q, got %q", yes, no, tok)
}
