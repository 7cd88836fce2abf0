package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCell_NormalizesLabels(t *testing.T) {
	tests := []struct {
		name    string
		rawType string
		rawCmd  string
		wantT   CellType
		wantCmd CellCommand
	}{
		{"known type, bogus command", "create", "bogus_command", CellCreate, CmdUnknown},
		{"upper-case type", "CREATE", "extend", CellCreate, CmdExtend},
		{"relay early", "relay_early", "EXTEND2", CellRelayEarly, CmdExtend2},
		{"unknown type", "padding", "DATA", CellUnknown, CmdData},
		{"surrounding whitespace", " relay ", " sendme ", CellRelay, CmdSendme},
		{"empty labels", "", "", CellUnknown, CmdUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCell(1, 2, 3.5, tt.rawType, tt.rawCmd, true, false)
			assert.Equal(t, tt.wantT, c.Type)
			assert.Equal(t, tt.wantCmd, c.Command)
			assert.Equal(t, uint64(1), c.ChanID)
			assert.Equal(t, uint64(2), c.CircID)
			assert.Equal(t, 3.5, c.Timestamp)
			assert.True(t, c.IsSent)
			assert.False(t, c.IsOutbound)
		})
	}
}

func TestCircuit_AddCell(t *testing.T) {
	c := NewCircuit(0, 0, nil, nil)

	c.AddCell(NewCell(0, 0, 0, "create", "UNKNOWN", true, true))
	require.Equal(t, 1, c.Len())

	t.Run("drops cell with different circuit id", func(t *testing.T) {
		c.AddCell(NewCell(0, 7, 1, "created", "UNKNOWN", true, true))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("drops cell with different channel id", func(t *testing.T) {
		c.AddCell(NewCell(9, 0, 1, "created", "UNKNOWN", true, true))
		assert.Equal(t, 1, c.Len())
	})

	t.Run("keeps arrival order", func(t *testing.T) {
		c.AddCell(NewCell(0, 0, 2, "relay", "DATA", false, false))
		require.Equal(t, 2, c.Len())
		assert.Equal(t, CellRelay, c.Cells()[1].Type)
	})
}

func TestCircuit_NilSafe(t *testing.T) {
	var c *Circuit
	assert.Equal(t, 0, c.Len())
	assert.Nil(t, c.Cells())
}

func TestComboLabel(t *testing.T) {
	assert.Equal(t, "relay_early_EXTEND", ComboLabel(CellRelayEarly, CmdExtend))
	assert.Equal(t, "create_UNKNOWN", ComboLabel(CellCreate, CmdUnknown))
}

func TestSampleCircuit(t *testing.T) {
	c := SampleCircuit()
	require.Equal(t, 6, c.Len())
	assert.Equal(t, "R1", c.PrevNode.Nickname)
	assert.True(t, c.PrevNode.IsRelay)
	assert.Equal(t, "FFFF", c.NextNode.Fingerprint)
	assert.False(t, c.NextNode.IsRelay)

	first := c.Cells()[0]
	assert.Equal(t, CellCreate, first.Type)
	assert.True(t, first.IsOutbound)

	clientSide := 0
	for _, cell := range c.Cells() {
		if !cell.IsOutbound {
			clientSide++
		}
	}
	assert.Equal(t, 5, clientSide)
}
