package domain

// SampleCircuit returns a short circuit between two guards: the outbound
// create cell, the created reply and a few data cells in both directions on
// the client side. The worker's usage command runs it through a model.
func SampleCircuit() *Circuit {
	r1 := NewNode("R1", "1.1.1.1", "0000", true, false, true)
	r2 := NewNode("R2", "1.1.1.2", "FFFF", false, false, true)
	c := NewCircuit(0, 0, r1, r2)
	c.AddCell(NewCell(0, 0, 0, "create", "UNKNOWN", true, true))
	c.AddCell(NewCell(0, 0, 0.05, "created", "UNKNOWN", false, false))
	c.AddCell(NewCell(0, 0, 0.10, "relay", "DATA", true, false))
	c.AddCell(NewCell(0, 0, 0.15, "relay", "DATA", false, false))
	c.AddCell(NewCell(0, 0, 0.20, "relay", "DATA", false, false))
	c.AddCell(NewCell(0, 0, 0.25, "relay", "DATA", false, false))
	return c
}
