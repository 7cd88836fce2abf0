package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type YNode struct {
	Nickname    string `json:"nickname" yaml:"nickname"`
	Address     string `json:"address" yaml:"address"`
	Fingerprint string `json:"fingerprint" yaml:"fingerprint"`
	IsRelay     bool   `json:"is_relay" yaml:"is_relay"`
	IsExit      bool   `json:"is_exit" yaml:"is_exit"`
	IsGuard     bool   `json:"is_guard" yaml:"is_guard"`
}

// YCell omits chan_id/circ_id when they equal the circuit's.
type YCell struct {
	ChanID     *uint64 `json:"chan_id,omitempty" yaml:"chan_id,omitempty"`
	CircID     *uint64 `json:"circ_id,omitempty" yaml:"circ_id,omitempty"`
	Timestamp  float64 `json:"timestamp" yaml:"timestamp"`
	Type       string  `json:"type" yaml:"type"`
	Command    string  `json:"command" yaml:"command"`
	IsSent     bool    `json:"is_sent" yaml:"is_sent"`
	IsOutbound bool    `json:"is_outbound" yaml:"is_outbound"`
}

type YCircuit struct {
	ChanID   uint64  `json:"chan_id" yaml:"chan_id"`
	CircID   uint64  `json:"circ_id" yaml:"circ_id"`
	PrevNode *YNode  `json:"prev_node,omitempty" yaml:"prev_node,omitempty"`
	NextNode *YNode  `json:"next_node,omitempty" yaml:"next_node,omitempty"`
	Cells    []YCell `json:"cells" yaml:"cells"`
}

// YTrace is a trace document: either a single circuit at the top level or
// a "circuits" list.
type YTrace struct {
	YCircuit `yaml:",inline"`
	Circuits []YCircuit `json:"circuits,omitempty" yaml:"circuits,omitempty"`
}

// All returns the listed circuits, or the top-level one.
func (t *YTrace) All() []YCircuit {
	if len(t.Circuits) > 0 {
		return t.Circuits
	}
	return []YCircuit{t.YCircuit}
}

func ParseYAMLBytes(b []byte) (*YTrace, error) {
	var t YTrace
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func ParseJSONBytes(b []byte) (*YTrace, error) {
	var t YTrace
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseFile dispatches on extension: .json, .yaml/.yml, and anything else
// is read as a cell log.
func ParseFile(path string) (*YTrace, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t *YTrace
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		t, err = ParseJSONBytes(b)
	case ".yaml", ".yml":
		t, err = ParseYAMLBytes(b)
	default:
		t, err = ParseCellLog(bytes.NewReader(b))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}
