// Package modelstore persists trained pipelines as versioned blobs.
package modelstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/pipeline"
)

const (
	EnvelopeFormat  = "onionpop-model"
	EnvelopeVersion = 1
)

// snappyMagic prefixes compressed blobs; plain blobs are bare JSON.
var snappyMagic = []byte("OPSZ")

type Envelope struct {
	Format    string            `json:"format"`
	Version   int               `json:"version"`
	Name      string            `json:"name"`
	CreatedAt time.Time         `json:"created_at"`
	Pipeline  pipeline.Snapshot `json:"pipeline"`
}

// Encode snapshots p under name. compress wraps the JSON in a snappy block.
func Encode(name string, p *pipeline.Pipeline, compress bool) ([]byte, error) {
	snap, err := p.Snapshot()
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(Envelope{
		Format:    EnvelopeFormat,
		Version:   EnvelopeVersion,
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Pipeline:  snap,
	})
	if err != nil {
		return nil, err
	}
	if !compress {
		return b, nil
	}
	out := append([]byte{}, snappyMagic...)
	return append(out, snappy.Encode(nil, b)...), nil
}

// DecodeEnvelope accepts compressed and plain blobs.
func DecodeEnvelope(b []byte) (*Envelope, error) {
	if bytes.HasPrefix(b, snappyMagic) {
		raw, err := snappy.Decode(nil, b[len(snappyMagic):])
		if err != nil {
			return nil, fmt.Errorf("model blob: snappy: %w", err)
		}
		b = raw
	}
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("model blob: %w", err)
	}
	if env.Format != EnvelopeFormat {
		return nil, fmt.Errorf("model blob: unexpected format %q", env.Format)
	}
	if env.Version != EnvelopeVersion {
		return nil, fmt.Errorf("model blob: unsupported version %d", env.Version)
	}
	return &env, nil
}

func Decode(b []byte) (*pipeline.Pipeline, *Envelope, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, nil, err
	}
	p, err := pipeline.Restore(env.Pipeline)
	if err != nil {
		return nil, nil, fmt.Errorf("model %q: %w", env.Name, err)
	}
	return p, env, nil
}
