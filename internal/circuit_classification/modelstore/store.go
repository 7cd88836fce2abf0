package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/pipeline"
)

// Store keeps encoded model blobs by name. Missing names yield
// domain.ErrModelNotFound.
type Store interface {
	Save(ctx context.Context, name string, blob []byte) error
	Load(ctx context.Context, name string) ([]byte, error)
}

func SavePipeline(ctx context.Context, s Store, name string, p *pipeline.Pipeline, compress bool) error {
	b, err := Encode(name, p, compress)
	if err != nil {
		return err
	}
	return s.Save(ctx, name, b)
}

func LoadPipeline(ctx context.Context, s Store, name string) (*pipeline.Pipeline, *Envelope, error) {
	b, err := s.Load(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	return Decode(b)
}

// FileStore keeps one file per model under Dir. An absolute name is used
// as the path itself.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

func (s *FileStore) path(name string) string {
	if filepath.IsAbs(name) || s.Dir == "" {
		return name
	}
	return filepath.Join(s.Dir, name)
}

func (s *FileStore) Save(_ context.Context, name string, blob []byte) error {
	p := s.path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (s *FileStore) Load(_ context.Context, name string) ([]byte, error) {
	b, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("model %q: %w", name, domain.ErrModelNotFound)
	}
	return b, err
}

// List returns the model files under Dir, skipping in-flight writes.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
