package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/classifier"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/dataset"
	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

// StageConfig is one stage entry: which classifier, what to train it on and
// its hyper-parameters.
type StageConfig struct {
	Classifier  string            `json:"classifier" yaml:"classifier"`
	Dataset     string            `json:"dataset" yaml:"dataset"`
	Params      classifier.Params `json:"params,omitempty" yaml:"params,omitempty"`
	LabelColumn string            `json:"label_column,omitempty" yaml:"label_column,omitempty"`
	Features    []string          `json:"features,omitempty" yaml:"features,omitempty"`
}

func (c StageConfig) datasetOptions() dataset.Options {
	return dataset.Options{LabelColumn: c.LabelColumn, Features: c.Features}
}

func (c StageConfig) validate() error {
	if strings.TrimSpace(c.Classifier) == "" {
		return fmt.Errorf("classifier is required")
	}
	if strings.TrimSpace(c.Dataset) == "" {
		return fmt.Errorf("dataset is required")
	}
	return nil
}

type Config struct {
	Stages []StageConfig `json:"stages" yaml:"stages"`
}

// ParseLines reads the line-oriented format: one JSON object per line,
// blank lines and lines starting with '#' skipped.
func ParseLines(r io.Reader) (*Config, error) {
	cfg := &Config{}
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var entry StageConfig
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
		if err := entry.validate(); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNo, err)
		}
		cfg.Stages = append(cfg.Stages, entry)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cfg.Stages) == 0 {
		return nil, domain.ErrEmptyPipeline
	}
	return cfg, nil
}

func ParseYAMLBytes(b []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	for i, sc := range cfg.Stages {
		if err := sc.validate(); err != nil {
			return nil, fmt.Errorf("config stage %d: %w", i, err)
		}
	}
	if len(cfg.Stages) == 0 {
		return nil, domain.ErrEmptyPipeline
	}
	return &cfg, nil
}

// LoadConfig reads a YAML document for .yaml/.yml files and the
// line-oriented format otherwise. Relative dataset paths are resolved
// against the config file's directory.
func LoadConfig(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var b []byte
		b, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg, err = ParseYAMLBytes(b)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		cfg, err = ParseLines(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range cfg.Stages {
		if ds := cfg.Stages[i].Dataset; !filepath.IsAbs(ds) {
			cfg.Stages[i].Dataset = filepath.Join(base, ds)
		}
	}
	return cfg, nil
}
