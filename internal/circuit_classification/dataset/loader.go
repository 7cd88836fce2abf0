// Package dataset reads labelled training sets for pipeline stages.
package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/onionpop/internal/circuit_classification/domain"
)

const DefaultLabelColumn = "label"

type Options struct {
	// LabelColumn names the CSV label column. Defaults to "label".
	LabelColumn string `json:"label_column,omitempty" yaml:"label_column,omitempty"`
	// Features restricts CSV columns; empty keeps every non-label column.
	Features []string `json:"features,omitempty" yaml:"features,omitempty"`
}

type Dataset struct {
	X       [][]float64
	Y       []float64
	Columns []string
}

func (d *Dataset) Len() int { return len(d.Y) }

// Load picks the reader from the file extension: .libsvm and .svm are
// sparse svmlight files, .csv is a header-first table.
func Load(path string, opts Options) (*Dataset, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".libsvm", ".svm", ".csv":
	default:
		return nil, fmt.Errorf("dataset %s: %w: %q", path, domain.ErrUnrecognizedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ds *Dataset
	if ext == ".csv" {
		ds, err = ReadCSV(f, opts)
	} else {
		ds, err = ReadLibSVM(f)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return ds, nil
}

type sparseRow struct {
	label  float64
	values map[int]float64
}

// ReadLibSVM parses "<label> <index>:<value> ..." lines. Indices are
// one-based unless a zero index occurs anywhere in the file. Missing
// entries are zero; the width is the largest index seen.
func ReadLibSVM(r io.Reader) (*Dataset, error) {
	var (
		rows     []sparseRow
		maxIdx   = -1
		zeroSeen bool
	)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		label, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: label: %w", lineNo, err)
		}
		row := sparseRow{label: label, values: make(map[int]float64, len(fields)-1)}
		for _, tok := range fields[1:] {
			k, v, ok := strings.Cut(tok, ":")
			if !ok {
				return nil, fmt.Errorf("line %d: malformed pair %q", lineNo, tok)
			}
			if k == "qid" {
				continue
			}
			idx, err := strconv.Atoi(k)
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("line %d: bad index %q", lineNo, k)
			}
			val, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: value: %w", lineNo, err)
			}
			if idx == 0 {
				zeroSeen = true
			}
			if idx > maxIdx {
				maxIdx = idx
			}
			row.values[idx] = val
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no samples")
	}

	offset, width := 1, maxIdx
	if zeroSeen {
		offset, width = 0, maxIdx+1
	}
	if width < 0 {
		width = 0
	}

	ds := &Dataset{X: make([][]float64, len(rows)), Y: make([]float64, len(rows))}
	for i, row := range rows {
		x := make([]float64, width)
		for idx, v := range row.values {
			x[idx-offset] = v
		}
		ds.X[i] = x
		ds.Y[i] = row.label
	}
	return ds, nil
}

// ReadCSV reads a header row followed by numeric records.
func ReadCSV(r io.Reader, opts Options) (*Dataset, error) {
	labelCol := opts.LabelColumn
	if labelCol == "" {
		labelCol = DefaultLabelColumn
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}
	labelIdx, ok := index[labelCol]
	if !ok {
		return nil, fmt.Errorf("label column %q not found", labelCol)
	}

	var cols []string
	if len(opts.Features) > 0 {
		for _, name := range opts.Features {
			if name == labelCol {
				continue
			}
			if _, ok := index[name]; !ok {
				return nil, fmt.Errorf("feature column %q not found", name)
			}
			cols = append(cols, name)
		}
	} else {
		for _, h := range header {
			if h = strings.TrimSpace(h); h != labelCol {
				cols = append(cols, h)
			}
		}
	}

	ds := &Dataset{Columns: cols}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		label, err := strconv.ParseFloat(strings.TrimSpace(rec[labelIdx]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: label: %w", line, err)
		}
		x := make([]float64, len(cols))
		for j, name := range cols {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[index[name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %q: %w", line, name, err)
			}
			x[j] = v
		}
		ds.X = append(ds.X, x)
		ds.Y = append(ds.Y, label)
	}
	if len(ds.Y) == 0 {
		return nil, fmt.Errorf("no samples")
	}
	return ds, nil
}
