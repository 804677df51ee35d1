package data

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/trialdata/conformance/engine/dataset"
)

// LocalDataService reads study datasets from CSV files on the local
// filesystem. Column kinds are sniffed: a column whose non-empty cells all
// parse as numbers is stored numeric, everything else as text. Empty cells
// are missing values.
type LocalDataService struct{}

// NewLocalDataService creates a filesystem-backed data service.
func NewLocalDataService() *LocalDataService {
	return &LocalDataService{}
}

// GetDataset loads one CSV file into a dataset.
func (s *LocalDataService) GetDataset(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset %s: %w", path, err)
	}
	if len(records) == 0 {
		return dataset.New(), nil
	}

	header := records[0]
	rows := records[1:]
	result := dataset.New()

	for colIdx, name := range header {
		raw := make([]string, len(rows))
		for rowIdx, row := range rows {
			if colIdx < len(row) {
				raw[rowIdx] = row[colIdx]
			}
		}

		kind, values := sniffColumn(raw)
		if err := result.AddColumn(name, kind, values); err != nil {
			return nil, fmt.Errorf("dataset %s: %w", path, err)
		}
	}

	slog.Debug("Dataset loaded",
		"path", path,
		"rows", result.RowCount(),
		"columns", result.ColumnCount())
	return result, nil
}

// GetDatasetMetadata returns the single-row per-dataset metadata record.
func (s *LocalDataService) GetDatasetMetadata(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset %s: %w", path, err)
	}

	metadata := dataset.New()
	_ = metadata.AddColumn("dataset_name", dataset.KindText, []interface{}{info.Name()})
	_ = metadata.AddColumn("dataset_label", dataset.KindText, []interface{}{datasetLabel(info.Name())})
	_ = metadata.AddColumn("dataset_location", dataset.KindText, []interface{}{path})
	_ = metadata.AddColumn("dataset_size", dataset.KindNumeric, []interface{}{float64(info.Size())})
	_ = metadata.AddColumn("dataset_modified", dataset.KindDate, []interface{}{info.ModTime().UTC().Format(time.RFC3339)})
	return metadata, nil
}

// JoinSplitDatasets loads every path through loader and concatenates the
// rows. Columns are aligned by name across the union of all files; a file
// lacking a column contributes missing cells for it.
func (s *LocalDataService) JoinSplitDatasets(ctx context.Context, loader DatasetLoader, paths []string) (*dataset.Dataset, error) {
	parts := make([]*dataset.Dataset, 0, len(paths))
	for _, path := range paths {
		part, err := loader(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to load split part %s: %w", path, err)
		}
		parts = append(parts, part)
	}
	return ConcatDatasets(parts)
}

// ConcatDatasets vertically concatenates datasets, aligning columns by name.
func ConcatDatasets(parts []*dataset.Dataset) (*dataset.Dataset, error) {
	joined := dataset.New()
	if len(parts) == 0 {
		return joined, nil
	}

	// Union of columns in first-appearance order, keeping the first
	// declared kind.
	type columnSpec struct {
		name string
		kind dataset.ColumnKind
	}
	var specs []columnSpec
	seen := make(map[string]struct{})
	for _, part := range parts {
		for _, name := range part.ColumnNames() {
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			col, _ := part.Column(name)
			specs = append(specs, columnSpec{name: name, kind: col.Kind})
		}
	}

	total := 0
	for _, part := range parts {
		total += part.RowCount()
	}

	for _, spec := range specs {
		values := make([]interface{}, 0, total)
		for _, part := range parts {
			if col, ok := part.Column(spec.name); ok {
				values = append(values, col.Values...)
			} else {
				values = append(values, make([]interface{}, part.RowCount())...)
			}
		}
		if err := joined.AddColumn(spec.name, spec.kind, values); err != nil {
			return nil, err
		}
	}
	return joined, nil
}

func sniffColumn(raw []string) (dataset.ColumnKind, []interface{}) {
	numeric := true
	nonEmpty := 0
	for _, cell := range raw {
		if cell == "" {
			continue
		}
		nonEmpty++
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			numeric = false
			break
		}
	}

	values := make([]interface{}, len(raw))
	if numeric && nonEmpty > 0 {
		for i, cell := range raw {
			if cell == "" {
				continue
			}
			parsed, _ := strconv.ParseFloat(cell, 64)
			values[i] = parsed
		}
		return dataset.KindNumeric, values
	}

	for i, cell := range raw {
		if cell == "" {
			continue
		}
		values[i] = cell
	}
	return dataset.KindText, values
}

func datasetLabel(filename string) string {
	base := filename
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return base
}
