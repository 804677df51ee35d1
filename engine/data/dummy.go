package data

import (
	"context"
	"fmt"

	"github.com/trialdata/conformance/engine/dataset"
)

// DummyDataService serves datasets from memory. It stands in for a real data
// source in tests and sandbox runs; operation-level caching is bypassed
// against it so subsequent runs with different fixture data are not
// contaminated by cached results.
type DummyDataService struct {
	datasets map[string]*dataset.Dataset
	metadata map[string]*dataset.Dataset
}

// NewDummyDataService creates a dummy service over the given path→dataset
// fixtures.
func NewDummyDataService(datasets map[string]*dataset.Dataset) *DummyDataService {
	if datasets == nil {
		datasets = make(map[string]*dataset.Dataset)
	}
	return &DummyDataService{
		datasets: datasets,
		metadata: make(map[string]*dataset.Dataset),
	}
}

// SetMetadata registers the single-row metadata record served for path.
func (s *DummyDataService) SetMetadata(path string, metadata *dataset.Dataset) {
	s.metadata[path] = metadata
}

// GetDataset returns the fixture registered for path.
func (s *DummyDataService) GetDataset(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ds, ok := s.datasets[path]
	if !ok {
		return nil, fmt.Errorf("no dataset registered for %s", path)
	}
	return ds, nil
}

// GetDatasetMetadata returns the metadata fixture registered for path.
func (s *DummyDataService) GetDatasetMetadata(ctx context.Context, path string) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	metadata, ok := s.metadata[path]
	if !ok {
		return nil, fmt.Errorf("no metadata registered for %s", path)
	}
	return metadata, nil
}

// JoinSplitDatasets loads every path through loader and concatenates the rows.
func (s *DummyDataService) JoinSplitDatasets(ctx context.Context, loader DatasetLoader, paths []string) (*dataset.Dataset, error) {
	parts := make([]*dataset.Dataset, 0, len(paths))
	for _, path := range paths {
		part, err := loader(ctx, path)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return ConcatDatasets(parts)
}

// IsDummyDataService reports whether the active data source is the
// non-production stand-in.
func IsDummyDataService(service DataService) bool {
	_, ok := service.(*DummyDataService)
	return ok
}
