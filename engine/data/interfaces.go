package data

import (
	"context"

	"github.com/trialdata/conformance/engine/dataset"
)

// DatasetLoader loads one dataset file. JoinSplitDatasets takes the loader
// explicitly so split files can be read through the same code path the
// caller uses for single files.
type DatasetLoader func(ctx context.Context, path string) (*dataset.Dataset, error)

// DataService is the source of study datasets and their metadata.
type DataService interface {
	GetDataset(ctx context.Context, path string) (*dataset.Dataset, error)
	// GetDatasetMetadata returns a single-row dataset describing the file.
	GetDatasetMetadata(ctx context.Context, path string) (*dataset.Dataset, error)
	// JoinSplitDatasets loads every path and concatenates the rows into one
	// logical dataset.
	JoinSplitDatasets(ctx context.Context, loader DatasetLoader, paths []string) (*dataset.Dataset, error)
}

// DatasetDescriptor identifies one physical dataset file within a study.
type DatasetDescriptor struct {
	Domain   string
	Filename string
}
