package operations

import (
	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dataset"
)

// OperationParams carries everything one operation evaluation needs. It is
// created per call and discarded afterwards; the dataset it references is
// owned by the calling rule evaluation.
type OperationParams struct {
	// Target is the variable the operation evaluates. It may contain the
	// study.DomainPlaceholder for whole-study operations.
	Target string
	// Grouping is the ordered list of grouping variables; empty means the
	// operation is evaluated over the whole dataset.
	Grouping []string
	Dataset  *dataset.Dataset
	// Domain is the dataset's domain code, e.g. "AE".
	Domain string
	// DatasetPath locates the dataset file for metadata operations.
	DatasetPath string
	// Directory is the study directory; Datasets describes every dataset
	// file within it.
	Directory string
	Datasets  []data.DatasetDescriptor

	Standard        string
	StandardVersion string

	MedDRAPath  string
	WhoDrugPath string
}
