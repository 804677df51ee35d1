package operations

import (
	"context"
	"fmt"

	"github.com/trialdata/conformance/engine/cache"
	"github.com/trialdata/conformance/engine/common"
	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dictionary"
	"github.com/trialdata/conformance/engine/study"
)

// OperationID names a registered operation.
type OperationID string

const (
	OpMin                  OperationID = "min"
	OpMax                  OperationID = "max"
	OpMean                 OperationID = "mean"
	OpDistinct             OperationID = "distinct"
	OpMinDate              OperationID = "min_date"
	OpMaxDate              OperationID = "max_date"
	OpDY                   OperationID = "dy"
	OpExtractMetadata      OperationID = "extract_metadata"
	OpVariableExists       OperationID = "variable_exists"
	OpVariableValueCount   OperationID = "variable_value_count"
	OpVariableNames        OperationID = "variable_names"
	OpValidCodeReferences  OperationID = "valid_meddra_code_references"
	OpValidTermReferences  OperationID = "valid_meddra_term_references"
	OpValidCodeTermPairs   OperationID = "valid_meddra_code_term_pairs"
	OpValidWhoDrugRefCodes OperationID = "valid_whodrug_references"
)

// LibraryService supplies standard-defined variable details. The network
// client behind it belongs to the metadata-retrieval layer.
type LibraryService interface {
	GetVariablesDetails(ctx context.Context, standard, version string) (map[string]map[string]string, error)
}

type operationFunc func(ctx context.Context, params *OperationParams) (*Result, error)

// Dispatcher evaluates named operations against a dataset and grouping
// spec. All collaborators are injected at construction; the dispatcher owns
// no ambient global state.
type Dispatcher struct {
	dataService data.DataService
	cache       cache.CacheService
	validity    *dictionary.ValidityIndex
	scanner     *study.Scanner
	library     LibraryService
	table       map[OperationID]operationFunc
}

// NewDispatcher creates a dispatcher over the given collaborators. The
// library service may be nil when no standards metadata source is
// configured; only variable_names requires it.
func NewDispatcher(dataService data.DataService, cacheService cache.CacheService, validity *dictionary.ValidityIndex, scanner *study.Scanner, library LibraryService) *Dispatcher {
	d := &Dispatcher{
		dataService: dataService,
		cache:       cacheService,
		validity:    validity,
		scanner:     scanner,
		library:     library,
	}
	d.table = map[OperationID]operationFunc{
		OpMin:                  d.min,
		OpMax:                  d.max,
		OpMean:                 d.mean,
		OpDistinct:             d.distinct,
		OpMinDate:              d.minDate,
		OpMaxDate:              d.maxDate,
		OpDY:                   d.dy,
		OpExtractMetadata:      d.extractMetadata,
		OpVariableExists:       d.variableExists,
		OpVariableValueCount:   d.variableValueCount,
		OpVariableNames:        d.variableNames,
		OpValidCodeReferences:  d.validCodeReferences,
		OpValidTermReferences:  d.validTermReferences,
		OpValidCodeTermPairs:   d.validCodeTermPairs,
		OpValidWhoDrugRefCodes: d.validWhoDrugReferences,
	}
	return d
}

// Evaluate runs the named operation. An unregistered identifier fails that
// single evaluation with ErrUnsupportedOperation.
func (d *Dispatcher) Evaluate(ctx context.Context, id OperationID, params *OperationParams) (*Result, error) {
	operation, ok := d.table[id]
	if !ok {
		return nil, fmt.Errorf("operation %q: %w", id, common.ErrUnsupportedOperation)
	}
	return operation(ctx, params)
}

func (d *Dispatcher) validCodeReferences(ctx context.Context, params *OperationParams) (*Result, error) {
	valid, err := d.validity.ValidateCodeReferences(ctx, params.Dataset, params.Domain, params.MedDRAPath)
	if err != nil {
		return nil, err
	}
	return boolColumnResult(valid), nil
}

func (d *Dispatcher) validTermReferences(ctx context.Context, params *OperationParams) (*Result, error) {
	valid, err := d.validity.ValidateTermReferences(ctx, params.Dataset, params.Domain, params.MedDRAPath)
	if err != nil {
		return nil, err
	}
	return boolColumnResult(valid), nil
}

func (d *Dispatcher) validCodeTermPairs(ctx context.Context, params *OperationParams) (*Result, error) {
	valid, err := d.validity.ValidateCodeTermPairs(ctx, params.Dataset, params.Domain, params.Target, params.MedDRAPath)
	if err != nil {
		return nil, err
	}
	return boolColumnResult(valid), nil
}

func (d *Dispatcher) validWhoDrugReferences(ctx context.Context, params *OperationParams) (*Result, error) {
	valid, err := d.validity.ValidateWhoDrugCodes(ctx, params.Dataset, params.Target, params.WhoDrugPath)
	if err != nil {
		return nil, err
	}
	return boolColumnResult(valid), nil
}
