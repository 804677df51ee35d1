package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trialdata/conformance/engine/cache"
	"github.com/trialdata/conformance/engine/common"
	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/relation"
)

// extractMetadata fetches the single-row per-dataset metadata record, reads
// the target field and broadcasts it to every row.
func (d *Dispatcher) extractMetadata(ctx context.Context, params *OperationParams) (*Result, error) {
	metadata, err := d.dataService.GetDatasetMetadata(ctx, params.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata for %s: %w", params.DatasetPath, err)
	}

	row, err := relation.RequireUniqueRow(metadata)
	if err != nil {
		return nil, fmt.Errorf("metadata for %s: %w", params.DatasetPath, err)
	}

	column := make([]interface{}, params.Dataset.RowCount())
	for i := range column {
		column[i] = row[params.Target]
	}
	return columnResult(column), nil
}

// variableExists reports whether the target is present as a column.
func (d *Dispatcher) variableExists(ctx context.Context, params *OperationParams) (*Result, error) {
	return scalarResult(params.Dataset.HasColumn(params.Target)), nil
}

// variableValueCount counts occurrences of the target's values across the
// whole study, caching the scan result. Caching is bypassed entirely
// against the non-production stand-in data service so subsequent calls with
// different fixture data are not contaminated.
func (d *Dispatcher) variableValueCount(ctx context.Context, params *OperationParams) (*Result, error) {
	cacheKey := cache.OperationsKey(params.Directory, "study_value_count_"+params.Target)
	cacheable := !data.IsDummyDataService(d.dataService)

	if cacheable {
		if cached, ok := d.cache.Get(cacheKey); ok {
			if counts, ok := cached.(map[string]int); ok {
				return scalarResult(counts), nil
			}
			slog.Warn("Cached value counts have unexpected shape, recomputing", "key", cacheKey)
		}
	}

	counts, err := d.scanner.CollectVariableValueCounts(ctx, params.Target, params.Directory, params.Datasets)
	if err != nil {
		return nil, err
	}
	if cacheable {
		d.cache.Add(cacheKey, counts)
	}
	return scalarResult(counts), nil
}

// variableNames returns the set of variable names the configured standard
// defines, consulting the library metadata cache before the library service.
func (d *Dispatcher) variableNames(ctx context.Context, params *OperationParams) (*Result, error) {
	cacheKey := cache.LibraryVariablesKey(params.Standard, params.StandardVersion)
	if cached, ok := d.cache.Get(cacheKey); ok {
		if details, ok := cached.(map[string]map[string]string); ok {
			return setResult(variableNameSet(details)), nil
		}
	}

	if d.library == nil {
		return nil, fmt.Errorf("no library service configured: %w", common.ErrMissingConfiguration)
	}
	details, err := d.library.GetVariablesDetails(ctx, params.Standard, params.StandardVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch variable details for %s %s: %w", params.Standard, params.StandardVersion, err)
	}
	return setResult(variableNameSet(details)), nil
}

func variableNameSet(details map[string]map[string]string) ValueSet {
	names := make(ValueSet, len(details))
	for name := range details {
		names[name] = struct{}{}
	}
	return names
}
