package operations

import (
	"context"
	"fmt"

	"github.com/trialdata/conformance/engine/dataset"

	"gonum.org/v1/gonum/stat"
)

func (d *Dispatcher) min(ctx context.Context, params *OperationParams) (*Result, error) {
	return d.extreme(params, func(candidate, current interface{}) bool {
		return dataset.CompareValues(candidate, current) < 0
	})
}

func (d *Dispatcher) max(ctx context.Context, params *OperationParams) (*Result, error) {
	return d.extreme(params, func(candidate, current interface{}) bool {
		return dataset.CompareValues(candidate, current) > 0
	})
}

// extreme evaluates min or max: ungrouped over the target column, or one
// row per group key.
func (d *Dispatcher) extreme(params *OperationParams, better func(candidate, current interface{}) bool) (*Result, error) {
	target, ok := params.Dataset.Column(params.Target)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", params.Target)
	}

	aggregate := func(values []interface{}) interface{} {
		var result interface{}
		for _, value := range values {
			if value == nil {
				continue
			}
			if result == nil || better(value, result) {
				result = value
			}
		}
		return result
	}

	if len(params.Grouping) == 0 {
		return scalarResult(aggregate(target.Values)), nil
	}
	return d.aggregateByGroup(params, target.Kind, aggregate)
}

func (d *Dispatcher) mean(ctx context.Context, params *OperationParams) (*Result, error) {
	target, ok := params.Dataset.Column(params.Target)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", params.Target)
	}

	aggregate := func(values []interface{}) interface{} {
		numbers := make([]float64, 0, len(values))
		for _, value := range values {
			if number, ok := value.(float64); ok {
				numbers = append(numbers, number)
			}
		}
		if len(numbers) == 0 {
			return nil
		}
		return stat.Mean(numbers, nil)
	}

	if len(params.Grouping) == 0 {
		return scalarResult(aggregate(target.Values)), nil
	}
	return d.aggregateByGroup(params, dataset.KindNumeric, aggregate)
}

// distinct returns the unique-value set of the target column. Ungrouped,
// the same set value is broadcast to every row; grouped, each group key maps
// to its own set.
func (d *Dispatcher) distinct(ctx context.Context, params *OperationParams) (*Result, error) {
	target, ok := params.Dataset.Column(params.Target)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", params.Target)
	}

	toSet := func(values []interface{}) interface{} {
		set := make(ValueSet)
		for _, value := range values {
			if value != nil {
				set[value] = struct{}{}
			}
		}
		return set
	}

	if len(params.Grouping) == 0 {
		set := toSet(target.Values)
		column := make([]interface{}, params.Dataset.RowCount())
		for i := range column {
			column[i] = set
		}
		return columnResult(column), nil
	}
	return d.aggregateByGroup(params, target.Kind, toSet)
}

// aggregateByGroup builds the one-row-per-group table shared by all grouped
// aggregates: the grouping columns followed by the aggregated target.
func (d *Dispatcher) aggregateByGroup(params *OperationParams, targetKind dataset.ColumnKind, aggregate func(values []interface{}) interface{}) (*Result, error) {
	groups, err := params.Dataset.GroupBy(params.Grouping)
	if err != nil {
		return nil, err
	}
	target, _ := params.Dataset.Column(params.Target)

	keyColumns := make([][]interface{}, len(params.Grouping))
	for i := range keyColumns {
		keyColumns[i] = make([]interface{}, 0, len(groups))
	}
	aggregated := make([]interface{}, 0, len(groups))

	for _, group := range groups {
		for i, cell := range group.Key {
			keyColumns[i] = append(keyColumns[i], cell)
		}
		values := make([]interface{}, 0, group.Mask.GetCardinality())
		group.Mask.Iterate(func(row uint32) bool {
			values = append(values, target.Values[row])
			return true
		})
		aggregated = append(aggregated, aggregate(values))
	}

	table := dataset.New()
	for i, name := range params.Grouping {
		source, _ := params.Dataset.Column(name)
		if err := table.AddColumn(name, source.Kind, keyColumns[i]); err != nil {
			return nil, err
		}
	}
	if err := table.AddColumn(params.Target, targetKind, aggregated); err != nil {
		return nil, err
	}
	return groupedResult(table), nil
}
