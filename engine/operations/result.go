package operations

import "github.com/trialdata/conformance/engine/dataset"

// ResultKind tags the shape an operation evaluated to.
type ResultKind int

const (
	// ResultScalar is a single value (number, text, boolean or a
	// value→count mapping).
	ResultScalar ResultKind = iota
	// ResultColumn is one value per dataset row.
	ResultColumn
	// ResultSet is an unordered value set.
	ResultSet
	// ResultGrouped is a table with one row per group key.
	ResultGrouped
)

// ValueSet is an unordered set of cell values.
type ValueSet map[interface{}]struct{}

// Result is the tagged variant returned by Evaluate. Exactly the field
// selected by Kind is populated.
type Result struct {
	Kind    ResultKind
	Scalar  interface{}
	Column  []interface{}
	Set     ValueSet
	Grouped *dataset.Dataset
}

func scalarResult(value interface{}) *Result {
	return &Result{Kind: ResultScalar, Scalar: value}
}

func columnResult(values []interface{}) *Result {
	return &Result{Kind: ResultColumn, Column: values}
}

func boolColumnResult(values []bool) *Result {
	column := make([]interface{}, len(values))
	for i, v := range values {
		column[i] = v
	}
	return &Result{Kind: ResultColumn, Column: column}
}

func setResult(set ValueSet) *Result {
	return &Result{Kind: ResultSet, Set: set}
}

func groupedResult(table *dataset.Dataset) *Result {
	return &Result{Kind: ResultGrouped, Grouped: table}
}
