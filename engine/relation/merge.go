package relation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/trialdata/conformance/engine/common"
	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dataset"

	"github.com/RoaringBitmap/roaring"
	"github.com/ZanzyTHEbar/assert-lib"
)

// Relationship column names fixed by the SDTM model.
const (
	DomainColumn            = "DOMAIN"
	ReferencedDomainColumn  = "RDOMAIN"
	ReferencedSubjectColumn = "RSUBJID"
	SubjectColumn           = "USUBJID"
)

// RelationshipColumns describes how a child dataset encodes indirect
// references to parent columns: NameColumn holds the NAME of a parent column
// and ValueColumn the VALUE it must hold (e.g. IDVAR/IDVARVAL).
type RelationshipColumns struct {
	NameColumn  string
	ValueColumn string
}

// RelationshipDescriptor identifies a relationship dataset and its match
// keys against the parent domain.
type RelationshipDescriptor struct {
	DomainName      string
	ParentMatchKeys []string
	ChildMatchKeys  []string
	Columns         RelationshipColumns
}

// MergeEngine joins parent domain datasets to datasets that reference them
// indirectly. The pure relational steps are package functions; the engine
// carries the collaborators needed for reference-data preprocessing.
type MergeEngine struct {
	dataService   data.DataService
	poolSize      int
	AssertHandler *assert.AssertHandler
}

// NewMergeEngine creates a merge engine over the given data service.
func NewMergeEngine(dataService data.DataService, poolSize int, assertHandler *assert.AssertHandler) *MergeEngine {
	if poolSize < 1 {
		poolSize = 1
	}
	return &MergeEngine{
		dataService:   dataService,
		poolSize:      poolSize,
		AssertHandler: assertHandler,
	}
}

// MergeRelationshipDatasets joins a parent dataset to an indirectly
// referencing child dataset:
//  1. keep parent rows whose match-key tuple appears among the child's,
//  2. keep parent rows whose domain value appears among the child's
//     declared reference domains,
//  3. resolve the (name, value) indirection conjunctively per named column,
//  4. outer-join the surviving rows to the full child dataset.
func (e *MergeEngine) MergeRelationshipDatasets(parent *dataset.Dataset, parentKeys []string, child *dataset.Dataset, childKeys []string, descriptor RelationshipDescriptor) (*dataset.Dataset, error) {
	result, err := FilterByMatchKeys(parent, parentKeys, child, childKeys)
	if err != nil {
		return nil, err
	}
	result = FilterByReferencedDomain(result, child)
	result, err = FilterByNestedColumns(result, child, descriptor.Columns)
	if err != nil {
		return nil, err
	}
	merged, err := MergeOnRelationshipColumns(result, child, descriptor.DomainName, descriptor.Columns)
	if err != nil {
		return nil, err
	}
	if e.AssertHandler != nil {
		// The final join is outer: every filtered parent row survives it.
		e.AssertHandler.Assert(context.Background(), merged.RowCount() >= result.RowCount(),
			"outer join dropped filtered parent rows", "domain", descriptor.DomainName)
	}

	slog.Debug("Relationship datasets merged",
		"child_domain", descriptor.DomainName,
		"parent_rows", parent.RowCount(),
		"merged_rows", merged.RowCount())
	return merged, nil
}

// MergeMatchedDatasets performs a plain inner join on two independently
// specified match-key lists; overlapping column names are suffixed with the
// right dataset's domain name.
func (e *MergeEngine) MergeMatchedDatasets(left *dataset.Dataset, right *dataset.Dataset, leftKeys, rightKeys []string, rightDomainName string) (*dataset.Dataset, error) {
	return join(left, right, leftKeys, rightKeys, "."+rightDomainName, false)
}

// FilterByMatchKeys keeps only the rows of ds whose match-key tuple also
// appears among the other dataset's match-key tuples. Reapplying with
// identical keys on its own output is a no-op.
func FilterByMatchKeys(ds *dataset.Dataset, keys []string, other *dataset.Dataset, otherKeys []string) (*dataset.Dataset, error) {
	dsCols, err := keyColumns(ds, keys)
	if err != nil {
		return nil, err
	}
	otherCols, err := keyColumns(other, otherKeys)
	if err != nil {
		return nil, err
	}

	otherTuples := make(map[string]struct{}, other.RowCount())
	for row := 0; row < other.RowCount(); row++ {
		otherTuples[rowKey(otherCols, row)] = struct{}{}
	}

	mask := roaring.New()
	for row := 0; row < ds.RowCount(); row++ {
		if _, ok := otherTuples[rowKey(dsCols, row)]; ok {
			mask.Add(uint32(row))
		}
	}
	return ds.Select(mask), nil
}

// FilterByReferencedDomain keeps only parent rows whose DOMAIN value appears
// among the child's RDOMAIN values. If either side lacks the relevant column
// the filter is a pass-through; this permissive behavior is deliberate but
// may mask malformed relationship datasets.
func FilterByReferencedDomain(parent *dataset.Dataset, child *dataset.Dataset) *dataset.Dataset {
	parentDomains, parentOK := parent.Column(DomainColumn)
	childDomains, childOK := child.Column(ReferencedDomainColumn)
	if !parentOK || !childOK {
		return parent
	}

	declared := make(map[interface{}]struct{}, len(childDomains.Values))
	for _, value := range childDomains.Values {
		if value != nil {
			declared[value] = struct{}{}
		}
	}

	mask := roaring.New()
	for row, value := range parentDomains.Values {
		if _, ok := declared[value]; ok {
			mask.Add(uint32(row))
		}
	}
	return parent.Select(mask)
}

// FilterByNestedColumns resolves the child's (name, value) indirection:
// child rows are grouped by the name column, and for each group only parent
// rows whose value in that named column is present in the group's value set
// survive, with numeric reconciliation applied per group. Filtering is
// applied progressively against the narrowing result, so a parent row
// survives only if it satisfies every applicable group's constraint. The
// surviving rows are re-sorted by the indirection columns, since grouping
// does not preserve row order.
func FilterByNestedColumns(parent *dataset.Dataset, child *dataset.Dataset, columns RelationshipColumns) (*dataset.Dataset, error) {
	groups, err := child.GroupBy([]string{columns.NameColumn})
	if err != nil {
		return nil, err
	}
	valueColumn, ok := child.Column(columns.ValueColumn)
	if !ok {
		return nil, fmt.Errorf("child dataset has no column %q", columns.ValueColumn)
	}

	result := parent
	sortColumns := make([]string, 0, len(groups))
	for _, group := range groups {
		name, ok := group.Key[0].(string)
		if !ok {
			return nil, fmt.Errorf("indirection column %q holds a non-text name %v", columns.NameColumn, group.Key[0])
		}
		sortColumns = append(sortColumns, name)

		parentColumn, ok := result.Column(name)
		if !ok {
			return nil, fmt.Errorf("parent dataset has no column %q referenced by %s", name, columns.NameColumn)
		}

		groupValues := &dataset.Column{Name: columns.ValueColumn, Kind: valueColumn.Kind}
		group.Mask.Iterate(func(row uint32) bool {
			groupValues.Values = append(groupValues.Values, valueColumn.Values[row])
			return true
		})

		numeric := IsNumericColumn(parentColumn) && IsNumericColumn(groupValues)
		valueSet := make(map[string]struct{}, len(groupValues.Values))
		for _, value := range groupValues.Values {
			valueSet[comparisonKey(value, numeric)] = struct{}{}
		}

		mask := roaring.New()
		for row, value := range parentColumn.Values {
			if _, ok := valueSet[comparisonKey(value, numeric)]; ok {
				mask.Add(uint32(row))
			}
		}
		result = result.Select(mask)
	}

	sort.Strings(sortColumns)
	return result.SortByColumns(sortColumns), nil
}

// MergeOnRelationshipColumns outer-joins the filtered parent rows to the
// full child dataset on (resolved parent column, child value column). The
// child's name column holds the parent column name; all its values are the
// same by the time a single relationship group is merged.
func MergeOnRelationshipColumns(left *dataset.Dataset, right *dataset.Dataset, rightDomainName string, columns RelationshipColumns) (*dataset.Dataset, error) {
	nameColumn, ok := right.Column(columns.NameColumn)
	if !ok {
		return nil, fmt.Errorf("child dataset has no column %q", columns.NameColumn)
	}
	if len(nameColumn.Values) == 0 {
		return nil, fmt.Errorf("child dataset is empty, cannot resolve %q", columns.NameColumn)
	}
	leftColumnName, ok := nameColumn.Values[0].(string)
	if !ok {
		return nil, fmt.Errorf("indirection column %q holds a non-text name %v", columns.NameColumn, nameColumn.Values[0])
	}

	// Reconciliation mutates the join columns, so work on copies.
	left = left.Copy()
	right = right.Copy()
	ReconcileNumericColumns(right, columns.ValueColumn, left, leftColumnName)

	return join(left, right, []string{leftColumnName}, []string{columns.ValueColumn}, "."+rightDomainName, true)
}

// RequireUniqueRow returns the single row of ds as a column→value map and
// signals ErrAmbiguousMatch when more than one row matched a key that is
// expected to be unique.
func RequireUniqueRow(ds *dataset.Dataset) (map[string]interface{}, error) {
	if ds.RowCount() > 1 {
		return nil, common.ErrAmbiguousMatch
	}
	if ds.RowCount() == 0 {
		return nil, fmt.Errorf("match key did not return any record")
	}
	row := make(map[string]interface{}, ds.ColumnCount())
	for _, name := range ds.ColumnNames() {
		row[name] = ds.Value(name, 0)
	}
	return row, nil
}

// join implements the shared (inner or full outer) equi-join with the
// child-domain suffixing rule for overlapping column names.
func join(left *dataset.Dataset, right *dataset.Dataset, leftKeys, rightKeys []string, suffix string, outer bool) (*dataset.Dataset, error) {
	leftCols, err := keyColumns(left, leftKeys)
	if err != nil {
		return nil, err
	}
	rightCols, err := keyColumns(right, rightKeys)
	if err != nil {
		return nil, err
	}

	rightIndex := make(map[string][]uint32, right.RowCount())
	for row := 0; row < right.RowCount(); row++ {
		key := rowKey(rightCols, row)
		rightIndex[key] = append(rightIndex[key], uint32(row))
	}

	type outputColumn struct {
		name   string
		kind   dataset.ColumnKind
		source *dataset.Column
		isLeft bool
	}
	var outputs []outputColumn
	for _, name := range left.ColumnNames() {
		col, _ := left.Column(name)
		outputs = append(outputs, outputColumn{name: name, kind: col.Kind, source: col, isLeft: true})
	}
	for _, name := range right.ColumnNames() {
		col, _ := right.Column(name)
		outName := name
		if left.HasColumn(name) {
			outName = name + suffix
		}
		outputs = append(outputs, outputColumn{name: outName, kind: col.Kind, source: col})
	}

	values := make([][]interface{}, len(outputs))
	matchedRight := roaring.New()
	emit := func(leftRow, rightRow int) {
		for i, out := range outputs {
			var cell interface{}
			if out.isLeft {
				if leftRow >= 0 {
					cell = out.source.Values[leftRow]
				}
			} else {
				if rightRow >= 0 {
					cell = out.source.Values[rightRow]
				}
			}
			values[i] = append(values[i], cell)
		}
	}

	for leftRow := 0; leftRow < left.RowCount(); leftRow++ {
		matches := rightIndex[rowKey(leftCols, leftRow)]
		if len(matches) == 0 {
			if outer {
				emit(leftRow, -1)
			}
			continue
		}
		for _, rightRow := range matches {
			matchedRight.Add(rightRow)
			emit(leftRow, int(rightRow))
		}
	}
	if outer {
		for row := 0; row < right.RowCount(); row++ {
			if !matchedRight.Contains(uint32(row)) {
				emit(-1, row)
			}
		}
	}

	result := dataset.New()
	for i, out := range outputs {
		if err := result.AddColumn(out.name, out.kind, values[i]); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func keyColumns(ds *dataset.Dataset, keys []string) ([]*dataset.Column, error) {
	cols := make([]*dataset.Column, len(keys))
	for i, key := range keys {
		col, ok := ds.Column(key)
		if !ok {
			return nil, fmt.Errorf("dataset has no match-key column %q", key)
		}
		cols[i] = col
	}
	return cols, nil
}

func rowKey(cols []*dataset.Column, row int) string {
	tuple := make([]interface{}, len(cols))
	for i, col := range cols {
		tuple[i] = col.Values[row]
	}
	return dataset.EncodeKey(tuple)
}

// comparisonKey renders a cell for set membership. Reconciled numeric
// comparisons use a canonical float rendering; everything else stays
// type-tagged so a numeric 1 never matches the text "1".
func comparisonKey(value interface{}, numeric bool) string {
	if value == nil {
		return "\x00nil"
	}
	if numeric {
		switch v := value.(type) {
		case float64:
			return "num:" + strconv.FormatFloat(v, 'f', -1, 64)
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err == nil {
				return "num:" + strconv.FormatFloat(parsed, 'f', -1, 64)
			}
		}
	}
	return dataset.EncodeKey([]interface{}{value})
}
