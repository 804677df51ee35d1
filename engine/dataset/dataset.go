package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
)

// ColumnKind is the declared storage type of a column. Every value in a
// column shares one kind; missing values are nil regardless of kind.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindNumeric
	KindDate
)

// Column is a fixed-length sequence of homogeneous values. Text and date
// cells are strings, numeric cells are float64, missing cells are nil.
type Column struct {
	Name   string
	Kind   ColumnKind
	Values []interface{}
}

// Dataset is an ordered set of named columns sharing one row count.
// Rows are addressable by position.
type Dataset struct {
	columns []*Column
	index   map[string]int
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// RowCount reports the shared row count of all columns.
func (d *Dataset) RowCount() int {
	if len(d.columns) == 0 {
		return 0
	}
	return len(d.columns[0].Values)
}

// ColumnCount reports the number of columns.
func (d *Dataset) ColumnCount() int {
	return len(d.columns)
}

// ColumnNames returns the column names in insertion order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, col := range d.columns {
		names[i] = col.Name
	}
	return names
}

// HasColumn reports whether name is present as a column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the named column, if present.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// AddColumn appends a column. Byte-slice cells are normalized to text on
// ingestion. The uniform row-count invariant is enforced here.
func (d *Dataset) AddColumn(name string, kind ColumnKind, values []interface{}) error {
	if name == "" {
		return fmt.Errorf("column name cannot be empty")
	}
	if _, exists := d.index[name]; exists {
		return fmt.Errorf("column %q already exists", name)
	}
	if len(d.columns) > 0 && len(values) != d.RowCount() {
		return fmt.Errorf("column %q has %d rows, dataset has %d", name, len(values), d.RowCount())
	}

	normalized := make([]interface{}, len(values))
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			normalized[i] = string(b)
			continue
		}
		normalized[i] = v
	}

	d.index[name] = len(d.columns)
	d.columns = append(d.columns, &Column{Name: name, Kind: kind, Values: normalized})
	return nil
}

// AddTempColumn appends a short-lived derived column under a collision-free
// synthetic name and returns that name. Callers drop it before returning so
// it is never visible beyond a single operation call.
func (d *Dataset) AddTempColumn(suffix string, kind ColumnKind, values []interface{}) (string, error) {
	name := uuid.NewString() + "_" + suffix
	if err := d.AddColumn(name, kind, values); err != nil {
		return "", err
	}
	return name, nil
}

// DropColumn removes the named column. Dropping an absent column is a no-op.
func (d *Dataset) DropColumn(name string) {
	i, ok := d.index[name]
	if !ok {
		return
	}
	d.columns = append(d.columns[:i], d.columns[i+1:]...)
	delete(d.index, name)
	for j := i; j < len(d.columns); j++ {
		d.index[d.columns[j].Name] = j
	}
}

// Value returns the cell at (column, row).
func (d *Dataset) Value(name string, row int) interface{} {
	col, ok := d.Column(name)
	if !ok {
		return nil
	}
	return col.Values[row]
}

// SetColumnValues replaces the values of an existing column in place.
func (d *Dataset) SetColumnValues(name string, kind ColumnKind, values []interface{}) error {
	col, ok := d.Column(name)
	if !ok {
		return fmt.Errorf("column %q does not exist", name)
	}
	if len(values) != d.RowCount() {
		return fmt.Errorf("column %q has %d rows, dataset has %d", name, len(values), d.RowCount())
	}
	col.Kind = kind
	col.Values = values
	return nil
}

// UniqueValues returns the distinct values of a column in first-occurrence
// order. Missing cells are excluded.
func (d *Dataset) UniqueValues(name string) []interface{} {
	col, ok := d.Column(name)
	if !ok {
		return nil
	}
	seen := make(map[interface{}]struct{}, len(col.Values))
	unique := make([]interface{}, 0, len(col.Values))
	for _, v := range col.Values {
		if v == nil {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		unique = append(unique, v)
	}
	return unique
}

// Select returns a new dataset holding the rows whose positions are set in
// mask, in ascending row order.
func (d *Dataset) Select(mask *roaring.Bitmap) *Dataset {
	out := New()
	for _, col := range d.columns {
		values := make([]interface{}, 0, mask.GetCardinality())
		mask.Iterate(func(row uint32) bool {
			values = append(values, col.Values[row])
			return true
		})
		// AddColumn cannot fail here: names are unique and lengths agree.
		_ = out.AddColumn(col.Name, col.Kind, values)
	}
	return out
}

// FullMask returns a bitmap with every row position set.
func (d *Dataset) FullMask() *roaring.Bitmap {
	mask := roaring.New()
	mask.AddRange(0, uint64(d.RowCount()))
	return mask
}

// Copy returns a deep copy of the dataset structure. Cell values are shared,
// which is safe because cells are immutable scalars.
func (d *Dataset) Copy() *Dataset {
	out := New()
	for _, col := range d.columns {
		values := make([]interface{}, len(col.Values))
		copy(values, col.Values)
		_ = out.AddColumn(col.Name, col.Kind, values)
	}
	return out
}

// SortByColumns returns a new dataset with rows stably sorted by the given
// columns. Missing cells sort last. Absent sort columns are ignored.
func (d *Dataset) SortByColumns(names []string) *Dataset {
	present := make([]*Column, 0, len(names))
	for _, name := range names {
		if col, ok := d.Column(name); ok {
			present = append(present, col)
		}
	}

	order := make([]int, d.RowCount())
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		for _, col := range present {
			if c := CompareValues(col.Values[order[a]], col.Values[order[b]]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	out := New()
	for _, col := range d.columns {
		values := make([]interface{}, len(order))
		for i, row := range order {
			values[i] = col.Values[row]
		}
		_ = out.AddColumn(col.Name, col.Kind, values)
	}
	return out
}

// CompareValues orders two cells: nil last, numbers before text, otherwise
// by natural ordering within one type.
func CompareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	switch {
	case aNum && bNum:
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	case aNum:
		return -1
	case bNum:
		return 1
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}
