package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"
)

// Group is one grouping-key tuple plus the bitmap of rows carrying it.
type Group struct {
	Key  []interface{}
	Mask *roaring.Bitmap
}

// GroupBy partitions rows by the tuple of values in the grouping columns and
// returns the groups ordered by key. Rows with a missing cell in any grouping
// column are excluded, matching aggregate semantics where a group key must be
// fully present.
func (d *Dataset) GroupBy(grouping []string) ([]Group, error) {
	cols := make([]*Column, len(grouping))
	for i, name := range grouping {
		col, ok := d.Column(name)
		if !ok {
			return nil, fmt.Errorf("grouping column %q does not exist", name)
		}
		cols[i] = col
	}

	byKey := make(map[string]*Group)
	for row := 0; row < d.RowCount(); row++ {
		key := make([]interface{}, len(cols))
		missing := false
		for i, col := range cols {
			if col.Values[row] == nil {
				missing = true
				break
			}
			key[i] = col.Values[row]
		}
		if missing {
			continue
		}

		encoded := EncodeKey(key)
		group, ok := byKey[encoded]
		if !ok {
			group = &Group{Key: key, Mask: roaring.New()}
			byKey[encoded] = group
		}
		group.Mask.Add(uint32(row))
	}

	groups := make([]Group, 0, len(byKey))
	for _, group := range byKey {
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(a, b int) bool {
		return compareGroupKeys(groups[a].Key, groups[b].Key) < 0
	})
	return groups, nil
}

// EncodeKey flattens a value tuple into a map key. The encoding carries the
// cell type so a numeric 1 and the text "1" stay distinct. The unit separator
// cannot occur in dataset text values.
func EncodeKey(key []interface{}) string {
	parts := make([]string, len(key))
	for i, v := range key {
		parts[i] = fmt.Sprintf("%T:%v", v, v)
	}
	return strings.Join(parts, "\x1f")
}

func compareGroupKeys(a, b []interface{}) int {
	for i := range a {
		if i >= len(b) {
			return 1
		}
		if c := CompareValues(a[i], b[i]); c != 0 {
			return c
		}
	}
	if len(a) < len(b) {
		return -1
	}
	return 0
}
