package dataset

import (
	"strings"
	"testing"

	"github.com/RoaringBitmap/roaring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildDataset(t *testing.T) *Dataset {
	t.Helper()
	ds := New()
	require.NoError(t, ds.AddColumn("USUBJID", KindText, []interface{}{"S1", "S1", "S2", "S3"}))
	require.NoError(t, ds.AddColumn("AESEQ", KindNumeric, []interface{}{1.0, 2.0, 1.0, nil}))
	require.NoError(t, ds.AddColumn("AETERM", KindText, []interface{}{"HEADACHE", "NAUSEA", "HEADACHE", nil}))
	return ds
}

func TestColumnLookup(t *testing.T) {
	ds := buildDataset(t)

	col, ok := ds.Column("AESEQ")
	require.True(t, ok)
	require.NotNil(t, col)
	assert.Equal(t, "AESEQ", col.Name)
	assert.Equal(t, KindNumeric, col.Kind)

	col, ok = ds.Column("MISSING")
	assert.False(t, ok)
	assert.Nil(t, col)
}

func TestAddColumnEnforcesRowCount(t *testing.T) {
	ds := buildDataset(t)

	err := ds.AddColumn("SHORT", KindText, []interface{}{"only one"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rows")

	err = ds.AddColumn("USUBJID", KindText, []interface{}{"a", "b", "c", "d"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAddColumnNormalizesBytes(t *testing.T) {
	ds := New()
	require.NoError(t, ds.AddColumn("RAW", KindText, []interface{}{[]byte("AE"), "CM"}))

	col, ok := ds.Column("RAW")
	require.True(t, ok)
	assert.Equal(t, "AE", col.Values[0])
	assert.Equal(t, "CM", col.Values[1])
}

func TestTempColumnsAreCollisionFreeAndDroppable(t *testing.T) {
	ds := buildDataset(t)

	first, err := ds.AddTempColumn("codes", KindText, []interface{}{"a", "b", "c", "d"})
	require.NoError(t, err)
	second, err := ds.AddTempColumn("codes", KindText, []interface{}{"a", "b", "c", "d"})
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(first, "_codes"))

	ds.DropColumn(first)
	ds.DropColumn(second)
	assert.Equal(t, []string{"USUBJID", "AESEQ", "AETERM"}, ds.ColumnNames())
}

func TestSelectKeepsRowOrder(t *testing.T) {
	ds := buildDataset(t)

	mask := roaring.New()
	mask.Add(0)
	mask.Add(2)
	selected := ds.Select(mask)

	require.Equal(t, 2, selected.RowCount())
	assert.Equal(t, "S1", selected.Value("USUBJID", 0))
	assert.Equal(t, "S2", selected.Value("USUBJID", 1))
	assert.Equal(t, 1.0, selected.Value("AESEQ", 0))
}

func TestSortByColumnsMissingLast(t *testing.T) {
	ds := buildDataset(t)

	sorted := ds.SortByColumns([]string{"AESEQ"})
	assert.Equal(t, 1.0, sorted.Value("AESEQ", 0))
	assert.Equal(t, 1.0, sorted.Value("AESEQ", 1))
	assert.Equal(t, 2.0, sorted.Value("AESEQ", 2))
	assert.Nil(t, sorted.Value("AESEQ", 3))
}

func TestGroupByOrdersGroupsAndSkipsMissingKeys(t *testing.T) {
	ds := buildDataset(t)

	groups, err := ds.GroupBy([]string{"AETERM"})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	assert.Equal(t, []interface{}{"HEADACHE"}, groups[0].Key)
	assert.Equal(t, uint64(2), groups[0].Mask.GetCardinality())
	assert.Equal(t, []interface{}{"NAUSEA"}, groups[1].Key)

	_, err = ds.GroupBy([]string{"NOPE"})
	require.Error(t, err)
}

func TestEncodeKeyIsTypeTagged(t *testing.T) {
	numeric := EncodeKey([]interface{}{1.0})
	text := EncodeKey([]interface{}{"1"})
	assert.NotEqual(t, numeric, text, "numeric 1 and text \"1\" must stay distinct")
}

func TestUniqueValuesFirstOccurrenceOrder(t *testing.T) {
	ds := buildDataset(t)

	unique := ds.UniqueValues("AETERM")
	assert.Equal(t, []interface{}{"HEADACHE", "NAUSEA"}, unique)
}
