package operations

import (
	"context"
	"testing"

	"github.com/trialdata/conformance/engine/cache"
	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dataset"
	"github.com/trialdata/conformance/engine/dictionary"
	"github.com/trialdata/conformance/engine/study"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T, service data.DataService) *Dispatcher {
	t.Helper()
	cacheService := cache.NewInMemoryCacheService()
	validity := dictionary.NewValidityIndex(cacheService, &dictionary.CacheTermsProvider{Cache: cacheService})
	return NewDispatcher(service, cacheService, validity, study.NewScanner(service, 2), nil)
}

func vitalsDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	require.NoError(t, ds.AddColumn("USUBJID", dataset.KindText, []interface{}{"S1", "S1", "S2", "S2"}))
	require.NoError(t, ds.AddColumn("VSSTRESN", dataset.KindNumeric, []interface{}{60.0, 80.0, 100.0, 120.0}))
	return ds
}

func TestMinMaxUngrouped(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))
	params := &OperationParams{Target: "VSSTRESN", Dataset: vitalsDataset(t)}

	minimum, err := d.Evaluate(context.Background(), OpMin, params)
	require.NoError(t, err)
	assert.Equal(t, 60.0, minimum.Scalar)

	maximum, err := d.Evaluate(context.Background(), OpMax, params)
	require.NoError(t, err)
	assert.Equal(t, 120.0, maximum.Scalar)
}

func TestGroupedMinMaxEqualsPerGroup(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))
	ds := vitalsDataset(t)
	params := &OperationParams{Target: "VSSTRESN", Grouping: []string{"USUBJID"}, Dataset: ds}

	result, err := d.Evaluate(context.Background(), OpMin, params)
	require.NoError(t, err)
	require.Equal(t, ResultGrouped, result.Kind)

	grouped := result.Grouped
	require.Equal(t, 2, grouped.RowCount())

	// Compare against min computed independently per group.
	groups, err := ds.GroupBy([]string{"USUBJID"})
	require.NoError(t, err)
	target, _ := ds.Column("VSSTRESN")
	for i, group := range groups {
		var expected interface{}
		group.Mask.Iterate(func(row uint32) bool {
			value := target.Values[row].(float64)
			if expected == nil || value < expected.(float64) {
				expected = value
			}
			return true
		})
		assert.Equal(t, group.Key[0], grouped.Value("USUBJID", i))
		assert.Equal(t, expected, grouped.Value("VSSTRESN", i))
	}
}

func TestMeanGrouped(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))
	params := &OperationParams{Target: "VSSTRESN", Grouping: []string{"USUBJID"}, Dataset: vitalsDataset(t)}

	result, err := d.Evaluate(context.Background(), OpMean, params)
	require.NoError(t, err)
	require.Equal(t, ResultGrouped, result.Kind)
	assert.Equal(t, 70.0, result.Grouped.Value("VSSTRESN", 0))
	assert.Equal(t, 110.0, result.Grouped.Value("VSSTRESN", 1))
}

func TestDistinctUngroupedBroadcastsOneSet(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))
	ds := dataset.New()
	require.NoError(t, ds.AddColumn("AETERM", dataset.KindText, []interface{}{"HEADACHE", "NAUSEA", "HEADACHE"}))
	params := &OperationParams{Target: "AETERM", Dataset: ds}

	result, err := d.Evaluate(context.Background(), OpDistinct, params)
	require.NoError(t, err)
	require.Equal(t, ResultColumn, result.Kind)
	require.Len(t, result.Column, 3)

	expected := ValueSet{"HEADACHE": {}, "NAUSEA": {}}
	for _, cell := range result.Column {
		set, ok := cell.(ValueSet)
		require.True(t, ok)
		assert.Equal(t, expected, set)
	}
}

func TestDistinctGrouped(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))
	ds := dataset.New()
	require.NoError(t, ds.AddColumn("USUBJID", dataset.KindText, []interface{}{"S1", "S1", "S2"}))
	require.NoError(t, ds.AddColumn("AETERM", dataset.KindText, []interface{}{"HEADACHE", "NAUSEA", "HEADACHE"}))
	params := &OperationParams{Target: "AETERM", Grouping: []string{"USUBJID"}, Dataset: ds}

	result, err := d.Evaluate(context.Background(), OpDistinct, params)
	require.NoError(t, err)
	require.Equal(t, ResultGrouped, result.Kind)

	first, ok := result.Grouped.Value("AETERM", 0).(ValueSet)
	require.True(t, ok)
	assert.Equal(t, ValueSet{"HEADACHE": {}, "NAUSEA": {}}, first)

	second, ok := result.Grouped.Value("AETERM", 1).(ValueSet)
	require.True(t, ok)
	assert.Equal(t, ValueSet{"HEADACHE": {}}, second)
}
