package study

import (
	"context"
	"testing"

	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureDataset(t *testing.T, column string, values ...interface{}) *dataset.Dataset {
	t.Helper()
	ds := dataset.New()
	require.NoError(t, ds.AddColumn(column, dataset.KindText, values))
	return ds
}

func TestCollectAllVariables(t *testing.T) {
	ae := dataset.New()
	require.NoError(t, ae.AddColumn("USUBJID", dataset.KindText, []interface{}{"S1"}))
	require.NoError(t, ae.AddColumn("AESEQ", dataset.KindNumeric, []interface{}{1.0}))
	dm := dataset.New()
	require.NoError(t, dm.AddColumn("USUBJID", dataset.KindText, []interface{}{"S1"}))
	require.NoError(t, dm.AddColumn("RFSTDTC", dataset.KindDate, []interface{}{"2023-01-01"}))

	service := data.NewDummyDataService(map[string]*dataset.Dataset{
		"/study/ae.csv": ae,
		"/study/dm.csv": dm,
	})
	scanner := NewScanner(service, 4)

	variables, err := scanner.CollectAllVariables(context.Background(), "/study", []data.DatasetDescriptor{
		{Domain: "AE", Filename: "ae.csv"},
		{Domain: "DM", Filename: "dm.csv"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]bool{"USUBJID": true, "AESEQ": true, "RFSTDTC": true}, variables)
}

func TestCollectVariableValueCountsResolvesPlaceholder(t *testing.T) {
	service := data.NewDummyDataService(map[string]*dataset.Dataset{
		"/study/ae.csv": fixtureDataset(t, "AECAT", "CARDIAC", "CARDIAC", "NEURO"),
		"/study/cm.csv": fixtureDataset(t, "CMCAT", "CARDIAC"),
	})
	scanner := NewScanner(service, 2)

	counts, err := scanner.CollectVariableValueCounts(context.Background(), "--CAT", "/study", []data.DatasetDescriptor{
		{Domain: "AE", Filename: "ae.csv"},
		{Domain: "CM", Filename: "cm.csv"},
	})
	require.NoError(t, err)

	// Each domain contributes its distinct values once.
	assert.Equal(t, map[string]int{"CARDIAC": 2, "NEURO": 1}, counts)
}

func TestSplitDatasetNotDoubleCounted(t *testing.T) {
	splitService := data.NewDummyDataService(map[string]*dataset.Dataset{
		"/study/qs1.csv": fixtureDataset(t, "QSCAT", "COGNITIVE", "MOOD"),
		"/study/qs2.csv": fixtureDataset(t, "QSCAT", "MOOD", "SLEEP"),
	})
	joinedService := data.NewDummyDataService(map[string]*dataset.Dataset{
		"/study/qs.csv": fixtureDataset(t, "QSCAT", "COGNITIVE", "MOOD", "MOOD", "SLEEP"),
	})

	splitCounts, err := NewScanner(splitService, 4).CollectVariableValueCounts(
		context.Background(), "QSCAT", "/study", []data.DatasetDescriptor{
			{Domain: "QS", Filename: "qs1.csv"},
			{Domain: "QS", Filename: "qs2.csv"},
		})
	require.NoError(t, err)

	joinedCounts, err := NewScanner(joinedService, 4).CollectVariableValueCounts(
		context.Background(), "QSCAT", "/study", []data.DatasetDescriptor{
			{Domain: "QS", Filename: "qs.csv"},
		})
	require.NoError(t, err)

	assert.Equal(t, joinedCounts, splitCounts, "split files must be joined before counting")
}

func TestScanFailurePropagatesWithoutPartialResults(t *testing.T) {
	service := data.NewDummyDataService(map[string]*dataset.Dataset{
		"/study/ae.csv": fixtureDataset(t, "AECAT", "CARDIAC"),
		// dm.csv is not registered, its task fails.
	})
	scanner := NewScanner(service, 2)

	counts, err := scanner.CollectVariableValueCounts(context.Background(), "--CAT", "/study", []data.DatasetDescriptor{
		{Domain: "AE", Filename: "ae.csv"},
		{Domain: "DM", Filename: "dm.csv"},
	})
	require.Error(t, err)
	assert.Nil(t, counts)
}

func TestVariableAbsentEverywhere(t *testing.T) {
	service := data.NewDummyDataService(map[string]*dataset.Dataset{
		"/study/ae.csv": fixtureDataset(t, "AECAT", "CARDIAC"),
	})
	scanner := NewScanner(service, 1)

	counts, err := scanner.CollectVariableValueCounts(context.Background(), "AEBODSYS", "/study", []data.DatasetDescriptor{
		{Domain: "AE", Filename: "ae.csv"},
	})
	require.NoError(t, err)
	assert.Empty(t, counts)
}
