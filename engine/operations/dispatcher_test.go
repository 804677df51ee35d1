package operations

import (
	"context"
	"errors"
	"testing"

	"github.com/trialdata/conformance/engine/cache"
	"github.com/trialdata/conformance/engine/common"
	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dataset"
	"github.com/trialdata/conformance/engine/dictionary"
	"github.com/trialdata/conformance/engine/study"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLibraryService struct {
	details map[string]map[string]string
	err     error
	calls   int
}

func (f *fakeLibraryService) GetVariablesDetails(ctx context.Context, standard, version string) (map[string]map[string]string, error) {
	f.calls++
	return f.details, f.err
}

func TestEvaluateUnknownOperation(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))

	_, err := d.Evaluate(context.Background(), OperationID("no_such_operation"), &OperationParams{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrUnsupportedOperation)
}

func TestVariableExists(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))
	ds := dataset.New()
	require.NoError(t, ds.AddColumn("AETERM", dataset.KindText, []interface{}{"HEADACHE"}))

	result, err := d.Evaluate(context.Background(), OpVariableExists, &OperationParams{Target: "AETERM", Dataset: ds})
	require.NoError(t, err)
	assert.Equal(t, true, result.Scalar)

	result, err = d.Evaluate(context.Background(), OpVariableExists, &OperationParams{Target: "AESEV", Dataset: ds})
	require.NoError(t, err)
	assert.Equal(t, false, result.Scalar)
}

func TestExtractMetadataBroadcasts(t *testing.T) {
	service := data.NewDummyDataService(nil)
	metadata := dataset.New()
	require.NoError(t, metadata.AddColumn("dataset_name", dataset.KindText, []interface{}{"AE"}))
	require.NoError(t, metadata.AddColumn("dataset_label", dataset.KindText, []interface{}{"Adverse Events"}))
	service.SetMetadata("study/ae.csv", metadata)

	ds := dataset.New()
	require.NoError(t, ds.AddColumn("AETERM", dataset.KindText, []interface{}{"HEADACHE", "NAUSEA", "RASH"}))

	d := newTestDispatcher(t, service)
	result, err := d.Evaluate(context.Background(), OpExtractMetadata, &OperationParams{
		Target:      "dataset_label",
		Dataset:     ds,
		DatasetPath: "study/ae.csv",
	})
	require.NoError(t, err)
	require.Equal(t, ResultColumn, result.Kind)
	require.Len(t, result.Column, 3)
	for _, cell := range result.Column {
		assert.Equal(t, "Adverse Events", cell)
	}
}

func TestExtractMetadataRejectsMultiRowRecord(t *testing.T) {
	service := data.NewDummyDataService(nil)
	metadata := dataset.New()
	require.NoError(t, metadata.AddColumn("dataset_name", dataset.KindText, []interface{}{"AE", "AE"}))
	service.SetMetadata("study/ae.csv", metadata)

	ds := dataset.New()
	require.NoError(t, ds.AddColumn("AETERM", dataset.KindText, []interface{}{"HEADACHE"}))

	d := newTestDispatcher(t, service)
	_, err := d.Evaluate(context.Background(), OpExtractMetadata, &OperationParams{
		Target:      "dataset_name",
		Dataset:     ds,
		DatasetPath: "study/ae.csv",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrAmbiguousMatch)
}

func TestVariableValueCountBypassesCacheForDummyService(t *testing.T) {
	ae := dataset.New()
	require.NoError(t, ae.AddColumn("AESEQ", dataset.KindNumeric, []interface{}{1.0, 2.0}))
	service := data.NewDummyDataService(map[string]*dataset.Dataset{"study/ae.csv": ae})

	cacheService := cache.NewInMemoryCacheService()
	validity := dictionary.NewValidityIndex(cacheService, &dictionary.CacheTermsProvider{Cache: cacheService})
	d := NewDispatcher(service, cacheService, validity, study.NewScanner(service, 2), nil)

	params := &OperationParams{
		Target:    "--SEQ",
		Directory: "study",
		Datasets:  []data.DatasetDescriptor{{Domain: "AE", Filename: "ae.csv"}},
	}
	result, err := d.Evaluate(context.Background(), OpVariableValueCount, params)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, result.Scalar)
	assert.Equal(t, 0, cacheService.Len())
}

// localDataStub satisfies DataService without being the dummy stand-in, so
// the caching path is exercised.
type localDataStub struct {
	datasets map[string]*dataset.Dataset
	loads    int
}

func (s *localDataStub) GetDataset(ctx context.Context, path string) (*dataset.Dataset, error) {
	s.loads++
	ds, ok := s.datasets[path]
	if !ok {
		return nil, errors.New("no dataset at " + path)
	}
	return ds, nil
}

func (s *localDataStub) GetDatasetMetadata(ctx context.Context, path string) (*dataset.Dataset, error) {
	return nil, errors.New("not implemented")
}

func (s *localDataStub) JoinSplitDatasets(ctx context.Context, loader data.DatasetLoader, paths []string) (*dataset.Dataset, error) {
	parts := make([]*dataset.Dataset, 0, len(paths))
	for _, path := range paths {
		part, err := loader(ctx, path)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
	}
	return data.ConcatDatasets(parts)
}

func TestVariableValueCountCachesScanResult(t *testing.T) {
	ae := dataset.New()
	require.NoError(t, ae.AddColumn("AESEQ", dataset.KindNumeric, []interface{}{1.0, 1.0, 2.0}))
	service := &localDataStub{datasets: map[string]*dataset.Dataset{"study/ae.csv": ae}}

	cacheService := cache.NewInMemoryCacheService()
	validity := dictionary.NewValidityIndex(cacheService, &dictionary.CacheTermsProvider{Cache: cacheService})
	d := NewDispatcher(service, cacheService, validity, study.NewScanner(service, 2), nil)

	params := &OperationParams{
		Target:    "--SEQ",
		Directory: "study",
		Datasets:  []data.DatasetDescriptor{{Domain: "AE", Filename: "ae.csv"}},
	}

	first, err := d.Evaluate(context.Background(), OpVariableValueCount, params)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"1": 1, "2": 1}, first.Scalar)
	loadsAfterFirst := service.loads

	second, err := d.Evaluate(context.Background(), OpVariableValueCount, params)
	require.NoError(t, err)
	assert.Equal(t, first.Scalar, second.Scalar)
	assert.Equal(t, loadsAfterFirst, service.loads, "second evaluation should be served from cache")
}

func TestVariableNamesRequiresLibraryService(t *testing.T) {
	d := newTestDispatcher(t, data.NewDummyDataService(nil))

	_, err := d.Evaluate(context.Background(), OpVariableNames, &OperationParams{Standard: "sdtmig", StandardVersion: "3-4"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingConfiguration)
}

func TestVariableNamesFromLibraryService(t *testing.T) {
	service := data.NewDummyDataService(nil)
	library := &fakeLibraryService{details: map[string]map[string]string{
		"AETERM": {"label": "Reported Term"},
		"AESEQ":  {"label": "Sequence Number"},
	}}

	cacheService := cache.NewInMemoryCacheService()
	validity := dictionary.NewValidityIndex(cacheService, &dictionary.CacheTermsProvider{Cache: cacheService})
	d := NewDispatcher(service, cacheService, validity, study.NewScanner(service, 2), library)

	result, err := d.Evaluate(context.Background(), OpVariableNames, &OperationParams{Standard: "sdtmig", StandardVersion: "3-4"})
	require.NoError(t, err)
	require.Equal(t, ResultSet, result.Kind)
	assert.Equal(t, ValueSet{"AETERM": {}, "AESEQ": {}}, result.Set)
	assert.Equal(t, 1, library.calls)
}

func TestVariableNamesPrefersCachedLibraryMetadata(t *testing.T) {
	service := data.NewDummyDataService(nil)
	library := &fakeLibraryService{err: errors.New("library unreachable")}

	cacheService := cache.NewInMemoryCacheService()
	cacheService.Add(cache.LibraryVariablesKey("sdtmig", "3-4"), map[string]map[string]string{
		"USUBJID": {"label": "Unique Subject Identifier"},
	})
	validity := dictionary.NewValidityIndex(cacheService, &dictionary.CacheTermsProvider{Cache: cacheService})
	d := NewDispatcher(service, cacheService, validity, study.NewScanner(service, 2), library)

	result, err := d.Evaluate(context.Background(), OpVariableNames, &OperationParams{Standard: "sdtmig", StandardVersion: "3-4"})
	require.NoError(t, err)
	assert.Equal(t, ValueSet{"USUBJID": {}}, result.Set)
	assert.Equal(t, 0, library.calls, "library should not be consulted when the cache has the details")
}
