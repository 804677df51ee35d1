package study

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dataset"

	"github.com/sourcegraph/conc/pool"
)

// DomainPlaceholder in a variable name is resolved per domain before
// counting, e.g. --SEQ becomes AESEQ in domain AE.
const DomainPlaceholder = "--"

// Scanner concurrently scans every dataset file in a study. One task runs
// per distinct domain; split files belonging to one logical domain are
// joined inside the task so values are never double-counted across physical
// files. Tasks share no mutable state and the merge steps are commutative
// and associative, so results are independent of completion order. A single
// failing task cancels the scan and its failure propagates; no partial
// results are returned.
type Scanner struct {
	dataService data.DataService
	poolSize    int
}

// NewScanner creates a scanner over the given data service with at most
// poolSize concurrent tasks.
func NewScanner(dataService data.DataService, poolSize int) *Scanner {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Scanner{dataService: dataService, poolSize: poolSize}
}

// CollectAllVariables returns the set of column names present in any
// dataset of the study.
func (s *Scanner) CollectAllVariables(ctx context.Context, studyPath string, datasets []data.DatasetDescriptor) (map[string]bool, error) {
	tasks := pool.NewWithResults[[]string]().
		WithContext(ctx).
		WithMaxGoroutines(s.poolSize).
		WithCancelOnError().
		WithFirstError()

	for _, descriptor := range datasets {
		tasks.Go(func(ctx context.Context) ([]string, error) {
			ds, err := s.dataService.GetDataset(ctx, path.Join(studyPath, descriptor.Filename))
			if err != nil {
				return nil, fmt.Errorf("failed to load dataset %s: %w", descriptor.Filename, err)
			}
			return ds.ColumnNames(), nil
		})
	}

	results, err := tasks.Wait()
	if err != nil {
		return nil, err
	}

	// Set union is order independent.
	variables := make(map[string]bool)
	for _, names := range results {
		for _, name := range names {
			variables[name] = true
		}
	}
	slog.Debug("Study variables collected", "study", studyPath, "variables", len(variables))
	return variables, nil
}

// CollectVariableValueCounts returns, per distinct value of the target
// variable, the number of domains in the study whose dataset carries that
// value. A DomainPlaceholder in the variable name is resolved per domain.
func (s *Scanner) CollectVariableValueCounts(ctx context.Context, variable, studyPath string, datasets []data.DatasetDescriptor) (map[string]int, error) {
	tasks := pool.NewWithResults[map[string]int]().
		WithContext(ctx).
		WithMaxGoroutines(s.poolSize).
		WithCancelOnError().
		WithFirstError()

	for _, descriptor := range data.UniqueDomainDatasets(datasets) {
		tasks.Go(func(ctx context.Context) (map[string]int, error) {
			return s.domainValueCounts(ctx, variable, studyPath, datasets, descriptor)
		})
	}

	results, err := tasks.Wait()
	if err != nil {
		return nil, err
	}

	// Counter summation is commutative and associative.
	counts := make(map[string]int)
	for _, domainCounts := range results {
		for value, count := range domainCounts {
			counts[value] += count
		}
	}
	return counts, nil
}

// domainValueCounts counts the distinct values of the resolved target
// variable within one logical domain.
func (s *Scanner) domainValueCounts(ctx context.Context, variable, studyPath string, datasets []data.DatasetDescriptor, descriptor data.DatasetDescriptor) (map[string]int, error) {
	var (
		ds  *dataset.Dataset
		err error
	)
	if data.IsSplitDataset(datasets, descriptor.Domain) {
		paths := make([]string, 0, 2)
		for _, part := range data.CorrespondingDatasets(datasets, descriptor.Domain) {
			paths = append(paths, path.Join(studyPath, part.Filename))
		}
		ds, err = s.dataService.JoinSplitDatasets(ctx, s.dataService.GetDataset, paths)
	} else {
		ds, err = s.dataService.GetDataset(ctx, path.Join(studyPath, descriptor.Filename))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load domain %s: %w", descriptor.Domain, err)
	}

	target := strings.Replace(variable, DomainPlaceholder, descriptor.Domain, 1)
	if !ds.HasColumn(target) {
		return map[string]int{}, nil
	}

	counts := make(map[string]int)
	for _, value := range ds.UniqueValues(target) {
		counts[formatValue(value)] = 1
	}
	return counts, nil
}

func formatValue(value interface{}) string {
	switch v := value.(type) {
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
