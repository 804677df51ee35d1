package relation

import (
	"context"
	"fmt"
	"path"

	"github.com/trialdata/conformance/engine/data"
	"github.com/trialdata/conformance/engine/dataset"

	"github.com/sourcegraph/conc/pool"
)

// ReferenceData maps referenced domain → referenced column → column values,
// collected from the datasets a relationship dataset points at.
type ReferenceData map[string]map[string][]interface{}

// PreprocessRelationshipDataset collects the column data a relationship
// dataset refers to. For an RDOMAIN/IDVAR-shaped dataset it loads every
// referenced domain concurrently and extracts the referenced columns. For an
// RSUBJID-shaped dataset it aliases the DM dataset's USUBJID column as
// RSUBJID. Per-domain loads run on one worker pool; a single failing load
// fails the whole preprocessing step.
func (e *MergeEngine) PreprocessRelationshipDataset(ctx context.Context, studyPath string, relationship *dataset.Dataset, datasets []data.DatasetDescriptor) (ReferenceData, error) {
	switch {
	case relationship.HasColumn(ReferencedDomainColumn):
		domains := textValues(relationship.UniqueValues(ReferencedDomainColumn))
		columns := textValues(relationship.UniqueValues("IDVAR"))
		return e.collectReferenceData(ctx, studyPath, datasets, columns, domains)

	case relationship.HasColumn(ReferencedSubjectColumn):
		reference, err := e.collectReferenceData(ctx, studyPath, datasets, []string{SubjectColumn}, []string{"DM"})
		if err != nil {
			return nil, err
		}
		if dm, ok := reference["DM"]; ok {
			if subjects, ok := dm[SubjectColumn]; ok {
				dm[ReferencedSubjectColumn] = subjects
				delete(dm, SubjectColumn)
			}
		}
		return reference, nil

	default:
		return ReferenceData{}, nil
	}
}

// collectReferenceData loads every referenced domain dataset and extracts
// the referenced columns that exist in it.
func (e *MergeEngine) collectReferenceData(ctx context.Context, studyPath string, datasets []data.DatasetDescriptor, columns []string, domains []string) (ReferenceData, error) {
	tasks := pool.NewWithResults[ReferenceData]().
		WithContext(ctx).
		WithMaxGoroutines(e.poolSize).
		WithCancelOnError().
		WithFirstError()

	for _, domain := range domains {
		tasks.Go(func(ctx context.Context) (ReferenceData, error) {
			return e.domainColumnData(ctx, studyPath, datasets, columns, domain)
		})
	}

	results, err := tasks.Wait()
	if err != nil {
		return nil, err
	}

	reference := make(ReferenceData, len(results))
	for _, partial := range results {
		for domain, columnData := range partial {
			reference[domain] = columnData
		}
	}
	return reference, nil
}

// domainColumnData extracts the requested columns from one domain's
// dataset. A domain with no descriptor contributes nothing.
func (e *MergeEngine) domainColumnData(ctx context.Context, studyPath string, datasets []data.DatasetDescriptor, columns []string, domain string) (ReferenceData, error) {
	descriptors := data.CorrespondingDatasets(datasets, domain)
	if len(descriptors) == 0 {
		return ReferenceData{}, nil
	}

	ds, err := e.dataService.GetDataset(ctx, path.Join(studyPath, descriptors[0].Filename))
	if err != nil {
		return nil, fmt.Errorf("failed to load referenced domain %s: %w", domain, err)
	}

	columnData := make(map[string][]interface{})
	for _, name := range columns {
		if col, ok := ds.Column(name); ok {
			columnData[name] = col.Values
		}
	}
	return ReferenceData{domain: columnData}, nil
}

func textValues(values []interface{}) []string {
	texts := make([]string, 0, len(values))
	for _, value := range values {
		if text, ok := value.(string); ok {
			texts = append(texts, text)
		}
	}
	return texts
}
