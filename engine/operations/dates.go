package operations

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/trialdata/conformance/engine/dataset"
)

// ReferenceStartDateColumn is the subject reference start date used by the
// study-day offset operation.
const ReferenceStartDateColumn = "RFSTDTC"

// isoLayout matches the dictionary of accepted --DTC renderings, most
// precise first.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (d *Dispatcher) minDate(ctx context.Context, params *OperationParams) (*Result, error) {
	return d.extremeDate(params, func(candidate, current time.Time) bool {
		return candidate.Before(current)
	})
}

func (d *Dispatcher) maxDate(ctx context.Context, params *OperationParams) (*Result, error) {
	return d.extremeDate(params, func(candidate, current time.Time) bool {
		return candidate.After(current)
	})
}

// extremeDate parses the target column to timestamps and reduces to the
// extreme. When every value is unparseable or absent the result is an empty
// string, not an error.
func (d *Dispatcher) extremeDate(params *OperationParams, better func(candidate, current time.Time) bool) (*Result, error) {
	target, ok := params.Dataset.Column(params.Target)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", params.Target)
	}

	aggregate := func(values []interface{}) interface{} {
		var (
			extreme time.Time
			found   bool
		)
		for _, value := range values {
			parsed, ok := parseTimestamp(value)
			if !ok {
				continue
			}
			if !found || better(parsed, extreme) {
				extreme = parsed
				found = true
			}
		}
		if !found {
			return ""
		}
		return extreme.Format("2006-01-02T15:04:05")
	}

	if len(params.Grouping) == 0 {
		return scalarResult(aggregate(target.Values)), nil
	}
	return d.aggregateByGroup(params, dataset.KindDate, aggregate)
}

// dy computes the study-day offset per row: the day difference between the
// target timestamp and the reference start timestamp, shifted by one for
// non-negative differences because there is no day zero.
func (d *Dispatcher) dy(ctx context.Context, params *OperationParams) (*Result, error) {
	target, ok := params.Dataset.Column(params.Target)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", params.Target)
	}
	reference, ok := params.Dataset.Column(ReferenceStartDateColumn)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", ReferenceStartDateColumn)
	}

	column := make([]interface{}, params.Dataset.RowCount())
	for row := range column {
		dtc, okDtc := parseTimestamp(target.Values[row])
		rfstdtc, okRef := parseTimestamp(reference.Values[row])
		if !okDtc || !okRef {
			continue
		}
		days := int(math.Floor(dtc.Sub(rfstdtc).Hours() / 24))
		if days >= 0 {
			days++
		}
		column[row] = float64(days)
	}
	return columnResult(column), nil
}

func parseTimestamp(value interface{}) (time.Time, bool) {
	text, ok := value.(string)
	if !ok || text == "" {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
