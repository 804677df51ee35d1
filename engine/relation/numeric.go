package relation

import (
	"strconv"
	"strings"

	"github.com/trialdata/conformance/engine/dataset"
)

// IsNumericColumn reports whether a column qualifies as numeric for
// reconciliation: its storage type is already numeric, or every present
// value, with decimal points stripped, is all digits.
func IsNumericColumn(column *dataset.Column) bool {
	if column.Kind == dataset.KindNumeric {
		return true
	}
	for _, value := range column.Values {
		if value == nil {
			continue
		}
		text, ok := value.(string)
		if !ok {
			return false
		}
		stripped := strings.ReplaceAll(text, ".", "")
		if stripped == "" || !allDigits(stripped) {
			return false
		}
	}
	return true
}

// ReconcileNumericColumns coerces both columns to a common floating
// representation ONLY if both qualify as numeric. An asymmetric pair, one
// numeric-looking and one not, is left untouched and will not match; this
// keeps textual codes that merely resemble numbers uncorrupted.
func ReconcileNumericColumns(left *dataset.Dataset, leftColumn string, right *dataset.Dataset, rightColumn string) {
	leftCol, ok := left.Column(leftColumn)
	if !ok {
		return
	}
	rightCol, ok := right.Column(rightColumn)
	if !ok {
		return
	}
	if !IsNumericColumn(leftCol) || !IsNumericColumn(rightCol) {
		return
	}
	castToFloat(left, leftCol)
	castToFloat(right, rightCol)
}

func castToFloat(ds *dataset.Dataset, column *dataset.Column) {
	values := make([]interface{}, len(column.Values))
	for i, value := range column.Values {
		switch v := value.(type) {
		case nil:
		case float64:
			values[i] = v
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err == nil {
				values[i] = parsed
			}
		}
	}
	// Cannot fail: the column exists and the length is unchanged.
	_ = ds.SetColumnValues(column.Name, dataset.KindNumeric, values)
}

func allDigits(text string) bool {
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
