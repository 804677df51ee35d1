package cache

import "fmt"

// Key builders keep cache namespaces disjoint between operation kinds,
// dictionary indices and library metadata.

// OperationsKey namespaces whole-study scan results by study directory and
// operation name (the operation name already carries the target variable).
func OperationsKey(directory, operation string) string {
	return fmt.Sprintf("operations/%s/%s", directory, operation)
}

// LibraryVariablesKey namespaces standard-defined variable details by
// standard name and version.
func LibraryVariablesKey(standard, version string) string {
	return fmt.Sprintf("library/%s/%s/variables", standard, version)
}

// CodeHierarchiesKey namespaces the derived code-hierarchy index per
// dictionary path.
func CodeHierarchiesKey(dictionaryPath string) string {
	return fmt.Sprintf("meddra/%s/code_hierarchies", dictionaryPath)
}

// TermHierarchiesKey namespaces the derived term-hierarchy index per
// dictionary path.
func TermHierarchiesKey(dictionaryPath string) string {
	return fmt.Sprintf("meddra/%s/term_hierarchies", dictionaryPath)
}

// CodeTermPairsKey namespaces the derived per-level (code, term) pair index
// per dictionary path.
func CodeTermPairsKey(dictionaryPath string) string {
	return fmt.Sprintf("meddra/%s/code_term_pairs", dictionaryPath)
}
