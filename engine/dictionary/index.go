package dictionary

import (
	"context"
	"encoding/gob"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/trialdata/conformance/engine/cache"
	"github.com/trialdata/conformance/engine/common"
	"github.com/trialdata/conformance/engine/dataset"

	"github.com/armon/go-radix"
)

func init() {
	// Cached index shapes must round-trip through persistent cache backends.
	gob.Register(map[TermLevel]map[string]bool{})
	gob.Register(&TermCollection{})
}

// TermsProvider retrieves the raw term tree for a dictionary path.
type TermsProvider interface {
	Terms(ctx context.Context, dictionaryPath string) (*TermCollection, error)
}

// CacheTermsProvider reads parsed term trees from the cache, where the
// dictionary-parsing layer installs them under the dictionary path.
type CacheTermsProvider struct {
	Cache cache.CacheService
}

// Terms returns the term tree cached under dictionaryPath.
func (p *CacheTermsProvider) Terms(ctx context.Context, dictionaryPath string) (*TermCollection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, ok := p.Cache.Get(dictionaryPath)
	if !ok {
		return nil, fmt.Errorf("no term tree installed for dictionary %s", dictionaryPath)
	}
	collection, ok := value.(*TermCollection)
	if !ok {
		return nil, fmt.Errorf("cached entry for dictionary %s is not a term collection", dictionaryPath)
	}
	return collection, nil
}

// ValidityIndex builds and caches hierarchy and pair indices from dictionary
// term trees and exposes row-wise validity predicates over datasets. Each
// derived index is built at most once per dictionary path per process.
type ValidityIndex struct {
	cache cache.CacheService
	terms TermsProvider

	// Radix acceleration structures rebuilt from the cached sets on first
	// use; the cache owns the canonical derived sets.
	mu    sync.Mutex
	trees map[string]*radix.Tree
}

// NewValidityIndex creates an index over the given cache and terms provider.
func NewValidityIndex(cacheService cache.CacheService, terms TermsProvider) *ValidityIndex {
	return &ValidityIndex{
		cache: cacheService,
		terms: terms,
		trees: make(map[string]*radix.Tree),
	}
}

// ValidateCodeReferences returns one boolean per row reporting whether the
// row's "/"-joined hierarchy-code chain is a valid MedDRA code hierarchy.
func (v *ValidityIndex) ValidateCodeReferences(ctx context.Context, ds *dataset.Dataset, domain, meddraPath string) ([]bool, error) {
	if meddraPath == "" {
		return nil, fmt.Errorf("no meddra path provided: %w", common.ErrMissingConfiguration)
	}
	hierarchies, err := v.hierarchyTree(ctx, meddraPath, cache.CodeHierarchiesKey(meddraPath), codeHierarchySet)
	if err != nil {
		return nil, err
	}
	return v.validateHierarchyColumns(ds, CodeReferenceColumns(domain), "codes", hierarchies)
}

// ValidateTermReferences is the display-term counterpart of
// ValidateCodeReferences.
func (v *ValidityIndex) ValidateTermReferences(ctx context.Context, ds *dataset.Dataset, domain, meddraPath string) ([]bool, error) {
	if meddraPath == "" {
		return nil, fmt.Errorf("no meddra path provided: %w", common.ErrMissingConfiguration)
	}
	hierarchies, err := v.hierarchyTree(ctx, meddraPath, cache.TermHierarchiesKey(meddraPath), termHierarchySet)
	if err != nil {
		return nil, err
	}
	return v.validateHierarchyColumns(ds, TermReferenceColumns(domain), "terms", hierarchies)
}

// ValidateCodeTermPairs resolves the target variable to its hierarchy level
// and (code, term) column pair, then reports per row whether the pair is a
// valid combination at that level.
func (v *ValidityIndex) ValidateCodeTermPairs(ctx context.Context, ds *dataset.Dataset, domain, target, meddraPath string) ([]bool, error) {
	if meddraPath == "" {
		return nil, fmt.Errorf("no meddra path provided: %w", common.ErrMissingConfiguration)
	}
	level, columns, ok := VariablePair(domain, target)
	if !ok {
		return nil, fmt.Errorf("variable %q is not a meddra hierarchy variable for domain %s", target, domain)
	}

	pairs, err := v.pairSets(ctx, meddraPath)
	if err != nil {
		return nil, err
	}
	levelPairs := pairs[level]

	codeColumn, ok := ds.Column(columns[0])
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", columns[0])
	}
	termColumn, ok := ds.Column(columns[1])
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", columns[1])
	}

	result := make([]bool, ds.RowCount())
	for row := range result {
		pair := encodePair(formatCell(codeColumn.Values[row]), formatCell(termColumn.Values[row]))
		result[row] = levelPairs[pair]
	}
	return result, nil
}

// ValidateWhoDrugCodes reports per row whether the target value points to an
// existing code in the WhoDrug ATC Text (INA) records.
func (v *ValidityIndex) ValidateWhoDrugCodes(ctx context.Context, ds *dataset.Dataset, target, whodrugPath string) ([]bool, error) {
	if whodrugPath == "" {
		return nil, fmt.Errorf("no whodrug path provided: %w", common.ErrMissingConfiguration)
	}
	collection, err := v.terms.Terms(ctx, whodrugPath)
	if err != nil {
		return nil, err
	}

	validCodes := make(map[string]bool)
	for _, term := range collection.WhoDrug[WhoDrugAtcText] {
		validCodes[term.Code] = true
	}

	column, ok := ds.Column(target)
	if !ok {
		return nil, fmt.Errorf("dataset has no column %q", target)
	}
	result := make([]bool, ds.RowCount())
	for row, value := range column.Values {
		result[row] = value != nil && validCodes[formatCell(value)]
	}
	return result, nil
}

// validateHierarchyColumns builds the composite "/"-joined path per row from
// the positionally-fixed hierarchy columns through a short-lived synthetic
// column, then tests set membership.
func (v *ValidityIndex) validateHierarchyColumns(ds *dataset.Dataset, columns []string, suffix string, hierarchies *radix.Tree) ([]bool, error) {
	cols := make([]*dataset.Column, len(columns))
	for i, name := range columns {
		col, ok := ds.Column(name)
		if !ok {
			return nil, fmt.Errorf("dataset has no column %q", name)
		}
		cols[i] = col
	}

	chains := make([]interface{}, ds.RowCount())
	for row := range chains {
		parts := make([]string, len(cols))
		for i, col := range cols {
			parts[i] = formatCell(col.Values[row])
		}
		chains[row] = strings.Join(parts, "/")
	}

	tempColumn, err := ds.AddTempColumn(suffix, dataset.KindText, chains)
	if err != nil {
		return nil, err
	}
	defer ds.DropColumn(tempColumn)

	col, _ := ds.Column(tempColumn)
	result := make([]bool, ds.RowCount())
	for row, value := range col.Values {
		_, result[row] = hierarchies.Get(value.(string))
	}
	return result, nil
}

// hierarchyTree returns the radix membership tree for one index kind,
// building the underlying set at most once per dictionary path.
func (v *ValidityIndex) hierarchyTree(ctx context.Context, meddraPath, cacheKey string, derive func(*TermCollection) map[string]bool) (*radix.Tree, error) {
	v.mu.Lock()
	if tree, ok := v.trees[cacheKey]; ok {
		v.mu.Unlock()
		return tree, nil
	}
	v.mu.Unlock()

	set, err := v.hierarchySet(ctx, meddraPath, cacheKey, derive)
	if err != nil {
		return nil, err
	}

	tree := radix.New()
	for chain := range set {
		tree.Insert(chain, struct{}{})
	}

	v.mu.Lock()
	v.trees[cacheKey] = tree
	v.mu.Unlock()
	return tree, nil
}

func (v *ValidityIndex) hierarchySet(ctx context.Context, meddraPath, cacheKey string, derive func(*TermCollection) map[string]bool) (map[string]bool, error) {
	if cached, ok := v.cache.Get(cacheKey); ok {
		if set, ok := cached.(map[string]bool); ok {
			return set, nil
		}
	}

	collection, err := v.terms.Terms(ctx, meddraPath)
	if err != nil {
		return nil, err
	}
	set := derive(collection)
	v.cache.Add(cacheKey, set)
	slog.Debug("Hierarchy index built", "key", cacheKey, "entries", len(set))
	return set, nil
}

func (v *ValidityIndex) pairSets(ctx context.Context, meddraPath string) (map[TermLevel]map[string]bool, error) {
	cacheKey := cache.CodeTermPairsKey(meddraPath)
	if cached, ok := v.cache.Get(cacheKey); ok {
		if pairs, ok := cached.(map[TermLevel]map[string]bool); ok {
			return pairs, nil
		}
	}

	collection, err := v.terms.Terms(ctx, meddraPath)
	if err != nil {
		return nil, err
	}

	pairs := make(map[TermLevel]map[string]bool, len(TermLevels))
	for _, level := range TermLevels {
		levelPairs := make(map[string]bool, len(collection.MedDRA[level]))
		for _, term := range collection.MedDRA[level] {
			levelPairs[encodePair(term.Code, term.Term)] = true
		}
		pairs[level] = levelPairs
	}
	v.cache.Add(cacheKey, pairs)
	slog.Debug("Code-term pair index built", "key", cacheKey, "levels", len(pairs))
	return pairs, nil
}

func codeHierarchySet(collection *TermCollection) map[string]bool {
	set := make(map[string]bool)
	for _, terms := range collection.MedDRA {
		for _, term := range terms {
			if term.CodeHierarchy != "" {
				set[term.CodeHierarchy] = true
			}
		}
	}
	return set
}

func termHierarchySet(collection *TermCollection) map[string]bool {
	set := make(map[string]bool)
	for _, terms := range collection.MedDRA {
		for _, term := range terms {
			if term.TermHierarchy != "" {
				set[term.TermHierarchy] = true
			}
		}
	}
	return set
}

func encodePair(code, term string) string {
	return code + "\x1f" + term
}

// formatCell renders a cell for composite-key construction. Numeric codes
// print without a trailing fraction so they match dictionary strings.
func formatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
