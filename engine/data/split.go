package data

// Split-dataset awareness: one logical domain may be physically stored
// across multiple files. These helpers classify descriptors by domain so a
// scan can join the pieces before counting.

// IsSplitDataset reports whether more than one physical file belongs to the
// given domain.
func IsSplitDataset(datasets []DatasetDescriptor, domain string) bool {
	return len(CorrespondingDatasets(datasets, domain)) > 1
}

// CorrespondingDatasets returns every descriptor belonging to the given
// domain, in declaration order.
func CorrespondingDatasets(datasets []DatasetDescriptor, domain string) []DatasetDescriptor {
	matching := make([]DatasetDescriptor, 0, 1)
	for _, descriptor := range datasets {
		if descriptor.Domain == domain {
			matching = append(matching, descriptor)
		}
	}
	return matching
}

// UniqueDomainDatasets returns one descriptor per distinct domain, keeping
// the first occurrence.
func UniqueDomainDatasets(datasets []DatasetDescriptor) []DatasetDescriptor {
	seen := make(map[string]struct{}, len(datasets))
	unique := make([]DatasetDescriptor, 0, len(datasets))
	for _, descriptor := range datasets {
		if _, dup := seen[descriptor.Domain]; dup {
			continue
		}
		seen[descriptor.Domain] = struct{}{}
		unique = append(unique, descriptor)
	}
	return unique
}
