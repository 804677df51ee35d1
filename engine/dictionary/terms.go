package dictionary

// TermLevel is one of the five standard MedDRA hierarchy levels, ordered
// from System Organ Class down to Lowest Level Term.
type TermLevel string

const (
	LevelSOC  TermLevel = "soc"
	LevelHLGT TermLevel = "hlgt"
	LevelHLT  TermLevel = "hlt"
	LevelPT   TermLevel = "pt"
	LevelLLT  TermLevel = "llt"
)

// TermLevels lists the hierarchy levels in descending order.
var TermLevels = []TermLevel{LevelSOC, LevelHLGT, LevelHLT, LevelPT, LevelLLT}

// MedDRATerm is one parsed dictionary term. The dictionary parser (an
// external collaborator) resolves the full ancestor chains when it builds
// the term tree, so hierarchy validation here is pure set membership.
type MedDRATerm struct {
	Code  string
	Term  string
	Level TermLevel
	// CodeHierarchy and TermHierarchy are the "/"-joined ancestor chains
	// ending at this term, by code and by display term respectively.
	CodeHierarchy string
	TermHierarchy string
}

// WhoDrugRecordType identifies the file a WhoDrug record came from.
type WhoDrugRecordType string

const (
	WhoDrugDrugDictionary    WhoDrugRecordType = "dd"
	WhoDrugAtcText           WhoDrugRecordType = "ina"
	WhoDrugAtcClassification WhoDrugRecordType = "dda"
)

// WhoDrugTerm is one parsed WhoDrug record.
type WhoDrugTerm struct {
	Code string
	Text string
	Type WhoDrugRecordType
}

// TermCollection is the raw term tree produced by a terms factory for one
// dictionary path. Exactly one of the variants is populated, matching the
// dictionary type the factory was registered under.
type TermCollection struct {
	MedDRA  map[TermLevel][]*MedDRATerm
	WhoDrug map[WhoDrugRecordType][]*WhoDrugTerm
}
