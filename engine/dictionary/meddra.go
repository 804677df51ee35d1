package dictionary

// MedDRA variable name fragments. Dataset column names are the domain code
// followed by one of these, e.g. AESOCCD for domain AE.
const (
	VarSOC    = "SOC"
	VarSOCCD  = "SOCCD"
	VarHLGT   = "HLGT"
	VarHLGTCD = "HLGTCD"
	VarHLT    = "HLT"
	VarHLTCD  = "HLTCD"
	VarDECOD  = "DECOD"
	VarPTCD   = "PTCD"
	VarLLT    = "LLT"
	VarLLTCD  = "LLTCD"
)

// codeVariables are the positionally-fixed hierarchy code columns, SOC first.
var codeVariables = []string{VarSOCCD, VarHLGTCD, VarHLTCD, VarPTCD, VarLLTCD}

// termVariables are the display-term counterparts in the same order.
var termVariables = []string{VarSOC, VarHLGT, VarHLT, VarDECOD, VarLLT}

// VariablePair resolves a target variable to its hierarchy level and its
// (code column, term column) pair. Either variant of a level resolves to the
// same pair, e.g. both AESOC and AESOCCD yield (AESOCCD, AESOC).
func VariablePair(domain, target string) (TermLevel, [2]string, bool) {
	type pairSpec struct {
		level   TermLevel
		codeVar string
		termVar string
	}
	specs := []pairSpec{
		{LevelSOC, VarSOCCD, VarSOC},
		{LevelHLGT, VarHLGTCD, VarHLGT},
		{LevelHLT, VarHLTCD, VarHLT},
		{LevelPT, VarPTCD, VarDECOD},
		{LevelLLT, VarLLTCD, VarLLT},
	}
	for _, spec := range specs {
		codeColumn := domain + spec.codeVar
		termColumn := domain + spec.termVar
		if target == codeColumn || target == termColumn {
			return spec.level, [2]string{codeColumn, termColumn}, true
		}
	}
	return "", [2]string{}, false
}

// CodeReferenceColumns returns the five hierarchy code column names for a
// domain, SOC first.
func CodeReferenceColumns(domain string) []string {
	columns := make([]string, len(codeVariables))
	for i, variable := range codeVariables {
		columns[i] = domain + variable
	}
	return columns
}

// TermReferenceColumns returns the five display-term column names for a
// domain, SOC first.
func TermReferenceColumns(domain string) []string {
	columns := make([]string, len(termVariables))
	for i, variable := range termVariables {
		columns[i] = domain + variable
	}
	return columns
}
