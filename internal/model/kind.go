package model

// Kind is the category of a generation request.
type Kind string

// Artifact kinds.
const (
	KindResume             Kind = "resume"
	KindCoverLetter        Kind = "cover_letter"
	KindSkillsOptimization Kind = "skills_optimization"
	KindCompanyResearch    Kind = "company_research"
	KindSalaryResearch     Kind = "salary_research"
	KindPrediction         Kind = "prediction"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{
	KindResume,
	KindCoverLetter,
	KindSkillsOptimization,
	KindCompanyResearch,
	KindSalaryResearch,
	KindPrediction,
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Structured reports whether the provider is asked for a JSON object.
// Cover letters are prose; everything else is validated against a contract.
func (k Kind) Structured() bool {
	return k != KindCoverLetter
}

// RequiresJob reports whether a request of this kind must reference a job.
// Resumes may be generic; company research may name the company directly.
func (k Kind) RequiresJob() bool {
	switch k {
	case KindCoverLetter, KindSkillsOptimization, KindSalaryResearch, KindPrediction:
		return true
	default:
		return false
	}
}

// ParseKind converts s to a Kind, accepting a few dashed spellings used by clients.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "cover-letter":
		s = string(KindCoverLetter)
	case "skills", "skills-optimization":
		s = string(KindSkillsOptimization)
	case "company", "company-research":
		s = string(KindCompanyResearch)
	case "salary", "salary-research":
		s = string(KindSalaryResearch)
	}
	k := Kind(s)
	return k, k.Valid()
}
