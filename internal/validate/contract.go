package validate

import "github.com/yangwenmai/careerpilot/internal/model"

type fieldType string

const (
	typeString fieldType = "string"
	typeNumber fieldType = "number"
	typeArray  fieldType = "array"
	typeObject fieldType = "object"
)

// field is one rule of a kind contract. Path uses dots for nested objects.
type field struct {
	Path     string
	Type     fieldType
	Required bool
	Enum     []string
}

var confidenceLevels = []string{"low", "medium", "high"}

var contracts = map[model.Kind][]field{
	model.KindResume: {
		{Path: "title", Type: typeString},
		{Path: "sections", Type: typeObject, Required: true},
		{Path: "sections.summary", Type: typeString, Required: true},
		{Path: "sections.skills", Type: typeArray, Required: true},
		{Path: "sections.experience", Type: typeArray},
		{Path: "sections.education", Type: typeArray},
		{Path: "sections.projects", Type: typeArray},
		{Path: "sections.certifications", Type: typeArray},
	},
	model.KindSkillsOptimization: {
		{Path: "match_score", Type: typeNumber, Required: true},
		{Path: "matched_skills", Type: typeArray, Required: true},
		{Path: "missing_skills", Type: typeArray, Required: true},
		{Path: "recommendations", Type: typeArray, Required: true},
		{Path: "keywords", Type: typeArray},
	},
	model.KindCompanyResearch: {
		{Path: "industry", Type: typeString, Required: true},
		{Path: "mission", Type: typeString, Required: true},
		{Path: "products", Type: typeArray, Required: true},
		{Path: "news", Type: typeArray, Required: true},
		{Path: "leadership", Type: typeArray},
		{Path: "recent_events", Type: typeArray},
		{Path: "founded_year", Type: typeNumber},
	},
	model.KindSalaryResearch: {
		{Path: "currency", Type: typeString, Required: true},
		{Path: "min", Type: typeNumber, Required: true},
		{Path: "median", Type: typeNumber, Required: true},
		{Path: "max", Type: typeNumber, Required: true},
		{Path: "confidence", Type: typeString, Required: true, Enum: confidenceLevels},
		{Path: "factors", Type: typeArray},
	},
	model.KindPrediction: {
		{Path: "probability", Type: typeNumber, Required: true},
		{Path: "confidence", Type: typeString, Required: true, Enum: confidenceLevels},
		{Path: "strengths", Type: typeArray, Required: true},
		{Path: "risks", Type: typeArray, Required: true},
		{Path: "outcome", Type: typeString, Enum: []string{"offer", "interview", "rejection"}},
		{Path: "timeline_weeks", Type: typeNumber},
		{Path: "recommendations", Type: typeArray},
	},
}

var shapes = map[model.Kind]string{
	model.KindResume:             `{"title": "string", "sections": {"summary": "string", "experience": [object], "education": [object], "skills": ["string"], "projects": [object], "certifications": ["string"]}}`,
	model.KindSkillsOptimization: `{"match_score": number 0-1, "matched_skills": ["string"], "missing_skills": ["string"], "recommendations": ["string"], "keywords": ["string"]}`,
	model.KindCompanyResearch:    `{"industry": "string", "size": "string", "location": "string", "founded_year": number, "mission": "string", "culture": "string", "leadership": ["string"], "products": ["string"], "news": [{"title": "string", "summary": "string", "date": "string"}], "recent_events": ["string"]}`,
	model.KindSalaryResearch:     `{"currency": "string", "min": number, "median": number, "max": number, "confidence": "low|medium|high", "factors": ["string"], "sources": ["string"]}`,
	model.KindPrediction:         `{"probability": number 0-1, "confidence": "low|medium|high", "outcome": "offer|interview|rejection", "strengths": ["string"], "risks": ["string"], "timeline_weeks": number, "recommendations": ["string"]}`,
}

// Shape describes the expected JSON for kind, for use in prompts.
func Shape(kind model.Kind) string {
	return shapes[kind]
}
