package validate

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/provider"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name string
		kind model.Kind
		in   string
		want []string
	}{
		{
			name: "valid prediction",
			kind: model.KindPrediction,
			in:   `{"probability": 0.4, "confidence": "High", "strengths": [], "risks": ["x"]}`,
		},
		{
			name: "missing probability",
			kind: model.KindPrediction,
			in:   `{"confidence": "low", "strengths": [], "risks": []}`,
			want: []string{`missing required field "probability"`},
		},
		{
			name: "wrong types and enum",
			kind: model.KindSalaryResearch,
			in:   `{"currency": "USD", "min": "100k", "median": 1, "max": 2, "confidence": "certain"}`,
			want: []string{
				`field "min" must be a number, got string`,
				`field "confidence" must be one of low|medium|high, got "certain"`,
			},
		},
		{
			name: "nested fields skipped when parent missing",
			kind: model.KindResume,
			in:   `{"title": "CV"}`,
			want: []string{`missing required field "sections"`},
		},
		{
			name: "nested field missing",
			kind: model.KindResume,
			in:   `{"sections": {"summary": "hi"}}`,
			want: []string{`missing required field "sections.skills"`},
		},
		{
			name: "optional null allowed",
			kind: model.KindCompanyResearch,
			in:   `{"industry": "x", "mission": "y", "products": [], "news": [], "founded_year": null}`,
		},
		{
			name: "not an object",
			kind: model.KindSkillsOptimization,
			in:   `[1, 2]`,
			want: []string{"response must be a JSON object"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Check(tt.kind, provider.ParseJSON(tt.in))
			if out.OK != (len(tt.want) == 0) {
				t.Fatalf("OK = %v, errors = %v", out.OK, out.Errors)
			}
			if diff := cmp.Diff(tt.want, out.Errors); diff != "" {
				t.Errorf("errors mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheck_CoverLetterText(t *testing.T) {
	if out := Check(model.KindCoverLetter, "Dear team,"); !out.OK {
		t.Errorf("text cover letter rejected: %v", out.Errors)
	}
	if out := Check(model.KindCoverLetter, "  "); out.OK {
		t.Error("blank cover letter accepted")
	}
}

func TestParse_PrefersData(t *testing.T) {
	res := &provider.Result{Text: `{"a": 2}`, Data: map[string]any{"a": 1.0}}
	got := Parse(res).(map[string]any)
	if got["a"] != 1.0 {
		t.Errorf("Parse should prefer Data, got %v", got)
	}

	res = &provider.Result{Text: "```json\n{\"a\": 3}\n```"}
	got = Parse(res).(map[string]any)
	if got["a"] != 3.0 {
		t.Errorf("Parse should strip fences, got %v", got)
	}
}

func TestRepairPrompt_ContainsErrorsAndShape(t *testing.T) {
	prev := &provider.Result{Text: `{"confidence": "low"}`}
	p := RepairPrompt(model.KindPrediction, []string{`missing required field "probability"`}, prev)
	for _, want := range []string{`"probability"`, `{"confidence": "low"}`, Shape(model.KindPrediction), "ONLY"} {
		if !strings.Contains(p, want) {
			t.Errorf("repair prompt missing %q:\n%s", want, p)
		}
	}
}
