package sanitize

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/provider"
)

func TestProbability(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.42, 0.42},
		{42, 0.42},
		{100, 1},
		{1.4, 1},
		{1.99, 1},
		{2, 0.02},
		{250, 1},
		{-3, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
	}
	for _, tt := range tests {
		if got := Probability(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Probability(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(1.4, 0, 1); got != 1 {
		t.Errorf("Clamp(1.4) = %v, want 1", got)
	}
	if got := Clamp(-1, 0, 1); got != 0 {
		t.Errorf("Clamp(-1) = %v, want 0", got)
	}
	if got := Clamp(math.NaN(), 0, 52); got != 0 {
		t.Errorf("Clamp(NaN) = %v, want 0", got)
	}
}

func TestPrediction_ClampsProbability(t *testing.T) {
	for in, want := range map[float64]float64{42: 0.42, 1.4: 1, 0.7: 0.7} {
		got := NormalizePrediction(map[string]any{"probability": in}).Probability
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("probability %v -> %v, want %v", in, got, want)
		}
	}
}

func TestCompanySize(t *testing.T) {
	tests := []struct {
		in   string
		want string // "" means nil
	}{
		{"1000+", model.SizeLarge},
		{"1,000+", model.SizeLarge},
		{"12000 employees", model.SizeLarge},
		{"10k+", model.SizeLarge},
		{"5k employees", model.SizeLarge},
		{"50 key engineers", model.SizeStartup},
		{"120 known customers", model.SizeSmall},
		{"Large", model.SizeLarge},
		{"Enterprise", model.SizeLarge},
		{"mid-size", model.SizeMedium},
		{"201-500", model.SizeMedium},
		{"51-200 employees", model.SizeSmall},
		{"11-50", model.SizeStartup},
		{"startup", model.SizeStartup},
		{"lots of people", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got := CompanySize(tt.in)
		switch {
		case tt.want == "" && got != nil:
			t.Errorf("CompanySize(%q) = %q, want nil", tt.in, *got)
		case tt.want != "" && (got == nil || *got != tt.want):
			t.Errorf("CompanySize(%q) = %v, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStrings(t *testing.T) {
	in := []any{" a ", 2.0, true, map[string]any{"x": 1}, nil, "", strings.Repeat("z", 10), "c"}
	got := Strings(in, 4, 5)
	want := []string{"a", "2", "true", "zzzzz"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Strings mismatch (-want +got):\n%s", diff)
	}
	if got := Strings("not a list", 3, 3); got == nil || len(got) != 0 {
		t.Errorf("non-array should give empty slice, got %#v", got)
	}
}

func TestNormalizeResume_BackfillsFromRecords(t *testing.T) {
	res, err := (&provider.MockClient{}).Generate(t.Context(), model.KindResume, "p", provider.Options{})
	if err != nil {
		t.Fatal(err)
	}
	rec := Records{
		Profile: &model.Profile{FullName: "Ada"},
		Employment: []model.Employment{
			{Company: "Babbage & Co", Title: "Programmer", StartDate: "1842", Current: true, Achievements: []string{"First program"}},
		},
		Education:      []model.Education{{Institution: "Home", Degree: "Tutoring"}},
		Certifications: []model.Certification{{Name: "Royal Society"}},
	}

	got := NormalizeResume(res.Data, rec)
	want := []ResumeExperience{{
		Company: "Babbage & Co", Title: "Programmer", StartDate: "1842", EndDate: "Present",
		Highlights: []string{"First program"},
	}}
	if diff := cmp.Diff(want, got.Sections.Experience); diff != "" {
		t.Errorf("experience mismatch (-want +got):\n%s", diff)
	}
	if len(got.Sections.Education) != 1 || len(got.Sections.Certifications) != 1 {
		t.Errorf("education/certifications not back-filled: %+v", got.Sections)
	}
	if len(got.Sections.Skills) == 0 || got.Sections.Skills[0] != "Go" {
		t.Errorf("generated skills should be kept, got %v", got.Sections.Skills)
	}
	if got.Sections.Projects == nil {
		t.Error("empty sections should be non-nil slices")
	}
}

func TestNormalizeSalary_Orders(t *testing.T) {
	got := NormalizeSalary(map[string]any{
		"currency": "eur", "min": 200000.0, "median": -5.0, "max": "150,000", "confidence": "HIGH",
	})
	want := SalaryContent{
		Currency: "EUR", Min: 0, Median: 150000, Max: 200000, Confidence: "high",
		Factors: []string{}, Sources: []string{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("salary mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeCompany_SplitsDurableAndVolatile(t *testing.T) {
	res, err := (&provider.MockClient{}).Generate(t.Context(), model.KindCompanyResearch, "p", provider.Options{})
	if err != nil {
		t.Fatal(err)
	}
	c := NormalizeCompany("Acme", res.Data)
	if c.Size == nil || *c.Size != model.SizeLarge {
		t.Errorf("size = %v, want large", c.Size)
	}
	if c.FoundedYear == nil || *c.FoundedYear != 2012 {
		t.Errorf("founded_year = %v", c.FoundedYear)
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := c.Durable(now)
	v := c.Volatile(now, 24*time.Hour)
	if d.Name != "Acme" || d.Mission == "" {
		t.Errorf("durable = %+v", d)
	}
	if len(v.News) != 1 || !v.ExpiresAt.Equal(now.Add(24*time.Hour)) {
		t.Errorf("volatile = %+v", v)
	}
	if !v.Fresh(now) || v.Fresh(now.Add(25*time.Hour)) {
		t.Error("volatile freshness window wrong")
	}
}

func TestNormalizeCoverLetter(t *testing.T) {
	got := NormalizeCoverLetter("Dear team,\r\n\r\nI build things.\n \nThanks,\nAda")
	if len(got.Paragraphs) != 3 {
		t.Errorf("paragraphs = %q", got.Paragraphs)
	}
	if got.WordCount != 7 {
		t.Errorf("word count = %d, want 7", got.WordCount)
	}
}
