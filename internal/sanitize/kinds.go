package sanitize

import (
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/yangwenmai/careerpilot/internal/model"
)

var confidenceLevels = []string{"low", "medium", "high"}

// Records are the database rows gathered for a request, used to back-fill
// sections the generator left out.
type Records struct {
	Profile        *model.Profile
	Skills         []model.Skill
	Employment     []model.Employment
	Education      []model.Education
	Projects       []model.Project
	Certifications []model.Certification
}

type ResumeExperience struct {
	Company    string   `json:"company"`
	Title      string   `json:"title"`
	Location   string   `json:"location,omitempty"`
	StartDate  string   `json:"start_date,omitempty"`
	EndDate    string   `json:"end_date,omitempty"`
	Highlights []string `json:"highlights"`
}

type ResumeEducation struct {
	Institution string `json:"institution"`
	Degree      string `json:"degree,omitempty"`
	Field       string `json:"field,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

type ResumeProject struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	URL          string   `json:"url,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
}

type ResumeSections struct {
	Summary        string             `json:"summary"`
	Experience     []ResumeExperience `json:"experience"`
	Education      []ResumeEducation  `json:"education"`
	Skills         []string           `json:"skills"`
	Projects       []ResumeProject    `json:"projects"`
	Certifications []string           `json:"certifications"`
}

// ResumeContent is the persisted resume shape.
type ResumeContent struct {
	Title    string         `json:"title"`
	Sections ResumeSections `json:"sections"`
}

// NormalizeResume coerces a validated resume and back-fills any empty
// section from rec.
func NormalizeResume(v any, rec Records) ResumeContent {
	m := asMap(v)
	sec := asMap(m["sections"])

	out := ResumeContent{
		Title: str(m, "title", 200),
		Sections: ResumeSections{
			Summary:        str(sec, "summary", 2000),
			Skills:         list(sec, "skills"),
			Certifications: list(sec, "certifications"),
		},
	}
	for _, e := range objects(sec["experience"]) {
		x := ResumeExperience{
			Company:    str(e, "company", 200),
			Title:      str(e, "title", 200),
			Location:   str(e, "location", 200),
			StartDate:  str(e, "start_date", 40),
			EndDate:    str(e, "end_date", 40),
			Highlights: list(e, "highlights"),
		}
		if x.Company != "" || x.Title != "" {
			out.Sections.Experience = append(out.Sections.Experience, x)
		}
	}
	for _, e := range objects(sec["education"]) {
		x := ResumeEducation{
			Institution: str(e, "institution", 200),
			Degree:      str(e, "degree", 200),
			Field:       str(e, "field", 200),
			StartDate:   str(e, "start_date", 40),
			EndDate:     str(e, "end_date", 40),
		}
		if x.Institution != "" {
			out.Sections.Education = append(out.Sections.Education, x)
		}
	}
	for _, p := range objects(sec["projects"]) {
		x := ResumeProject{
			Name:         str(p, "name", 200),
			Description:  str(p, "description", MaxItemLen),
			URL:          str(p, "url", 500),
			Technologies: list(p, "technologies"),
		}
		if x.Name != "" {
			out.Sections.Projects = append(out.Sections.Projects, x)
		}
	}

	backfillResume(&out, rec)
	return out
}

func backfillResume(out *ResumeContent, rec Records) {
	s := &out.Sections
	if out.Title == "" {
		out.Title = "Resume"
		if rec.Profile != nil && rec.Profile.FullName != "" {
			out.Title = rec.Profile.FullName + " - Resume"
		}
	}
	if s.Summary == "" && rec.Profile != nil {
		s.Summary = text(firstNonEmpty(rec.Profile.Summary, rec.Profile.Headline), 2000)
	}
	if len(s.Experience) == 0 {
		for _, e := range rec.Employment {
			end := e.EndDate
			if e.Current && end == "" {
				end = "Present"
			}
			highlights := slices.Clone(e.Achievements)
			if len(highlights) == 0 && e.Description != "" {
				highlights = []string{text(e.Description, MaxItemLen)}
			}
			s.Experience = append(s.Experience, ResumeExperience{
				Company:    e.Company,
				Title:      e.Title,
				Location:   e.Location,
				StartDate:  e.StartDate,
				EndDate:    end,
				Highlights: nonNil(highlights),
			})
		}
	}
	if len(s.Education) == 0 {
		for _, e := range rec.Education {
			s.Education = append(s.Education, ResumeEducation{
				Institution: e.Institution,
				Degree:      e.Degree,
				Field:       e.Field,
				StartDate:   e.StartDate,
				EndDate:     e.EndDate,
			})
		}
	}
	if len(s.Skills) == 0 {
		for _, sk := range rec.Skills {
			if len(s.Skills) < MaxItems && sk.Name != "" {
				s.Skills = append(s.Skills, sk.Name)
			}
		}
	}
	if len(s.Projects) == 0 {
		for _, p := range rec.Projects {
			s.Projects = append(s.Projects, ResumeProject{
				Name:         p.Name,
				Description:  p.Description,
				URL:          p.URL,
				Technologies: p.Technologies,
			})
		}
	}
	if len(s.Certifications) == 0 {
		for _, c := range rec.Certifications {
			s.Certifications = append(s.Certifications, c.Name)
		}
	}

	s.Experience = nonNil(s.Experience)
	s.Education = nonNil(s.Education)
	s.Skills = nonNil(s.Skills)
	s.Projects = nonNil(s.Projects)
	s.Certifications = nonNil(s.Certifications)
}

// CoverLetterContent is the persisted cover letter shape.
type CoverLetterContent struct {
	Body       string   `json:"body"`
	Paragraphs []string `json:"paragraphs"`
	WordCount  int      `json:"word_count"`
}

var blankLines = regexp.MustCompile(`\n\s*\n`)

// NormalizeCoverLetter trims the letter, caps its length and splits it into paragraphs.
func NormalizeCoverLetter(body string) CoverLetterContent {
	body = text(strings.ReplaceAll(body, "\r\n", "\n"), 8000)
	var paras []string
	for _, p := range blankLines.Split(body, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return CoverLetterContent{
		Body:       body,
		Paragraphs: nonNil(paras),
		WordCount:  len(strings.Fields(body)),
	}
}

// SkillsContent is the persisted skills-optimization shape.
type SkillsContent struct {
	MatchScore      float64  `json:"match_score"`
	MatchedSkills   []string `json:"matched_skills"`
	MissingSkills   []string `json:"missing_skills"`
	Recommendations []string `json:"recommendations"`
	Keywords        []string `json:"keywords"`
}

func NormalizeSkills(v any) SkillsContent {
	m := asMap(v)
	score, _ := num(m, "match_score")
	return SkillsContent{
		MatchScore:      Probability(score),
		MatchedSkills:   list(m, "matched_skills"),
		MissingSkills:   list(m, "missing_skills"),
		Recommendations: list(m, "recommendations"),
		Keywords:        list(m, "keywords"),
	}
}

// CompanyContent is the persisted company-research shape, durable and
// volatile fields together.
type CompanyContent struct {
	Name         string           `json:"name"`
	Industry     string           `json:"industry"`
	Size         *string          `json:"size"`
	Location     string           `json:"location"`
	FoundedYear  *int             `json:"founded_year"`
	Mission      string           `json:"mission"`
	Culture      string           `json:"culture"`
	Leadership   []string         `json:"leadership"`
	Products     []string         `json:"products"`
	News         []model.NewsItem `json:"news"`
	RecentEvents []string         `json:"recent_events"`
}

func NormalizeCompany(name string, v any) CompanyContent {
	m := asMap(v)
	out := CompanyContent{
		Name:         strings.TrimSpace(name),
		Industry:     str(m, "industry", 200),
		Size:         CompanySize(str(m, "size", 100)),
		Location:     str(m, "location", 200),
		FoundedYear:  yearOf(m, "founded_year"),
		Mission:      str(m, "mission", 1000),
		Culture:      str(m, "culture", 1000),
		Leadership:   list(m, "leadership"),
		Products:     list(m, "products"),
		RecentEvents: list(m, "recent_events"),
		News:         []model.NewsItem{},
	}
	for _, n := range objects(m["news"]) {
		if len(out.News) >= 10 {
			break
		}
		item := model.NewsItem{
			Title:   str(n, "title", 300),
			Summary: str(n, "summary", 1000),
			Date:    str(n, "date", 40),
			URL:     str(n, "url", 500),
		}
		if item.Title != "" {
			out.News = append(out.News, item)
		}
	}
	return out
}

// Durable returns the fields that never expire.
func (c CompanyContent) Durable(now time.Time) model.Company {
	return model.Company{
		Name:        c.Name,
		Industry:    c.Industry,
		SizeBucket:  c.Size,
		Location:    c.Location,
		FoundedYear: c.FoundedYear,
		Mission:     c.Mission,
		Culture:     c.Culture,
		Leadership:  c.Leadership,
		Products:    c.Products,
		UpdatedAt:   now.UTC().Format(time.RFC3339),
	}
}

// Volatile returns the time-sensitive fields, expiring after ttl.
func (c CompanyContent) Volatile(now time.Time, ttl time.Duration) model.CompanyResearch {
	return model.CompanyResearch{
		CompanyName:  c.Name,
		News:         c.News,
		RecentEvents: c.RecentEvents,
		FetchedAt:    now.UTC(),
		ExpiresAt:    now.UTC().Add(ttl),
	}
}

// CompanyFromRecords rebuilds content from stored durable and volatile rows.
func CompanyFromRecords(c model.Company, r *model.CompanyResearch) CompanyContent {
	out := CompanyContent{
		Name:         c.Name,
		Industry:     c.Industry,
		Size:         c.SizeBucket,
		Location:     c.Location,
		FoundedYear:  c.FoundedYear,
		Mission:      c.Mission,
		Culture:      c.Culture,
		Leadership:   nonNil(c.Leadership),
		Products:     nonNil(c.Products),
		News:         []model.NewsItem{},
		RecentEvents: []string{},
	}
	if r != nil {
		out.News = nonNil(r.News)
		out.RecentEvents = nonNil(r.RecentEvents)
	}
	return out
}

// SalaryContent is the persisted salary-research shape.
type SalaryContent struct {
	Currency   string   `json:"currency"`
	Min        int      `json:"min"`
	Median     int      `json:"median"`
	Max        int      `json:"max"`
	Confidence string   `json:"confidence"`
	Factors    []string `json:"factors"`
	Sources    []string `json:"sources"`
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// NormalizeSalary clamps figures to non-negative values ordered min <= median <= max.
func NormalizeSalary(v any) SalaryContent {
	m := asMap(v)
	vals := make([]int, 3)
	for i, k := range []string{"min", "median", "max"} {
		f, _ := num(m, k)
		vals[i] = int(Clamp(f, 0, 1e9))
	}
	slices.Sort(vals)

	cur := strings.ToUpper(str(m, "currency", 10))
	if !currencyCode.MatchString(cur) {
		cur = "USD"
	}
	return SalaryContent{
		Currency:   cur,
		Min:        vals[0],
		Median:     vals[1],
		Max:        vals[2],
		Confidence: enum(str(m, "confidence", 20), confidenceLevels, "low"),
		Factors:    list(m, "factors"),
		Sources:    list(m, "sources"),
	}
}

// Prediction sources.
const (
	SourceModel     = "model"
	SourceHeuristic = "heuristic"
)

// PredictionContent is the persisted prediction shape.
type PredictionContent struct {
	Probability     float64  `json:"probability"`
	Confidence      string   `json:"confidence"`
	Outcome         string   `json:"outcome,omitempty"`
	Strengths       []string `json:"strengths"`
	Risks           []string `json:"risks"`
	TimelineWeeks   int      `json:"timeline_weeks"`
	Recommendations []string `json:"recommendations"`
	Source          string   `json:"source"`
}

func NormalizePrediction(v any) PredictionContent {
	m := asMap(v)
	p, _ := num(m, "probability")
	weeks, _ := num(m, "timeline_weeks")
	return PredictionContent{
		Probability:     Probability(p),
		Confidence:      enum(str(m, "confidence", 20), confidenceLevels, "low"),
		Outcome:         enum(str(m, "outcome", 20), []string{"offer", "interview", "rejection"}, ""),
		Strengths:       list(m, "strengths"),
		Risks:           list(m, "risks"),
		TimelineWeeks:   int(Clamp(weeks, 0, 52)),
		Recommendations: list(m, "recommendations"),
		Source:          SourceModel,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
