package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/sanitize"
)

const maxHeuristicStrengths = 5

// predictionFallback replaces a failed model prediction with a heuristic one.
func (o *Orchestrator) predictionFallback(ctx context.Context, req model.GenerationRequest, gc *gathered, cause error) (*model.Artifact, error) {
	slog.Warn("prediction generation failed, using heuristic estimate",
		"user_id", req.UserID, "error", cause)

	content := heuristicPrediction(gc.job, gc.records)
	meta := model.ArtifactMetadata{
		Provider: model.ProviderHeuristic,
		Fallback: true,
		Extras:   map[string]any{"fallback_reason": cause.Error()},
	}
	return o.finish(ctx, req, "Outcome Prediction - "+jobLabel(gc.job), "", content, meta), nil
}

// heuristicPrediction scores an application from skill overlap with the
// posting and depth of experience. It never calls a provider.
func heuristicPrediction(job *model.Job, rec sanitize.Records) sanitize.PredictionContent {
	posting := ""
	if job != nil {
		posting = strings.ToLower(job.Title + "\n" + job.Description)
	}

	var matched []string
	for _, s := range rec.Skills {
		name := strings.ToLower(strings.TrimSpace(s.Name))
		if name != "" && strings.Contains(posting, name) {
			matched = append(matched, s.Name)
		}
	}

	years := 0
	for _, s := range rec.Skills {
		years = max(years, s.Years)
	}
	if years == 0 {
		years = 2 * len(rec.Employment)
	}

	titleMatch := false
	if job != nil {
		for _, e := range rec.Employment {
			if sharesWord(e.Title, job.Title) {
				titleMatch = true
				break
			}
		}
	}

	p := 0.2
	p += 0.4 * min(1, float64(len(matched))/5)
	p += 0.2 * min(1, float64(years)/8)
	if titleMatch {
		p += 0.1
	}
	p = sanitize.Clamp(p, 0.05, 0.9)

	out := sanitize.PredictionContent{
		Probability:     p,
		Confidence:      "low",
		Outcome:         "rejection",
		Strengths:       []string{},
		Risks:           []string{},
		TimelineWeeks:   4,
		Recommendations: []string{"Tailor the resume to the posting's stated requirements before applying."},
		Source:          sanitize.SourceHeuristic,
	}
	if p >= 0.5 {
		out.Outcome = "interview"
	}
	for i, m := range matched {
		if i == maxHeuristicStrengths {
			break
		}
		out.Strengths = append(out.Strengths, fmt.Sprintf("Posting mentions %s, which is in your skill set", m))
	}
	if titleMatch {
		out.Strengths = append(out.Strengths, "Prior role titles align with this position")
	}
	if len(matched) == 0 {
		out.Risks = append(out.Risks, "None of your listed skills appear in the posting")
		out.Recommendations = append(out.Recommendations, "Add the posting's key technologies to your skills if you have used them.")
	}
	if len(rec.Employment) == 0 {
		out.Risks = append(out.Risks, "No employment history on file")
	}
	return out
}

func sharesWord(a, b string) bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(strings.ToLower(a)) {
		if len(w) > 2 {
			words[w] = true
		}
	}
	for _, w := range strings.Fields(strings.ToLower(b)) {
		if words[w] {
			return true
		}
	}
	return false
}
