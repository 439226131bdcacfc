package validate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yangwenmai/careerpilot/internal/model"
	"github.com/yangwenmai/careerpilot/internal/provider"
)

// scriptedGenerator returns queued texts in order and records prompts.
type scriptedGenerator struct {
	texts   []string
	prompts []string
	opts    []provider.Options
}

func (g *scriptedGenerator) Generate(_ context.Context, _ model.Kind, prompt string, opts provider.Options) (*provider.Result, error) {
	g.prompts = append(g.prompts, prompt)
	g.opts = append(g.opts, opts)
	if len(g.texts) == 0 {
		return nil, errors.New("script exhausted")
	}
	text := g.texts[0]
	g.texts = g.texts[1:]
	return &provider.Result{Text: text, Data: provider.ParseJSON(text), Tokens: 7}, nil
}

func TestEnsure_ValidFirstResponse(t *testing.T) {
	gen := &scriptedGenerator{}
	first := &provider.Result{Text: `{"probability": 0.3, "confidence": "low", "strengths": [], "risks": []}`}
	first.Data = provider.ParseJSON(first.Text)

	rep, err := NewRepairer(gen).Ensure(context.Background(), model.KindPrediction, first, provider.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if rep.Repaired || len(gen.prompts) != 0 {
		t.Errorf("valid response should not trigger repair (calls=%d)", len(gen.prompts))
	}
}

func TestEnsure_RepairSucceeds(t *testing.T) {
	gen := &scriptedGenerator{texts: []string{
		`{"probability": 0.55, "confidence": "medium", "strengths": ["a"], "risks": ["b"]}`,
	}}
	first := &provider.Result{Text: `{"confidence": "medium", "strengths": [], "risks": []}`}

	rep, err := NewRepairer(gen).Ensure(context.Background(), model.KindPrediction, first, provider.Options{Temperature: 0.7, Model: "m"})
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !rep.Repaired {
		t.Error("Repaired should be true")
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("provider calls = %d, want exactly 1", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[0], "probability") {
		t.Errorf("repair prompt should name the missing field:\n%s", gen.prompts[0])
	}
	if gen.opts[0].Temperature != 0 || gen.opts[0].Model != "m" || !gen.opts[0].JSON {
		t.Errorf("repair opts = %+v, want temperature 0 with caller model", gen.opts[0])
	}
	if rep.Value.(map[string]any)["probability"] != 0.55 {
		t.Errorf("Value = %v", rep.Value)
	}
}

func TestEnsure_RepairFailsOnce(t *testing.T) {
	gen := &scriptedGenerator{texts: []string{
		`{"still": "wrong"}`,
		`{"probability": 0.9, "confidence": "high", "strengths": [], "risks": []}`,
	}}
	first := &provider.Result{Text: "not json at all"}

	_, err := NewRepairer(gen).Ensure(context.Background(), model.KindPrediction, first, provider.Options{})
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	var ve *Error
	if !errors.As(err, &ve) || len(ve.Errors) == 0 {
		t.Errorf("error should carry the second validation errors: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Errorf("provider calls = %d, want exactly 1 (never a second repair)", len(gen.prompts))
	}
}

func TestEnsure_RepairCallErrors(t *testing.T) {
	gen := &scriptedGenerator{}
	_, err := NewRepairer(gen).Ensure(context.Background(), model.KindSalaryResearch, &provider.Result{Text: "{}"}, provider.Options{})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestEnsure_TextKindNotRepaired(t *testing.T) {
	gen := &scriptedGenerator{texts: []string{"Dear team"}}
	_, err := NewRepairer(gen).Ensure(context.Background(), model.KindCoverLetter, &provider.Result{}, provider.Options{})
	if !errors.Is(err, model.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
	if len(gen.prompts) != 0 {
		t.Error("text kinds have no repair call")
	}
}
