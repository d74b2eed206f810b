package catalog

import (
	"context"
	"errors"
	"testing"

	"athena/interview/internal/models"
)

func TestLoadEmbedded(t *testing.T) {
	c, err := LoadEmbedded()
	if err != nil {
		t.Fatalf("LoadEmbedded returned error: %v", err)
	}

	prompts, err := c.Resolve(context.Background(), "pv-2024-default")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if len(prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(prompts))
	}
	if prompts[0].ID != "beh-conflict" || prompts[2].Type != models.PromptTechnical {
		t.Fatalf("prompts not in declared order: %+v", prompts)
	}
	if len(prompts[0].EvaluationCriteria.StrongSignals) == 0 {
		t.Fatal("expected evaluation criteria to be decoded")
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	c, _ := NewStaticCatalog(PromptSet{Version: "v1", Prompts: []models.Prompt{
		{ID: "p1", Type: models.PromptBehavioral, Text: "q"},
	}})

	first, _ := c.Resolve(context.Background(), "v1")
	first[0].Text = "mutated"
	second, _ := c.Resolve(context.Background(), "v1")
	if second[0].Text != "q" {
		t.Fatal("catalog contents must not be mutable through Resolve")
	}
}

func TestResolveUnknownVersion(t *testing.T) {
	c, _ := NewStaticCatalog()
	if _, err := c.Resolve(context.Background(), "nope"); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}

func TestPromptSetValidate(t *testing.T) {
	cases := map[string]PromptSet{
		"no version": {Prompts: []models.Prompt{{ID: "a", Type: models.PromptBehavioral, Text: "x"}}},
		"empty":      {Version: "v"},
		"duplicate": {Version: "v", Prompts: []models.Prompt{
			{ID: "a", Type: models.PromptBehavioral, Text: "x"},
			{ID: "a", Type: models.PromptBehavioral, Text: "y"},
		}},
		"bad type": {Version: "v", Prompts: []models.Prompt{{ID: "a", Type: "trivia", Text: "x"}}},
	}
	for name, set := range cases {
		if err := set.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	if _, err := NewStaticCatalog(cases["empty"]); err == nil {
		t.Fatal("expected NewStaticCatalog to reject invalid set")
	}
}

func TestFallback(t *testing.T) {
	primary, _ := NewStaticCatalog(PromptSet{Version: "v1", Prompts: []models.Prompt{{ID: "p", Type: models.PromptTechnical, Text: "q"}}})
	secondary, _ := NewStaticCatalog(PromptSet{Version: "v2", Prompts: []models.Prompt{{ID: "s", Type: models.PromptTechnical, Text: "q"}}})
	f := Fallback{Primary: primary, Secondary: secondary}

	got, err := f.Resolve(context.Background(), "v2")
	if err != nil || got[0].ID != "s" {
		t.Fatalf("expected fallback to secondary, got %+v (%v)", got, err)
	}
	if _, err := f.Resolve(context.Background(), "v3"); !errors.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}
}
