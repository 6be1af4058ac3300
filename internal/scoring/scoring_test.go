package scoring_test

import (
	"errors"
	"testing"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/scoring"
)

func validEntries() []scoring.Entry {
	return []scoring.Entry{
		{PlayerID: 1, PlayerName: "Alice", CubeColor: domain.CubeRed, Corporation: "Ecoline", Score: 30, Megacredits: 10},
		{PlayerID: 2, PlayerName: "Bob", CubeColor: domain.CubeBlue, Corporation: "Helion", Score: 45, Megacredits: 20},
		{PlayerID: 3, PlayerName: "Carol", CubeColor: domain.CubeGreen, Corporation: "Teractor", Score: 45, Megacredits: 15},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func([]scoring.Entry)
	}{
		{"missing cube", func(e []scoring.Entry) { e[0].CubeColor = "" }},
		{"unknown cube", func(e []scoring.Entry) { e[0].CubeColor = "purple" }},
		{"missing corporation", func(e []scoring.Entry) { e[1].Corporation = "  " }},
		{"zero score", func(e []scoring.Entry) { e[2].Score = 0 }},
		{"zero breakdown", func(e []scoring.Entry) { e[2].Breakdown = &domain.ScoreBreakdown{} }},
		{"breakdown over max", func(e []scoring.Entry) { e[2].Breakdown = &domain.ScoreBreakdown{Awards: 16} }},
		{"duplicate corporation", func(e []scoring.Entry) { e[1].Corporation = "Ecoline" }},
		{"duplicate cube", func(e []scoring.Entry) { e[1].CubeColor = domain.CubeRed }},
		{"duplicate player", func(e []scoring.Entry) { e[1].PlayerID = 1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := validEntries()
			tt.mutate(entries)
			err := scoring.Validate(entries)
			if !errors.Is(err, scoring.ErrInvalidSubmission) {
				t.Fatalf("expected ErrInvalidSubmission, got %v", err)
			}
			var entryErr *scoring.InvalidEntryError
			if !errors.As(err, &entryErr) {
				t.Fatalf("expected InvalidEntryError in chain, got %v", err)
			}
			results, err := scoring.Build(entries)
			if err == nil || results != nil {
				t.Errorf("build should reject the whole submission, got %d results", len(results))
			}
		})
	}

	if err := scoring.Validate(validEntries()); err != nil {
		t.Fatalf("valid entries rejected: %v", err)
	}
	if err := scoring.Validate(nil); !errors.Is(err, scoring.ErrInvalidSubmission) {
		t.Errorf("empty submission should be invalid, got %v", err)
	}
}

func TestBuildRanksByScoreThenMegacredits(t *testing.T) {
	results, err := scoring.Build(validEntries())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	want := map[string]int{"Bob": 1, "Carol": 2, "Alice": 3}
	seen := map[string]bool{}
	for i, r := range results {
		if r.Rank != i+1 {
			t.Errorf("results should be ordered by rank, index %d has rank %d", i, r.Rank)
		}
		if want[r.PlayerName] != r.Rank {
			t.Errorf("%s: expected rank %d, got %d", r.PlayerName, want[r.PlayerName], r.Rank)
		}
		if r.ResultID == "" || seen[r.ResultID] {
			t.Errorf("%s: expected unique result id, got %q", r.PlayerName, r.ResultID)
		}
		seen[r.ResultID] = true
	}
}

func TestBuildUsesBreakdownSum(t *testing.T) {
	entries := validEntries()
	entries[0].Score = 0
	entries[0].Breakdown = &domain.ScoreBreakdown{TR: 55, Awards: 15, Cards: 10}

	results, err := scoring.Build(entries)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	top := results[0]
	if top.PlayerName != "Alice" || top.Score != 80 {
		t.Fatalf("expected Alice first with 80, got %s with %d", top.PlayerName, top.Score)
	}
	names := map[string]bool{}
	for _, b := range top.Badges {
		names[b.Name] = true
	}
	if !names["Terraformer"] || !names["Pioneer"] {
		t.Errorf("expected Terraformer and Pioneer, got %v", top.Badges)
	}
}
