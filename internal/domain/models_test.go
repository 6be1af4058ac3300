package domain_test

import (
	"encoding/json"
	"testing"
	"tfm-tracker/internal/domain"
)

func TestMapNameUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want domain.MapName
	}{
		{"string", `{"selectedMap":"HELLAS"}`, "HELLAS"},
		{"object", `{"selectedMap":{"value":"ELYSIUM","name":"Elysium"}}`, "ELYSIUM"},
		{"null", `{"selectedMap":null}`, domain.DefaultMap},
		{"empty kept", `{"selectedMap":""}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var doc domain.Document
			if err := json.Unmarshal([]byte(tt.raw), &doc); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if doc.SelectedMap != tt.want {
				t.Errorf("expected %q, got %q", tt.want, doc.SelectedMap)
			}
		})
	}
}

func TestVariant(t *testing.T) {
	legacy := domain.GameResult{Score: 72}
	if v := legacy.Variant(); v.Kind() != domain.KindTotalOnly || v.Total() != 72 {
		t.Errorf("expected total-only 72, got %s %d", v.Kind(), v.Total())
	}

	zero := domain.GameResult{Score: 40, ScoreBreakdown: &domain.ScoreBreakdown{}}
	if v := zero.Variant(); v.Kind() != domain.KindTotalOnly {
		t.Errorf("all-zero breakdown should count as total-only, got %s", v.Kind())
	}

	itemized := domain.GameResult{Score: 52, ScoreBreakdown: &domain.ScoreBreakdown{TR: 40, Cards: 12}}
	if v := itemized.Variant(); v.Kind() != domain.KindItemized || v.Total() != 52 {
		t.Errorf("expected itemized 52, got %s %d", v.Kind(), v.Total())
	}
	if itemized.FinalScore() != 52 {
		t.Errorf("expected final score 52, got %d", itemized.FinalScore())
	}
}

func TestFinalScorePrefersRecordedTotal(t *testing.T) {
	tests := []struct {
		name   string
		result domain.GameResult
		want   int
	}{
		{"breakdown disagrees", domain.GameResult{Score: 90, ScoreBreakdown: &domain.ScoreBreakdown{TR: 40, Cards: 12}}, 90},
		{"no recorded total", domain.GameResult{ScoreBreakdown: &domain.ScoreBreakdown{TR: 40, Cards: 12}}, 52},
		{"total only", domain.GameResult{Score: 61}, 61},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.FinalScore(); got != tt.want {
				t.Errorf("FinalScore() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlayerRefResolve(t *testing.T) {
	players := []domain.Player{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
	}

	ref := domain.PlayerRef{ID: 1, Name: "Bob"}
	if got := ref.Resolve(players, false); got != 1 {
		t.Errorf("id/name mismatch should fall back to name, got %d", got)
	}

	ref = domain.PlayerRef{ID: 2, Name: ""}
	if got := ref.Resolve(players, false); got != 1 {
		t.Errorf("expected id match at 1, got %d", got)
	}
	if got := ref.Resolve(players, true); got != -1 {
		t.Errorf("nameless ref with reassigned ids should not resolve, got %d", got)
	}

	ref = domain.PlayerRef{ID: 9, Name: "Alice"}
	if got := ref.Resolve(players, true); got != 0 {
		t.Errorf("expected name match at 0, got %d", got)
	}
}
