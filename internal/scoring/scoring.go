package scoring

import (
	"errors"
	"fmt"
	"strings"
	"tfm-tracker/internal/badge"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/ranking"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

var ErrInvalidSubmission = errors.New("invalid game submission")

// Entry is one participant's input for a pending game. Score is used only when
// Breakdown is nil.
type Entry struct {
	PlayerID    int
	PlayerName  string
	CubeColor   domain.CubeColor
	Corporation string
	Score       int
	Breakdown   *domain.ScoreBreakdown
	Megacredits int
}

func (e Entry) Total() int {
	if e.Breakdown != nil {
		return e.Breakdown.Sum()
	}
	return e.Score
}

type InvalidEntryError struct {
	PlayerName string
	Reason     string
}

func (e *InvalidEntryError) Error() string {
	return fmt.Sprintf("player %q: %s", e.PlayerName, e.Reason)
}

func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no participants", ErrInvalidSubmission)
	}

	ids := make(map[int]bool, len(entries))
	corps := make(map[string]bool, len(entries))
	cubes := make(map[domain.CubeColor]bool, len(entries))

	for _, e := range entries {
		var reason string
		corp := strings.TrimSpace(e.Corporation)
		switch {
		case e.CubeColor == "":
			reason = "cube colour not selected"
		case !e.CubeColor.Valid():
			reason = fmt.Sprintf("unknown cube colour %q", e.CubeColor)
		case corp == "":
			reason = "corporation not selected"
		case e.Total() <= 0:
			reason = "total score must be positive"
		case e.Score < 0 || e.Megacredits < 0:
			reason = "negative value"
		case e.Breakdown != nil && !breakdownInRange(*e.Breakdown):
			reason = "score breakdown out of range"
		case ids[e.PlayerID]:
			reason = "player listed twice"
		case corps[corp]:
			reason = fmt.Sprintf("corporation %q already taken", corp)
		case cubes[e.CubeColor]:
			reason = fmt.Sprintf("cube colour %q already taken", e.CubeColor)
		}
		if reason != "" {
			return fmt.Errorf("%w: %w", ErrInvalidSubmission, &InvalidEntryError{PlayerName: e.PlayerName, Reason: reason})
		}
		ids[e.PlayerID] = true
		corps[corp] = true
		cubes[e.CubeColor] = true
	}
	return nil
}

func breakdownInRange(b domain.ScoreBreakdown) bool {
	for _, f := range b.Fields() {
		if f.Value < 0 || f.Value > f.Max {
			return false
		}
	}
	return true
}

// Build validates entries and produces ranked, badged results with fresh ids.
// Nothing is returned unless every entry is valid.
func Build(entries []Entry) ([]domain.GameResult, error) {
	if err := Validate(entries); err != nil {
		return nil, err
	}

	results := make([]domain.GameResult, 0, len(entries))
	for _, e := range entries {
		id, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate result id: %w", err)
		}
		r := domain.GameResult{
			ResultID:    id,
			PlayerID:    e.PlayerID,
			PlayerName:  e.PlayerName,
			CubeColor:   e.CubeColor,
			Corporation: strings.TrimSpace(e.Corporation),
			Score:       e.Total(),
			Megacredits: e.Megacredits,
			Badges:      []domain.Badge{},
		}
		if e.Breakdown != nil {
			b := *e.Breakdown
			r.ScoreBreakdown = &b
		}
		results = append(results, r)
	}

	results = ranking.AssignPlaces(results)
	return badge.Evaluate(results), nil
}
