package tracker

import (
	"fmt"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/stats"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type MergeReport struct {
	NewPlayers    []string `json:"newPlayers"`
	MergedPlayers []string `json:"mergedPlayers"`
	Games         int      `json:"games"`
}

// MergeLegacy folds an exported roster and log into the session. Players are
// matched by name; unknown names get ids after the current maximum. Imported
// games get ids after the current maximum game id. Stats are rebuilt from the
// merged log afterwards.
func (s *Session) MergeLegacy(legacy domain.Document) (MergeReport, error) {
	var report MergeReport

	known := make(map[string]bool, len(s.players))
	maxID := 0
	for _, p := range s.players {
		known[p.Name] = true
		maxID = max(maxID, p.ID)
	}

	players := clonePlayers(s.players)
	for _, p := range legacy.Players {
		if p.Name == "" {
			continue
		}
		if known[p.Name] {
			report.MergedPlayers = append(report.MergedPlayers, p.Name)
			continue
		}
		known[p.Name] = true
		maxID++
		players = append(players, domain.Player{
			ID:           maxID,
			Name:         p.Name,
			SelectedCube: p.SelectedCube,
		})
		report.NewPlayers = append(report.NewPlayers, p.Name)
	}

	var maxGameID int64
	for _, g := range s.games {
		maxGameID = max(maxGameID, g.ID)
	}

	games := cloneGames(s.games)
	for _, g := range cloneGames(legacy.Games) {
		maxGameID++
		g.ID = maxGameID
		for i := range g.Results {
			if g.Results[i].ResultID != "" {
				continue
			}
			id, err := gonanoid.New()
			if err != nil {
				return MergeReport{}, fmt.Errorf("failed to generate result id: %w", err)
			}
			g.Results[i].ResultID = id
		}
		games = append(games, g)
	}
	report.Games = len(legacy.Games)

	if players == nil {
		players = []domain.Player{}
	}
	if games == nil {
		games = []domain.Game{}
	}
	s.games = games
	s.players = stats.Recalculate(players, games)
	s.idsReassigned = true
	return report, nil
}
