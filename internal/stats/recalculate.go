package stats

import "tfm-tracker/internal/domain"

func PlayerStatsOf(results []domain.GameResult) domain.PlayerStats {
	var s domain.PlayerStats
	for _, r := range results {
		s.TotalGames++
		s.TotalScore += r.FinalScore()
		switch r.Rank {
		case 1:
			s.Wins++
		case 2:
			s.Seconds++
		case 3:
			s.Thirds++
		case 4:
			s.Fourths++
		}
	}
	s.AverageScore = Average(s.TotalScore, s.TotalGames)
	return s
}

// Recalculate rebuilds every roster player's history and stats from the game
// log, matching results by player name. Players are returned as new values;
// the input slice is left untouched.
func Recalculate(players []domain.Player, games []domain.Game) []domain.Player {
	byName := make(map[string][]domain.GameResult, len(players))
	for _, g := range games {
		for _, r := range g.Results {
			byName[r.PlayerName] = append(byName[r.PlayerName], r)
		}
	}

	out := make([]domain.Player, len(players))
	for i, p := range players {
		results := byName[p.Name]
		if results == nil {
			results = []domain.GameResult{}
		}
		p.Games = results
		p.Stats = PlayerStatsOf(results)
		out[i] = p
	}
	return out
}
