package tracker

import (
	"fmt"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/scoring"
	"tfm-tracker/internal/stats"
	"time"
)

// ScoreInput is the per-player form data for a new game. Score is read only
// when Breakdown is nil.
type ScoreInput struct {
	PlayerID    int
	Breakdown   *domain.ScoreBreakdown
	Score       int
	Megacredits int
}

// AddGame records a game for the whole roster using each player's selected
// cube and corporation. On any invalid input nothing changes.
func (s *Session) AddGame(mapName string, inputs []ScoreInput) (domain.Game, error) {
	if len(s.players) == 0 {
		return domain.Game{}, fmt.Errorf("%w: roster is empty", ErrNotEnoughPlayers)
	}
	byPlayer := make(map[int]ScoreInput, len(inputs))
	for _, in := range inputs {
		if _, err := s.playerIndex(in.PlayerID); err != nil {
			return domain.Game{}, err
		}
		byPlayer[in.PlayerID] = in
	}

	entries := make([]scoring.Entry, 0, len(s.players))
	for _, p := range s.players {
		in, ok := byPlayer[p.ID]
		if !ok {
			return domain.Game{}, fmt.Errorf("%w: no score for %s", scoring.ErrInvalidSubmission, p.Name)
		}
		entries = append(entries, scoring.Entry{
			PlayerID:    p.ID,
			PlayerName:  p.Name,
			CubeColor:   p.SelectedCube,
			Corporation: p.SelectedCorporation,
			Score:       in.Score,
			Breakdown:   in.Breakdown,
			Megacredits: in.Megacredits,
		})
	}

	results, err := scoring.Build(entries)
	if err != nil {
		return domain.Game{}, err
	}

	if mapName == "" {
		mapName = s.selectedMap
	}
	if mapName == "" {
		mapName = domain.DefaultMap
	}

	now := s.now()
	game := domain.Game{
		ID:      s.nextGameID(now),
		Date:    now.In(s.loc).Format(time.RFC3339),
		Map:     mapName,
		Results: results,
	}
	s.games = append(s.games, game)

	for _, r := range results {
		i := r.Ref().Resolve(s.players, false)
		if i < 0 {
			continue
		}
		p := &s.players[i]
		p.Games = append(p.Games, r)
		p.Stats = stats.PlayerStatsOf(p.Games)
	}

	for i := range s.players {
		s.players[i].SelectedCorporation = ""
	}
	s.selectedMap = ""

	return cloneGames([]domain.Game{game})[0], nil
}

func (s *Session) nextGameID(now time.Time) int64 {
	id := now.UnixMilli()
	for _, g := range s.games {
		if g.ID >= id {
			id = g.ID + 1
		}
	}
	return id
}

// DeleteGame removes a game from the log and takes exactly its results out of
// each participant's history.
func (s *Session) DeleteGame(id int64) error {
	gi := -1
	for i, g := range s.games {
		if g.ID == id {
			gi = i
			break
		}
	}
	if gi < 0 {
		return fmt.Errorf("%w: id %d", ErrUnknownGame, id)
	}
	game := s.games[gi]
	s.games = append(s.games[:gi:gi], s.games[gi+1:]...)

	for _, r := range game.Results {
		i := r.Ref().Resolve(s.players, s.idsReassigned)
		if i < 0 {
			continue
		}
		p := &s.players[i]
		if !removeResult(p, r.ResultID) {
			// older records carry no result id; rebuild this player from the log
			*p = stats.Recalculate([]domain.Player{*p}, s.games)[0]
			continue
		}
		p.Stats = stats.PlayerStatsOf(p.Games)
	}
	return nil
}

func removeResult(p *domain.Player, resultID string) bool {
	if resultID == "" {
		return false
	}
	for i, r := range p.Games {
		if r.ResultID == resultID {
			p.Games = append(p.Games[:i:i], p.Games[i+1:]...)
			return true
		}
	}
	return false
}
