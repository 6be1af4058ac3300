package service

import (
	"context"
	"tfm-tracker/internal/config"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/history"
	"tfm-tracker/internal/ranking"
	"tfm-tracker/internal/stats"
	"time"

	"github.com/rs/zerolog"
)

type HistoryGroup struct {
	Label   string  `json:"label"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
	GameIDs []int64 `json:"gameIds"`
}

type HistoryView struct {
	Range  string         `json:"range"`
	Games  int            `json:"games"`
	Groups []HistoryGroup `json:"groups"`
}

type RankingsView struct {
	Period string `json:"period"`
	ranking.Board
}

type StatsService struct {
	docs   *DocumentService
	loc    *time.Location
	logger zerolog.Logger
}

func NewStatsService(docs *DocumentService, cfg *config.Config, logger zerolog.Logger) *StatsService {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &StatsService{docs: docs, loc: loc, logger: logger}
}

func (s *StatsService) History(ctx context.Context) (HistoryView, error) {
	games, err := s.docs.Games(ctx)
	if err != nil {
		return HistoryView{}, err
	}
	groups := history.GroupGames(games, s.loc)
	view := HistoryView{
		Range:  history.DateRange(games, s.loc),
		Games:  len(games),
		Groups: make([]HistoryGroup, 0, len(groups)),
	}
	for _, g := range groups {
		ids := make([]int64, 0, len(g.Games))
		for _, game := range g.Games {
			ids = append(ids, game.ID)
		}
		view.Groups = append(view.Groups, HistoryGroup{Label: g.Label, Start: g.Start, End: g.End, GameIDs: ids})
	}
	return view, nil
}

// Rankings builds the board for the whole log or for one history group.
func (s *StatsService) Rankings(ctx context.Context, period string) (RankingsView, error) {
	games, err := s.docs.Games(ctx)
	if err != nil {
		return RankingsView{}, err
	}
	subset, err := history.Select(games, history.GroupGames(games, s.loc), period)
	if err != nil {
		return RankingsView{}, err
	}
	if period == "" {
		period = history.PeriodAll
	}
	s.logger.Debug().Str("period", period).Int("games", len(subset)).Msg("building rankings")
	return RankingsView{Period: period, Board: ranking.Build(subset)}, nil
}

// Roster returns the stored players with stats rebuilt from the log, best first.
func (s *StatsService) Roster(ctx context.Context) ([]domain.Player, error) {
	players, games, err := s.docs.Log(ctx)
	if err != nil {
		return nil, err
	}
	return ranking.Roster(stats.Recalculate(players, games)), nil
}
