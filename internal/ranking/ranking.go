package ranking

import (
	"cmp"
	"slices"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/stats"
)

const MinCorporationGames = 3

func comparePlayers(a, b stats.Entry) int {
	return cmp.Or(
		cmp.Compare(b.Wins, a.Wins),
		cmp.Compare(b.Seconds, a.Seconds),
		cmp.Compare(b.Thirds, a.Thirds),
		cmp.Compare(b.AverageScore, a.AverageScore),
	)
}

func Players(entries []stats.Entry) []stats.Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, comparePlayers)
	return out
}

// Roster orders players by their cached stats using the player comparator.
func Roster(players []domain.Player) []domain.Player {
	out := slices.Clone(players)
	slices.SortStableFunc(out, func(a, b domain.Player) int {
		return cmp.Or(
			cmp.Compare(b.Stats.Wins, a.Stats.Wins),
			cmp.Compare(b.Stats.Seconds, a.Stats.Seconds),
			cmp.Compare(b.Stats.Thirds, a.Stats.Thirds),
			cmp.Compare(b.Stats.AverageScore, a.Stats.AverageScore),
		)
	})
	return out
}

// Corporations drops corporations with fewer than MinCorporationGames games
// and orders the rest.
func Corporations(entries []stats.Entry) []stats.Entry {
	out := make([]stats.Entry, 0, len(entries))
	for _, e := range entries {
		if e.Games >= MinCorporationGames {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b stats.Entry) int {
		return cmp.Or(
			cmp.Compare(b.Games, a.Games),
			cmp.Compare(b.WinRate, a.WinRate),
			cmp.Compare(b.AverageScore, a.AverageScore),
		)
	})
	return out
}

// Maps orders each map's players independently by win ratio, then average.
func Maps(entries []stats.MapEntry) []stats.MapEntry {
	out := make([]stats.MapEntry, len(entries))
	for i, m := range entries {
		m.Players = slices.Clone(m.Players)
		slices.SortStableFunc(m.Players, func(a, b stats.Entry) int {
			return cmp.Or(
				cmp.Compare(b.WinRatio(), a.WinRatio()),
				cmp.Compare(b.AverageScore, a.AverageScore),
			)
		})
		out[i] = m
	}
	return out
}

// AssignPlaces orders results by score then megacredits, both descending, and
// sets rank 1..N. Full ties keep their input order.
func AssignPlaces(results []domain.GameResult) []domain.GameResult {
	out := slices.Clone(results)
	slices.SortStableFunc(out, func(a, b domain.GameResult) int {
		return cmp.Or(
			cmp.Compare(b.FinalScore(), a.FinalScore()),
			cmp.Compare(b.Megacredits, a.Megacredits),
		)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

type Board struct {
	Games        int              `json:"games"`
	Players      []stats.Entry    `json:"players"`
	Corporations []stats.Entry    `json:"corporations"`
	Maps         []stats.MapEntry `json:"maps"`
}

func Build(games []domain.Game) Board {
	t := stats.Aggregate(games)
	return Board{
		Games:        len(games),
		Players:      Players(t.Players),
		Corporations: Corporations(t.Corporations),
		Maps:         Maps(t.Maps),
	}
}
