package stats

import (
	"math"
	"tfm-tracker/internal/domain"
)

// Entry aggregates the results for one key (player, corporation, or a player on
// one map).
type Entry struct {
	Key          string  `json:"name"`
	Games        int     `json:"totalGames"`
	TotalScore   int     `json:"totalScore"`
	AverageScore float64 `json:"averageScore"`
	BestScore    int     `json:"bestScore"`
	WorstScore   int     `json:"worstScore"`
	Wins         int     `json:"wins"`
	Seconds      int     `json:"seconds"`
	Thirds       int     `json:"thirds"`
	Fourths      int     `json:"fourths,omitempty"`
	WinRate      int     `json:"winRate"` // rounded percent
	PlayerCount  int     `json:"playersCount,omitempty"`

	players map[string]struct{}
}

// WinRatio is the unrounded wins/games ratio.
func (e Entry) WinRatio() float64 {
	if e.Games == 0 {
		return 0
	}
	return float64(e.Wins) / float64(e.Games)
}

type MapEntry struct {
	Name         string  `json:"name"`
	TotalGames   int     `json:"totalGames"`
	AverageScore float64 `json:"averageScore"`
	HighestScore int     `json:"highestScore"`
	LowestScore  int     `json:"lowestScore"`
	Players      []Entry `json:"players"`

	totalScore int
	results    int
	index      map[string]int
}

// Tables holds one aggregate per key, in order of first appearance in the input.
type Tables struct {
	Players      []Entry    `json:"players"`
	Corporations []Entry    `json:"corporations"`
	Maps         []MapEntry `json:"maps"`
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func Average(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return Round1(float64(total) / float64(count))
}

type table struct {
	entries []Entry
	index   map[string]int
}

func newTable() *table {
	return &table{index: map[string]int{}}
}

func (t *table) get(key string) *Entry {
	i, ok := t.index[key]
	if !ok {
		i = len(t.entries)
		t.index[key] = i
		t.entries = append(t.entries, Entry{Key: key})
	}
	return &t.entries[i]
}

func (e *Entry) add(r domain.GameResult) {
	score := r.FinalScore()
	if e.Games == 0 || score > e.BestScore {
		e.BestScore = score
	}
	if e.Games == 0 || score < e.WorstScore {
		e.WorstScore = score
	}
	e.Games++
	e.TotalScore += score
	switch r.Rank {
	case 1:
		e.Wins++
	case 2:
		e.Seconds++
	case 3:
		e.Thirds++
	case 4:
		e.Fourths++
	}
}

func (e *Entry) finish() {
	e.AverageScore = Average(e.TotalScore, e.Games)
	if e.Games > 0 {
		e.WinRate = int(math.Round(float64(e.Wins) * 100 / float64(e.Games)))
	}
	if e.players != nil {
		e.PlayerCount = len(e.players)
		e.players = nil
	}
}

// Aggregate folds games into per-player, per-corporation and per-map tables.
// It holds no state between calls.
func Aggregate(games []domain.Game) Tables {
	players := newTable()
	corps := newTable()
	var maps []MapEntry
	mapIndex := map[string]int{}

	for _, g := range games {
		mi, ok := mapIndex[g.Map]
		if !ok {
			mi = len(maps)
			mapIndex[g.Map] = mi
			maps = append(maps, MapEntry{Name: g.Map, index: map[string]int{}})
		}
		m := &maps[mi]
		m.TotalGames++

		for _, r := range g.Results {
			players.get(r.PlayerName).add(r)

			c := corps.get(r.Corporation)
			c.add(r)
			if c.players == nil {
				c.players = map[string]struct{}{}
			}
			c.players[r.PlayerName] = struct{}{}

			pi, ok := m.index[r.PlayerName]
			if !ok {
				pi = len(m.Players)
				m.index[r.PlayerName] = pi
				m.Players = append(m.Players, Entry{Key: r.PlayerName})
			}
			m.Players[pi].add(r)

			score := r.FinalScore()
			if m.results == 0 || score > m.HighestScore {
				m.HighestScore = score
			}
			if m.results == 0 || score < m.LowestScore {
				m.LowestScore = score
			}
			m.results++
			m.totalScore += score
		}
	}

	out := Tables{
		Players:      players.entries,
		Corporations: corps.entries,
		Maps:         maps,
	}
	for i := range out.Players {
		out.Players[i].finish()
	}
	for i := range out.Corporations {
		out.Corporations[i].finish()
	}
	for i := range out.Maps {
		m := &out.Maps[i]
		m.AverageScore = Average(m.totalScore, m.results)
		for j := range m.Players {
			m.Players[j].finish()
		}
		m.index = nil
	}
	if out.Players == nil {
		out.Players = []Entry{}
	}
	if out.Corporations == nil {
		out.Corporations = []Entry{}
	}
	if out.Maps == nil {
		out.Maps = []MapEntry{}
	}
	return out
}
