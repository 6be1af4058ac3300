package tracker

import (
	"cmp"
	"fmt"
	"slices"
	"tfm-tracker/internal/domain"
)

const (
	minTurnOrderPlayers = 2
	minColonyPlayers    = 3
)

// DrawTurnOrder shuffles the roster and assigns playOrder 1..N. The returned
// players are in drawn order.
func (s *Session) DrawTurnOrder() ([]domain.Player, error) {
	if len(s.players) < minTurnOrderPlayers {
		return nil, fmt.Errorf("%w: turn order needs %d, have %d", ErrNotEnoughPlayers, minTurnOrderPlayers, len(s.players))
	}
	order := make([]int, len(s.players))
	for i := range order {
		order[i] = i
	}
	s.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	drawn := make([]domain.Player, 0, len(order))
	for pos, idx := range order {
		s.players[idx].PlayOrder = pos + 1
		drawn = append(drawn, s.players[idx])
	}
	return clonePlayers(drawn), nil
}

func (s *Session) ResetTurnOrder() {
	for i := range s.players {
		s.players[i].PlayOrder = 0
	}
}

// ArrangeByTurnOrder reorders the roster by playOrder and renumbers ids from 1;
// players without an order follow in their current order.
func (s *Session) ArrangeByTurnOrder() error {
	var ordered, rest []domain.Player
	for _, p := range s.players {
		if p.PlayOrder > 0 {
			ordered = append(ordered, p)
		} else {
			rest = append(rest, p)
		}
	}
	if len(ordered) == 0 {
		return ErrNoTurnOrder
	}
	slices.SortStableFunc(ordered, func(a, b domain.Player) int {
		return cmp.Compare(a.PlayOrder, b.PlayOrder)
	})

	players := append(ordered, rest...)
	for i := range players {
		players[i].ID = i + 1
	}
	s.players = players
	s.idsReassigned = true
	return nil
}

// DrawColonies picks 5 colonies for three players and 6 otherwise.
func (s *Session) DrawColonies() ([]string, error) {
	if len(s.players) < minColonyPlayers {
		return nil, fmt.Errorf("%w: colonies need %d, have %d", ErrNotEnoughPlayers, minColonyPlayers, len(s.players))
	}
	count := 6
	if len(s.players) == 3 {
		count = 5
	}
	pool := slices.Clone(domain.Colonies)
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	s.selectedColonies = pool[:count:count]
	return slices.Clone(s.selectedColonies), nil
}

func (s *Session) SelectedColonies() []string {
	return slices.Clone(s.selectedColonies)
}

func (s *Session) DrawMap() string {
	s.selectedMap = domain.Maps[s.rng.IntN(len(domain.Maps))]
	return s.selectedMap
}
