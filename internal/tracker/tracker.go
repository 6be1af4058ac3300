package tracker

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"tfm-tracker/internal/domain"
	"tfm-tracker/internal/stats"
	"time"
)

const MaxPlayers = 5

var (
	ErrInvalidRoster      = errors.New("invalid roster")
	ErrUnknownPlayer      = errors.New("unknown player")
	ErrUnknownGame        = errors.New("unknown game")
	ErrUnknownMap         = errors.New("unknown map")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrNoTurnOrder        = errors.New("turn order not drawn")
	ErrUnknownCube        = errors.New("unknown cube colour")
	ErrCubeTaken          = errors.New("cube colour already taken")
	ErrCorporationTaken   = errors.New("corporation already taken")
	ErrUnknownCorporation = errors.New("unknown corporation")
)

// Session is the client's working copy of the document. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	players          []domain.Player
	games            []domain.Game
	selectedMap      string
	selectedColonies []string

	// set once player ids may no longer match the ids stored in results
	idsReassigned bool

	rng *rand.Rand
	now func() time.Time
	loc *time.Location
}

type Option func(*Session)

func WithRand(r *rand.Rand) Option {
	return func(s *Session) { s.rng = r }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Session) { s.loc = loc }
}

func New(opts ...Option) *Session {
	s := &Session{
		players:          []domain.Player{},
		games:            []domain.Game{},
		selectedMap:      domain.DefaultMap,
		selectedColonies: []string{},
		now:              time.Now,
		loc:              time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		seed := uint64(s.now().UnixNano())
		s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return s
}

func (s *Session) Players() []domain.Player { return clonePlayers(s.players) }
func (s *Session) Games() []domain.Game     { return cloneGames(s.games) }
func (s *Session) SelectedMap() string      { return s.selectedMap }
func (s *Session) Location() *time.Location { return s.loc }

// SetupPlayers replaces the roster with fresh players numbered from 1. The
// game log is kept, and stats are rebuilt from it by name.
func (s *Session) SetupPlayers(names []string) error {
	if len(names) == 0 || len(names) > MaxPlayers {
		return fmt.Errorf("%w: need 1 to %d players, got %d", ErrInvalidRoster, MaxPlayers, len(names))
	}
	seen := make(map[string]bool, len(names))
	players := make([]domain.Player, 0, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return fmt.Errorf("%w: player %d has no name", ErrInvalidRoster, i+1)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidRoster, name)
		}
		seen[name] = true
		players = append(players, domain.Player{ID: i + 1, Name: name})
	}
	s.players = stats.Recalculate(players, s.games)
	s.idsReassigned = true
	return nil
}

func (s *Session) playerIndex(id int) (int, error) {
	for i, p := range s.players {
		if p.ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: id %d", ErrUnknownPlayer, id)
}

func (s *Session) SelectCube(playerID int, cube domain.CubeColor) error {
	i, err := s.playerIndex(playerID)
	if err != nil {
		return err
	}
	if cube != "" && !cube.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCube, cube)
	}
	for _, p := range s.players {
		if cube != "" && p.ID != playerID && p.SelectedCube == cube {
			return fmt.Errorf("%w: %s is used by %s", ErrCubeTaken, cube, p.Name)
		}
	}
	s.players[i].SelectedCube = cube
	return nil
}

func (s *Session) SelectCorporation(playerID int, corporation string) error {
	i, err := s.playerIndex(playerID)
	if err != nil {
		return err
	}
	corporation = strings.TrimSpace(corporation)
	if corporation != "" && !slices.Contains(domain.Corporations, corporation) {
		return fmt.Errorf("%w: %q", ErrUnknownCorporation, corporation)
	}
	for _, p := range s.players {
		if corporation != "" && p.ID != playerID && p.SelectedCorporation == corporation {
			return fmt.Errorf("%w: %s is used by %s", ErrCorporationTaken, corporation, p.Name)
		}
	}
	s.players[i].SelectedCorporation = corporation
	return nil
}

// SelectMap sets the board for the next game. The empty name means unselected.
func (s *Session) SelectMap(name string) error {
	if name != "" && !slices.Contains(domain.Maps, name) {
		return fmt.Errorf("%w: %q", ErrUnknownMap, name)
	}
	s.selectedMap = name
	return nil
}

// Recalculate rebuilds every player's history and stats from the game log.
func (s *Session) Recalculate() {
	s.players = stats.Recalculate(s.players, s.games)
}

func (s *Session) ResetPlayers() {
	s.players = []domain.Player{}
	s.games = []domain.Game{}
	s.idsReassigned = false
}

// Replace swaps in an authoritative document wholesale. Cached stats in the
// document are ignored and rebuilt from its log.
func (s *Session) Replace(doc domain.Document) {
	players := clonePlayers(doc.Players)
	if players == nil {
		players = []domain.Player{}
	}
	games := cloneGames(doc.Games)
	if games == nil {
		games = []domain.Game{}
	}
	colonies := slices.Clone(doc.SelectedColonies)
	if colonies == nil {
		colonies = []string{}
	}
	s.games = games
	s.players = stats.Recalculate(players, games)
	s.selectedMap = string(doc.SelectedMap)
	s.selectedColonies = colonies
	s.idsReassigned = true
}

// Snapshot returns a deep copy of the document for persistence or transmission.
func (s *Session) Snapshot() domain.Document {
	return domain.Document{
		Players:          clonePlayers(s.players),
		Games:            cloneGames(s.games),
		SelectedMap:      domain.MapName(s.selectedMap),
		SelectedColonies: slices.Clone(s.selectedColonies),
	}
}

func cloneResults(in []domain.GameResult) []domain.GameResult {
	if in == nil {
		return nil
	}
	out := make([]domain.GameResult, len(in))
	for i, r := range in {
		r.Badges = slices.Clone(r.Badges)
		if r.ScoreBreakdown != nil {
			b := *r.ScoreBreakdown
			r.ScoreBreakdown = &b
		}
		out[i] = r
	}
	return out
}

func clonePlayers(in []domain.Player) []domain.Player {
	if in == nil {
		return nil
	}
	out := make([]domain.Player, len(in))
	for i, p := range in {
		p.Games = cloneResults(p.Games)
		out[i] = p
	}
	return out
}

func cloneGames(in []domain.Game) []domain.Game {
	if in == nil {
		return nil
	}
	out := make([]domain.Game, len(in))
	for i, g := range in {
		g.Results = cloneResults(g.Results)
		out[i] = g
	}
	return out
}
