package domain

// PlayerRef links a game result back to a roster player. The id is a strong
// reference that only holds while the roster keeps its numbering; the name is a
// weak reference that survives renumbering (remote replace, legacy merge,
// arrange-by-order). When ids are known to have been reassigned the name wins.
type PlayerRef struct {
	ID   int
	Name string
}

func (r GameResult) Ref() PlayerRef {
	return PlayerRef{ID: r.PlayerID, Name: r.PlayerName}
}

// Resolve returns the index of the referenced player in players, or -1.
func (ref PlayerRef) Resolve(players []Player, idsReassigned bool) int {
	if !idsReassigned {
		for i, p := range players {
			if p.ID == ref.ID && (ref.Name == "" || p.Name == ref.Name) {
				return i
			}
		}
	}
	for i, p := range players {
		if ref.Name != "" && p.Name == ref.Name {
			return i
		}
	}
	return -1
}
