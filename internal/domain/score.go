package domain

type ScoreBreakdown struct {
	TR         int `json:"tr"`
	Awards     int `json:"awards"`
	Milestones int `json:"milestones"`
	Druid      int `json:"druid"`
	Forest     int `json:"forest"`
	City       int `json:"city"`
	Congress   int `json:"congress"`
	Cards      int `json:"cards"`
}

const (
	MaxTR         = 63
	MaxAwards     = 15
	MaxMilestones = 15
	MaxDruid      = 20
	MaxForest     = 20
	MaxCity       = 30
	MaxCongress   = 20
	MaxCards      = 50
)

func (b ScoreBreakdown) Sum() int {
	return b.TR + b.Awards + b.Milestones + b.Druid + b.Forest + b.City + b.Congress + b.Cards
}

// Fields lists the sub-scores with their schema maximum, in display order.
func (b ScoreBreakdown) Fields() []ScoreField {
	return []ScoreField{
		{"tr", b.TR, MaxTR},
		{"awards", b.Awards, MaxAwards},
		{"milestones", b.Milestones, MaxMilestones},
		{"druid", b.Druid, MaxDruid},
		{"forest", b.Forest, MaxForest},
		{"city", b.City, MaxCity},
		{"congress", b.Congress, MaxCongress},
		{"cards", b.Cards, MaxCards},
	}
}

type ScoreField struct {
	Name  string
	Value int
	Max   int
}

type ScoreKind int

const (
	KindTotalOnly ScoreKind = iota
	KindItemized
)

func (k ScoreKind) String() string {
	switch k {
	case KindTotalOnly:
		return "total_only"
	case KindItemized:
		return "itemized"
	default:
		return "unknown"
	}
}

// ScoreVariant is either TotalOnly (records that only carry a final score) or
// Itemized (records carrying a full breakdown).
type ScoreVariant interface {
	Kind() ScoreKind
	Total() int
}

type TotalOnly struct {
	Score int
}

func (TotalOnly) Kind() ScoreKind { return KindTotalOnly }
func (t TotalOnly) Total() int    { return t.Score }

// Itemized keeps the recorded total next to its breakdown. The recorded total
// is authoritative; the breakdown sum stands in only when no total was stored.
type Itemized struct {
	Score     int
	Breakdown ScoreBreakdown
}

func (Itemized) Kind() ScoreKind { return KindItemized }

func (i Itemized) Total() int {
	if i.Score > 0 {
		return i.Score
	}
	return i.Breakdown.Sum()
}

// Variant reports how the result was scored. An all-zero breakdown carries no
// information, so such a record counts as TotalOnly.
func (r GameResult) Variant() ScoreVariant {
	if r.ScoreBreakdown != nil && r.ScoreBreakdown.Sum() > 0 {
		return Itemized{Score: r.Score, Breakdown: *r.ScoreBreakdown}
	}
	return TotalOnly{Score: r.Score}
}

// FinalScore is the score used for ranking and aggregation.
func (r GameResult) FinalScore() int {
	switch v := r.Variant().(type) {
	case Itemized:
		return v.Total()
	case TotalOnly:
		return v.Total()
	default:
		return r.Score
	}
}
