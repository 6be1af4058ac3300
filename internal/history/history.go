package history

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"tfm-tracker/internal/domain"
	"time"
)

const labelLayout = "2006.01.02"

var (
	ErrUnparseableDate = errors.New("unparseable game date")
	ErrUnknownPeriod   = errors.New("unknown history period")
)

var legacyDate = regexp.MustCompile(`^(\d{4})\.\s*(\d{1,2})\.\s*(\d{1,2})\.?$`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	time.UnixDate,
	time.ANSIC,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
}

// ParseDate reads a stored game date. Date-only forms are calendar dates in loc.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrUnparseableDate)
	}

	// JS Date.toString appends a zone name in parentheses.
	if i := strings.Index(s, " ("); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if m := legacyDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		if mo < 1 || mo > 12 || d < 1 || d > 31 {
			return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
		}
		return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseableDate, raw)
}

type civil struct {
	y int
	m time.Month
	d int
}

func civilOf(t time.Time) civil {
	y, m, d := t.Date()
	return civil{y, m, d}
}

// days counts calendar days since the epoch, ignoring zone offsets.
func (c civil) days() int {
	return int(time.Date(c.y, c.m, c.d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func (c civil) label() string {
	return time.Date(c.y, c.m, c.d, 0, 0, 0, 0, time.UTC).Format(labelLayout)
}

type Group struct {
	Label string        `json:"label"`
	Start string        `json:"start"` // oldest day in the group
	End   string        `json:"end"`   // newest day in the group
	Games []domain.Game `json:"games"` // newest first
}

type dated struct {
	game domain.Game
	at   time.Time
	day  civil
}

func parseAll(games []domain.Game, loc *time.Location) []dated {
	out := make([]dated, 0, len(games))
	for _, g := range games {
		t, err := ParseDate(g.Date, loc)
		if err != nil {
			continue
		}
		out = append(out, dated{game: g, at: t, day: civilOf(t)})
	}
	return out
}

// GroupGames clusters games into runs of consecutive calendar days, most recent
// run first. Games with unparseable dates are skipped.
func GroupGames(games []domain.Game, loc *time.Location) []Group {
	items := parseAll(games, loc)
	if len(items) == 0 {
		return []Group{}
	}
	slices.SortStableFunc(items, func(a, b dated) int {
		return b.at.Compare(a.at)
	})

	var groups []Group
	var newest, oldest civil
	var current []domain.Game
	flush := func() {
		g := Group{Start: oldest.label(), End: newest.label(), Games: current}
		if g.Start == g.End {
			g.Label = g.Start
		} else {
			g.Label = g.Start + "~" + g.End
		}
		groups = append(groups, g)
	}

	for i, it := range items {
		if i == 0 {
			newest, oldest = it.day, it.day
			current = []domain.Game{it.game}
			continue
		}
		if oldest.days()-it.day.days() <= 1 {
			current = append(current, it.game)
			oldest = it.day
			continue
		}
		flush()
		newest, oldest = it.day, it.day
		current = []domain.Game{it.game}
	}
	flush()
	return groups
}

// DateRange describes the whole log as "first" or "first ~ last".
func DateRange(games []domain.Game, loc *time.Location) string {
	items := parseAll(games, loc)
	if len(items) == 0 {
		return ""
	}
	first, last := items[0].at, items[0].at
	for _, it := range items[1:] {
		if it.at.Before(first) {
			first = it.at
		}
		if it.at.After(last) {
			last = it.at
		}
	}
	if len(items) == 1 {
		return civilOf(first).label()
	}
	return civilOf(first).label() + " ~ " + civilOf(last).label()
}

const PeriodAll = "all"

// Select resolves "all" (or empty) to the full log and a group index to that
// group's games.
func Select(games []domain.Game, groups []Group, period string) ([]domain.Game, error) {
	if period == "" || period == PeriodAll {
		return games, nil
	}
	i, err := strconv.Atoi(period)
	if err != nil || i < 0 || i >= len(groups) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriod, period)
	}
	return groups[i].Games, nil
}
