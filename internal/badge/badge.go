package badge

import "tfm-tracker/internal/domain"

type rule struct {
	badge domain.Badge
	value func(domain.ScoreBreakdown) int
	award func(values []int, eligible []bool) []bool
}

var rules = []rule{
	{domain.BadgeTerraformer, func(b domain.ScoreBreakdown) int { return b.TR }, tiedMaxAtLeast(50)},
	{domain.BadgePioneer, func(b domain.ScoreBreakdown) int { return b.Awards }, equals(domain.MaxAwards)},
	{domain.BadgeMagnate, func(b domain.ScoreBreakdown) int { return b.Milestones }, equals(domain.MaxMilestones)},
	{domain.BadgeDruid, func(b domain.ScoreBreakdown) int { return b.Druid }, tiedMaxAtLeast(20)},
	{domain.BadgeMayor, func(b domain.ScoreBreakdown) int { return b.City }, singleMax},
	{domain.BadgeForester, func(b domain.ScoreBreakdown) int { return b.Forest }, singleMax},
	{domain.BadgePolitician, func(b domain.ScoreBreakdown) int { return b.Congress }, singleMax},
	{domain.BadgeCollector, func(b domain.ScoreBreakdown) int { return b.Cards }, singleMax},
}

// Evaluate returns a copy of results with each badge list recomputed from the
// score breakdowns. Existing badges are discarded. Results without a breakdown
// neither compete for maxima nor receive badges.
func Evaluate(results []domain.GameResult) []domain.GameResult {
	out := make([]domain.GameResult, len(results))
	copy(out, results)

	breakdowns := make([]domain.ScoreBreakdown, len(out))
	eligible := make([]bool, len(out))
	for i, r := range out {
		if v, ok := r.Variant().(domain.Itemized); ok {
			breakdowns[i] = v.Breakdown
			eligible[i] = true
		}
		out[i].Badges = []domain.Badge{}
	}

	values := make([]int, len(out))
	for _, rl := range rules {
		for i := range out {
			values[i] = rl.value(breakdowns[i])
		}
		for i, ok := range rl.award(values, eligible) {
			if ok {
				out[i].Badges = append(out[i].Badges, rl.badge)
			}
		}
	}
	return out
}

func maxOf(values []int, eligible []bool) (int, int) {
	best, count := 0, 0
	for i, v := range values {
		if !eligible[i] {
			continue
		}
		switch {
		case count == 0 || v > best:
			best, count = v, 1
		case v == best:
			count++
		}
	}
	return best, count
}

func tiedMaxAtLeast(threshold int) func([]int, []bool) []bool {
	return func(values []int, eligible []bool) []bool {
		out := make([]bool, len(values))
		best, count := maxOf(values, eligible)
		if count == 0 || best < threshold {
			return out
		}
		for i, v := range values {
			out[i] = eligible[i] && v == best
		}
		return out
	}
}

func equals(target int) func([]int, []bool) []bool {
	return func(values []int, eligible []bool) []bool {
		out := make([]bool, len(values))
		for i, v := range values {
			out[i] = eligible[i] && v == target
		}
		return out
	}
}

// singleMax awards only a strict, untied maximum above zero.
func singleMax(values []int, eligible []bool) []bool {
	out := make([]bool, len(values))
	best, count := maxOf(values, eligible)
	if count != 1 || best <= 0 {
		return out
	}
	for i, v := range values {
		if eligible[i] && v == best {
			out[i] = true
		}
	}
	return out
}
