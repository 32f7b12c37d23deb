package mapper

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"dataimport/internal/schema"
)

const maxSuggestions = 3

// suggest ranks unclaimed fields for every unmapped column by fuzzy
// similarity of their normalized names, in both directions.
func suggest(s schema.EntitySchema, unmapped []string, claimed map[string]bool) map[string][]string {
	if len(unmapped) == 0 {
		return nil
	}
	var names, targets []string
	for _, f := range s.Fields {
		if claimed[f.Name] {
			continue
		}
		names = append(names, f.Name)
		targets = append(targets, NormalizeHeader(f.Name))
	}
	if len(targets) == 0 {
		return nil
	}

	out := make(map[string][]string)
	for _, h := range unmapped {
		nh := NormalizeHeader(h)
		if nh == "" {
			continue
		}
		ranks := fuzzy.RankFindNormalizedFold(nh, targets)
		// Reverse direction: a long header that spells out a short field.
		for i, t := range targets {
			if fuzzy.MatchNormalizedFold(t, nh) && !hasIndex(ranks, i) {
				ranks = append(ranks, fuzzy.Rank{
					Source:        nh,
					Target:        t,
					Distance:      fuzzy.LevenshteinDistance(nh, t),
					OriginalIndex: i,
				})
			}
		}
		if len(ranks) == 0 {
			continue
		}
		sort.Stable(ranks)
		var picks []string
		for _, r := range ranks {
			picks = append(picks, names[r.OriginalIndex])
			if len(picks) == maxSuggestions {
				break
			}
		}
		out[h] = picks
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func hasIndex(ranks fuzzy.Ranks, i int) bool {
	for _, r := range ranks {
		if r.OriginalIndex == i {
			return true
		}
	}
	return false
}
