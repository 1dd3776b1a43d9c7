// Package diff compares a base inventory against a target inventory.
package diff

import (
	"math"
	"sort"
)

// Result holds the outcome of comparing a target set against a base set.
type Result struct {
	Missing    []string // in base, not in target
	Extra      []string // in target, not in base
	Total      int      // distinct base items
	Translated int      // Total - len(Missing)
	Rate       float64  // percent, two decimals
}

// Compare treats base and target as sets. Missing and Extra are sorted ascending.
func Compare(base, target []string) Result {
	baseSet := toSet(base)
	targetSet := toSet(target)

	missing := []string{}
	for item := range baseSet {
		if _, ok := targetSet[item]; !ok {
			missing = append(missing, item)
		}
	}
	extra := []string{}
	for item := range targetSet {
		if _, ok := baseSet[item]; !ok {
			extra = append(extra, item)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)

	total := len(baseSet)
	translated := total - len(missing)

	return Result{
		Missing:    missing,
		Extra:      extra,
		Total:      total,
		Translated: translated,
		Rate:       CompletionRate(translated, total),
	}
}

// CompletionRate is translated/total as a percentage rounded to two decimals,
// half away from zero. It is 0 when total is 0.
func CompletionRate(translated, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(translated) / float64(total) * 100)
}

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
