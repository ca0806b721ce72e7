package findings

import (
	"github.com/mhoffmann/blackout/internal/textmatch"
)

// Consolidate groups findings by category and removes near-duplicate text
// within each group. Iteration is order-preserving on both levels: groups
// appear in the order their category is first seen, and within a group the
// first of two similar findings wins. This ordering is load-bearing, not
// incidental.
func Consolidate(findings []Finding) []Finding {
	var order []Category
	groups := make(map[Category][]Finding)
	for _, f := range findings {
		if _, seen := groups[f.Type]; !seen {
			order = append(order, f.Type)
		}
		groups[f.Type] = append(groups[f.Type], f)
	}

	var consolidated []Finding
	for _, c := range order {
		var keptNorms []string
		for _, f := range groups[c] {
			norm := textmatch.Normalize(f.Text)

			duplicate := false
			for _, seen := range keptNorms {
				if textmatch.Equivalent(norm, seen) {
					duplicate = true
					break
				}
			}
			if duplicate {
				continue
			}

			keptNorms = append(keptNorms, norm)
			consolidated = append(consolidated, f)
		}
	}

	return consolidated
}
