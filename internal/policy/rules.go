package policy

import "strings"

// ProhibitedCriteria returns the criteria that the policy forbids, in input order.
func (p Policy) ProhibitedCriteria(criteria []string) []string {
	var found []string
	for _, c := range criteria {
		for _, banned := range p.Ethics.ProhibitedCriteria {
			if strings.EqualFold(strings.TrimSpace(c), banned) {
				found = append(found, c)
				break
			}
		}
	}
	return found
}

// WatchedCount counts demographics that belong to a watched group.
func (p Policy) WatchedCount(demographics []string) int {
	n := 0
	for _, d := range demographics {
		for _, g := range p.Bias.WatchGroups {
			if strings.EqualFold(strings.TrimSpace(d), g) {
				n++
				break
			}
		}
	}
	return n
}

// Watched reports whether demographic belongs to a watched group.
func (p Policy) Watched(demographic string) bool {
	return p.WatchedCount([]string{demographic}) > 0
}

// BiasVerdict renders one bias clause per distinct demographic, in first-seen
// order. A group is flagged when it is watched and the batch reaches the
// threshold.
func (p Policy) BiasVerdict(demographics []string) string {
	likely := p.BiasLikely(demographics)
	seen := map[string]bool{}
	var clauses []string
	for _, d := range demographics {
		d = strings.TrimSpace(d)
		if d == "" {
			d = "unknown"
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		clauses = append(clauses, BiasClause(d, likely && p.Watched(d)))
	}
	if len(clauses) == 0 {
		return BiasClause("unknown", false)
	}
	return strings.Join(clauses, "; ")
}

// BiasLikely applies the watched-group threshold to a batch of demographics.
func (p Policy) BiasLikely(demographics []string) bool {
	threshold := p.Bias.Threshold
	if threshold <= 0 {
		threshold = 1
	}
	return p.WatchedCount(demographics) >= threshold
}

// CriteriaOrDefault returns criteria, or the policy defaults when criteria is empty.
func (p Policy) CriteriaOrDefault(criteria []string) []string {
	if len(criteria) > 0 {
		return criteria
	}
	out := make([]string, len(p.Defaults.LoanCriteria))
	copy(out, p.Defaults.LoanCriteria)
	return out
}
