package matching

import (
	"github.com/platevue/venue-comb/app/provider"
)

type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchFuzzy    MatchType = "fuzzy"
	MatchNotFound MatchType = "not_found"
)

// MatchResult is the outcome of resolving one input name against a candidate
// catalog. Invariants: Exact implies Score == 1.0 and a non-nil record with
// an external id; NotFound implies a nil record and Score == 0.
type MatchResult struct {
	Input   string
	Matched *provider.Candidate
	Score   float64
	Type    MatchType
}

// Resolver picks the best candidate for an input name, or reports not found.
type Resolver struct {
	threshold float64
}

// NewResolver creates a resolver with the given fuzzy-match threshold. The
// 0.85 default separates franchise/punctuation variants from different
// venues with similar generic names.
func NewResolver(threshold float64) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Resolver{threshold: threshold}
}

// Resolve matches inputName against the catalog. Candidates arrive in
// provider rank order, which also breaks exact-match ties. An empty catalog
// resolves to NotFound without error.
func (r *Resolver) Resolve(inputName string, catalog []provider.Candidate) MatchResult {
	result := MatchResult{Input: inputName, Type: MatchNotFound}

	if len(catalog) == 0 {
		return result
	}

	normalizedInput := Normalize(inputName)

	for i := range catalog {
		if catalog[i].ExternalID == "" {
			continue
		}
		if Normalize(catalog[i].DisplayName) == normalizedInput {
			result.Matched = &catalog[i]
			result.Score = 1.0
			result.Type = MatchExact
			return result
		}
	}

	bestScore := 0.0
	bestIndex := -1
	for i := range catalog {
		score := Similarity(normalizedInput, Normalize(catalog[i].DisplayName))
		if score > bestScore {
			bestScore = score
			bestIndex = i
		}
	}

	if bestIndex >= 0 && bestScore >= r.threshold {
		result.Matched = &catalog[bestIndex]
		result.Score = bestScore
		result.Type = MatchFuzzy
	}

	return result
}
