package matching

import (
	"fmt"
)

// Record is the minimal view of a stored establishment the detector needs.
type Record struct {
	ID         string
	ExternalID string
	Name       string
	Address    string
}

// DuplicateGroup collects confirmed duplicates of one canonical record.
// Groups never overlap: a record belongs to at most one group per run.
type DuplicateGroup struct {
	CanonicalID string   `json:"canonical_id"`
	MemberIDs   []string `json:"member_ids"`
	Reason      string   `json:"reason"`
}

type DedupThresholds struct {
	NameSimilarity      float64
	AddressSimilarity   float64
	ExactNameAddressSim float64
}

func DefaultDedupThresholds() DedupThresholds {
	return DedupThresholds{
		NameSimilarity:      0.9,
		AddressSimilarity:   0.8,
		ExactNameAddressSim: 0.6,
	}
}

// Detector groups stored establishments into duplicate clusters using
// multi-criteria pairwise matching. O(n²) over the catalog, which is bounded
// (thousands, not millions) and not a hot path.
type Detector struct {
	normalizer *Normalizer
	thresholds DedupThresholds
}

func NewDetector(normalizer *Normalizer, thresholds DedupThresholds) *Detector {
	if thresholds.NameSimilarity <= 0 {
		thresholds = DefaultDedupThresholds()
	}
	return &Detector{normalizer: normalizer, thresholds: thresholds}
}

// FindDuplicates runs a single-pass union: once a record is assigned to a
// group it is never the start of a new one, but records later in the slice
// stay eligible as comparison targets until assigned.
func (d *Detector) FindDuplicates(records []Record) []DuplicateGroup {
	var groups []DuplicateGroup
	assigned := make(map[string]bool, len(records))

	for i := range records {
		if assigned[records[i].ID] {
			continue
		}

		var group *DuplicateGroup
		for j := i + 1; j < len(records); j++ {
			if assigned[records[j].ID] {
				continue
			}

			isDuplicate, reason := d.compare(records[i], records[j])
			if !isDuplicate {
				continue
			}

			if group == nil {
				group = &DuplicateGroup{CanonicalID: records[i].ID, Reason: reason}
				assigned[records[i].ID] = true
			}
			group.MemberIDs = append(group.MemberIDs, records[j].ID)
			assigned[records[j].ID] = true
		}

		if group != nil {
			groups = append(groups, *group)
		}
	}

	return groups
}

// compare evaluates the criteria in priority order; the first hit decides
// the pair.
func (d *Detector) compare(a, b Record) (bool, string) {
	if a.ExternalID != "" && b.ExternalID != "" && a.ExternalID == b.ExternalID {
		return true, "same external id"
	}

	// An absent address can never satisfy the remaining criteria; name
	// alone is not enough to merge two records.
	if a.Address == "" || b.Address == "" {
		return false, ""
	}

	nameA := d.normalizer.NormalizeForDedup(a.Name)
	nameB := d.normalizer.NormalizeForDedup(b.Name)
	if nameA == "" || nameB == "" {
		return false, ""
	}

	addressSim := Similarity(Normalize(a.Address), Normalize(b.Address))
	nameSim := Similarity(nameA, nameB)

	if nameSim > d.thresholds.NameSimilarity && addressSim > d.thresholds.AddressSimilarity {
		return true, fmt.Sprintf("name similarity %.2f, address similarity %.2f", nameSim, addressSim)
	}

	if nameA == nameB && addressSim > d.thresholds.ExactNameAddressSim {
		return true, "exact name, similar address"
	}

	return false, ""
}
