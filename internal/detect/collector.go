package detect

import "sort"

// MaxRanked bounds the finalized detection list.
const MaxRanked = 25

// categories maps detector labels to summary counters. Labels outside this
// table still appear in the ranked list but do not get a named count.
var categories = map[string]string{
	"person": "people",
	"car":    "cars",
}

// Summary holds per-category detection counts across all qualifying
// detections, including those truncated out of the ranked list.
type Summary map[string]int

// Collector accumulates per-frame detection candidates for one run.
type Collector struct {
	threshold  float64
	detections []Detection
	counts     Summary
}

func NewCollector(threshold float64) *Collector {
	counts := make(Summary, len(categories))
	for _, counter := range categories {
		counts[counter] = 0
	}
	return &Collector{
		threshold: threshold,
		counts:    counts,
	}
}

// Submit records a candidate if its confidence meets the threshold and
// updates the category tally for tracked labels.
func (c *Collector) Submit(d Detection) {
	if d.Confidence < c.threshold {
		return
	}
	if counter, tracked := categories[d.Label]; tracked {
		c.counts[counter]++
	}
	c.detections = append(c.detections, d)
}

// Finalize ranks retained detections by confidence descending (stable, so
// submission order breaks ties) and truncates to MaxRanked. Counts cover
// every qualifying detection, not just the truncated list.
func (c *Collector) Finalize() (Summary, []Detection) {
	sort.SliceStable(c.detections, func(i, j int) bool {
		return c.detections[i].Confidence > c.detections[j].Confidence
	})

	ranked := c.detections
	if len(ranked) > MaxRanked {
		ranked = ranked[:MaxRanked]
	}
	return c.counts, ranked
}
