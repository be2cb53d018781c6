package tokens

import (
	"math"
	"sort"
	"strings"
)

// Policy controls how one category is clustered
type Policy struct {
	Kind         ValueKind `json:"kind" koanf:"kind"`
	Tolerance    float64   `json:"tolerance" koanf:"tolerance"`         // px, ΔE, ms or unitless depending on Kind
	MaxScale     int       `json:"max_scale" koanf:"max-scale"`         // upper bound on centers
	MinFrequency int       `json:"min_frequency" koanf:"min-frequency"` // below this a value stays an outlier
}

// Policies maps categories to clustering policies
type Policies map[Category]Policy

// DefaultPolicies returns the built-in policy table. These are tunable
// defaults, not evidence-derived values.
func DefaultPolicies() Policies {
	return Policies{
		CategoryColor:         {Kind: KindColor, Tolerance: 2.0, MaxScale: 12, MinFrequency: 2},
		CategoryFontFamily:    {Kind: KindCategorical, MaxScale: 3, MinFrequency: 1},
		CategoryFontSize:      {Kind: KindLength, Tolerance: 0, MaxScale: 6, MinFrequency: 2},
		CategoryFontWeight:    {Kind: KindNumber, Tolerance: 0, MaxScale: 4, MinFrequency: 1},
		CategoryLineHeight:    {Kind: KindLength, Tolerance: 0, MaxScale: 6, MinFrequency: 2},
		CategoryLetterSpacing: {Kind: KindLength, Tolerance: 0.1, MaxScale: 4, MinFrequency: 2},
		CategorySpacing:       {Kind: KindLength, Tolerance: 1, MaxScale: 10, MinFrequency: 2},
		CategoryRadius:        {Kind: KindLength, Tolerance: 1, MaxScale: 5, MinFrequency: 2},
		CategoryBorderWidth:   {Kind: KindLength, Tolerance: 0, MaxScale: 3, MinFrequency: 2},
		CategoryShadow:        {Kind: KindCategorical, MaxScale: 4, MinFrequency: 1},
		CategoryOpacity:       {Kind: KindNumber, Tolerance: 0.01, MaxScale: 5, MinFrequency: 2},
		CategoryDuration:      {Kind: KindDuration, Tolerance: 0, MaxScale: 4, MinFrequency: 1},
		CategoryEasing:        {Kind: KindCategorical, MaxScale: 3, MinFrequency: 1},
		CategoryZIndex:        {Kind: KindNumber, Tolerance: 0, MaxScale: 6, MinFrequency: 1},
	}
}

// For returns the policy of c, falling back to the default table
func (p Policies) For(c Category) Policy {
	if pol, ok := p[c]; ok {
		if pol.Kind == "" {
			pol.Kind = KindOf(c)
		}
		if pol.MaxScale <= 0 {
			pol.MaxScale = 1
		}
		return pol
	}
	if pol, ok := DefaultPolicies()[c]; ok {
		return pol
	}
	return Policy{Kind: KindCategorical, MaxScale: 1, MinFrequency: 1}
}

// Observation is one raw value with its provenance
type Observation struct {
	Category   Category  `json:"category"`
	Property   string    `json:"property"`
	Value      string    `json:"value"`
	SampleID   string    `json:"sample_id"`
	State      StateName `json:"state"`
	Unverified bool      `json:"unverified,omitempty"`
}

// ValueCount is a raw value with frequency and contributing samples
type ValueCount struct {
	Value     string   `json:"value"`
	Frequency int      `json:"frequency"`
	SampleIDs []string `json:"sample_ids"`
}

// Center is one scale step
type Center struct {
	Value      string   `json:"value"`
	Frequency  int      `json:"frequency"`
	SampleIDs  []string `json:"sample_ids"`
	Members    []string `json:"members"`              // raw values merged into this step
	Unverified bool     `json:"unverified,omitempty"` // every contributing property is UNVERIFIED
}

// Cluster is the finite scale for one category
type Cluster struct {
	Category Category     `json:"category"`
	Policy   Policy       `json:"policy"`
	Values   []ValueCount `json:"values"`
	Centers  []Center     `json:"centers"`
	Outliers []ValueCount `json:"outliers"`
}

// CenterFor returns the index of the center that absorbed value
func (c Cluster) CenterFor(value string) (int, bool) {
	norm, _, ok := NormalizeValue(c.Policy.Kind, value)
	if !ok {
		norm = value
	}
	for i, center := range c.Centers {
		for _, m := range center.Members {
			if m == norm {
				return i, true
			}
		}
	}
	return -1, false
}

// CenterValues returns the representative values in scale order
func (c Cluster) CenterValues() []string {
	out := make([]string, len(c.Centers))
	for i, center := range c.Centers {
		out[i] = center.Value
	}
	return out
}

// OutlierValues returns outlier values in rank order
func (c Cluster) OutlierValues() []string {
	out := make([]string, len(c.Outliers))
	for i, o := range c.Outliers {
		out[i] = o.Value
	}
	return out
}

type bucket struct {
	value      string
	num        float64
	color      Color
	parsed     bool
	freq       int
	unverified int
	samples    map[string]struct{}
}

type group struct {
	seed    *bucket
	members []*bucket
	freq    int
	samples map[string]struct{}
}

// ClusterValues groups raw observations of one category into a bounded,
// ordered scale. Values that do not make the cut are kept as outliers.
// The result depends only on the multiset of observations, not their order.
func ClusterValues(category Category, observations []Observation, policy Policy) Cluster {
	if policy.Kind == "" {
		policy.Kind = KindOf(category)
	}
	result := Cluster{
		Category: category,
		Policy:   policy,
		Values:   []ValueCount{},
		Centers:  []Center{},
		Outliers: []ValueCount{},
	}

	// 1. Aggregate by normalized value
	buckets := make(map[string]*bucket)
	for _, obs := range observations {
		norm, num, ok := NormalizeValue(policy.Kind, obs.Value)
		if !ok {
			norm = collapseSpace(obs.Value)
			if norm == "" {
				continue
			}
		}
		b, exists := buckets[norm]
		if !exists {
			b = &bucket{value: norm, num: num, parsed: ok, samples: make(map[string]struct{})}
			if policy.Kind == KindColor && ok {
				b.color, _ = ParseColor(norm)
			}
			buckets[norm] = b
		}
		b.freq++
		if obs.Unverified {
			b.unverified++
		}
		if obs.SampleID != "" {
			b.samples[obs.SampleID] = struct{}{}
		}
	}
	if len(buckets) == 0 {
		return result
	}

	// 2. Sort values by rank
	ranked := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		ranked = append(ranked, b)
	}
	numeric := policy.Kind == KindLength || policy.Kind == KindNumber || policy.Kind == KindDuration
	sort.Slice(ranked, func(i, j int) bool {
		return rankLess(ranked[i].freq, len(ranked[i].samples), ranked[i], ranked[j].freq, len(ranked[j].samples), ranked[j], numeric)
	})
	for _, b := range ranked {
		result.Values = append(result.Values, ValueCount{Value: b.value, Frequency: b.freq, SampleIDs: sortedKeys(b.samples)})
	}

	// 3. Seed candidate centers in rank order; each value joins the nearest seed within tolerance
	var groups []*group
	for _, b := range ranked {
		best, bestDist := -1, math.Inf(1)
		if b.parsed {
			for gi, g := range groups {
				if !g.seed.parsed {
					continue
				}
				d := distance(policy.Kind, g.seed, b)
				if d <= policy.Tolerance && d < bestDist {
					best, bestDist = gi, d
				}
			}
		}
		if best < 0 {
			groups = append(groups, &group{seed: b, members: []*bucket{b}, freq: b.freq, samples: copySet(b.samples)})
			continue
		}
		g := groups[best]
		g.members = append(g.members, b)
		g.freq += b.freq
		for id := range b.samples {
			g.samples[id] = struct{}{}
		}
	}

	// 4. Keep centers by aggregate rank until the scale is full or frequency drops off
	sort.SliceStable(groups, func(i, j int) bool {
		return rankLess(groups[i].freq, len(groups[i].samples), groups[i].seed, groups[j].freq, len(groups[j].samples), groups[j].seed, numeric)
	})

	var kept []*group
	for i, g := range groups {
		if len(kept) >= policy.MaxScale || g.freq < policy.MinFrequency {
			// 5. Everything past the cut stays visible as individual outliers
			for _, rest := range groups[i:] {
				for _, m := range rest.members {
					result.Outliers = append(result.Outliers, ValueCount{Value: m.value, Frequency: m.freq, SampleIDs: sortedKeys(m.samples)})
				}
			}
			break
		}
		kept = append(kept, g)
	}
	sort.SliceStable(result.Outliers, func(i, j int) bool {
		a, b := result.Outliers[i], result.Outliers[j]
		if a.Frequency != b.Frequency {
			return a.Frequency > b.Frequency
		}
		if len(a.SampleIDs) != len(b.SampleIDs) {
			return len(a.SampleIDs) > len(b.SampleIDs)
		}
		return a.Value < b.Value
	})

	if numeric {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].seed.num < kept[j].seed.num })
	}
	for _, g := range kept {
		members := make([]string, len(g.members))
		unverified, total := 0, 0
		for i, m := range g.members {
			members[i] = m.value
			unverified += m.unverified
			total += m.freq
		}
		sort.Strings(members)
		result.Centers = append(result.Centers, Center{
			Value:      g.seed.value,
			Frequency:  g.freq,
			SampleIDs:  sortedKeys(g.samples),
			Members:    members,
			Unverified: total > 0 && unverified == total,
		})
	}

	return result
}

// rankLess orders by frequency, then distinct samples, then the smaller value
func rankLess(freqA, samplesA int, a *bucket, freqB, samplesB int, b *bucket, numeric bool) bool {
	if freqA != freqB {
		return freqA > freqB
	}
	if samplesA != samplesB {
		return samplesA > samplesB
	}
	if numeric && a.parsed && b.parsed && a.num != b.num {
		return a.num < b.num
	}
	return a.value < b.value
}

func distance(kind ValueKind, a, b *bucket) float64 {
	switch kind {
	case KindColor:
		return a.color.Distance(b.color)
	case KindLength, KindNumber, KindDuration:
		return math.Abs(a.num - b.num)
	default:
		if strings.EqualFold(a.value, b.value) {
			return 0
		}
		return math.Inf(1)
	}
}

func copySet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ClusterAll clusters every category that has observations, in Categories order
func ClusterAll(observations map[Category][]Observation, policies Policies) []Cluster {
	var out []Cluster
	for _, c := range Categories {
		obs := observations[c]
		if len(obs) == 0 {
			continue
		}
		out = append(out, ClusterValues(c, obs, policies.For(c)))
	}
	return out
}
