package tokens

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func repeatObs(category Category, property, value string, n int, prefix string) []Observation {
	out := make([]Observation, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Observation{
			Category: category,
			Property: property,
			Value:    value,
			SampleID: fmt.Sprintf("%s-%02d", prefix, i),
			State:    StateDefault,
		})
	}
	return out
}

func buttonBackgrounds() []Observation {
	var obs []Observation
	obs = append(obs, repeatObs(CategoryColor, "background-color", "#1A73E8", 8, "a")...)
	obs = append(obs, repeatObs(CategoryColor, "background-color", "#1A74E9", 3, "b")...)
	obs = append(obs, repeatObs(CategoryColor, "background-color", "#FF0000", 1, "c")...)
	return obs
}

func TestClusterValues_MergesNearColors(t *testing.T) {
	c := ClusterValues(CategoryColor, buttonBackgrounds(), DefaultPolicies().For(CategoryColor))

	require.Equal(t, []string{"#1A73E8"}, c.CenterValues())
	require.Equal(t, []string{"#FF0000"}, c.OutlierValues())

	center := c.Centers[0]
	assert.Equal(t, 11, center.Frequency)
	assert.Equal(t, []string{"#1A73E8", "#1A74E9"}, center.Members)
	assert.Len(t, center.SampleIDs, 11)

	idx, ok := c.CenterFor("rgb(26, 116, 233)")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	_, ok = c.CenterFor("#FF0000")
	assert.False(t, ok)
}

func TestClusterValues_OrderIndependent(t *testing.T) {
	obs := buttonBackgrounds()
	want := ClusterValues(CategoryColor, obs, DefaultPolicies().For(CategoryColor))

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		shuffled := append([]Observation(nil), obs...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := ClusterValues(CategoryColor, shuffled, DefaultPolicies().For(CategoryColor))
		require.Equal(t, want, got)
	}
}

func TestClusterValues_ReclusteringCentersIsStable(t *testing.T) {
	policy := DefaultPolicies().For(CategoryColor)
	first := ClusterValues(CategoryColor, buttonBackgrounds(), policy)

	var again []Observation
	for _, center := range first.Centers {
		again = append(again, repeatObs(CategoryColor, "background-color", center.Value, center.Frequency, "x"+center.Value)...)
	}
	for _, o := range first.Outliers {
		again = append(again, repeatObs(CategoryColor, "background-color", o.Value, o.Frequency, "y"+o.Value)...)
	}

	second := ClusterValues(CategoryColor, again, policy)
	assert.Equal(t, first.CenterValues(), second.CenterValues())
	assert.Equal(t, first.OutlierValues(), second.OutlierValues())
}

func TestClusterValues_RespectsMaxScale(t *testing.T) {
	policy := DefaultPolicies().For(CategorySpacing)

	var obs []Observation
	for i := 1; i <= 50; i++ {
		v := fmt.Sprintf("%dpx", i*4)
		obs = append(obs, repeatObs(CategorySpacing, "padding-top", v, 3, v)...)
	}

	c := ClusterValues(CategorySpacing, obs, policy)
	require.Len(t, c.Centers, policy.MaxScale)
	assert.Len(t, c.Outliers, 50-policy.MaxScale)
	assert.Equal(t, "4px", c.Centers[0].Value)
	assert.Equal(t, "40px", c.Centers[len(c.Centers)-1].Value)
}

func TestClusterValues_ScaleNeverExceedsMax(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for _, cat := range Categories {
		policy := DefaultPolicies().For(cat)
		var obs []Observation
		for i := 0; i < 300; i++ {
			var v string
			switch policy.Kind {
			case KindColor:
				v = fmt.Sprintf("rgb(%d, %d, %d)", rng.Intn(256), rng.Intn(256), rng.Intn(256))
			case KindDuration:
				v = fmt.Sprintf("%dms", rng.Intn(40)*25)
			case KindLength:
				v = fmt.Sprintf("%dpx", rng.Intn(80))
			case KindNumber:
				v = fmt.Sprintf("%d", rng.Intn(20))
			default:
				v = fmt.Sprintf("value-%d", rng.Intn(15))
			}
			obs = append(obs, Observation{Category: cat, Value: v, SampleID: fmt.Sprintf("s%d", rng.Intn(60))})
		}
		c := ClusterValues(cat, obs, policy)
		assert.LessOrEqual(t, len(c.Centers), policy.MaxScale, "category %s", cat)
	}
}

func TestClusterValues_NumericCentersAscending(t *testing.T) {
	var obs []Observation
	obs = append(obs, repeatObs(CategoryFontSize, "font-size", "16px", 5, "p")...)
	obs = append(obs, repeatObs(CategoryFontSize, "font-size", "0.75rem", 3, "small")...)
	obs = append(obs, repeatObs(CategoryFontSize, "font-size", "24px", 2, "h2")...)
	obs = append(obs, repeatObs(CategoryFontSize, "font-size", "1rem", 2, "body")...)

	c := ClusterValues(CategoryFontSize, obs, DefaultPolicies().For(CategoryFontSize))
	assert.Equal(t, []string{"12px", "16px", "24px"}, c.CenterValues())
	assert.Equal(t, 7, c.Centers[1].Frequency)
}

func TestClusterValues_Empty(t *testing.T) {
	c := ClusterValues(CategoryRadius, nil, DefaultPolicies().For(CategoryRadius))
	assert.Empty(t, c.Centers)
	assert.Empty(t, c.Outliers)
	assert.NotNil(t, c.Centers)
}

func TestClusterAll_SkipsEmptyCategories(t *testing.T) {
	obs := map[Category][]Observation{
		CategoryColor:  buttonBackgrounds(),
		CategoryRadius: repeatObs(CategoryRadius, "border-radius", "8px", 2, "r"),
	}
	clusters := ClusterAll(obs, DefaultPolicies())
	require.Len(t, clusters, 2)
	assert.Equal(t, CategoryColor, clusters[0].Category)
	assert.Equal(t, CategoryRadius, clusters[1].Category)
}

func TestPolicies_ForOverride(t *testing.T) {
	p := DefaultPolicies()
	p[CategoryColor] = Policy{Tolerance: 20, MaxScale: 2, MinFrequency: 1}

	got := p.For(CategoryColor)
	assert.Equal(t, KindColor, got.Kind)

	c := ClusterValues(CategoryColor, buttonBackgrounds(), got)
	assert.Len(t, c.Centers, 2)
	assert.Empty(t, c.Outliers)
}
