package reports

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryOrder(t *testing.T) {
	r := NewRegistry(nil)
	assert.Equal(t, []string{
		ReportStats, ReportTopRevenue, ReportTopCountries, ReportAdPerformance, ReportGeoDetail,
		ReportDemographics, ReportShares, ReportTrafficSource, ReportOperatingSystem, ReportPlaylist,
	}, r.IDs())
	assert.Len(t, r.Specs(), 10)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(nil)

	tests := map[string]string{
		"stats":           ReportStats,
		"analyze":         ReportStats,
		"TOP":             ReportTopRevenue,
		"topEarnings":     ReportTopRevenue,
		"geoRevenue":      ReportTopCountries,
		"adPreformance":   ReportAdPerformance,
		"geo":             ReportGeoDetail,
		"demo_graph":      ReportDemographics,
		" shares ":        ReportShares,
		"searchTerms":     ReportTrafficSource,
		"os":              ReportOperatingSystem,
		"playlist_report": ReportPlaylist,
	}
	for name, want := range tests {
		spec, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, spec.ID, name)
	}

	_, err := r.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownReport)
}

func TestRegistryAliasesAreUnique(t *testing.T) {
	seen := map[string]string{}
	for _, spec := range builtinSpecs() {
		for _, name := range append([]string{spec.ID}, spec.Aliases...) {
			owner, dup := seen[name]
			assert.False(t, dup, "%s is claimed by %s and %s", name, owner, spec.ID)
			seen[name] = spec.ID
		}
	}
}

func TestSpecsAreComplete(t *testing.T) {
	for _, spec := range NewRegistry(nil).Specs() {
		assert.NotEmpty(t, spec.Shape.Metrics, spec.ID)
		assert.NotNil(t, spec.render, spec.ID)
		assert.NotEmpty(t, spec.Title, spec.ID)
	}

	top, err := NewRegistry(nil).Lookup(ReportTopRevenue)
	require.NoError(t, err)
	assert.True(t, top.JoinRequired())

	stats, err := NewRegistry(nil).Lookup(ReportStats)
	require.NoError(t, err)
	assert.False(t, stats.JoinRequired())
	assert.Len(t, stats.Shape.Metrics, 14)
}

func TestEffectiveLimit(t *testing.T) {
	r := NewRegistry(map[string]int{"Top-Revenue": 25, ReportShares: 0})

	top, _ := r.Lookup(ReportTopRevenue)
	assert.Equal(t, 25, r.EffectiveLimit(top, 0))
	assert.Equal(t, 3, r.EffectiveLimit(top, 3))

	shares, _ := r.Lookup(ReportShares)
	assert.Equal(t, 5, r.EffectiveLimit(shares, 0))

	geo, _ := r.Lookup(ReportGeoDetail)
	assert.Equal(t, 3, r.EffectiveLimit(geo, 0))

	stats, _ := r.Lookup(ReportStats)
	assert.Equal(t, 0, r.EffectiveLimit(stats, 5))
}

func TestSpecTitle(t *testing.T) {
	r := NewRegistry(nil)
	top, _ := r.Lookup(ReportTopRevenue)
	assert.Equal(t, "Top 7 Earning Videos", top.title(7))

	stats, _ := r.Lookup(ReportStats)
	assert.Equal(t, "YouTube Analytics Report", stats.title(0))
}
