package reports

import (
	"fmt"
	"strings"

	"channel-insights/internal/models"
)

// Report identifiers.
const (
	ReportStats           = "stats"
	ReportTopRevenue      = "top-revenue"
	ReportTopCountries    = "top-countries"
	ReportAdPerformance   = "ad-performance"
	ReportGeoDetail       = "geo-detail"
	ReportDemographics    = "demographics"
	ReportShares          = "shares"
	ReportTrafficSource   = "traffic-source"
	ReportOperatingSystem = "operating-system"
	ReportPlaylist        = "playlist"
)

// Spec is the static definition of one report: the query it issues and how
// its rows are rendered.
type Spec struct {
	ID      string
	Aliases []string
	// Title may contain one %d verb, filled with the effective result limit.
	Title string
	Shape models.QueryShape
	// DefaultLimit of zero means the query is not limited.
	DefaultLimit int
	// Join names the catalog resource used to resolve the first dimension to
	// titles; empty when no join is needed.
	Join   models.EntityKind
	render renderFunc
}

// JoinRequired reports whether the report needs the catalog lookup step.
func (s *Spec) JoinRequired() bool { return s.Join != "" }

// Limited reports whether the report accepts a result limit.
func (s *Spec) Limited() bool { return s.DefaultLimit > 0 }

func (s *Spec) title(limit int) string {
	if strings.Contains(s.Title, "%d") {
		return fmt.Sprintf(s.Title, limit)
	}
	return s.Title
}

// Registry maps report ids and their aliases to specs.
type Registry struct {
	specs     []*Spec
	byName    map[string]*Spec
	overrides map[string]int
}

// NewRegistry registers the built-in reports. overrides replaces the default
// result limit of the named reports.
func NewRegistry(overrides map[string]int) *Registry {
	r := &Registry{
		byName:    make(map[string]*Spec),
		overrides: make(map[string]int),
	}
	for id, limit := range overrides {
		r.overrides[strings.ToLower(id)] = limit
	}
	for _, spec := range builtinSpecs() {
		r.register(spec)
	}
	return r
}

func (r *Registry) register(spec *Spec) {
	r.specs = append(r.specs, spec)
	r.byName[strings.ToLower(spec.ID)] = spec
	for _, alias := range spec.Aliases {
		r.byName[strings.ToLower(alias)] = spec
	}
}

// Lookup finds a report by id or alias, ignoring case.
func (r *Registry) Lookup(name string) (*Spec, error) {
	spec, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReport, name)
	}
	return spec, nil
}

// Specs lists reports in batch order.
func (r *Registry) Specs() []*Spec {
	return append([]*Spec(nil), r.specs...)
}

// IDs lists report ids in batch order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.specs))
	for i, s := range r.specs {
		ids[i] = s.ID
	}
	return ids
}

// EffectiveLimit resolves the limit a request should use. Unlimited reports
// always get zero.
func (r *Registry) EffectiveLimit(spec *Spec, requested int) int {
	if !spec.Limited() {
		return 0
	}
	if requested > 0 {
		return requested
	}
	if limit, ok := r.overrides[spec.ID]; ok && limit > 0 {
		return limit
	}
	return spec.DefaultLimit
}

func builtinSpecs() []*Spec {
	return []*Spec{
		{
			ID:      ReportStats,
			Aliases: []string{"analyze", "analytics", "thisMonth", "this_month"},
			Title:   "YouTube Analytics Report",
			Shape: models.QueryShape{
				Metrics: []string{
					"views", "estimatedMinutesWatched", "subscribersGained", "subscribersLost",
					"estimatedRevenue", "cpm", "monetizedPlaybacks", "playbackBasedCpm",
					"adImpressions", "likes", "dislikes", "averageViewDuration", "shares",
					"averageViewPercentage",
				},
			},
			render: renderStats,
		},
		{
			ID:           ReportTopRevenue,
			Aliases:      []string{"top", "topEarnings", "top_earnings"},
			Title:        "Top %d Earning Videos",
			Shape:        models.QueryShape{Dimensions: []string{"video"}, Metrics: []string{"estimatedRevenue"}, Sort: "-estimatedRevenue"},
			DefaultLimit: 10,
			Join:         models.EntityVideo,
			render:       renderTopRevenue,
		},
		{
			ID:           ReportTopCountries,
			Aliases:      []string{"geo_revenue", "geoRevenue", "countries"},
			Title:        "Top %d Countries by Revenue",
			Shape:        models.QueryShape{Dimensions: []string{"country"}, Metrics: []string{"estimatedRevenue"}, Sort: "-estimatedRevenue"},
			DefaultLimit: 10,
			render:       renderTopCountries,
		},
		{
			ID:      ReportAdPerformance,
			Aliases: []string{"ad", "adtype", "adPerformance", "adPreformance"},
			Title:   "Ad Performance",
			Shape:   models.QueryShape{Dimensions: []string{"adType"}, Metrics: []string{"grossRevenue", "adImpressions", "cpm"}, Sort: "-grossRevenue"},
			render:  renderAdPerformance,
		},
		{
			ID:      ReportGeoDetail,
			Aliases: []string{"country", "geo_report", "geoReport", "geo"},
			Title:   "Top %d Countries (Detailed)",
			Shape: models.QueryShape{
				Dimensions: []string{"country"},
				Metrics: []string{
					"views", "estimatedRevenue", "estimatedAdRevenue", "estimatedRedPartnerRevenue",
					"grossRevenue", "adImpressions", "cpm", "playbackBasedCpm", "monetizedPlaybacks",
				},
				Sort: "-estimatedRevenue",
			},
			DefaultLimit: 3,
			render:       renderGeoDetail,
		},
		{
			ID:      ReportDemographics,
			Aliases: []string{"demo_graph", "gender", "age"},
			Title:   "Viewership Demographics",
			Shape:   models.QueryShape{Dimensions: []string{"ageGroup", "gender"}, Metrics: []string{"viewerPercentage"}, Sort: "-viewerPercentage"},
			render:  renderDemographics,
		},
		{
			ID:           ReportShares,
			Aliases:      []string{"shares_report", "sharesReport", "share_report", "shareReport"},
			Title:        "Top Sharing Services",
			Shape:        models.QueryShape{Dimensions: []string{"sharingService"}, Metrics: []string{"shares"}, Sort: "-shares"},
			DefaultLimit: 5,
			render:       renderLabelCount,
		},
		{
			ID:      ReportTrafficSource,
			Aliases: []string{"search", "search_terms", "searchTerms", "search_report", "searchReport", "traffic"},
			Title:   "Top Search Traffic Terms",
			Shape: models.QueryShape{
				Dimensions: []string{"insightTrafficSourceDetail"},
				Metrics:    []string{"views"},
				Sort:       "-views",
				Filters:    map[string]string{"insightTrafficSourceType": "YT_SEARCH"},
			},
			DefaultLimit: 10,
			render:       renderLabelCount,
		},
		{
			ID:           ReportOperatingSystem,
			Aliases:      []string{"os", "operating_systems", "operatingSystems", "topoperatingsystems"},
			Title:        "Top Operating Systems",
			Shape:        models.QueryShape{Dimensions: []string{"operatingSystem"}, Metrics: []string{"views", "estimatedMinutesWatched"}, Sort: "-views,estimatedMinutesWatched"},
			DefaultLimit: 10,
			render:       renderOperatingSystems,
		},
		{
			ID:      ReportPlaylist,
			Aliases: []string{"playlists", "playlist_report", "playlistReport"},
			Title:   "Top Playlists",
			Shape: models.QueryShape{
				Dimensions: []string{"playlist"},
				Metrics:    []string{"estimatedMinutesWatched", "views", "playlistStarts", "averageTimeInPlaylist"},
				Sort:       "-views",
				Filters:    map[string]string{"isCurated": "1"},
			},
			DefaultLimit: 5,
			Join:         models.EntityPlaylist,
			render:       renderPlaylists,
		},
	}
}
