package reports

import (
	"fmt"
	"math"
	"strings"

	"channel-insights/internal/models"
)

// demographicsThreshold is the viewer share, in percent, below which the
// demographics listing stops.
const demographicsThreshold = 1.0

func renderStats(in *renderInput) []models.Row {
	row := in.rows()[0]
	v := func(name string) float64 { return in.num(row, name) }

	return []models.Row{
		{Label: "Views", Value: FormatNumber(v("views"))},
		{Label: "Ratings", Value: LikeRatio(v("likes"), v("dislikes"))},
		{Label: "Minutes Watched", Value: FormatNumber(v("estimatedMinutesWatched"))},
		{Label: "Average View Duration", Value: fmt.Sprintf("%s (%s)",
			FormatValue(v("averageViewDuration"), KindSeconds),
			FormatValue(v("averageViewPercentage"), KindPercent))},
		{Label: "Net Subscribers", Value: FormatNumber(v("subscribersGained") - v("subscribersLost"))},
		{Label: "Shares", Value: FormatNumber(v("shares"))},
		{Label: "Estimated Revenue", Value: FormatCurrency(v("estimatedRevenue"))},
		{Label: "CPM", Value: FormatCurrency(v("cpm"))},
		{Label: "Monetized Playbacks (±2.0%)", Value: FormatNumber(v("monetizedPlaybacks"))},
		{Label: "Playback CPM", Value: FormatCurrency(v("playbackBasedCpm"))},
		{Label: "Ad Impressions", Value: FormatNumber(v("adImpressions"))},
	}
}

func renderTopRevenue(in *renderInput) []models.Row {
	rows := make([]models.Row, 0, len(in.rows())+1)
	var total float64
	for i, r := range in.rows() {
		earnings := in.num(r, "estimatedRevenue")
		total += earnings
		rows = append(rows, models.Row{
			Label: fmt.Sprintf("%d) %s", i+1, in.title(r.Text(0))),
			Value: FormatCurrency(earnings),
		})
	}
	return append(rows, models.Row{
		Label: fmt.Sprintf("Top %d Total Earnings", in.limit),
		Value: FormatCurrency(total),
	})
}

func renderTopCountries(in *renderInput) []models.Row {
	rows := make([]models.Row, 0, len(in.rows())+1)
	var total float64
	for _, r := range in.rows() {
		revenue := in.num(r, "estimatedRevenue")
		total += revenue
		rows = append(rows, models.Row{Label: r.Text(0), Value: FormatCurrency(revenue)})
	}
	return append(rows, models.Row{
		Label: fmt.Sprintf("Top %d Total Revenue", in.limit),
		Value: FormatCurrency(total),
	})
}

func renderAdPerformance(in *renderInput) []models.Row {
	rows := make([]models.Row, 0, len(in.rows()))
	for _, r := range in.rows() {
		rows = append(rows, models.Row{
			Label: Humanize(r.Text(0)),
			Fields: []models.Field{
				{Name: "Gross Revenue", Value: FormatCurrency(in.num(r, "grossRevenue"))},
				{Name: "CPM", Value: FormatCurrency(in.num(r, "cpm"))},
				{Name: "Impressions", Value: FormatNumber(in.num(r, "adImpressions"))},
			},
		})
	}
	return rows
}

// renderGeoDetail lists every column except those whose name mentions "country".
func renderGeoDetail(in *renderInput) []models.Row {
	headers := in.headers()
	rows := make([]models.Row, 0, len(in.rows()))
	for _, r := range in.rows() {
		row := models.Row{Label: r.Text(0)}
		for i, h := range headers {
			if strings.Contains(strings.ToLower(h.Name), "country") {
				continue
			}
			row.Fields = append(row.Fields, models.Field{
				Name:  h.Name,
				Value: FormatValue(r.Float(i), kindForHeader(h)),
			})
		}
		rows = append(rows, row)
	}
	return rows
}

// renderDemographics walks the rows in the API's descending order and stops at
// the first one under the threshold; later rows are not considered.
func renderDemographics(in *renderInput) []models.Row {
	ageCol, genderCol := in.col("ageGroup"), in.col("gender")

	var rows []models.Row
	for _, r := range in.rows() {
		share := in.num(r, "viewerPercentage")
		if math.Round(share*100)/100 < demographicsThreshold {
			break
		}
		rows = append(rows, models.Row{
			Label: fmt.Sprintf("%s viewers aged %s",
				strings.ToLower(r.Text(genderCol)),
				strings.TrimPrefix(r.Text(ageCol), "age")),
			Value: FormatValue(share, KindPercent),
		})
	}
	return rows
}

// renderLabelCount handles single dimension, single count reports.
func renderLabelCount(in *renderInput) []models.Row {
	metric := in.spec.Shape.Metrics[0]
	rows := make([]models.Row, 0, len(in.rows()))
	for _, r := range in.rows() {
		rows = append(rows, models.Row{
			Label: Humanize(r.Text(0)),
			Value: FormatNumber(in.num(r, metric)),
		})
	}
	return rows
}

func renderOperatingSystems(in *renderInput) []models.Row {
	rows := make([]models.Row, 0, len(in.rows()))
	for _, r := range in.rows() {
		rows = append(rows, models.Row{
			Label: Humanize(r.Text(0)),
			Fields: []models.Field{
				{Name: "Views", Value: FormatNumber(in.num(r, "views"))},
				{Name: "Estimated Watch Time (minutes)", Value: FormatNumber(in.num(r, "estimatedMinutesWatched"))},
			},
		})
	}
	return rows
}

// renderPlaylists matches each playlist's metric columns to its title by id.
func renderPlaylists(in *renderInput) []models.Row {
	rows := make([]models.Row, 0, len(in.rows()))
	for _, r := range in.rows() {
		rows = append(rows, models.Row{
			Label: in.title(r.Text(0)),
			Fields: []models.Field{
				{Name: "Views", Value: FormatNumber(in.num(r, "views"))},
				{Name: "Playlist Starts", Value: FormatNumber(in.num(r, "playlistStarts"))},
				{Name: "Average Time in Playlist", Value: FormatNumber(in.num(r, "averageTimeInPlaylist"))},
				{Name: "Estimated Minutes Watched", Value: FormatNumber(in.num(r, "estimatedMinutesWatched"))},
			},
		})
	}
	return rows
}
