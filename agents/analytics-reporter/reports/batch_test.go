package reports

import (
	"context"
	"testing"

	"channel-insights/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildAllIsolatesFailures(t *testing.T) {
	client := newFakeClient()
	client.on(ReportStats, models.MetricsRow{
		1000.0, 5000.0, 20.0, 5.0, 50.5, 4.25, 800.0, 6.1, 1500.0, 90.0, 10.0, 245.0, 12.0, 41.5,
	})
	client.fail(ReportShares, &RemoteQueryError{Service: "analytics", Status: 500})
	a := NewAssembler(client, NewRegistry(nil))

	results := a.BuildAll(context.Background(), []string{ReportStats, ReportShares, ReportDemographics}, march, 0)
	require.Len(t, results, 3)

	assert.Equal(t, ReportStats, results[0].ReportID)
	assert.NoError(t, results[0].Err)
	assert.NotNil(t, results[0].Report)

	assert.Equal(t, ReportShares, results[1].ReportID)
	assert.Error(t, results[1].Err)

	assert.Equal(t, ReportDemographics, results[2].ReportID)
	assert.True(t, IsBenign(results[2].Err))

	assert.Equal(t, 1, Failed(results))
}

func TestBuildAllDefaultsToEveryReport(t *testing.T) {
	a := NewAssembler(newFakeClient(), NewRegistry(nil))
	results := a.BuildAll(context.Background(), nil, march, 0)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ReportID
	}
	assert.Equal(t, a.Registry().IDs(), ids)
	assert.Zero(t, Failed(results))
}

func TestBuildAllStopsQueryingWhenCancelled(t *testing.T) {
	client := newFakeClient()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewAssembler(client, NewRegistry(nil)).BuildAll(ctx, []string{ReportStats, ReportShares}, march, 0)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Empty(t, client.limits)
	assert.Equal(t, 2, Failed(results))
}
