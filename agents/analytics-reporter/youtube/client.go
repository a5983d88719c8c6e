package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"channel-insights/agents/analytics-reporter/reports"
	"channel-insights/internal/models"
	"channel-insights/shared/monitoring"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
	"google.golang.org/api/youtubeanalytics/v2"
)

const (
	ServiceAnalytics = "analytics"
	ServiceCatalog   = "catalog"

	// catalogBatchSize is the most ids the Data API accepts per list call.
	catalogBatchSize = 50
	defaultTimeout   = 30 * time.Second
)

// Client queries YouTube Analytics for metrics and the YouTube Data API for
// titles. It performs exactly one attempt per call.
type Client struct {
	analytics *youtubeanalytics.Service
	data      *youtube.Service
	timeout   time.Duration
}

// NewClient builds both services on top of the provider's shared token.
func NewClient(ctx context.Context, creds *CredentialProvider, timeout time.Duration) (*Client, error) {
	httpClient := oauth2.NewClient(ctx, creds.AnalyticsCredential())
	return NewClientWithOptions(ctx, timeout, option.WithHTTPClient(httpClient))
}

// NewClientWithOptions builds the client from explicit API options, which
// lets tests point both services at a local server.
func NewClientWithOptions(ctx context.Context, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	analytics, err := youtubeanalytics.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube Analytics service: %w", err)
	}
	data, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{analytics: analytics, data: data, timeout: timeout}, nil
}

// QueryMetrics runs one analytics query for the authenticated channel.
func (c *Client) QueryMetrics(ctx context.Context, shape models.QueryShape, rng models.DateRange, limit int) (*models.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	call := c.analytics.Reports.Query().
		Ids("channel==MINE").
		StartDate(rng.StartDate()).
		EndDate(rng.EndDate()).
		Metrics(strings.Join(shape.Metrics, ","))
	if len(shape.Dimensions) > 0 {
		call = call.Dimensions(strings.Join(shape.Dimensions, ","))
	}
	if shape.Sort != "" {
		call = call.Sort(shape.Sort)
	}
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	}
	if filters := EncodeFilters(shape.Filters); filters != "" {
		call = call.Filters(filters)
	}

	start := time.Now()
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, c.fail(ctx, ServiceAnalytics, start, err)
	}
	monitoring.ObserveQuery(ServiceAnalytics, "success", time.Since(start))

	result := &models.QueryResult{
		Headers: make([]models.ColumnHeader, 0, len(resp.ColumnHeaders)),
		Rows:    make([]models.MetricsRow, 0, len(resp.Rows)),
	}
	for _, h := range resp.ColumnHeaders {
		if h == nil {
			continue
		}
		result.Headers = append(result.Headers, models.ColumnHeader{
			Name:       h.Name,
			ColumnType: h.ColumnType,
			DataType:   h.DataType,
		})
	}
	for _, row := range resp.Rows {
		result.Rows = append(result.Rows, models.MetricsRow(row))
	}

	zerolog.Ctx(ctx).Debug().
		Str("metrics", strings.Join(shape.Metrics, ",")).
		Str("dimensions", strings.Join(shape.Dimensions, ",")).
		Int("rows", len(result.Rows)).
		Msg("analytics query complete")
	return result, nil
}

// LookupEntities resolves video or playlist ids to their titles. Ids the
// catalog does not return are absent from the map.
func (c *Client) LookupEntities(ctx context.Context, kind models.EntityKind, ids []string) (map[string]models.EntityMetadata, error) {
	entities := make(map[string]models.EntityMetadata, len(ids))
	if len(ids) == 0 {
		return entities, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	for i := 0; i < len(ids); i += catalogBatchSize {
		end := i + catalogBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := strings.Join(ids[i:end], ",")

		start := time.Now()
		switch kind {
		case models.EntityVideo:
			resp, err := c.data.Videos.List([]string{"snippet"}).Id(batch).Context(ctx).Do()
			if err != nil {
				return nil, c.fail(ctx, ServiceCatalog, start, err)
			}
			for _, item := range resp.Items {
				if item.Snippet != nil {
					entities[item.Id] = models.EntityMetadata{ID: item.Id, Title: item.Snippet.Title}
				}
			}
		case models.EntityPlaylist:
			resp, err := c.data.Playlists.List([]string{"snippet"}).Id(batch).
				MaxResults(int64(end - i)).Context(ctx).Do()
			if err != nil {
				return nil, c.fail(ctx, ServiceCatalog, start, err)
			}
			for _, item := range resp.Items {
				if item.Snippet != nil {
					entities[item.Id] = models.EntityMetadata{ID: item.Id, Title: item.Snippet.Title}
				}
			}
		default:
			return nil, fmt.Errorf("unsupported entity kind %q", kind)
		}
		monitoring.ObserveQuery(ServiceCatalog, "success", time.Since(start))
	}
	return entities, nil
}

func (c *Client) fail(ctx context.Context, service string, start time.Time, err error) error {
	classified := Classify(ctx, service, err)

	logger := zerolog.Ctx(ctx)
	var (
		authErr   *reports.AuthExpiredError
		remoteErr *reports.RemoteQueryError
	)
	switch {
	case errors.As(classified, &authErr):
		monitoring.ObserveQuery(service, "auth_expired", time.Since(start))
		logger.Warn().Err(err).Str("service", service).Msg("credential rejected")
	case errors.As(classified, &remoteErr):
		monitoring.ObserveQuery(service, "error", time.Since(start))
		logger.Error().Err(err).
			Str("service", service).
			Int("status", remoteErr.Status).
			Bool("timeout", remoteErr.Timeout).
			Str("body", remoteErr.Body).
			Msg("remote query failed")
	}
	return classified
}

// Classify maps a transport or API error onto the report error taxonomy.
func Classify(ctx context.Context, service string, err error) error {
	if errors.Is(err, ErrNoToken) {
		return &reports.AuthExpiredError{Err: err}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if isAuthFailure(retrieveErr) {
			return &reports.AuthExpiredError{Err: err}
		}
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		return &reports.RemoteQueryError{Service: "oauth", Status: status, Body: string(retrieveErr.Body), Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &reports.RemoteQueryError{Service: service, Timeout: true, Err: err}
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusUnauthorized {
			return &reports.AuthExpiredError{Err: err}
		}
		body := apiErr.Body
		if body == "" {
			body = apiErr.Message
		}
		return &reports.RemoteQueryError{Service: service, Status: apiErr.Code, Body: body, Err: err}
	}

	return &reports.RemoteQueryError{Service: service, Err: err}
}

func isAuthFailure(err *oauth2.RetrieveError) bool {
	switch err.ErrorCode {
	case "invalid_grant", "invalid_client", "unauthorized_client":
		return true
	}
	if err.Response != nil {
		return err.Response.StatusCode == http.StatusBadRequest || err.Response.StatusCode == http.StatusUnauthorized
	}
	return false
}

// EncodeFilters renders filters in the API's "key==value;key==value" form,
// sorted by key.
func EncodeFilters(filters map[string]string) string {
	if len(filters) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "==" + filters[k]
	}
	return strings.Join(parts, ";")
}
