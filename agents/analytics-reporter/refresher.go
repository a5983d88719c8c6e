package analyticsreporter

import (
	"context"
	"errors"
	"fmt"

	"channel-insights/shared/scheduler"

	"github.com/rs/zerolog"
)

// NewTokenRefreshTask refreshes the access token every everyMinutes while the
// scheduler runs. A failed refresh is returned to the scheduler for logging.
func NewTokenRefreshTask(tokens TokenRefresher, everyMinutes int, logger zerolog.Logger) scheduler.Task {
	return scheduler.Task{
		Name:     "token-refresh",
		Schedule: fmt.Sprintf("@every %dm", everyMinutes),
		Run: func(ctx context.Context) error {
			res := tokens.Refresh(ctx, "")
			if !res.Success {
				return errors.New(res.Message)
			}
			logger.Debug().Msg(res.Message)
			return nil
		},
	}
}
