package reports

import (
	"errors"
	"fmt"

	"channel-insights/internal/models"

	"github.com/google/uuid"
)

// DateParseError reports a malformed or out-of-range date token. The message
// is safe to show to the user as-is.
type DateParseError struct {
	Input  string
	Reason string
}

func (e *DateParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("invalid date: %s", e.Reason)
	}
	return fmt.Sprintf("invalid date %q: %s", e.Input, e.Reason)
}

// AuthExpiredError means the OAuth credential was revoked or expired. It is
// never retried; the user must re-authorize or refresh the token.
type AuthExpiredError struct {
	Err error
}

func (e *AuthExpiredError) Error() string {
	if e.Err == nil {
		return "credentials expired or revoked"
	}
	return fmt.Sprintf("credentials expired or revoked: %v", e.Err)
}

func (e *AuthExpiredError) Unwrap() error { return e.Err }

// RemoteQueryError is any other failed call to the analytics or catalog service.
// Timeouts use Status 0 with Timeout set.
type RemoteQueryError struct {
	Service string
	Status  int
	Body    string
	Timeout bool
	Err     error
}

func (e *RemoteQueryError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s request timed out", e.Service)
	}
	if e.Status == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Service, e.Status, e.Body)
}

func (e *RemoteQueryError) Unwrap() error { return e.Err }

// EmptyResultError means the metrics call returned no rows for the range.
type EmptyResultError struct {
	ReportID string
	Range    models.DateRange
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no data for %s in %s", e.ReportID, e.Range)
}

// InternalError wraps an unexpected fault with an id that also appears in the logs.
type InternalError struct {
	ID  string
	Err error
}

func NewInternalError(err error) *InternalError {
	return &InternalError{ID: uuid.NewString(), Err: err}
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error [%s]: %v", e.ID, e.Err)
}

func (e *InternalError) Unwrap() error { return e.Err }

// ErrMalformedResponse marks a result whose rows do not match the declared query shape.
var ErrMalformedResponse = errors.New("malformed analytics response")

// ErrUnknownReport is returned when a report name or alias is not registered.
var ErrUnknownReport = errors.New("unknown report")

// UserMessage renders err as the text a chat user should see.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		dateErr     *DateParseError
		authErr     *AuthExpiredError
		remoteErr   *RemoteQueryError
		emptyErr    *EmptyResultError
		internalErr *InternalError
	)
	switch {
	case errors.As(err, &dateErr):
		return dateErr.Error() + ". Use mm/dd, mm/dd/yy or mm/dd/yyyy."
	case errors.As(err, &authErr):
		return "The credentials have been revoked or expired. Refresh the token or re-run authorization."
	case errors.As(err, &remoteErr):
		if remoteErr.Timeout {
			return fmt.Sprintf("The %s service did not answer in time. Try again later.", remoteErr.Service)
		}
		return fmt.Sprintf("The %s service returned an error (status %d).", remoteErr.Service, remoteErr.Status)
	case errors.As(err, &emptyErr):
		return fmt.Sprintf("No data for the requested range (%s - %s).",
			emptyErr.Range.StartDate(), emptyErr.Range.EndDate())
	case errors.Is(err, ErrUnknownReport):
		return err.Error()
	case errors.As(err, &internalErr):
		return fmt.Sprintf("Something went wrong (reference %s).", internalErr.ID)
	}
	return "Something went wrong."
}

// IsBenign reports whether err is an expected, non-failure outcome.
func IsBenign(err error) bool {
	var emptyErr *EmptyResultError
	return errors.As(err, &emptyErr)
}
