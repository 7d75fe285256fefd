package nemweb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	// ErrUpstream marks any failure to talk to NEMweb.
	ErrUpstream = errors.New("upstream request failed")

	// ErrTimeout marks an outbound request that ran past its deadline.
	ErrTimeout = errors.New("upstream request timed out")

	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrArchiveTooLarge       = errors.New("archive exceeds size limit")
	ErrEmptyArchive          = errors.New("archive has no entries")
	ErrMalformedArchive      = errors.New("malformed archive")
)

// StatusError is returned when NEMweb answers with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// Is reports StatusError as an ErrUpstream.
func (e *StatusError) Is(target error) bool {
	return target == ErrUpstream
}

// transportError wraps an error from sending a request or reading its body.
func transportError(url string, err error) error {
	if isTimeout(err) {
		return fmt.Errorf("GET %s: %w: %w", url, ErrTimeout, err)
	}
	return fmt.Errorf("GET %s: %w: %w", url, ErrUpstream, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
