package polling

import (
	"errors"
	"fmt"
)

var ErrModeMismatch = errors.New("invocation mode does not match operation")

var ErrLeaseHeld = errors.New("another invocation holds the trigger lease")

// FetchError marks a connector failure. The watermark is left untouched so
// the next invocation retries the same window.
type FetchError struct {
	Err error
}

func (e FetchError) Error() string {
	return fmt.Sprintf("fetch failed: %v", e.Err)
}

func (e FetchError) Unwrap() error {
	return e.Err
}
