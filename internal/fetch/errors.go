package fetch

import (
	"errors"
	"fmt"
)

// ErrCooldown is returned without touching the network while the client is
// paused after a quota rejection.
var ErrCooldown = errors.New("requests paused after quota rejection")

// Reason classifies a failed exchange with the inventory service.
type Reason string

const (
	// ReasonNetwork means the request never produced an HTTP response.
	ReasonNetwork Reason = "network"
	// ReasonHTTP means the service answered with a non-2xx status.
	ReasonHTTP Reason = "http"
	// ReasonDecode means the response body did not match the envelope.
	ReasonDecode Reason = "decode"
	// ReasonService means the envelope itself carried an error field.
	ReasonService Reason = "service"
)

// Error describes one failed exchange. The browser marks the owning node
// errored and renders the message inline; nothing is retried implicitly.
type Error struct {
	Reason    Reason
	URL       string
	Status    int
	RequestID string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("%s error fetching %s: status %d: %v", e.Reason, e.URL, e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s error fetching %s: status %d", e.Reason, e.URL, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("%s error fetching %s: %v", e.Reason, e.URL, e.Err)
	default:
		return fmt.Sprintf("%s error fetching %s", e.Reason, e.URL)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError unwraps err to the fetch error carrying reason and status, when
// there is one in the chain.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
