package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalid marks user-input validation failures. Invalid actions are never
// submitted; the UI surfaces the wrapped reason as a blocking prompt.
var ErrInvalid = errors.New("invalid action input")

// Action is one mutating request against the inventory service. Actions are
// validated before submission and serialized as the POST body.
type Action interface {
	ActionName() string
	Route() string
	Validate() error
	Body() ([]byte, error)
}

// DefaultBody provides the common JSON serialization for action payloads.
func DefaultBody(a interface{}) ([]byte, error) {
	return json.Marshal(a)
}

func requireField(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, name)
	}
	return nil
}
