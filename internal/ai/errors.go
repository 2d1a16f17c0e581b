package ai

import (
	"errors"
	"fmt"
)

var (
	ErrMissingAPIKey = errors.New("OpenAI API key not found")
	ErrLoopExceeded  = errors.New("agent exceeded the maximum number of model calls")
	ErrEmptyQuery    = errors.New("query must not be empty")
)

// GatewayError reports a failed model round trip. The loop does not retry it.
type GatewayError struct {
	Iteration int
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("model gateway failed on call %d: %v", e.Iteration, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
