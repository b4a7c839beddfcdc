package exchange

import (
	"errors"
	"fmt"
	"net"
)

// TransientError marks a failure worth retrying: timeouts, connection
// resets, rate limits, 5xx responses.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("exchange: %s: %v (transient)", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// RejectedError is the venue refusing an order outright: bad parameters,
// insufficient funds, closed market. Never retried.
type RejectedError struct {
	Op     string
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("exchange: %s rejected: %s", e.Op, e.Reason)
}

// IsTransient classifies an error for the executor's retry loop. Network
// errors that escaped classification count as transient.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	var re *RejectedError
	if errors.As(err, &re) {
		return false
	}
	var ne net.Error
	return errors.As(err, &ne)
}
