package reports

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedReport is returned for an unknown report kind
	ErrUnsupportedReport = errors.New("report not supported")

	// ErrInvalidFromDate is returned when the from bound fails to parse
	ErrInvalidFromDate = errors.New("invalid from date")

	// ErrInvalidToDate is returned when the to bound fails to parse
	ErrInvalidToDate = errors.New("invalid to date")

	// ErrInvalidLimit is returned for a fractional numeric limit
	ErrInvalidLimit = errors.New("invalid limit")

	// ErrRPCTimeout is returned when a procedure invocation exceeds its
	// deadline. Distinct from RPCError so callers can tell a slow data
	// service from a failing one.
	ErrRPCTimeout = errors.New("rpc timeout")
)

// RPCError carries a data-service-reported failure message.
type RPCError struct {
	Procedure string
	Message   string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("procedure %s failed: %s", e.Procedure, e.Message)
}
