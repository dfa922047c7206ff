package types

import (
	"errors"
	"fmt"
	"time"
)

// Fault codes. Faults are internal: they are contained at handler
// boundaries and never shown to the user as codes.
const (
	FaultCodeInvalidRoute        = "INVALID_ROUTE"
	FaultCodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	FaultCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
)

// Fault is a classified internal failure.
type Fault struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Err       error     `json:"-"`
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("[%s] %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// NewInvalidRouteError reports a router label outside the closed set.
func NewInvalidRouteError(label string) *Fault {
	return &Fault{
		Code:      FaultCodeInvalidRoute,
		Message:   fmt.Sprintf("route label %q is not in the closed set", label),
		Timestamp: time.Now(),
	}
}

// NewUpstreamTimeout reports a timed-out upstream call for one source.
func NewUpstreamTimeout(source string, err error) *Fault {
	return &Fault{
		Code:      FaultCodeUpstreamTimeout,
		Message:   "upstream call timed out",
		Source:    source,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// NewUpstreamUnavailable reports a failed upstream fetch for one source.
func NewUpstreamUnavailable(source string, err error) *Fault {
	return &Fault{
		Code:      FaultCodeUpstreamUnavailable,
		Message:   "upstream source unavailable",
		Source:    source,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// FaultCode extracts the fault code from err, or "" when err carries none.
func FaultCode(err error) string {
	var f *Fault
	if errors.As(err, &f) {
		return f.Code
	}
	return ""
}
