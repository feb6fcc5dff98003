package poller

import (
	stderrors "errors"
	"time"

	"github.com/felixgeelhaar/taleyport/internal/errors"
)

// DefaultInterval is the wait between the end of one status request and the
// start of the next.
const DefaultInterval = 10 * time.Second

// Policy controls poll timing. The zero value is not useful; start from
// DefaultPolicy.
type Policy struct {
	// Interval between polls, measured from completion of the previous request.
	Interval time.Duration

	// MaxAttempts caps the number of requests. 0 means unlimited.
	MaxAttempts int

	// BackoffMultiplier grows the interval after each failed poll.
	// 1.0 keeps the interval fixed. The interval resets after a success.
	BackoffMultiplier float64

	// MaxInterval caps backoff growth. 0 means no cap.
	MaxInterval time.Duration
}

// DefaultPolicy polls every 10 seconds until every task is terminal.
func DefaultPolicy() Policy {
	return Policy{
		Interval:          DefaultInterval,
		BackoffMultiplier: 1.0,
	}
}

// Validate reports policy values that would break the loop.
func (p Policy) Validate() error {
	if p.Interval <= 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "poll interval must be positive")
	}
	if p.MaxAttempts < 0 {
		return errors.New(errors.ErrCodeConfigInvalid, "max attempts must not be negative")
	}
	if p.BackoffMultiplier < 1.0 {
		return errors.New(errors.ErrCodeConfigInvalid, "backoff multiplier must be at least 1.0")
	}
	if p.MaxInterval != 0 && p.MaxInterval < p.Interval {
		return errors.New(errors.ErrCodeConfigInvalid, "max interval must not be shorter than the poll interval")
	}
	return nil
}

// statusError is implemented by backend response errors.
type statusError interface {
	HTTPStatus() int
	Temporary() bool
}

// backsOff reports whether err warrants a longer wait. Transport failures
// and temporary backend responses (429, 5xx) do; other rejections do not,
// since waiting longer will not change them.
func backsOff(err error) bool {
	if err == nil {
		return false
	}
	var se statusError
	if stderrors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// next returns the wait before the following poll given the last poll's
// error.
func (p Policy) next(current time.Duration, err error) time.Duration {
	if !backsOff(err) || p.BackoffMultiplier <= 1.0 {
		return p.Interval
	}
	if current < p.Interval {
		current = p.Interval
	}
	d := time.Duration(float64(current) * p.BackoffMultiplier)
	if p.MaxInterval > 0 && d > p.MaxInterval {
		d = p.MaxInterval
	}
	return d
}
