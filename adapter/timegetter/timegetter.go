// Package timegetter contains the default [domain.TimeGetter] implementation.
package timegetter

import (
	"time"

	"github.com/dadi/api-filestore/domain"
)

// TimeGetter implements [domain.TimeGetter]. Times are in UTC and truncated to
// milliseconds, the precision of the persisted document metadata.
type TimeGetter struct {
	now func() time.Time
}

// NewTimeGetter returns a new implementation of domain.TimeGetter.
func NewTimeGetter(opts ...Option) domain.TimeGetter {
	t := TimeGetter{now: time.Now}
	for _, opt := range opts {
		opt(&t)
	}
	return &t
}

// GetTime implements [domain.TimeGetter].
func (t *TimeGetter) GetTime() time.Time {
	return t.now().UTC().Truncate(time.Millisecond)
}

// WithClock sets the function used to read the current time.
func WithClock(now func() time.Time) Option {
	return func(t *TimeGetter) {
		if now != nil {
			t.now = now
		}
	}
}

// Option configures behavior through the functional options pattern.
type Option func(*TimeGetter)
