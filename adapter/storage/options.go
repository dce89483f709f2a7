package storage

import "time"

// WithLockTimeout sets how long Lock keeps retrying while another owner holds
// the datafile. Zero means a single attempt.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Storage) {
		s.lockTimeout = d
	}
}

// WithLockRetryDelay sets the delay between two lock attempts.
func WithLockRetryDelay(d time.Duration) Option {
	return func(s *Storage) {
		if d > 0 {
			s.lockRetry = d
		}
	}
}

// Option configures storage behavior through the functional options pattern.
type Option func(*Storage)
