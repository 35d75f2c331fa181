// Package worker runs queued chat commands and delivers their replies.
package worker

import (
	"time"

	"github.com/okian/herobot/pkg/logger"
)

// Option applies a configuration option to a worker or pool.
type Option func(*settings)

type settings struct {
	name           string
	logger         logger.Logger
	commandTimeout time.Duration
}

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCommandTimeout bounds how long one command may run, reply included.
func WithCommandTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.commandTimeout = d
		}
	}
}
