package pipeline

import (
	"log"

	"github.com/viant/navigator/policy"
	"github.com/viant/navigator/service/dao/result"
)

// Option configures the executor.
type Option func(e *Executor)

// WithConfig sets executor config.
func WithConfig(config Config) Option {
	return func(e *Executor) {
		e.config = config
	}
}

// WithJournal sets the command result journal.
func WithJournal(journal *result.Service) Option {
	return func(e *Executor) {
		e.journal = journal
	}
}

// WithListener adds a result listener.
func WithListener(listener Listener) Option {
	return func(e *Executor) {
		e.listeners = append(e.listeners, listener)
	}
}

// WithPolicy sets the command policy; a policy in the run context takes precedence.
func WithPolicy(p *policy.Policy) Option {
	return func(e *Executor) {
		e.policy = p
	}
}

// WithLogger sets the run logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}
