package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

type options struct {
	Cron       *cron.Cron
	Location   *time.Location
	JobTimeout time.Duration
}

// Option applies configuration to the scheduler.
type Option func(*options)

func defaultOptions() options {
	return options{Location: time.Local}
}

// WithCron supplies a preconfigured cron scheduler instance.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithLocation sets the scheduler timezone location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.Location = loc
		}
	}
}

// WithJobTimeout bounds each job execution. Zero means no timeout.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) {
		o.JobTimeout = d
	}
}
