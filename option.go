package bridge

import (
	"github.com/touristpay/bridge/auth"
	"github.com/touristpay/bridge/funding"
	"github.com/touristpay/bridge/fx"
	"github.com/touristpay/bridge/logger"
	"github.com/touristpay/bridge/metrics"
	"github.com/touristpay/bridge/oracle"
	"github.com/touristpay/bridge/session"
)

type Option func(*Bridge)

func WithLogger(l logger.Logger) Option {
	return func(b *Bridge) {
		b.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(b *Bridge) {
		b.rec = r
	}
}

func WithOracle(o oracle.Oracle) Option {
	return func(b *Bridge) {
		b.orc = o
	}
}

func WithAuthProvider(p auth.Provider) Option {
	return func(b *Bridge) {
		b.authp = p
	}
}

func WithCatalog(c *funding.Catalog) Option {
	return func(b *Bridge) {
		b.catalog = c
	}
}

func WithScheduler(s session.Scheduler) Option {
	return func(b *Bridge) {
		b.sched = s
	}
}

func WithRates(t *fx.Table) Option {
	return func(b *Bridge) {
		b.rates = t
	}
}
