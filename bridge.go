// Package bridge implements a demonstration client for cross-border QR
// payments: a traveler scans a merchant code and settles it from a global
// funding source, with merchant details enriched asynchronously by a
// merchant intelligence oracle. The package exposes the payment session
// state machine; rendering is left to a presentation shell that consumes
// session snapshots.
package bridge

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/touristpay/bridge/auth"
	"github.com/touristpay/bridge/cardnetwork"
	"github.com/touristpay/bridge/funding"
	"github.com/touristpay/bridge/fx"
	"github.com/touristpay/bridge/logger"
	"github.com/touristpay/bridge/metrics"
	"github.com/touristpay/bridge/oracle"
	"github.com/touristpay/bridge/session"
	"github.com/touristpay/bridge/types"
)

var validate = validator.New()

// TopUpPresets are the wallet top-up amounts shells offer, in catalog
// currency.
var TopUpPresets = []decimal.Decimal{
	decimal.New(10, 0),
	decimal.New(20, 0),
	decimal.New(50, 0),
	decimal.New(100, 0),
	decimal.New(200, 0),
	decimal.New(500, 0),
}

// Bridge is the facade over the payment session core: the funding catalog,
// the session engine, the rates table and their collaborators.
type Bridge struct {
	cfg     *types.Config
	catalog *funding.Catalog
	orc     oracle.Oracle
	authp   auth.Provider
	cards   *cardnetwork.Authorizer
	sched   session.Scheduler
	log     logger.Logger
	rec     metrics.Recorder
	rates   *fx.Table

	engine *session.Engine
}

// New creates a Bridge with the given configuration and options.
func New(cfg *types.Config, opts ...Option) (*Bridge, error) {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, &types.BridgeError{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("invalid config: %v", err),
		}
	}

	b := &Bridge{
		cfg:     cfg,
		catalog: funding.DefaultCatalog(),
		authp:   auth.SimulatedProvider{},
		cards:   cardnetwork.NewAuthorizer(),
		sched:   session.TimerScheduler{},
		rates:   fx.DefaultTable(),
	}
	for _, opt := range opts {
		opt(b)
	}

	if b.log == nil {
		b.log = logger.NewZapLogger(cfg.LogLevel)
	}
	if b.rec == nil {
		if cfg.EnableMetrics {
			b.rec = metrics.NewPrometheusRecorder(nil)
		} else {
			b.rec = metrics.NoopRecorder{}
		}
	}
	if b.orc == nil {
		b.orc = &oracle.StaticOracle{}
	}

	b.engine = session.NewEngine(cfg, session.Options{
		Catalog:   b.catalog,
		Oracle:    b.orc,
		Auth:      b.authp,
		Cards:     b.cards,
		Scheduler: b.sched,
		Logger:    b.log,
		Metrics:   b.rec,
	})
	return b, nil
}

// NewWithDefaults creates a Bridge with the default configuration and the
// offline static oracle.
func NewWithDefaults() *Bridge {
	b, err := New(types.DefaultConfig())
	if err != nil {
		// DefaultConfig always validates.
		panic(err)
	}
	return b
}

// State returns the current session snapshot.
func (b *Bridge) State() types.SessionState {
	return b.engine.State()
}

// Updates delivers a session snapshot after every applied transition.
func (b *Bridge) Updates() <-chan types.SessionState {
	return b.engine.Updates()
}

// Login begins the login flow for the named provider.
func (b *Bridge) Login(ctx context.Context, provider string) (types.SessionState, error) {
	return b.engine.Login(ctx, provider)
}

// ContinueAsGuest enters the home view without an account.
func (b *Bridge) ContinueAsGuest() (types.SessionState, error) {
	return b.engine.ContinueAsGuest()
}

// CodeAcquired feeds a scanned payment code into the session.
func (b *Bridge) CodeAcquired(ctx context.Context, rawCode string) (types.SessionState, error) {
	return b.engine.CodeAcquired(ctx, rawCode)
}

// Confirm acts on the confirmation view.
func (b *Bridge) Confirm(ctx context.Context) (types.SessionState, error) {
	return b.engine.Confirm(ctx)
}

// SubmitCard completes the card entry view.
func (b *Bridge) SubmitCard(ctx context.Context) (types.SessionState, error) {
	return b.engine.SubmitCard(ctx)
}

// TopUp adds funds to the wallet balance.
func (b *Bridge) TopUp(ctx context.Context, amount decimal.Decimal) (types.SessionState, error) {
	return b.engine.TopUp(ctx, amount)
}

// SelectFunding switches the selected funding source.
func (b *Bridge) SelectFunding(id string) (types.SessionState, error) {
	return b.engine.SelectFunding(id)
}

// Navigate moves directly between the non-transactional views.
func (b *Bridge) Navigate(target types.View) (types.SessionState, error) {
	return b.engine.Navigate(target)
}

// FundingSources lists the funding catalog in display order.
func (b *Bridge) FundingSources() []types.FundingSource {
	return b.catalog.Sources()
}

// Rates lists the indicative exchange rates backing the rates view.
func (b *Bridge) Rates() []fx.Rate {
	return b.rates.Rates()
}

// Quote converts an amount between currencies at the indicative rate.
func (b *Bridge) Quote(amount decimal.Decimal, base, quote string) (decimal.Decimal, error) {
	return b.rates.Quote(amount, base, quote)
}

// Close tears the session down.
func (b *Bridge) Close() {
	b.engine.Close()
}

// Version information
const Version = "1.0.0"
