// Package session implements the payment session state machine. The Engine
// owns the single mutable session record; every mutation goes through one
// of its transition methods, each total: undefined combinations reject with
// a BridgeError and leave the state untouched.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/touristpay/bridge/auth"
	"github.com/touristpay/bridge/cardnetwork"
	"github.com/touristpay/bridge/funding"
	"github.com/touristpay/bridge/logger"
	"github.com/touristpay/bridge/metrics"
	"github.com/touristpay/bridge/oracle"
	"github.com/touristpay/bridge/types"
)

// updateBuffer bounds the Updates channel; a shell that stops draining
// loses snapshots rather than wedging the engine.
const updateBuffer = 64

// Options carries the engine's collaborators. Nil fields get defaults.
type Options struct {
	Catalog   *funding.Catalog
	Oracle    oracle.Oracle
	Auth      auth.Provider
	Cards     *cardnetwork.Authorizer
	Scheduler Scheduler
	Logger    logger.Logger
	Metrics   metrics.Recorder
}

// Engine drives a single payment session. All transition methods are safe
// for concurrent use; the busy flag serialises transaction-initiating
// transitions so a settlement, top-up or enrichment can never interleave
// with another.
type Engine struct {
	mu sync.Mutex

	cfg     types.Config
	catalog *funding.Catalog
	oracle  oracle.Oracle
	auth    auth.Provider
	cards   *cardnetwork.Authorizer
	sched   Scheduler
	log     logger.Logger
	rec     metrics.Recorder

	st      types.SessionState
	gen     uint64 // payment attempt generation; guards late enrichment
	settled bool   // debit landed for the current generation
	closed  bool
	updates chan types.SessionState
}

// NewEngine creates an engine in the welcome view with a zero balance and
// the catalog's first source selected.
func NewEngine(cfg *types.Config, opts Options) *Engine {
	if cfg == nil {
		cfg = types.DefaultConfig()
	}
	if opts.Catalog == nil {
		opts.Catalog = funding.DefaultCatalog()
	}
	if opts.Oracle == nil {
		opts.Oracle = &oracle.StaticOracle{}
	}
	if opts.Auth == nil {
		opts.Auth = auth.SimulatedProvider{}
	}
	if opts.Cards == nil {
		opts.Cards = cardnetwork.NewAuthorizer()
	}
	if opts.Scheduler == nil {
		opts.Scheduler = TimerScheduler{}
	}
	if opts.Logger == nil {
		opts.Logger = logger.NoopLogger{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoopRecorder{}
	}

	return &Engine{
		cfg:     *cfg,
		catalog: opts.Catalog,
		oracle:  opts.Oracle,
		auth:    opts.Auth,
		cards:   opts.Cards,
		sched:   opts.Scheduler,
		log:     opts.Logger,
		rec:     opts.Metrics,
		st: types.SessionState{
			ID:      uuid.NewString(),
			View:    types.ViewWelcome,
			Funding: opts.Catalog.Default(),
			Balance: decimal.Zero,
		},
		updates: make(chan types.SessionState, updateBuffer),
	}
}

// State returns a snapshot of the current session state.
func (e *Engine) State() types.SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Updates delivers a snapshot after every applied transition, in order.
// The channel is closed by Close. Slow consumers drop snapshots instead of
// blocking transitions; State always has the latest truth.
func (e *Engine) Updates() <-chan types.SessionState {
	return e.updates
}

// Close tears the session down. Pending enrichment results and scheduled
// completions are discarded; the updates channel is closed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	e.gen++
	close(e.updates)
}

// Login begins the login flow for a provider. Valid only in the welcome
// view; the identity lands after the configured login delay.
func (e *Engine) Login(ctx context.Context, provider string) (types.SessionState, error) {
	e.mu.Lock()
	if err := e.gateLocked(types.ViewWelcome); err != nil {
		snap := e.rejectLocked("login", err)
		e.mu.Unlock()
		return snap, err
	}

	e.st.Busy = true
	snap := e.applyLocked("login")
	e.mu.Unlock()

	e.sched.After(e.cfg.LoginDelay, func() {
		e.completeLogin(provider)
	})
	return snap, nil
}

func (e *Engine) completeLogin(provider string) {
	identity, err := e.auth.Login(context.Background(), provider)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.st.Busy = false
	if err != nil {
		e.log.Warn("login failed", map[string]any{"provider": provider, "err": err.Error()})
		e.applyLocked("login_failed")
		return
	}
	e.st.User = identity
	e.st.View = types.ViewHome
	e.applyLocked("login_settled")
}

// ContinueAsGuest enters the home view without an account. Valid only in
// the welcome view.
func (e *Engine) ContinueAsGuest() (types.SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gateLocked(types.ViewWelcome); err != nil {
		return e.rejectLocked("guest_entry", err), err
	}

	e.st.User = auth.GuestIdentity()
	e.st.View = types.ViewHome
	return e.applyLocked("guest_entry"), nil
}

// CodeAcquired handles a scanned payment code. The transition into the
// confirming view is synchronous: the placeholder merchant is visible to
// the shell before merchant analysis is even dispatched. Enrichment runs
// in the background and replaces the snapshot exactly once; its failure is
// absorbed by the fixed fallback record.
func (e *Engine) CodeAcquired(ctx context.Context, rawCode string) (types.SessionState, error) {
	e.mu.Lock()
	if err := e.gateLocked(types.ViewScanning); err != nil {
		snap := e.rejectLocked("code_acquired", err)
		e.mu.Unlock()
		return snap, err
	}

	e.gen++
	gen := e.gen
	e.settled = false
	e.st.Merchant = types.PlaceholderMerchant(e.cfg.Currency)
	e.st.Tip = ""
	e.st.Receipt = nil
	e.st.View = types.ViewConfirming
	e.st.Busy = true
	snap := e.applyLocked("code_acquired")
	e.mu.Unlock()

	go e.enrich(gen, rawCode)
	return snap, nil
}

// enrich runs the oracle call for one acquisition generation. It uses a
// background context: the triggering request may be long gone while the
// enrichment is still in flight, and teardown is handled by the generation
// guard, not by cancellation.
func (e *Engine) enrich(gen uint64, rawCode string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.AnalysisTimeout)
	defer cancel()

	start := time.Now()
	analysis, err := e.oracle.Analyze(ctx, rawCode)
	e.rec.ObserveLatency("analysis", time.Since(start), map[string]string{"view": types.ViewConfirming.String()})

	var snap *types.MerchantSnapshot
	var category string
	if err != nil || analysis == nil {
		e.log.Warn("merchant analysis failed, using fallback", map[string]any{"err": errString(err)})
		snap = types.FallbackMerchant(e.cfg.Currency)
	} else {
		amount := types.DefaultAmount
		if analysis.SuggestedAmount != nil && analysis.SuggestedAmount.IsPositive() {
			amount = *analysis.SuggestedAmount
		}
		snap = &types.MerchantSnapshot{
			DisplayName:    analysis.DisplayName,
			RegistrationID: analysis.RegistrationID,
			Amount:         amount,
			CurrencyCode:   e.cfg.Currency,
			Trusted:        analysis.TrustScore > types.TrustThreshold,
		}
		category = analysis.Category
	}

	if !e.applyAnalysis(gen, snap) {
		return
	}
	if category != "" {
		go e.lookupTip(gen, category)
	}
}

func (e *Engine) applyAnalysis(gen uint64, snap *types.MerchantSnapshot) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.gen || e.st.Merchant == nil {
		e.log.Debug("discarding stale analysis", map[string]any{"gen": gen})
		return false
	}
	e.st.Merchant = snap
	e.st.Busy = false
	e.applyLocked("analysis_applied")
	return true
}

// lookupTip is fire-and-forget: failure never touches the session, a late
// result for an abandoned attempt is discarded by the generation guard.
func (e *Engine) lookupTip(gen uint64, category string) {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.TipTimeout)
	defer cancel()

	tip, err := e.oracle.Tip(ctx, category)
	if err != nil || tip == "" {
		e.log.Debug("tip lookup failed", map[string]any{"category": category, "err": errString(err)})
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.gen {
		return
	}
	e.st.Tip = tip
	e.applyLocked("tip_applied")
}

// Confirm acts on the confirmation view. When the wallet balance covers
// the amount the session settles from balance; otherwise a card funding
// source detours through card entry, and any other source settles
// directly.
func (e *Engine) Confirm(ctx context.Context) (types.SessionState, error) {
	e.mu.Lock()
	if err := e.gateLocked(types.ViewConfirming); err != nil {
		snap := e.rejectLocked("confirm", err)
		e.mu.Unlock()
		return snap, err
	}

	if e.st.Balance.GreaterThanOrEqual(e.st.Merchant.Amount) {
		return e.beginSettlementLocked("confirm")
	}
	if e.st.Funding.Class == types.FundingCard {
		e.st.View = types.ViewCardEntry
		snap := e.applyLocked("confirm")
		e.mu.Unlock()
		return snap, nil
	}
	return e.beginSettlementLocked("confirm")
}

// SubmitCard completes the card entry view. Card field values are a
// presentation concern; only the act of submission matters here.
func (e *Engine) SubmitCard(ctx context.Context) (types.SessionState, error) {
	e.mu.Lock()
	if err := e.gateLocked(types.ViewCardEntry); err != nil {
		snap := e.rejectLocked("submit_card", err)
		e.mu.Unlock()
		return snap, err
	}
	return e.beginSettlementLocked("submit_card")
}

// beginSettlementLocked marks the session busy and schedules the
// settlement completion. Unlocks e.mu before scheduling so an immediate
// scheduler can complete inline.
func (e *Engine) beginSettlementLocked(event string) (types.SessionState, error) {
	e.st.Busy = true
	gen := e.gen
	merchant := *e.st.Merchant
	src := e.st.Funding
	useCard := e.st.Balance.LessThan(merchant.Amount) && src.Class == types.FundingCard

	snap := e.applyLocked(event)
	e.mu.Unlock()

	start := time.Now()
	e.sched.After(e.cfg.PaymentDelay, func() {
		e.completeSettlement(gen, merchant, src, useCard, start)
	})
	return snap, nil
}

func (e *Engine) completeSettlement(gen uint64, merchant types.MerchantSnapshot, src types.FundingSource, useCard bool, start time.Time) {
	var authz *cardnetwork.Authorization
	if useCard {
		var err error
		authz, err = e.cards.Authorize(context.Background(), &merchant, merchant.Amount, src)
		if err != nil {
			// Simulated bridge: the card leg still succeeds, just without
			// an auth code on the receipt.
			e.log.Warn("card authorization simulation failed", map[string]any{"err": err.Error()})
			authz = nil
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || gen != e.gen {
		return
	}

	paidFromBalance := false
	if !e.settled && e.st.Balance.GreaterThanOrEqual(merchant.Amount) {
		e.st.Balance = e.st.Balance.Sub(merchant.Amount)
		paidFromBalance = true
	}
	e.settled = true

	receipt := &types.Receipt{
		Reference:       uuid.NewString(),
		Amount:          merchant.Amount,
		CurrencyCode:    merchant.CurrencyCode,
		Merchant:        merchant.DisplayName,
		PaidFromBalance: paidFromBalance,
	}
	if authz != nil {
		receipt.Reference = authz.RRN
		receipt.AuthCode = authz.AuthCode
	}

	e.st.Receipt = receipt
	e.st.View = types.ViewSuccess
	e.st.Busy = false
	e.applyLocked("settled")
	e.rec.ObserveLatency("settlement", time.Since(start), map[string]string{"view": types.ViewSuccess.String()})
}

// TopUp adds funds to the wallet balance. Valid only in the top-up view
// with a positive amount; the credit lands after the configured delay.
func (e *Engine) TopUp(ctx context.Context, amount decimal.Decimal) (types.SessionState, error) {
	e.mu.Lock()
	if err := e.gateLocked(types.ViewTopUp); err != nil {
		snap := e.rejectLocked("top_up", err)
		e.mu.Unlock()
		return snap, err
	}
	if !amount.IsPositive() {
		err := &types.BridgeError{Code: types.ErrInvalidAmount, Message: "top-up amount must be positive"}
		snap := e.rejectLocked("top_up", err)
		e.mu.Unlock()
		return snap, err
	}

	e.st.Busy = true
	snap := e.applyLocked("top_up")
	e.mu.Unlock()

	e.sched.After(e.cfg.TopUpDelay, func() {
		e.completeTopUp(amount)
	})
	return snap, nil
}

func (e *Engine) completeTopUp(amount decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.st.Balance = e.st.Balance.Add(amount)
	e.st.View = types.ViewHome
	e.st.Busy = false
	e.applyLocked("top_up_settled")
}

// SelectFunding switches the selected funding source. Valid in any view
// when the session is not busy; unknown ids keep the prior selection.
func (e *Engine) SelectFunding(id string) (types.SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gateLocked(""); err != nil {
		return e.rejectLocked("select_funding", err), err
	}

	src, ok := e.catalog.Lookup(id)
	if !ok {
		err := &types.BridgeError{Code: types.ErrUnknownFunding, Message: "unknown funding source: " + id}
		return e.rejectLocked("select_funding", err), err
	}

	e.st.Funding = src
	return e.applyLocked("select_funding"), nil
}

// Navigate moves directly between the non-transactional views. Scanning is
// only reachable from home; leaving a merchant-bearing view abandons the
// current payment attempt and clears its state.
func (e *Engine) Navigate(target types.View) (types.SessionState, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.gateLocked(""); err != nil {
		return e.rejectLocked("navigate", err), err
	}

	if !target.Known() {
		err := &types.BridgeError{Code: types.ErrUnknownView, Message: "unknown view: " + target.String()}
		return e.rejectLocked("navigate", err), err
	}
	if !target.Navigable() {
		err := &types.BridgeError{Code: types.ErrInvalidTransition, Message: target.String() + " cannot be navigated to directly"}
		return e.rejectLocked("navigate", err), err
	}
	if target == types.ViewScanning && e.st.View != types.ViewHome {
		err := &types.BridgeError{Code: types.ErrInvalidTransition, Message: "scanning is only reachable from home"}
		return e.rejectLocked("navigate", err), err
	}

	if e.st.View.RequiresMerchant() {
		// Abandoning the attempt: pending enrichment for it must never
		// land in a merchant-less view.
		e.gen++
		e.st.Merchant = nil
		e.st.Tip = ""
		e.st.Receipt = nil
	}
	e.st.View = target
	return e.applyLocked("navigate"), nil
}

// gateLocked applies the shared transition preconditions: session open,
// not busy, and (when want is non-empty) the required current view.
func (e *Engine) gateLocked(want types.View) error {
	if e.closed {
		return &types.BridgeError{Code: types.ErrSessionClosed, Message: "session is closed"}
	}
	if e.st.Busy {
		return &types.BridgeError{Code: types.ErrBusy, Message: "session is busy"}
	}
	if want != "" && e.st.View != want {
		return &types.BridgeError{
			Code:    types.ErrInvalidTransition,
			Message: "not valid in view " + e.st.View.String(),
		}
	}
	return nil
}

func (e *Engine) applyLocked(event string) types.SessionState {
	snap := e.snapshotLocked()
	e.publishLocked(snap)
	e.rec.IncCounter(event, map[string]string{"view": snap.View.String()})
	e.log.Info("transition applied", map[string]any{
		"event": event,
		"view":  snap.View.String(),
		"busy":  snap.Busy,
	})
	return snap
}

func (e *Engine) rejectLocked(event string, err error) types.SessionState {
	e.rec.IncCounter(event+"_rejected", map[string]string{"view": e.st.View.String()})
	e.log.Debug("transition rejected", map[string]any{
		"event": event,
		"view":  e.st.View.String(),
		"err":   err.Error(),
	})
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() types.SessionState {
	snap := e.st
	if e.st.User != nil {
		u := *e.st.User
		snap.User = &u
	}
	if e.st.Merchant != nil {
		m := *e.st.Merchant
		snap.Merchant = &m
	}
	if e.st.Receipt != nil {
		r := *e.st.Receipt
		snap.Receipt = &r
	}
	return snap
}

func (e *Engine) publishLocked(snap types.SessionState) {
	if e.closed {
		return
	}
	select {
	case e.updates <- snap:
	default:
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
