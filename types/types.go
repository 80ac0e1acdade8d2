// Package types defines the shared data model for the TouristPay bridge:
// funding sources, merchant snapshots, session state and configuration.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingClass classifies a funding source.
type FundingClass string

const (
	FundingCard   FundingClass = "card"
	FundingWallet FundingClass = "wallet"
)

// FundingSource is one entry of the fixed funding catalog. Sources are
// loaded once at startup and never created or destroyed at runtime.
type FundingSource struct {
	ID          string       `json:"id"`
	DisplayName string       `json:"displayName"`
	IconURL     string       `json:"iconUrl,omitempty"`
	Class       FundingClass `json:"class"`
	Category    string       `json:"category"`
}

// MerchantSnapshot is the merchant record attached to a payment attempt.
// It is created with placeholder values the moment a code is acquired,
// replaced exactly once when merchant analysis resolves, and then stays
// immutable for the rest of the session.
type MerchantSnapshot struct {
	DisplayName    string          `json:"displayName"`
	RegistrationID string          `json:"registrationId"`
	Amount         decimal.Decimal `json:"amount"`
	CurrencyCode   string          `json:"currencyCode"`
	Trusted        bool            `json:"trusted"`
}

// Placeholder and fallback merchant values. The fallback record is what a
// session settles on when merchant analysis fails; it must stay byte-stable
// because shells key UI affordances off it.
const (
	PlaceholderMerchantName = "Detecting Merchant..."
	FallbackMerchantName    = "Local Hawker Centre"
	FallbackRegistrationID  = "T12345678G"
)

// DefaultAmount is charged when analysis succeeds without a suggested amount,
// and is also the fallback record's amount.
var DefaultAmount = decimal.New(10, 0)

// TrustThreshold is the analysis trust score a merchant must exceed
// (strictly) to be shown as trusted.
const TrustThreshold = 80

// PlaceholderMerchant returns the snapshot installed synchronously when a
// payment code is acquired, before analysis resolves.
func PlaceholderMerchant(currency string) *MerchantSnapshot {
	return &MerchantSnapshot{
		DisplayName:    PlaceholderMerchantName,
		RegistrationID: "----",
		Amount:         decimal.Zero,
		CurrencyCode:   currency,
		Trusted:        false,
	}
}

// FallbackMerchant returns the fixed record used when merchant analysis
// fails.
func FallbackMerchant(currency string) *MerchantSnapshot {
	return &MerchantSnapshot{
		DisplayName:    FallbackMerchantName,
		RegistrationID: FallbackRegistrationID,
		Amount:         DefaultAmount,
		CurrencyCode:   currency,
		Trusted:        true,
	}
}

// MerchantAnalysis is the merchant intelligence oracle's success payload.
type MerchantAnalysis struct {
	DisplayName     string           `json:"name" validate:"required"`
	RegistrationID  string           `json:"uen" validate:"required"`
	SuggestedAmount *decimal.Decimal `json:"suggestedAmount,omitempty"`
	Category        string           `json:"category" validate:"required"`
	TrustScore      int              `json:"trustScore" validate:"min=1,max=100"`
}

// UserIdentity is the opaque result of the login capability.
type UserIdentity struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Guest bool   `json:"guest"`
}

// Receipt summarises a completed settlement for the success view.
type Receipt struct {
	Reference       string          `json:"reference"`
	AuthCode        string          `json:"authCode,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	CurrencyCode    string          `json:"currencyCode"`
	Merchant        string          `json:"merchant"`
	PaidFromBalance bool            `json:"paidFromBalance"`
}

// SessionState is the full state of the single in-progress payment session.
// It is the unit handed to the presentation shell after every transition;
// shells render it and never mutate it.
type SessionState struct {
	ID       string            `json:"id"`
	View     View              `json:"view"`
	User     *UserIdentity     `json:"user,omitempty"`
	Funding  FundingSource     `json:"funding"`
	Merchant *MerchantSnapshot `json:"merchant,omitempty"`
	Balance  decimal.Decimal   `json:"balance"`
	Busy     bool              `json:"busy"`
	Tip      string            `json:"tip,omitempty"`
	Receipt  *Receipt          `json:"receipt,omitempty"`
}

// Config holds global configuration for the bridge.
type Config struct {
	// Currency is the settlement currency of the local QR network.
	Currency string `json:"currency" validate:"required,len=3"`

	// AnalysisTimeout bounds a single merchant analysis call.
	AnalysisTimeout time.Duration `json:"analysisTimeout" validate:"min=0"`

	// TipTimeout bounds the best-effort advisory tip lookup.
	TipTimeout time.Duration `json:"tipTimeout" validate:"min=0"`

	// Simulated network latencies for the suspending transitions.
	LoginDelay   time.Duration `json:"loginDelay" validate:"min=0"`
	PaymentDelay time.Duration `json:"paymentDelay" validate:"min=0"`
	TopUpDelay   time.Duration `json:"topUpDelay" validate:"min=0"`

	LogLevel      string `json:"logLevel,omitempty"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`
}

// DefaultConfig returns the configuration used by NewWithDefaults. The
// delays stand in for network latency on the suspended transitions.
func DefaultConfig() *Config {
	return &Config{
		Currency:        "SGD",
		AnalysisTimeout: 15 * time.Second,
		TipTimeout:      10 * time.Second,
		LoginDelay:      600 * time.Millisecond,
		PaymentDelay:    800 * time.Millisecond,
		TopUpDelay:      500 * time.Millisecond,
		LogLevel:        "info",
		EnableMetrics:   false,
	}
}

// BridgeError is the error type returned by rejected transitions and
// configuration failures.
type BridgeError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e BridgeError) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrBusy              = "SESSION_BUSY"
	ErrInvalidTransition = "INVALID_TRANSITION"
	ErrUnknownFunding    = "UNKNOWN_FUNDING"
	ErrUnknownView       = "UNKNOWN_VIEW"
	ErrInvalidAmount     = "INVALID_AMOUNT"
	ErrSessionClosed     = "SESSION_CLOSED"
	ErrOracle            = "ORACLE_ERROR"
	ErrConfig            = "CONFIG_ERROR"
)
