// Package oracle defines the merchant intelligence contract: given a raw
// payment-code string it resolves merchant details, and given a merchant
// category it produces a short advisory tip. Analysis failure is recovered
// by the session engine with a fixed fallback record; tip failure is
// swallowed entirely.
package oracle

import (
	"context"

	"github.com/touristpay/bridge/types"
)

// DefaultTip is the fixed advisory string substituted when the tip lookup
// cannot be served.
const DefaultTip = "Check for seasonal discounts when using GrabPay at local hawker centers!"

// Oracle is the merchant intelligence contract. Analyze must never be
// retried automatically and must never block the caller's transition into
// the confirmation view; the engine calls it from its own goroutine.
type Oracle interface {
	// Analyze extracts merchant details from a raw payment-code string.
	// Any transport, parse or validation problem is returned as an error;
	// the caller substitutes the fixed fallback record.
	Analyze(ctx context.Context, rawCode string) (*types.MerchantAnalysis, error)

	// Tip returns a one-sentence advisory for paying at a merchant of the
	// given category. Best effort only.
	Tip(ctx context.Context, category string) (string, error)
}
