// Package funding exposes the fixed catalog of funding sources a traveler
// can bridge from. The catalog is read-only and ordered; the first entry is
// the default selection for a fresh session.
package funding

import "github.com/touristpay/bridge/types"

// defaultSources is the standard TouristPay funding set.
var defaultSources = []types.FundingSource{
	{
		ID:          "visa",
		DisplayName: "Visa",
		IconURL:     "https://upload.wikimedia.org/wikipedia/commons/d/d6/Visa_2021.svg",
		Class:       types.FundingCard,
		Category:    "Credit/Debit",
	},
	{
		ID:          "mc",
		DisplayName: "Mastercard",
		IconURL:     "https://upload.wikimedia.org/wikipedia/commons/2/2a/Mastercard-logo.svg",
		Class:       types.FundingCard,
		Category:    "Credit/Debit",
	},
	{
		ID:          "apple",
		DisplayName: "Apple Pay",
		IconURL:     "https://upload.wikimedia.org/wikipedia/commons/b/b0/Apple_Pay_logo.svg",
		Class:       types.FundingWallet,
		Category:    "Wallets",
	},
	{
		ID:          "google",
		DisplayName: "Google Pay",
		IconURL:     "https://upload.wikimedia.org/wikipedia/commons/f/f2/Google_Pay_Logo.svg",
		Class:       types.FundingWallet,
		Category:    "Wallets",
	},
	{
		ID:          "grab",
		DisplayName: "GrabPay",
		IconURL:     "https://upload.wikimedia.org/wikipedia/commons/4/4e/GrabPay_logo.svg",
		Class:       types.FundingWallet,
		Category:    "Regional",
	},
	{
		ID:          "uber",
		DisplayName: "Uber Wallet",
		IconURL:     "https://upload.wikimedia.org/wikipedia/commons/5/58/Uber_logo_2018.svg",
		Class:       types.FundingWallet,
		Category:    "Regional",
	},
}

// Catalog resolves funding sources by identifier and preserves their order.
type Catalog struct {
	ordered []types.FundingSource
	byID    map[string]types.FundingSource
}

// NewCatalog builds a catalog from the given sources. An empty call is
// invalid; use DefaultCatalog for the standard set.
func NewCatalog(sources []types.FundingSource) *Catalog {
	c := &Catalog{
		ordered: make([]types.FundingSource, len(sources)),
		byID:    make(map[string]types.FundingSource, len(sources)),
	}
	copy(c.ordered, sources)
	for _, s := range sources {
		c.byID[s.ID] = s
	}
	return c
}

// DefaultCatalog returns the standard TouristPay funding catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog(defaultSources)
}

// Sources returns the catalog in display order. The returned slice is a
// copy; callers cannot mutate the catalog through it.
func (c *Catalog) Sources() []types.FundingSource {
	out := make([]types.FundingSource, len(c.ordered))
	copy(out, c.ordered)
	return out
}

// Lookup resolves a funding source by id. ok is false for unknown ids;
// callers treat a miss as a no-op.
func (c *Catalog) Lookup(id string) (types.FundingSource, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Default returns the first catalog entry, the initial selection of every
// session.
func (c *Catalog) Default() types.FundingSource {
	return c.ordered[0]
}

// Len returns the number of sources in the catalog.
func (c *Catalog) Len() int {
	return len(c.ordered)
}
