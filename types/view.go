package types

// View identifies the screen the session currently dictates.
type View string

const (
	ViewWelcome    View = "welcome"
	ViewHome       View = "home"
	ViewScanning   View = "scanning"
	ViewConfirming View = "confirming"
	ViewCardEntry  View = "card-entry"
	ViewSuccess    View = "success"
	ViewRates      View = "rates"
	ViewTopUp      View = "top-up"
)

// Known reports whether v is one of the defined views.
func (v View) Known() bool {
	switch v {
	case ViewWelcome, ViewHome, ViewScanning, ViewConfirming,
		ViewCardEntry, ViewSuccess, ViewRates, ViewTopUp:
		return true
	}
	return false
}

// RequiresMerchant reports whether a merchant snapshot must be present
// while v is showing. Everywhere else the snapshot must be absent.
func (v View) RequiresMerchant() bool {
	return v == ViewConfirming || v == ViewCardEntry || v == ViewSuccess
}

// Navigable reports whether v is a valid target for direct navigation.
// The transactional views (confirming, card-entry, success) are only ever
// entered through payment transitions.
func (v View) Navigable() bool {
	switch v {
	case ViewWelcome, ViewHome, ViewRates, ViewTopUp, ViewScanning:
		return true
	}
	return false
}

func (v View) String() string {
	return string(v)
}
