// Package auth abstracts the login capability. The bridge core only needs
// an identity back (or a failure); provider mechanics are out of scope.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/touristpay/bridge/types"
)

// Provider exchanges a provider name for a user identity.
type Provider interface {
	Login(ctx context.Context, provider string) (*types.UserIdentity, error)
}

// GuestIdentity is the identity assigned when the user explores without
// logging in.
func GuestIdentity() *types.UserIdentity {
	return &types.UserIdentity{Name: "Guest", Guest: true}
}

// SimulatedProvider returns a fixed traveler identity for any provider.
type SimulatedProvider struct{}

func (SimulatedProvider) Login(_ context.Context, provider string) (*types.UserIdentity, error) {
	if provider == "" {
		return nil, fmt.Errorf("provider is required")
	}
	return &types.UserIdentity{
		Name:  "Alex Traveler",
		Email: fmt.Sprintf("alex@%s.com", strings.ToLower(provider)),
	}, nil
}
