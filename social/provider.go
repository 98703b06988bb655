// Package social defines the provider contract for federated sign-in.
// The client completes the OAuth dance on its side and hands the backend
// an access token; a Provider turns that token into a normalized profile.
package social

import "context"

// Provider resolves an access token into the profile of the account that
// authorized it.
type Provider interface {
	// Name returns the provider identifier (e.g., "google").
	Name() string

	// UserInfo fetches the user's profile using the access token.
	UserInfo(ctx context.Context, accessToken string) (*Profile, error)
}

// Profile represents normalized user information from a provider.
type Profile struct {
	ProviderUserID string
	Provider       string
	Email          string
	EmailVerified  bool
	Name           string
	FirstName      string
	LastName       string
	AvatarURL      string
	Raw            map[string]any
}
