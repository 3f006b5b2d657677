package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

// Identity exchanges an authorization code for a verified principal.
// The http layer depends on this interface so tests can stub the provider.
type Identity interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (Principal, error)
}

// GoogleIdentity implements Identity against Google's OAuth endpoints.
type GoogleIdentity struct {
	cfg *oauth2.Config
}

func NewGoogleIdentity(clientID, clientSecret, redirectURL string) *GoogleIdentity {
	return &GoogleIdentity{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

// AuthCodeURL returns the consent page URL for the given anti-forgery state.
func (g *GoogleIdentity) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for tokens and fetches the
// user's profile from the userinfo endpoint.
func (g *GoogleIdentity) Exchange(ctx context.Context, code string) (Principal, error) {
	token, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return Principal{}, fmt.Errorf("exchange authorization code: %w", err)
	}

	svc, err := goauth2.NewService(ctx, option.WithTokenSource(g.cfg.TokenSource(ctx, token)))
	if err != nil {
		return Principal{}, fmt.Errorf("create userinfo service: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return Principal{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Email == "" {
		return Principal{}, fmt.Errorf("userinfo response has no email")
	}

	return Principal{
		Name:    info.Name,
		Email:   info.Email,
		Picture: info.Picture,
	}, nil
}

// NewState returns a random anti-forgery state value.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
