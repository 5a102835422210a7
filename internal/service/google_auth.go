package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	googleoauth2 "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"

	"walletwatch/internal/model"
)

const stateTTL = 10 * time.Minute

// GoogleProfile is the subset of the userinfo response used for login.
type GoogleProfile struct {
	ID    string
	Email string
	Name  string
}

// GoogleAuth implements the OAuth2 authorization code flow against Google.
// The state parameter is a short-lived HS256 token, so no server-side state
// has to be kept between redirect and callback.
type GoogleAuth struct {
	config *oauth2.Config
	secret []byte
	auth   *AuthService
	clock  Clock
	// profile is replaceable in tests.
	profile func(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error)
}

func NewGoogleAuth(clientID, clientSecret, redirectURL string, stateSecret []byte, auth *AuthService, clock Clock) *GoogleAuth {
	g := &GoogleAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     google.Endpoint,
			Scopes: []string{
				googleoauth2.UserinfoEmailScope,
				googleoauth2.UserinfoProfileScope,
			},
		},
		secret: stateSecret,
		auth:   auth,
		clock:  clock,
	}
	g.profile = g.fetchProfile
	return g
}

// AuthURL returns the consent page URL carrying a freshly signed state.
func (g *GoogleAuth) AuthURL() (string, error) {
	state, err := g.signState()
	if err != nil {
		return "", err
	}
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// Callback verifies state, exchanges the code and logs the Google user in.
func (g *GoogleAuth) Callback(ctx context.Context, code, state string) (*model.User, error) {
	if err := g.VerifyState(state); err != nil {
		return nil, err
	}
	if code == "" {
		return nil, fmt.Errorf("missing code: %w", ErrUnauthorized)
	}
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	profile, err := g.profile(ctx, token)
	if err != nil {
		return nil, err
	}
	return g.auth.LoginOAuth(ctx, model.OAuthGoogle, profile.ID, profile.Email, profile.Name)
}

func (g *GoogleAuth) signState() (string, error) {
	nonce, err := newToken()
	if err != nil {
		return "", err
	}
	now := g.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "google-login",
		ID:        nonce[:16],
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(stateTTL)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// VerifyState rejects tampered, foreign or expired state values.
func (g *GoogleAuth) VerifyState(state string) error {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(g.clock.Now),
		jwt.WithSubject("google-login"),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	return nil
}

func (g *GoogleAuth) fetchProfile(ctx context.Context, token *oauth2.Token) (*GoogleProfile, error) {
	svc, err := googleoauth2.NewService(ctx, option.WithTokenSource(g.config.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.VerifiedEmail != nil && !*info.VerifiedEmail {
		return nil, errors.New("google email is not verified")
	}
	return &GoogleProfile{ID: info.Id, Email: info.Email, Name: info.Name}, nil
}
