// Package oidc provides the Google OpenID Connect adapter used for admin sign-in.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/ifrugal/kb-admin/internal/domain/auth"
	"github.com/ifrugal/kb-admin/internal/ports"
	"golang.org/x/oauth2"
)

// GoogleIssuer is the issuer URL Google publishes its discovery document under.
const GoogleIssuer = "https://accounts.google.com"

// DefaultScope requests the identity claims the sign-in gate needs.
const DefaultScope = "openid email profile"

// Provider implements ports.AuthProvider against an OIDC issuer (Google by default).
type Provider struct {
	name       string
	config     *oauth2.Config
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string // defaults to DefaultScope
	Issuer       string // defaults to GoogleIssuer; also accepts a discovery URL
	Name         string // provider name stamped on accounts; defaults to "google"
	HTTPClient   *http.Client
}

// NewProvider fetches the issuer's discovery document and builds a provider.
func NewProvider(ctx context.Context, config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	issuer := normalizeIssuer(config.Issuer)
	scope := config.Scope
	if strings.TrimSpace(scope) == "" {
		scope = DefaultScope
	}
	name := config.Name
	if name == "" {
		name = domainauth.ProviderGoogle
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Provider{
		name:         name,
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: config.ClientID}),
		config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       strings.Fields(scope),
			Endpoint:     op.Endpoint(),
		},
	}, nil
}

func normalizeIssuer(raw string) string {
	issuer := strings.TrimSpace(raw)
	if issuer == "" {
		return GoogleIssuer
	}
	issuer = strings.TrimSuffix(issuer, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	return issuer
}

// Name returns the provider identifier stamped on returned accounts.
func (p *Provider) Name() string { return p.name }

func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (string, string, string, error) {
	if in.RedirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}

	nonce, err := generateRandomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	// redirect_uri must match the registered RedirectURL exactly, so it is not overridden here.
	authURL := p.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.AccessTypeOffline,
	)

	return authURL, state, nonce, nil
}

func (p *Provider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.SignInAttempt, error) {
	if in.Code == "" {
		return domainauth.SignInAttempt{}, errors.New("authorization code is required")
	}
	if in.State == "" {
		return domainauth.SignInAttempt{}, errors.New("state is required")
	}
	if in.Nonce == "" {
		return domainauth.SignInAttempt{}, errors.New("nonce is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.SignInAttempt{}, fmt.Errorf("exchange code for token: %w", err)
	}

	claims, err := p.extractFromIDToken(ctx, token, in.Nonce)
	if err != nil {
		return domainauth.SignInAttempt{}, fmt.Errorf("extract id_token: %w", err)
	}

	if claims.Email == "" {
		if fillErr := p.fillFromUserInfo(ctx, token.AccessToken, &claims); fillErr != nil {
			return domainauth.SignInAttempt{}, fmt.Errorf("get user info: %w", fillErr)
		}
	}

	return p.toAttempt(claims), nil
}

// googleClaims is the subset of Google ID token and userinfo claims we consume.
// EmailVerified stays a pointer so "not sent" is distinguishable from false.
type googleClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	HostedDomain  string `json:"hd"`
	Nonce         string `json:"nonce"`
}

func (p *Provider) toAttempt(c googleClaims) domainauth.SignInAttempt {
	return domainauth.SignInAttempt{
		User: domainauth.Identity{
			Subject: c.Sub,
			Email:   c.Email,
			Name:    c.Name,
			Picture: c.Picture,
		},
		Account: domainauth.Account{
			Provider:          p.name,
			ProviderAccountID: c.Sub,
		},
		Profile: domainauth.Profile{
			Email:         c.Email,
			EmailVerified: c.EmailVerified,
			HostedDomain:  c.HostedDomain,
		},
	}
}

func (p *Provider) extractFromIDToken(ctx context.Context, tok *oauth2.Token, expectedNonce string) (googleClaims, error) {
	var claims googleClaims
	rawID, err := getIDTokenFromToken(tok)
	if err != nil {
		return claims, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return claims, fmt.Errorf("verify id_token: %w", err)
	}
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return claims, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	if expectedNonce != "" && claims.Nonce != expectedNonce {
		return claims, errors.New("invalid nonce")
	}
	return claims, nil
}

func (p *Provider) fillFromUserInfo(ctx context.Context, accessToken string, c *googleClaims) error {
	ui, err := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var fromUI googleClaims
	if claimsErr := ui.Claims(&fromUI); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}
	mergeClaims(c, fromUI)
	return nil
}

// mergeClaims fills empty fields of dst from src. Existing values win.
func mergeClaims(dst *googleClaims, src googleClaims) {
	if dst.Sub == "" {
		dst.Sub = src.Sub
	}
	if dst.Email == "" {
		dst.Email = src.Email
	}
	if dst.EmailVerified == nil {
		dst.EmailVerified = src.EmailVerified
	}
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.Picture == "" {
		dst.Picture = src.Picture
	}
	if dst.HostedDomain == "" {
		dst.HostedDomain = src.HostedDomain
	}
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	return s[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
