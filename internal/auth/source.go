package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
)

// DefaultLoginURL is the production token endpoint.
const DefaultLoginURL = "https://login.salesforce.com/services/oauth2/token"

// Credentials identify the integration user and the connected app.
type Credentials struct {
	ClientID      string
	ClientSecret  string
	Username      string
	Password      string
	SecurityToken string
	LoginURL      string
}

// Token is an issued bearer token and the instance it is valid for.
type Token struct {
	AccessToken string
	InstanceURL string
	ID          string
	Signature   string
	IssuedAt    time.Time
}

// Valid reports whether t carries an access token and an instance URL.
func (t Token) Valid() bool {
	return t.AccessToken != "" && t.InstanceURL != ""
}

// Source exchanges credentials for a fresh token.
type Source interface {
	Token(ctx context.Context) (Token, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (Token, error)

// Token calls f.
func (f SourceFunc) Token(ctx context.Context) (Token, error) {
	return f(ctx)
}

// PasswordSource performs the OAuth2 username-password grant.
// The security token, when set, is appended to the password.
type PasswordSource struct {
	creds  Credentials
	client *http.Client
}

// SourceOption configures a PasswordSource.
type SourceOption func(*PasswordSource)

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(s *PasswordSource) {
		s.client = client
	}
}

// NewPasswordSource creates a source for creds. An empty LoginURL selects
// DefaultLoginURL.
func NewPasswordSource(creds Credentials, opts ...SourceOption) *PasswordSource {
	if creds.LoginURL == "" {
		creds.LoginURL = DefaultLoginURL
	}
	s := &PasswordSource{creds: creds}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginURL returns the token endpoint.
func (s *PasswordSource) LoginURL() string {
	return s.creds.LoginURL
}

// Token implements Source. Failures are returned as *RefreshError.
func (s *PasswordSource) Token(ctx context.Context) (Token, error) {
	conf := &oauth2.Config{
		ClientID:     s.creds.ClientID,
		ClientSecret: s.creds.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  s.creds.LoginURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	if s.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)
	}

	tok, err := conf.PasswordCredentialsToken(ctx, s.creds.Username, s.creds.Password+s.creds.SecurityToken)
	if err != nil {
		return Token{}, NewRefreshError(s.creds.LoginURL, describeRetrieveError(err))
	}

	out := Token{
		AccessToken: tok.AccessToken,
		InstanceURL: extraString(tok, "instance_url"),
		ID:          extraString(tok, "id"),
		Signature:   extraString(tok, "signature"),
		IssuedAt:    issuedAt(tok.Extra("issued_at")),
	}
	if out.InstanceURL == "" {
		return Token{}, NewRefreshError(s.creds.LoginURL, errors.New("token response has no instance_url"))
	}
	return out, nil
}

// describeRetrieveError keeps the remote error code and description.
func describeRetrieveError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		return fmt.Errorf("%s: %s: %w", re.ErrorCode, re.ErrorDescription, err)
	}
	return err
}

func extraString(tok *oauth2.Token, key string) string {
	s, _ := tok.Extra(key).(string)
	return s
}

// issuedAt parses the issue time, sent as epoch milliseconds in a string.
func issuedAt(v any) time.Time {
	switch val := v.(type) {
	case string:
		ms, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return time.Time{}
		}
		return time.UnixMilli(ms)
	case float64:
		return time.UnixMilli(int64(val))
	default:
		return time.Time{}
	}
}
