package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"
)

// GoogleIdentity is the subset of ID-token claims used for login
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// TokenVerifier checks a Google ID token for the given audience
type TokenVerifier interface {
	Verify(ctx context.Context, idToken, audience string) (*GoogleIdentity, error)
}

// CodeExchanger trades an authorization code for an ID token
type CodeExchanger interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (idToken string, err error)
}

// GoogleVerifier validates ID tokens against Google's published keys
type GoogleVerifier struct {
	validator *idtoken.Validator
}

func NewGoogleVerifier(ctx context.Context, client *http.Client) (*GoogleVerifier, error) {
	opts := []idtoken.ClientOption{}
	if client != nil {
		opts = append(opts, option.WithHTTPClient(client))
	}
	v, err := idtoken.NewValidator(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create id token validator: %w", err)
	}
	return &GoogleVerifier{validator: v}, nil
}

func (g *GoogleVerifier) Verify(ctx context.Context, idToken, audience string) (*GoogleIdentity, error) {
	payload, err := g.validator.Validate(ctx, idToken, audience)
	if err != nil {
		return nil, err
	}
	id := &GoogleIdentity{Subject: payload.Subject}
	id.Email, _ = payload.Claims["email"].(string)
	id.EmailVerified, _ = payload.Claims["email_verified"].(bool)
	id.Name, _ = payload.Claims["name"].(string)
	id.Picture, _ = payload.Claims["picture"].(string)
	return id, nil
}

// OAuthExchanger runs the authorization-code flow with an oauth2.Config
type OAuthExchanger struct {
	config *oauth2.Config
	client *http.Client
}

func NewOAuthExchanger(config *oauth2.Config, client *http.Client) *OAuthExchanger {
	return &OAuthExchanger{config: config, client: client}
}

func (e *OAuthExchanger) AuthCodeURL(state string) string {
	return e.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (e *OAuthExchanger) Exchange(ctx context.Context, code string) (string, error) {
	if e.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)
	}
	token, err := e.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("failed to exchange code: %w", err)
	}
	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return "", errors.New("token response has no id_token")
	}
	return idToken, nil
}
