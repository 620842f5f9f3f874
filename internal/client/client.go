// Package client is an HTTP client for the auth API, used by the authcheck
// smoke test and by anything else that needs to talk to a running server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/tripyplan/tripy-auth/internal/model"
)

var (
	ErrBadRequest      = errors.New("bad request")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrConflict        = errors.New("conflict")
	ErrTooManyRequests = errors.New("too many requests")
	ErrServer          = errors.New("server error")
)

// Client talks to one auth server.
type Client struct {
	http        *resty.Client
	tokenHeader string
}

// New returns a client for the server at addr. A missing scheme defaults to
// http.
func New(addr, tokenHeader string, timeout time.Duration) (*Client, error) {
	baseURL, err := normalizeBaseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid server address: %w", err)
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &Client{http: c, tokenHeader: tokenHeader}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty address")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", errors.New("address must include a host")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// Home returns the GET / banner.
func (c *Client) Home(ctx context.Context) (string, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/")
	if err != nil {
		return "", fmt.Errorf("home request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// Auth logs in or registers and returns the issued token.
func (c *Client) Auth(ctx context.Context, email, password string) (string, error) {
	var out model.AuthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(model.AuthRequest{Email: email, Password: password}).
		SetResult(&out).
		Post("/auth")
	if err != nil {
		return "", fmt.Errorf("auth request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("auth response carries no token")
	}
	return out.Token, nil
}

// Verify returns nil when the server accepts token. A rejection wraps
// ErrUnauthorized and names the server's reason.
func (c *Client) Verify(ctx context.Context, token string) error {
	var rejected model.VerifyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(c.tokenHeader, token).
		SetError(&rejected).
		Post("/verify")
	if err != nil {
		return fmt.Errorf("verify request: %w", err)
	}
	if resp.StatusCode() == http.StatusUnauthorized && rejected.Reason != "" {
		return fmt.Errorf("%w: %s", ErrUnauthorized, rejected.Reason)
	}
	return mapHTTPError(resp)
}

// CheckAccount reports whether the server knows email.
func (c *Client) CheckAccount(ctx context.Context, email string) (bool, error) {
	var out model.CheckAccountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(model.CheckAccountRequest{Email: email}).
		SetResult(&out).
		Post("/check-account")
	if err != nil {
		return false, fmt.Errorf("check-account request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return false, err
	}
	return out.UserExists, nil
}

// Session returns who token was issued to.
func (c *Client) Session(ctx context.Context, token string) (model.SessionResponse, error) {
	var out model.SessionResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader(c.tokenHeader, token).
		SetResult(&out).
		Get("/me")
	if err != nil {
		return model.SessionResponse{}, fmt.Errorf("session request: %w", err)
	}
	if err := mapHTTPError(resp); err != nil {
		return model.SessionResponse{}, err
	}
	return out, nil
}

func mapHTTPError(resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	body := strings.TrimSpace(resp.String())

	switch code := resp.StatusCode(); {
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrBadRequest, body)
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body)
	case code == http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, body)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrTooManyRequests, body)
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s", ErrServer, body)
	default:
		if body == "" {
			body = http.StatusText(code)
		}
		return fmt.Errorf("http %d: %s", code, body)
	}
}
