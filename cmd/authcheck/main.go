// Command authcheck runs the auth API's end-to-end checks against a live
// server and exits non-zero on the first failure.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tripyplan/tripy-auth/internal/client"
	"github.com/tripyplan/tripy-auth/internal/crypto"
	"github.com/tripyplan/tripy-auth/internal/logger"
)

func main() {
	addr := flag.String("addr", "localhost:3080", "auth server address")
	header := flag.String("header", "jwt-token", "token header name")
	timeout := flag.Duration("timeout", 10*time.Second, "per-request timeout")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	log := logger.NewLogger("authcheck", *level)

	c, err := client.New(*addr, *header, *timeout)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid flags")
	}

	if err := run(context.Background(), c, log); err != nil {
		log.Error().Err(err).Msg("check failed")
		os.Exit(1)
	}
	log.Info().Msg("all checks passed")
}

// run registers a throwaway account and walks it through every endpoint.
func run(ctx context.Context, c *client.Client, log *logger.Logger) error {
	id, err := crypto.RandomIdentifier(12)
	if err != nil {
		return err
	}
	password, err := crypto.GeneratePassword(20)
	if err != nil {
		return err
	}
	email := "authcheck-" + id + "@example.com"
	log = log.With("email", email)

	banner, err := c.Home(ctx)
	if err != nil {
		return fmt.Errorf("home: %w", err)
	}
	if !strings.HasPrefix(banner, "Auth API.") {
		return fmt.Errorf("home: unexpected banner %q", banner)
	}

	if err := expectAccount(ctx, c, email, false); err != nil {
		return err
	}
	log.Info().Msg("account absent before registration")

	registerToken, err := c.Auth(ctx, email, password)
	if err != nil {
		return fmt.Errorf("register: %w", err)
	}

	if err := expectAccount(ctx, c, email, true); err != nil {
		return err
	}
	log.Info().Msg("account registered")

	loginToken, err := c.Auth(ctx, email, password)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	for name, token := range map[string]string{"registration": registerToken, "login": loginToken} {
		if err := c.Verify(ctx, token); err != nil {
			return fmt.Errorf("verify %s token: %w", name, err)
		}
	}
	log.Info().Msg("tokens verified")

	session, err := c.Session(ctx, loginToken)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}
	if session.Email != email {
		return fmt.Errorf("session: token names %q", session.Email)
	}

	_, err = c.Auth(ctx, email, password+"x")
	if !errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("wrong password: want 401, got %v", err)
	}
	log.Info().Msg("wrong password rejected")

	err = c.Verify(ctx, tamper(loginToken))
	if !errors.Is(err, client.ErrUnauthorized) {
		return fmt.Errorf("tampered token: want 401, got %v", err)
	}
	log.Info().Msg("tampered token rejected")

	return nil
}

func expectAccount(ctx context.Context, c *client.Client, email string, want bool) error {
	exists, err := c.CheckAccount(ctx, email)
	if err != nil {
		return fmt.Errorf("check-account: %w", err)
	}
	if exists != want {
		return fmt.Errorf("check-account: userExists=%t, want %t", exists, want)
	}
	return nil
}

// tamper flips one character in the middle of the signature.
func tamper(token string) string {
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 || len(token)-dot < 4 {
		return token + "x"
	}

	b := []byte(token)
	i := dot + (len(token)-dot)/2
	if b[i] == 'A' {
		b[i] = 'B'
	} else {
		b[i] = 'A'
	}
	return string(b)
}
