package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/tripyplan/tripy-auth/internal/crypto"
	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/model"
	"github.com/tripyplan/tripy-auth/internal/repository"
)

var (
	ErrEmailRequired    = errors.New("email is required")
	ErrEmailInvalid     = errors.New("email must be valid UTF-8")
	ErrPasswordRequired = errors.New("password is required")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrInvalidPassword  = errors.New("invalid password")
	// ErrAccountConflict is returned to the loser of two simultaneous
	// registrations for the same email.
	ErrAccountConflict = errors.New("account was created by a concurrent request")
	// ErrCorruptAccount means the store holds several records for one email.
	ErrCorruptAccount = errors.New("multiple records exist for this account")
)

// AccountStore is the part of the credential store the service needs.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (model.Account, error)
	Create(ctx context.Context, account model.Account) error
}

// SessionIssuer mints and verifies bearer tokens.
type SessionIssuer interface {
	Issue(email string) (string, error)
	Verify(token string) (*crypto.Claims, error)
}

// AuthService implements login-or-register by email.
type AuthService struct {
	store  AccountStore
	hasher crypto.Hasher
	issuer SessionIssuer
}

func NewAuthService(store AccountStore, hasher crypto.Hasher, issuer SessionIssuer) *AuthService {
	return &AuthService{
		store:  store,
		hasher: hasher,
		issuer: issuer,
	}
}

// Authenticate logs the caller in if an account with req.Email exists and the
// password matches, or provisions a new account if none exists. Both paths
// return a fresh token.
func (s *AuthService) Authenticate(ctx context.Context, req model.AuthRequest) (model.AuthResult, error) {
	if req.Email == "" {
		return model.AuthResult{}, ErrEmailRequired
	}
	if !utf8.ValidString(req.Email) {
		return model.AuthResult{}, ErrEmailInvalid
	}
	if req.Password == "" {
		return model.AuthResult{}, ErrPasswordRequired
	}

	log := logger.FromContext(ctx)

	account, err := s.store.FindByEmail(ctx, req.Email)
	switch {
	case err == nil:
		return s.login(ctx, account, req.Password)
	case errors.Is(err, repository.ErrAccountNotFound):
		return s.register(ctx, req)
	case errors.Is(err, repository.ErrMultipleAccounts):
		log.Error().Msg("credential store holds duplicate records for one email")
		return model.AuthResult{}, ErrCorruptAccount
	default:
		return model.AuthResult{}, fmt.Errorf("finding account: %w", err)
	}
}

func (s *AuthService) login(ctx context.Context, account model.Account, password string) (model.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AuthResult{}, err
	}

	match, err := s.hasher.Compare(account.PasswordHash, password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return model.AuthResult{}, ErrPasswordTooLong
		}
		return model.AuthResult{}, fmt.Errorf("comparing password: %w", err)
	}
	if !match {
		logger.FromContext(ctx).Info().Msg("login rejected: password mismatch")
		return model.AuthResult{}, ErrInvalidPassword
	}

	token, err := s.issuer.Issue(account.Email)
	if err != nil {
		return model.AuthResult{}, err
	}

	return model.AuthResult{Token: token}, nil
}

func (s *AuthService) register(ctx context.Context, req model.AuthRequest) (model.AuthResult, error) {
	if err := ctx.Err(); err != nil {
		return model.AuthResult{}, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, crypto.ErrPasswordTooLong) {
			return model.AuthResult{}, ErrPasswordTooLong
		}
		return model.AuthResult{}, fmt.Errorf("hashing password: %w", err)
	}

	err = s.store.Create(ctx, model.Account{Email: req.Email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			logger.FromContext(ctx).Warn().Msg("registration lost a race with a concurrent request")
			return model.AuthResult{}, ErrAccountConflict
		}
		return model.AuthResult{}, fmt.Errorf("creating account: %w", err)
	}

	token, err := s.issuer.Issue(req.Email)
	if err != nil {
		return model.AuthResult{}, err
	}

	return model.AuthResult{Token: token, Created: true}, nil
}

// AccountExists reports whether an account with exactly this email exists.
// Duplicate records count as existing. No account can have an email that
// is not valid UTF-8.
func (s *AuthService) AccountExists(ctx context.Context, email string) (bool, error) {
	if !utf8.ValidString(email) {
		return false, nil
	}

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil, errors.Is(err, repository.ErrMultipleAccounts):
		return true, nil
	case errors.Is(err, repository.ErrAccountNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("finding account: %w", err)
	}
}

// VerifySession checks a bearer token. Errors wrap the crypto.ErrToken* sentinels.
func (s *AuthService) VerifySession(token string) (*crypto.Claims, error) {
	return s.issuer.Verify(token)
}
