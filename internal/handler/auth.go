package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/tripyplan/tripy-auth/internal/crypto"
	"github.com/tripyplan/tripy-auth/internal/logger"
	"github.com/tripyplan/tripy-auth/internal/middleware"
	"github.com/tripyplan/tripy-auth/internal/model"
	"github.com/tripyplan/tripy-auth/internal/service"
)

const banner = "Auth API.\nPlease use POST /auth & POST /verify for authentication"

const (
	statusLoggedIn    = "logged in"
	statusInvalidAuth = "invalid auth"
	statusUserExists  = "User exists"
	statusNoUser      = "User does not exist"
)

// AuthHandler serves the login, verification and account lookup endpoints.
type AuthHandler struct {
	service     *service.AuthService
	tokenHeader string
}

// NewAuthHandler creates a new AuthHandler. Tokens are read from tokenHeader
// or, failing that, from a bearer Authorization header.
func NewAuthHandler(svc *service.AuthService, tokenHeader string) *AuthHandler {
	return &AuthHandler{service: svc, tokenHeader: tokenHeader}
}

// HandleHome handles GET / requests.
func (h *AuthHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(banner))
}

// HandleAuth handles POST /auth requests: log in, or register when the
// email is unknown.
func (h *AuthHandler) HandleAuth(w http.ResponseWriter, r *http.Request) {
	var req model.AuthRequest
	err := decodeBody(w, r, &req, func(v url.Values) {
		req.Email = v.Get("email")
		req.Password = v.Get("password")
	})
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	res, err := h.service.Authenticate(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmailRequired),
			errors.Is(err, service.ErrEmailInvalid),
			errors.Is(err, service.ErrPasswordRequired),
			errors.Is(err, service.ErrPasswordTooLong):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrInvalidPassword):
			writeJSON(w, http.StatusUnauthorized, errorResponse("Invalid password"))
		case errors.Is(err, service.ErrAccountConflict):
			writeJSON(w, http.StatusConflict, errorResponse(err.Error()))
		default:
			logger.FromRequest(r).Err(err).Msg("authenticate failed")
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	if res.Created {
		logger.FromRequest(r).Info().Msg("account created")
	} else {
		logger.FromRequest(r).Debug().Msg("logged in")
	}

	writeJSON(w, http.StatusOK, model.AuthResponse{Message: "success", Token: res.Token})
}

// HandleVerify handles POST /verify requests.
func (h *AuthHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	_, err := h.service.VerifySession(middleware.TokenFromRequest(r, h.tokenHeader))
	if err != nil {
		reason := crypto.StatusOf(err).String()
		logger.FromRequest(r).Debug().Str("reason", reason).Msg("token rejected")
		writeJSON(w, http.StatusUnauthorized, model.VerifyResponse{
			Status:  statusInvalidAuth,
			Message: "error",
			Reason:  reason,
		})
		return
	}

	writeJSON(w, http.StatusOK, model.VerifyResponse{Status: statusLoggedIn, Message: "success"})
}

// HandleCheckAccount handles POST /check-account requests.
func (h *AuthHandler) HandleCheckAccount(w http.ResponseWriter, r *http.Request) {
	var req model.CheckAccountRequest
	err := decodeBody(w, r, &req, func(v url.Values) {
		req.Email = v.Get("email")
	})
	if err != nil {
		writeDecodeError(w, err)
		return
	}

	exists, err := h.service.AccountExists(r.Context(), req.Email)
	if err != nil {
		logger.FromRequest(r).Err(err).Msg("account lookup failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	status := statusNoUser
	if exists {
		status = statusUserExists
	}
	writeJSON(w, http.StatusOK, model.CheckAccountResponse{Status: status, UserExists: exists})
}

// HandleSession handles GET /me requests. It must sit behind
// middleware.RequireSession.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse(statusInvalidAuth))
		return
	}

	writeJSON(w, http.StatusOK, model.SessionResponse{Email: claims.Email, SignInTime: claims.SignInTime})
}
