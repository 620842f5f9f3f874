package model

// Account is a stored credential. Email is the case-sensitive unique key.
type Account struct {
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
}

// AuthRequest is the body of POST /auth.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned when a login or registration succeeds.
type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// AuthResult is what the service hands back to the handler.
type AuthResult struct {
	Token string
	// Created reports whether a new account was provisioned.
	Created bool
}

type CheckAccountRequest struct {
	Email string `json:"email"`
}

type CheckAccountResponse struct {
	Status     string `json:"status"`
	UserExists bool   `json:"userExists"`
}

// VerifyResponse is the body of POST /verify. Reason is set on failures only.
type VerifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// SessionResponse describes the bearer of a valid token.
type SessionResponse struct {
	Email      string `json:"email"`
	SignInTime int64  `json:"signInTime"`
}

// MessageResponse carries a human-readable outcome, used for errors.
type MessageResponse struct {
	Message string `json:"message"`
}
