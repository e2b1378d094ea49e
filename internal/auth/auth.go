// Package auth implements token-based identity: issuing signed bearer
// tokens at login and verifying them on protected routes. Login
// auto-provisions an account the first time an email is seen, so a
// first-time login is equivalent to registration.
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/vzemtsov/listomat/internal/logger"
	"github.com/vzemtsov/listomat/internal/models"
	"github.com/vzemtsov/listomat/internal/user"
)

type credentialsKeeper interface {
	FindOrCreateUser(
		ctx context.Context,
		proto *user.User,
		transaction *sql.Tx,
	) (*user.User, bool, error)
}

// Auth handles user authentication and JWT token management.
type Auth struct {
	db               credentialsKeeper
	signingSecretKey []byte
	tokenTTL         time.Duration
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the subject's ID and email.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Email  string `json:"email"`
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// LoginStatus distinguishes a repeat login from a first-time one that
// provisioned a new account. The HTTP contract does not expose the
// distinction, but callers and tests can.
type LoginStatus int

const (
	StatusAuthenticated LoginStatus = iota
	StatusProvisioned
)

// LoginResult carries the outcome of a successful login.
type LoginResult struct {
	Status LoginStatus
	User   *user.User
	Token  string
}

// ErrInvalidCredentials is returned when the stored password does not
// match the supplied one.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrMissingToken is returned when a request carries no bearer credential.
var ErrMissingToken = errors.New("missing token")

// ErrInvalidToken is returned when a bearer credential is present but
// malformed, expired or signed with the wrong key.
var ErrInvalidToken = errors.New("invalid token")

// New creates a new Auth handler over the given credential storage,
// signing key and token lifetime.
func New(db credentialsKeeper, signingSecretKey []byte, tokenTTL time.Duration) *Auth {
	return &Auth{
		db:               db,
		signingSecretKey: signingSecretKey,
		tokenTTL:         tokenTTL,
	}
}

// Login authenticates a user by email and password and issues a bearer
// token. An unseen email provisions a fresh account with the supplied
// credentials and empty name/phone; the password check then runs against
// the stored record either way, so a wrong password on a known email fails
// without touching the store.
func (a *Auth) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	proto := &user.User{
		ID:       models.NewID(),
		Email:    email,
		Password: password,
	}

	usr, created, err := a.db.FindOrCreateUser(ctx, proto, nil)
	if err != nil {
		return nil, fmt.Errorf("in internal/auth/auth.go/Login(): error while `a.db.FindOrCreateUser()` calling: %w", err)
	}

	if usr.Password != password {
		return nil, ErrInvalidCredentials
	}

	token, err := a.buildJWTString(usr)
	if err != nil {
		return nil, err
	}

	status := StatusAuthenticated
	if created {
		status = StatusProvisioned
	}

	return &LoginResult{
		Status: status,
		User:   usr,
		Token:  token,
	}, nil
}

// VerifyToken validates the signature and expiry of a bearer token and
// returns its identity claims. Verification is stateless: the credential
// store is never consulted.
func (a *Auth) VerifyToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingSecretKey, nil
		},
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// Authenticate is an HTTP middleware guarding protected routes. A request
// without an Authorization header is rejected as 401, one with a bad
// bearer token as 403; otherwise the authenticated user's ID is stored in
// the request context.
func (a *Auth) Authenticate(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		if header == "" {
			writeJSONMessage(response, http.StatusUnauthorized, "Missing token")
			return
		}

		claims, err := a.VerifyToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Log.Debugln("Error calling the `a.VerifyToken()`: ", zap.Error(err))
			writeJSONMessage(response, http.StatusForbidden, "Invalid token")
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, claims.UserID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

func (a *Auth) buildJWTString(usr *user.User) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(a.tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		UserID: usr.ID,
		Email:  usr.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(a.signingSecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func writeJSONMessage(response http.ResponseWriter, status int, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	_ = json.NewEncoder(response).Encode(models.MessageResponse{Message: message})
}
