package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// HeaderUserID — заголовок с пользователем в dev-режиме (без JWT_SECRET).
const HeaderUserID = "X-User-ID"

// Principal — аутентифицированный пользователь запроса.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// Claims — claims токена внешнего identity provider.
// Subject — ID пользователя.
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

var errNoCredentials = errors.New("missing bearer token")

type principalKey struct{}

// WithPrincipal добавляет пользователя в контекст.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom возвращает пользователя из контекста.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticator проверяет HS256 bearer токены.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator создаёт Authenticator. Пустой secret — dev-режим.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// DevMode возвращает true, если токены не проверяются.
func (a *Authenticator) DevMode() bool {
	return len(a.secret) == 0
}

// Authenticate извлекает пользователя из запроса.
func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	if a.DevMode() {
		id, err := uuid.Parse(r.Header.Get(HeaderUserID))
		if err != nil {
			return Principal{}, fmt.Errorf("%s header: %w", HeaderUserID, err)
		}
		return Principal{UserID: id}, nil
	}

	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return Principal{}, errNoCredentials
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Principal{}, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return Principal{}, errors.New("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, fmt.Errorf("invalid subject: %w", err)
	}
	return Principal{UserID: userID, Role: claims.Role}, nil
}

// Sign выпускает токен для пользователя. Используется CLI и тестами.
func (a *Authenticator) Sign(p Principal, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = p.UserID.String()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{RegisteredClaims: claims, Role: p.Role})
	return token.SignedString(a.secret)
}

// Auth требует аутентифицированного пользователя.
func Auth(a *Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := a.Authenticate(r)
			if err != nil {
				Unauthorized(w, "authentication required")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// userID возвращает ID текущего пользователя (Auth уже отработал).
func userID(r *http.Request) uuid.UUID {
	p, _ := PrincipalFrom(r.Context())
	return p.UserID
}
