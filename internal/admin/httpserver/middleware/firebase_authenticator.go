package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// ErrTokenExpired is returned when the Firebase token has expired.
var ErrTokenExpired = errors.New("firebase token expired")

// FirebaseTokenVerifier abstracts the Firebase Admin SDK client for testability.
type FirebaseTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*firebaseauth.Token, error)
}

// FirebaseAuthenticator validates Firebase ID tokens and maps them onto a User. Roles come
// from the "role" or "roles" custom claims (a string, a list, or a map of role to bool).
type FirebaseAuthenticator struct {
	verifier FirebaseTokenVerifier
}

// NewFirebaseAuthenticator constructs an Authenticator backed by the provided verifier.
func NewFirebaseAuthenticator(verifier FirebaseTokenVerifier) *FirebaseAuthenticator {
	if verifier == nil {
		panic("firebase token verifier is required")
	}
	return &FirebaseAuthenticator{verifier: verifier}
}

// Authenticate verifies the supplied ID token using Firebase and builds a User object.
func (f *FirebaseAuthenticator) Authenticate(r *http.Request, token string) (*User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, NewAuthError(ReasonMissingToken, ErrUnauthorized)
	}

	verified, err := f.verifier.VerifyIDToken(r.Context(), token)
	switch {
	case err == nil:
	case firebaseauth.IsIDTokenExpired(err), errors.Is(err, ErrTokenExpired):
		return nil, NewAuthError(ReasonTokenExpired, err)
	default:
		return nil, NewAuthError(ReasonTokenInvalid, err)
	}
	if verified == nil {
		return nil, NewAuthError(ReasonTokenInvalid, ErrUnauthorized)
	}

	return &User{
		UID:   verified.UID,
		Email: claimString(verified.Claims["email"]),
		Roles: claimStringSlice(verified.Claims["role"], verified.Claims["roles"]),
		Token: token,
	}, nil
}

func claimString(value any) string {
	if v, ok := value.(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func claimStringSlice(values ...any) []string {
	var result []string
	add := func(val string) {
		if val = strings.TrimSpace(val); val != "" && !slices.Contains(result, val) {
			result = append(result, val)
		}
	}
	for _, value := range values {
		switch v := value.(type) {
		case string:
			add(v)
		case []string:
			for _, item := range v {
				add(item)
			}
		case []any:
			for _, item := range v {
				add(claimString(item))
			}
		case map[string]any:
			keys := make([]string, 0, len(v))
			for key, val := range v {
				if b, ok := val.(bool); ok && b {
					keys = append(keys, key)
				}
			}
			slices.Sort(keys)
			for _, key := range keys {
				add(key)
			}
		}
	}
	return result
}
