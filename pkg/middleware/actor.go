package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/uksf/uksf-api/pkg/composables"
	"github.com/uksf/uksf-api/pkg/httpapi"
)

type AuthOptions struct {
	Secret string
	Issuer string
	// QueryParam lets websocket clients pass the token in the URL.
	QueryParam string
}

var (
	errNoSecret  = errors.New("jwt secret not configured")
	errNoSubject = errors.New("subject claim required")
	errBadToken  = errors.New("invalid token")
	errBadBearer = errors.New("malformed authorization header")
)

// ParseActor validates an HS256 token and returns its subject.
func ParseActor(token string, opts AuthOptions) (string, error) {
	if strings.TrimSpace(opts.Secret) == "" {
		return "", errNoSecret
	}
	parserOpts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.NewParser(parserOpts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(opts.Secret), nil
	})
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errBadToken
	}
	if claims.Subject == "" {
		return "", errNoSubject
	}
	return claims.Subject, nil
}

func bearerToken(header string) (string, error) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errBadBearer
	}
	return parts[1], nil
}

// Authenticate puts the token subject on the context as the actor. Requests
// without credentials pass through anonymous; bad credentials get a 401.
func Authenticate(opts AuthOptions) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
				t, err := bearerToken(header)
				if err != nil {
					_ = httpapi.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
					return
				}
				token = t
			} else if opts.QueryParam != "" {
				token = r.URL.Query().Get(opts.QueryParam)
			}
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			actor, err := ParseActor(token, opts)
			if err != nil {
				composables.UseLogger(r.Context()).WithError(err).Debug("rejected bearer token")
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials", nil)
				return
			}
			ctx := composables.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActor rejects anonymous requests.
func RequireActor() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := composables.UseActor(r.Context()); err != nil {
				_ = httpapi.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
