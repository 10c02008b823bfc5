package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/openblog/openblog-api/internal/types"
)

// Define typed context keys
type contextKey string

const identityKey contextKey = "identity"

// CredentialStore resolves a token subject to a stored user record.
type CredentialStore interface {
	GetByEmail(ctx context.Context, email string) (*types.User, error)
}

// Authenticate is the authentication gate. It runs once per request, before
// any route logic. A missing or non-Bearer Authorization header passes the
// request through unauthenticated; so does any validation failure (invalid
// signature, expiry, unknown subject). Enforcement happens at the resource
// layer, so a bad token silently degrades to anonymous.
//
// Resolved users are held in a short-TTL read-through cache to avoid a
// credential-store lookup on every request.
func Authenticate(logger *slog.Logger, tokens *TokenService, store CredentialStore) func(next http.Handler) http.Handler {
	userCache := gocache.New(5*time.Minute, 10*time.Minute)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
				l.DebugContext(ctx, "Authorization header is not a bearer token, continuing anonymous")
				next.ServeHTTP(w, r)
				return
			}
			tokenString := headerParts[1]

			claims, err := tokens.Validate(tokenString)
			if err != nil {
				l.WarnContext(ctx, "Token validation failed, continuing anonymous", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			user, err := lookupUser(ctx, store, userCache, claims.Subject)
			if err != nil {
				l.WarnContext(ctx, "Token subject does not resolve to a user, continuing anonymous",
					slog.String("subject", claims.Subject), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			// Subject check against the resolved record (the record is
			// authoritative for the role, not the token).
			if _, err := tokens.IsValid(tokenString, user.Email); err != nil {
				l.WarnContext(ctx, "Token subject mismatch, continuing anonymous", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			identity := types.Identity{
				UserID: user.ID,
				Email:  user.Email,
				Role:   user.Role,
			}
			ctx = context.WithValue(ctx, identityKey, identity)
			l.DebugContext(ctx, "Authentication successful",
				slog.Int64("userID", identity.UserID), slog.String("role", string(identity.Role)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func lookupUser(ctx context.Context, store CredentialStore, userCache *gocache.Cache, email string) (*types.User, error) {
	if cached, ok := userCache.Get(email); ok {
		return cached.(*types.User), nil
	}
	user, err := store.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	userCache.SetDefault(email, user)
	return user, nil
}

// IdentityFromContext returns the identity attached by the Authenticate
// gate, or false when the request is anonymous.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(types.Identity)
	return identity, ok
}

// ContextWithIdentity attaches an identity to ctx. Exported for tests that
// exercise handlers below the gate.
func ContextWithIdentity(ctx context.Context, identity types.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
