package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openblog/openblog-api/config"
	"github.com/openblog/openblog-api/internal/types"
)

// Claims are the custom claims embedded in an access token. Subject carries
// the user's email.
type Claims struct {
	UserID int64          `json:"uid"`
	Role   types.UserRole `json:"rol"`
	jwt.RegisteredClaims
}

// TokenService issues and validates stateless HS256 bearer tokens. There is
// no server-side session store; expiry is the only invalidation mechanism.
type TokenService struct {
	secretKey []byte
	ttl       time.Duration
	issuer    string
}

func NewTokenService(cfg *config.Config) *TokenService {
	secretKey := []byte(cfg.JWT.SecretKey)
	if len(secretKey) == 0 {
		panic("JWT secret key cannot be empty")
	}
	ttl := cfg.JWT.TokenTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenService{
		secretKey: secretKey,
		ttl:       ttl,
		issuer:    cfg.JWT.Issuer,
	}
}

// Issue produces a signed token embedding the user's id, email (as subject)
// and role, expiring ttl from now.
func (s *TokenService) Issue(userID int64, email string, role types.UserRole) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a token, returning its claims.
// Returns types.ErrTokenExpired past the embedded expiry and
// types.ErrTokenInvalid for malformed, mis-signed or wrong-issuer tokens.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token validation: %w", types.ErrTokenExpired)
		}
		return nil, fmt.Errorf("token validation: %w", types.ErrTokenInvalid)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token validation: %w", types.ErrTokenInvalid)
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, fmt.Errorf("token issuer mismatch: %w", types.ErrTokenInvalid)
	}
	return claims, nil
}

// IsValid validates the token and additionally checks the embedded subject
// against the identity being checked, failing with types.ErrSubjectMismatch
// when they differ.
func (s *TokenService) IsValid(tokenString, expectedEmail string) (*Claims, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject != expectedEmail {
		return nil, fmt.Errorf("token subject %q: %w", claims.Subject, types.ErrSubjectMismatch)
	}
	return claims, nil
}
