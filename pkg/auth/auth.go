// Package auth issues and validates the JWT tokens that gate the thin
// control-plane API. Multi-tenant SSO, session storage, and per-service
// permission checks are out of scope; there is one role hierarchy
// (user < admin) and no session store to consult.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/last-emo-boy/uptimepulse/pkg/config"
)

// Auth issues and validates JWT tokens for the control plane.
type Auth struct {
	expiresHours int
	jwtSecret    []byte
}

// Claims is the JWT payload for an authenticated control-plane request.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// New builds an Auth from the configured JWT secret/expiry, generating a
// random secret if none is configured (development convenience only).
func New(cfg config.JWTConfig) (*Auth, error) {
	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		random := make([]byte, 32)
		if _, err := rand.Read(random); err != nil {
			return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		secret = []byte(hex.EncodeToString(random))
	}

	expiresHours := cfg.ExpiresHours
	if expiresHours <= 0 {
		expiresHours = 24
	}

	return &Auth{expiresHours: expiresHours, jwtSecret: secret}, nil
}

// HashPassword hashes a password using bcrypt.
func (a *Auth) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword compares a password with its hash.
func (a *Auth) CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// GenerateToken issues a signed JWT for userID/username/role.
func (a *Auth) GenerateToken(userID int, username, role string) (string, int64, error) {
	expiresAt := time.Now().Add(time.Duration(a.expiresHours) * time.Hour)

	claims := &Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "uptimepulse",
			Subject:   fmt.Sprintf("user:%d", userID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.jwtSecret)
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt.Unix(), nil
}

// ValidateToken parses and verifies a JWT, returning its claims.
func (a *Auth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// RequireRole reports whether userRole satisfies requiredRole in the
// user < admin hierarchy.
func (a *Auth) RequireRole(userRole, requiredRole string) bool {
	roleHierarchy := map[string]int{"user": 1, "admin": 2}
	return roleHierarchy[userRole] >= roleHierarchy[requiredRole]
}
