// Package auth verifies the bearer tokens accepted by the scheduling
// endpoint: user session tokens and automation tokens signed with the
// platform's own key material.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
)

// Token type discriminators carried in the claims.
const (
	TokenTypeSession    = "session"
	TokenTypeAutomation = "automation"
)

// TokenManager signs and verifies JWT tokens.
type TokenManager struct {
	sessionSecret      []byte
	serviceKey         []byte
	sessionDuration    time.Duration
	automationDuration time.Duration
	issuer             string
}

// NewTokenManager creates a new token manager. sessionSecret verifies user
// session tokens; serviceKey signs and verifies automation tokens.
func NewTokenManager(sessionSecret, serviceKey string, sessionDuration, automationDuration time.Duration) *TokenManager {
	return &TokenManager{
		sessionSecret:      []byte(sessionSecret),
		serviceKey:         []byte(serviceKey),
		sessionDuration:    sessionDuration,
		automationDuration: automationDuration,
		issuer:             "homedesk",
	}
}

// Claims represents the custom JWT claims.
type Claims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
	Type   string `json:"type"` // "session" or "automation"
	jwt.RegisteredClaims
}

// GenerateSessionToken issues a user session token.
func (tm *TokenManager) GenerateSessionToken(userID, email, role string) (string, error) {
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		Type:   TokenTypeSession,
	}
	return tm.generateToken(claims, userID, tm.sessionSecret, tm.sessionDuration)
}

// GenerateAutomationToken issues a token for service-to-service calls,
// e.g. the periodic trigger invoking the scheduling endpoint.
func (tm *TokenManager) GenerateAutomationToken(subject string) (string, error) {
	claims := Claims{Type: TokenTypeAutomation}
	return tm.generateToken(claims, subject, tm.serviceKey, tm.automationDuration)
}

func (tm *TokenManager) generateToken(claims Claims, subject string, secret []byte, duration time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Issuer:    tm.issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateSessionToken validates a user session token.
func (tm *TokenManager) ValidateSessionToken(tokenString string) (*Claims, error) {
	return tm.validateToken(tokenString, TokenTypeSession, tm.sessionSecret)
}

// ValidateAutomationToken validates a platform-signed automation token.
func (tm *TokenManager) ValidateAutomationToken(tokenString string) (*Claims, error) {
	return tm.validateToken(tokenString, TokenTypeAutomation, tm.serviceKey)
}

// ValidateBearer accepts either token shape: a live user session or an
// automation token.
func (tm *TokenManager) ValidateBearer(tokenString string) (*Claims, error) {
	claims, err := tm.ValidateSessionToken(tokenString)
	if err == nil {
		return claims, nil
	}
	return tm.ValidateAutomationToken(tokenString)
}

func (tm *TokenManager) validateToken(tokenString, expectedType string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		// ParseWithClaims already enforces exp; map it onto our sentinel.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expectedType {
		return nil, fmt.Errorf("invalid token type: expected %s, got %s", expectedType, claims.Type)
	}

	return claims, nil
}

// ExtractTokenFromHeader extracts the token from the Authorization header.
func ExtractTokenFromHeader(authHeader string) (string, error) {
	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", errors.New("invalid authorization header format")
	}
	return authHeader[7:], nil
}
