package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
)

// Claims holds the JWT payload.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// JWTManager handles token creation and validation.
type JWTManager struct {
	secret        []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewJWTManager creates a JWTManager. expirationHours sets the access token
// lifetime; refresh tokens live seven times as long.
func NewJWTManager(secret string, expirationHours int) *JWTManager {
	if expirationHours <= 0 {
		expirationHours = 24
	}
	return &JWTManager{
		secret:        []byte(secret),
		accessExpiry:  time.Duration(expirationHours) * time.Hour,
		refreshExpiry: time.Duration(expirationHours) * 7 * time.Hour,
	}
}

// GenerateAccessToken creates an access token for the given user.
func (m *JWTManager) GenerateAccessToken(userID string) (string, error) {
	return m.generate(userID, m.accessExpiry)
}

// GenerateRefreshToken creates a long-lived refresh token.
func (m *JWTManager) GenerateRefreshToken(userID string) (string, error) {
	return m.generate(userID, m.refreshExpiry)
}

func (m *JWTManager) generate(userID string, expiry time.Duration) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenPair holds an access and refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

// GenerateTokenPair creates both tokens for a user.
func (m *JWTManager) GenerateTokenPair(userID string) (*TokenPair, error) {
	access, err := m.GenerateAccessToken(userID)
	if err != nil {
		return nil, err
	}
	refresh, err := m.GenerateRefreshToken(userID)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(m.accessExpiry.Seconds()),
	}, nil
}
