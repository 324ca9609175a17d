package service

import (
	"errors"
	"time"

	"twopc_backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenClaims  = errors.New("invalid claims")
)

// Claims carried by wallet session tokens
type Claims struct {
	Wallet string      `json:"wallet"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and parses wallet session tokens
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}
}

func (m *JWTManager) Generate(wallet string, role domain.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		Wallet: wallet,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   wallet,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Parse validates the signature and time based claims
func (m *JWTManager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Wallet == "" {
		return nil, ErrTokenClaims
	}

	return claims, nil
}
