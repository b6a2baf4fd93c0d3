package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const audience = "campus-connect"

var ErrInvalidToken = errors.New("invalid token")

// Claims identify a logged-in user. Role is a snapshot taken at login and is
// never used for authorization decisions.
type Claims struct {
	Email  string `json:"email"`
	Role   string `json:"role"`
	Method string `json:"method"`
	jwt.RegisteredClaims
}

func NewSessionToken(email, role, method, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:  email,
		Role:   role,
		Method: method,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Audience:  []string{audience},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func Parse(tokenString, secret string) (*Claims, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
	)
	if err != nil {
		return nil, err
	}
	if claims, ok := tok.Claims.(*Claims); ok && tok.Valid && claims.Email != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}
