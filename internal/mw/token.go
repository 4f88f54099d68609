package mw

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

var errInvalidToken = errors.New("invalid or expired token")

// IssueToken signs an HS256 token for a profile. Admin tokens carry role=admin.
func IssueToken(secret, userID, role string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     jwt.NewNumericDate(exp),
	})

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

type tokenClaims struct {
	UserID    string
	Role      string
	ExpiresAt time.Time
}

func parseToken(secret, tokenString string) (*tokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return nil, errInvalidToken
	}
	role, _ := claims["role"].(string)
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, errInvalidToken
	}

	return &tokenClaims{UserID: userID, Role: role, ExpiresAt: exp.Time}, nil
}
