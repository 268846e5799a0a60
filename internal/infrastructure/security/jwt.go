package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleStudent  = "student"
	RoleEducator = "educator"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is what a verified access token says about the caller.
type Identity struct {
	Subject string
	Role    string
	Name    string // display name, optional
}

type TokenManager struct {
	accessSecret []byte
	accessTTL    time.Duration
}

func NewTokenManager(accessSecret string) *TokenManager {
	return &TokenManager{
		accessSecret: []byte(accessSecret),
		accessTTL:    15 * time.Minute,
	}
}

// Generate issues an access token. Tokens normally come from the identity
// provider; this is used by tests and the demo seed.
func (m *TokenManager) Generate(subject, role string) (string, error) {
	if role == "" {
		role = RoleStudent
	}
	at := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"exp":  time.Now().Add(m.accessTTL).Unix(),
		"type": "access",
	})
	return at.SignedString(m.accessSecret)
}

func (m *TokenManager) ValidateAccessToken(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.accessSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	if typ, _ := claims["type"].(string); typ != "" && typ != "access" {
		return Identity{}, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, ErrInvalidToken
	}
	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleStudent
	}
	name, _ := claims["name"].(string)
	return Identity{Subject: sub, Role: role, Name: name}, nil
}
