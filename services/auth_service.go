package services

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/usazehan/healthcare-admin-dashboard/config"
)

// RoleAdmin may train models. Tokens issued by Authenticate carry it.
const RoleAdmin = "admin"

var (
	ErrInvalidCredentials = errors.New("invalid client credentials")
	ErrAuthDisabled       = errors.New("authentication is not configured")
)

// AuthService issues and checks HS256 tokens for API clients. With an empty
// secret it is disabled and every guarded route is open.
type AuthService struct {
	jwtSecret    []byte
	expiryH      int
	clientID     string
	clientSecret string
}

func NewAuthService(jwtCfg config.JWTConfig, authCfg config.AuthConfig) *AuthService {
	return &AuthService{
		jwtSecret:    []byte(jwtCfg.Secret),
		expiryH:      jwtCfg.ExpiryHours,
		clientID:     authCfg.ClientID,
		clientSecret: authCfg.ClientSecretHash,
	}
}

func (s *AuthService) Enabled() bool {
	return s != nil && len(s.jwtSecret) > 0
}

func (s *AuthService) HashSecret(plain string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	return string(bytes), err
}

func (s *AuthService) CheckSecret(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// Authenticate exchanges client credentials for an admin token.
func (s *AuthService) Authenticate(clientID, secret string) (string, error) {
	if !s.Enabled() || s.clientSecret == "" {
		return "", ErrAuthDisabled
	}
	if clientID != s.clientID || !s.CheckSecret(s.clientSecret, secret) {
		return "", ErrInvalidCredentials
	}
	return s.GenerateToken(clientID, RoleAdmin)
}

type Claims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func (s *AuthService) GenerateToken(clientID, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		ClientID: clientID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expiryH) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) ValidateToken(tokenStr string) (*Claims, error) {
	if !s.Enabled() {
		return nil, ErrAuthDisabled
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return s.jwtSecret, nil
		},
	)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
