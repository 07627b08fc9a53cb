package service

import (
	"errors"
	"time"

	"handbook/internal/middleware"
	"handbook/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the work factor for stored password hashes.
	BcryptCost = 10
	// TokenTTL is how long an issued token stays valid.
	TokenTTL = 30 * 24 * time.Hour
)

// AuthService hashes passwords and issues/verifies HS256 tokens.
type AuthService struct {
	secret []byte
	now    func() time.Time
}

var _ middleware.TokenVerifier = (*AuthService)(nil)

// NewAuthService returns an AuthService signing with secret.
func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret), now: time.Now}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash. A nil or empty hash
// (device-only chat users) never matches.
func (s *AuthService) CheckPassword(hash *string, password string) bool {
	if hash == nil || *hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(*hash), []byte(password)) == nil
}

// IssueToken signs a token for the given user.
func (s *AuthService) IssueToken(userID, username string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	now := s.now()
	claims := jwt.MapClaims{
		"id":       userID,
		"sub":      userID,
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(TokenTTL).Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// VerifyToken validates signature and expiry and extracts the identity.
// Every failure is reported as an unauthorized error.
func (s *AuthService) VerifyToken(tokenString string) (*middleware.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid {
		return nil, models.NewUnauthorizedError("Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, models.NewUnauthorizedError("Invalid token")
	}

	userID, _ := claims["id"].(string)
	if userID == "" {
		userID, _ = claims["sub"].(string)
	}
	if userID == "" {
		return nil, models.NewUnauthorizedError("Invalid token")
	}
	username, _ := claims["username"].(string)

	return &middleware.Identity{UserID: userID, Username: username}, nil
}
