package jwt

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Role represents an access level within the platform
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleGuest Role = "guest"
)

// Permission represents a fine-grained capability
type Permission string

const (
	PermissionManageCharacters Permission = "characters:manage"
	PermissionManageUsers      Permission = "users:manage"
)

// rolePermissions maps each role to the permissions it grants
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {PermissionManageCharacters, PermissionManageUsers},
	RoleUser:  {},
	RoleGuest: {},
}

// JWTClaims represents the claims in a JWT token
type JWTClaims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// HasRole checks whether the claims grant the given role. Admins satisfy
// every role check.
func (c *JWTClaims) HasRole(role Role) bool {
	if Role(c.Role) == RoleAdmin {
		return true
	}
	return Role(c.Role) == role
}

// HasPermission checks whether the claims' role grants the given permission
func (c *JWTClaims) HasPermission(permission Permission) bool {
	for _, p := range rolePermissions[Role(c.Role)] {
		if p == permission {
			return true
		}
	}
	return false
}

// GenerateToken generates a new JWT token for a user
func GenerateToken(userID uint, email string, role string) (string, error) {
	return generateTokenWithExpiry(userID, email, role, getSecretKey(), 24*time.Hour)
}

func generateTokenWithExpiry(userID uint, email, role, secretKey string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*JWTClaims, error) {
	return validateTokenWithKey(tokenString, getSecretKey())
}

func validateTokenWithKey(tokenString, secretKey string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return []byte(secretKey), nil
		},
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// getSecretKey gets the JWT secret key from environment variables
func getSecretKey() string {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		// Fallback to a default secret for development (not recommended for production)
		secret = "devJwtSecretDoNotUseInProduction"
	}
	return secret
}
