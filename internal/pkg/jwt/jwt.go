package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Roles carried in the access token
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleOwner    = "owner"
)

var (
	ErrInvalidToken  = errors.New("invalid or missing access token")
	ErrMissingClaims = errors.New("access token is missing employee claims")
)

// Claims identifies the employee a request acts for.
type Claims struct {
	UserID       string
	EmployeeID   string
	RestaurantID string
	Role         string
}

// IsManager reports whether the role may administer the restaurant.
func (c Claims) IsManager() bool {
	return c.Role == RoleManager || c.Role == RoleOwner
}

type Service interface {
	GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func (j *JWTService) GenerateAccessToken(claims Claims) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = j.now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":       claims.UserID,
		"employee_id":   claims.EmployeeID,
		"restaurant_id": claims.RestaurantID,
		"role":          claims.Role,
		"type":          "access",
		"exp":           expiresAt,
	})
	return tokenString, expiresAt, err
}

// ClaimsFromContext reads the verified token placed in ctx by jwtauth.Verifier.
func ClaimsFromContext(ctx context.Context) (Claims, error) {
	_, raw, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		UserID:       stringClaim(raw, "user_id"),
		EmployeeID:   stringClaim(raw, "employee_id"),
		RestaurantID: stringClaim(raw, "restaurant_id"),
		Role:         stringClaim(raw, "role"),
	}
	if claims.EmployeeID == "" || claims.RestaurantID == "" {
		return Claims{}, ErrMissingClaims
	}
	return claims, nil
}

func stringClaim(claims map[string]interface{}, key string) string {
	v, _ := claims[key].(string)
	return v
}
