package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims represents JWT claims
type Claims struct {
	MemberID uint   `json:"member_id"`
	RoleCode string `json:"role_code"`
	jwt.RegisteredClaims
}

// JWTProvider implements TokenProvider with HMAC-signed JWTs.
type JWTProvider struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTProvider(secret string, ttl time.Duration) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), ttl: ttl}
}

// Issue creates a signed token for a principal.
func (p *JWTProvider) Issue(principal Principal) (string, error) {
	now := time.Now()
	claims := Claims{
		MemberID: principal.MemberID,
		RoleCode: principal.RoleCode,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   principal.LoginID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "bincms",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Validate parses a token and returns the principal it carries.
func (p *JWTProvider) Validate(tokenString string) (*Principal, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return &Principal{
		MemberID: claims.MemberID,
		LoginID:  claims.Subject,
		RoleCode: claims.RoleCode,
	}, nil
}
