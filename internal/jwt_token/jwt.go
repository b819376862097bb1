package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "desarquivamento/pkg/domain"
	dErrors "desarquivamento/pkg/domain-errors"
)

// Claims are the access token claims issued by the identity provider.
type Claims struct {
	UserID int64    `json:"user_id"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWTService validates HS256 access tokens. Token issuance belongs to the
// identity provider; GenerateAccessToken exists for tooling and tests.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) GenerateAccessToken(userID id.UserID, roles []string, expiresIn time.Duration, now time.Time) (string, error) {
	registered := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}
	if s.issuer != "" {
		registered.Issuer = s.issuer
	}
	if s.audience != "" {
		registered.Audience = []string{s.audience}
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           userID.Int64(),
		Roles:            roles,
		RegisteredClaims: registered,
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if s.audience != "" {
		opts = append(opts, jwt.WithAudience(s.audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token claims")
	}
	if claims.UserID <= 0 {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has no user")
	}
	return claims, nil
}
