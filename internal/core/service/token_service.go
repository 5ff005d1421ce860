package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/workdesk/request-tracker/internal/core/domain"
)

// DefaultTokenTTL is the session validity window.
const DefaultTokenTTL = 8 * time.Hour

// sessionClaims is the JWT payload: {id, role, username} plus registered claims.
type sessionClaims struct {
	UserID   int64  `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 tokens.
type JWTTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTTokenService(secret string, ttl time.Duration) *JWTTokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTTokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *JWTTokenService) TTL() time.Duration { return s.ttl }

// Issue signs a token for user valid for the configured TTL.
func (s *JWTTokenService) Issue(user *domain.User) (string, error) {
	now := s.now()
	claims := sessionClaims{
		UserID:   user.ID,
		Role:     user.Role.String(),
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses an Authorization header value and validates the token it carries.
func (s *JWTTokenService) Verify(authorization string) (domain.Claims, error) {
	if strings.TrimSpace(authorization) == "" {
		return domain.Claims{}, domain.ErrMissingToken
	}

	raw, err := bearerToken(authorization)
	if err != nil {
		return domain.Claims{}, err
	}

	var claims sessionClaims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tkn.Valid {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	role, ok := domain.ParseRole(claims.Role)
	if !ok || claims.UserID <= 0 {
		return domain.Claims{}, domain.ErrInvalidToken
	}

	return domain.Claims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      role,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// bearerToken extracts the credential from "Bearer <token>".
func bearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrMalformedToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", domain.ErrMalformedToken
	}
	return token, nil
}
