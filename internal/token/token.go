package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/minishop/apiserver/internal/clock"
)

// Verification failures, from most to least specific.
var (
	ErrMissing = errors.New("token missing")
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Claims is the signed token payload: the user id plus the registered
// expiry claim.
type Claims struct {
	UserID int `json:"user_id"`
	jwt.RegisteredClaims
}

// Service issues and verifies signed identity tokens. The secret and
// lifetime come from process configuration; the clock is injectable so
// expiry is testable.
type Service struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewService(secret string, ttl time.Duration, clk clock.Clock) *Service {
	return &Service{
		secret: []byte(secret),
		ttl:    ttl,
		clock:  clk,
	}
}

// Issue signs a token for the given user id, expiring after the
// configured lifetime.
func (s *Service) Issue(userID int) (string, error) {
	now := s.clock.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify checks the signature and expiry of a token and returns the
// user id it was issued for.
func (s *Service) Verify(tokenString string) (int, error) {
	if tokenString == "" {
		return 0, ErrMissing
	}

	claims := Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("invalid signing method")
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrExpired
		}
		return 0, ErrInvalid
	}
	if !token.Valid || claims.UserID < 1 {
		return 0, ErrInvalid
	}
	return claims.UserID, nil
}
