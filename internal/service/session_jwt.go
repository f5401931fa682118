package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/waveless-run/waveless/internal/domain"
)

// JWTSessionBackend is the second domain.SessionBackend variant:
// self-contained signed tokens instead of rows in a table, so Check
// verifies a signature and an embedded expiry rather than hitting the
// database. Stateless by construction, so Invalidate and RemoveExpired
// are no-ops: there is no server-side record to remove, and a leaked
// token remains valid until it naturally expires. This is a deliberate
// limitation of the variant, not an oversight.
type JWTSessionBackend struct {
	secret  []byte
	maxAgeS int64
}

type jwtClaims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

func NewJWTSessionBackend(cfg domain.JWTSessionBackend) *JWTSessionBackend {
	return &JWTSessionBackend{secret: []byte(cfg.Secret), maxAgeS: cfg.MaxAgeSeconds}
}

func (JWTSessionBackend) Name() string { return "jwt" }

func (j *JWTSessionBackend) MaxAge() int64 { return j.maxAgeS }

func (j *JWTSessionBackend) Check(_ context.Context, _ domain.Connection, token string) (int64, bool, error) {
	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, false, nil
	}
	return claims.UserID, true, nil
}

func (j *JWTSessionBackend) New(_ context.Context, _ domain.Connection, userID int64) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(j.maxAgeS) * time.Second)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWTSessionBackend) Invalidate(_ context.Context, _ domain.Connection, _ int64) error {
	return nil
}

func (j *JWTSessionBackend) RemoveExpired(_ context.Context, _ domain.Connection) error {
	return nil
}
