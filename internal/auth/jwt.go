package auth

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// ErrUnauthenticated covers every way a bearer token can fail to resolve.
var ErrUnauthenticated = errors.New("unauthenticated")

// Claims represents JWT payload. Subject is the teacher id.
type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the caller a bearer token resolves to.
type Identity struct {
	TeacherID int64
	Role      string
}

// Issue signs an access token for a teacher. Used by the operator CLI and tests;
// login itself lives outside this service.
func Issue(teacherID int64, role, issuer, key string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(ttl)
	subject := strconv.FormatInt(teacherID, 10)
	claims := Claims{
		Subject: subject,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	return *claims, nil
}

// Resolver turns bearer tokens into identities.
type Resolver struct {
	key    string
	issuer string
}

func NewResolver(signingKey, issuer string) *Resolver {
	return &Resolver{key: signingKey, issuer: issuer}
}

// Resolve accepts a raw token or an "Authorization: Bearer ..." value.
func (r *Resolver) Resolve(bearer string) (Identity, error) {
	tokenStr := strings.TrimSpace(bearer)
	if len(tokenStr) > 7 && strings.EqualFold(tokenStr[:7], "bearer ") {
		tokenStr = strings.TrimSpace(tokenStr[7:])
	}
	if tokenStr == "" {
		return Identity{}, ErrUnauthenticated
	}
	claims, err := Parse(tokenStr, r.key, r.issuer)
	if err != nil {
		return Identity{}, ErrUnauthenticated
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return Identity{}, ErrUnauthenticated
	}
	role := claims.Role
	if role == "" {
		role = RoleTeacher
	}
	return Identity{TeacherID: id, Role: role}, nil
}
