// Package auth выпускает и проверяет JWT-токены доступа и хеширует пароли пользователей.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken возвращается для неподписанного, просроченного или чужого токена.
	ErrInvalidToken = errors.New("invalid token")
	// ErrEmptyKey возвращается при попытке создать Tokens без ключа подписи.
	ErrEmptyKey = errors.New("empty signing key")
)

// Claims содержит данные пользователя, зашитые в токен.
type Claims struct {
	UserID uuid.UUID `json:"id"`
	Login  string    `json:"login"`
	jwt.RegisteredClaims
}

// Tokens выпускает и проверяет токены, подписанные HMAC-SHA256.
type Tokens struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
	timeFunc func() time.Time
}

// NewTokens создаёт Tokens с указанным ключом, издателем, аудиторией и сроком жизни токена.
func NewTokens(key, issuer, audience string, lifetime time.Duration) (*Tokens, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &Tokens{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		lifetime: lifetime,
		timeFunc: time.Now,
	}, nil
}

// Issue выпускает токен для пользователя.
func (t *Tokens) Issue(userID uuid.UUID, login string) (string, error) {
	now := t.timeFunc()
	claims := Claims{
		UserID: userID,
		Login:  login,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   userID.String(),
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, издателя, аудиторию и срок действия токена.
func (t *Tokens) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return t.key, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.timeFunc),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidToken)
	}
	return claims, nil
}

// HashPassword возвращает bcrypt-хеш пароля.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword сообщает, соответствует ли пароль хешу.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
