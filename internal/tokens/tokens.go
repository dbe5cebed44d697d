package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sublyy/sublyy-backend/internal/config"
)

// ErrInvalidToken covers every verification failure: bad signature, wrong
// secret, expired, malformed. Callers never learn which one it was.
var ErrInvalidToken = errors.New("invalid token")

// Issue creates the signed access/refresh pair for a user. Both tokens carry
// the user id as `userId`; each is signed with its own secret and TTL.
func Issue(cfg *config.Config, userID string) (accessToken, refreshToken string, err error) {
	accessToken, err = sign(userID, cfg.JWT.AccessSecret, cfg.JWT.AccessTokenTTL)
	if err != nil {
		return "", "", err
	}
	refreshToken, err = sign(userID, cfg.JWT.RefreshSecret, cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return "", "", err
	}
	return accessToken, refreshToken, nil
}

// VerifyAccess validates an access token and returns the embedded user id.
func VerifyAccess(cfg *config.Config, token string) (string, error) {
	return verify(token, cfg.JWT.AccessSecret)
}

// VerifyRefresh validates a refresh token and returns the embedded user id.
func VerifyRefresh(cfg *config.Config, token string) (string, error) {
	return verify(token, cfg.JWT.RefreshSecret)
}

// Refresh verifies a refresh token and mints a new access token for the same
// user. The refresh token itself is not rotated; it stays valid until its
// original expiry.
func Refresh(cfg *config.Config, refreshToken string) (string, error) {
	userID, err := VerifyRefresh(cfg, refreshToken)
	if err != nil {
		return "", err
	}
	return sign(userID, cfg.JWT.AccessSecret, cfg.JWT.AccessTokenTTL)
}

func sign(userID, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"userId": userID,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

func verify(token, secret string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, _ := claims["userId"].(string)
	if userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}
