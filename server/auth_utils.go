package server

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/jrsteele09/go-message-triage/users"
)

// createAccessToken issues a signed bearer token identifying the user.
func (s *Server) createAccessToken(user *users.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.config.GetAccessTokenExpiry()).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.GetJWTSecret()))
	if err != nil {
		return "", errors.Wrap(err, "[createAccessToken] signing token")
	}
	return signed, nil
}

// parseAccessToken validates a bearer token and returns the user ID it
// identifies.
func (s *Server) parseAccessToken(rawToken string) (string, error) {
	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return []byte(s.config.GetJWTSecret()), nil
	})
	if err != nil {
		return "", errors.Wrap(err, "[parseAccessToken] parsing token")
	}
	if !token.Valid {
		return "", errors.New("[parseAccessToken] token is not valid")
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", errors.New("[parseAccessToken] token has no subject")
	}
	return subject, nil
}
