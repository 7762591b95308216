package config

import "time"

type SecurityConfig interface {
	GetJWTSecret() string
	GetAccessTokenExpiry() time.Duration
}

type Security struct{}

var _ SecurityConfig = Security{}

func (Security) GetJWTSecret() string {
	return GetEnv("JWT_SECRET", "")
}

func (Security) GetAccessTokenExpiry() time.Duration {
	return getDurationEnv("ACCESS_TOKEN_EXPIRY", 24*time.Hour)
}
