package config

import (
	"strconv"
	"time"
)

// TokenConfig is the signing and lifetime configuration for issued credentials.
// All values have development defaults and MUST be overridden for any
// non-local deployment.
type TokenConfig interface {
	GetSecretKey() string
	GetSigningAlgorithm() string
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetIssuer() string
	GetAudience() string
	GetRefreshSecretLength() int
}

type Token struct{}

var _ TokenConfig = Token{}

func (Token) GetSecretKey() string {
	return GetEnv("SECRET_KEY", "CHANGE_ME_TO_A_LONG_RANDOM_SECRET_64_CHARS")
}

func (Token) GetSigningAlgorithm() string {
	return GetEnv("ALGORITHM", "HS256")
}

func (Token) GetAccessTokenExpiry() time.Duration {
	return time.Duration(envInt("ACCESS_TOKEN_EXPIRE_MINUTES", 30)) * time.Minute
}

func (Token) GetRefreshTokenExpiry() time.Duration {
	return time.Duration(envInt("REFRESH_TOKEN_EXPIRE_DAYS", 7)) * 24 * time.Hour
}

func (Token) GetIssuer() string {
	return GetEnv("TOKEN_ISSUER", "ceas")
}

func (Token) GetAudience() string {
	return GetEnv("TOKEN_AUDIENCE", "ceas-api")
}

func (Token) GetRefreshSecretLength() int {
	return 48 // bytes of entropy behind each refresh secret
}

func envInt(envVar string, defaultValue int) int {
	v, err := strconv.Atoi(GetEnv(envVar, strconv.Itoa(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}
