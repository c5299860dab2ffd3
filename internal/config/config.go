package config

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	OidcConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDatabaseURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Token
	Oidc
}

func New() Config {
	return mainConfig{}
}
