package config

type Config interface {
	EnvConfig
	DatabaseConfig
	SessionConfig
	ClassifierConfig
	SecurityConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetUploadDir() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Database
	Sessions
	Classifier
	Security
	Cors
}

func New() Config {
	return mainConfig{}
}
