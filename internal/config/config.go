package config

type Config interface {
	EnvConfig
	ShopifyConfig
	StorageConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Shopify
	Storage
	Cors
}

func New() Config {
	return mainConfig{}
}
