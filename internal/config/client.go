package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

type AuthConfig struct {
	Token string `env:"AL_AUTH_TOKEN"`
}

type ClientConfig struct {
	Endpoint       string        `env:"AL_API_ENDPOINT" envDefault:"https://api.cloudinsight.alertlogic.com"`
	AccountID      string        `env:"AL_ACCOUNT_ID"`
	Auth           AuthConfig
	ServiceName    string        `env:"AL_SEARCH_SERVICE" envDefault:"search"`
	ServiceVersion string        `env:"AL_SEARCH_VERSION" envDefault:"v1"`
	UserAgent      string        `env:"AL_USER_AGENT" envDefault:"alsearch/1.0"`
	Timeout        time.Duration `env:"AL_HTTP_TIMEOUT" envDefault:"30s"`
	RetryCount     int           `env:"AL_RETRY_COUNT" envDefault:"0"`
	VerifyTLS      bool          `env:"AL_VERIFY_TLS" envDefault:"true"`

	// Cache hints forwarded with fetch and status requests. Zero means always revalidate.
	CacheSize  int           `env:"AL_CACHE_SIZE" envDefault:"128"`
	ResultsTTL time.Duration `env:"AL_RESULTS_TTL" envDefault:"0s"`
	StatusTTL  time.Duration `env:"AL_STATUS_TTL" envDefault:"0s"`
}

// LoadClientConfig reads the client configuration from AL_* environment variables.
func LoadClientConfig() (ClientConfig, error) {
	var cfg ClientConfig
	if err := env.Parse(&cfg); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}
