package config

import (
	"os"
	"time"
)

// Environment variable names.
const (
	EnvEndpoint   = "SOAPKIT_ENDPOINT"
	EnvTimeout    = "SOAPKIT_TIMEOUT"
	EnvLogLevel   = "SOAPKIT_LOG_LEVEL"
	EnvLogFormat  = "SOAPKIT_LOG_FORMAT"
	EnvStylesheet = "SOAPKIT_STYLESHEET"
	EnvEngine     = "SOAPKIT_ENGINE"
	EnvJWTSecret  = "SOAPKIT_JWT_SECRET"
	EnvConfig     = "SOAPKIT_CONFIG"
)

// ApplyEnv overrides cfg with the SOAPKIT_* variables that are set.
// Unparseable durations are ignored.
func ApplyEnv(cfg *Config) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	// SOAPKIT_ENDPOINT
	if v := os.Getenv(EnvEndpoint); v != "" {
		cfg.Endpoint = v
		cfg.Sources["endpoint"] = SourceEnv
	}

	// SOAPKIT_TIMEOUT
	if v := os.Getenv(EnvTimeout); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = d
			cfg.Sources["timeout"] = SourceEnv
		}
	}

	// SOAPKIT_LOG_LEVEL
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
		cfg.Sources["logging"] = SourceEnv
	}

	// SOAPKIT_LOG_FORMAT
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
		cfg.Sources["logging"] = SourceEnv
	}

	// SOAPKIT_STYLESHEET
	if v := os.Getenv(EnvStylesheet); v != "" {
		cfg.Transform.Stylesheet = v
		cfg.Sources["transform"] = SourceEnv
	}

	// SOAPKIT_ENGINE
	if v := os.Getenv(EnvEngine); v != "" {
		cfg.Transform.Engine = v
		cfg.Sources["transform"] = SourceEnv
	}

	// SOAPKIT_JWT_SECRET
	if v := os.Getenv(EnvJWTSecret); v != "" {
		if cfg.Auth.JWT == nil {
			cfg.Auth.JWT = &JWTConfig{}
		}
		cfg.Auth.JWT.Secret = v
		cfg.Sources["auth"] = SourceEnv
	}
}
