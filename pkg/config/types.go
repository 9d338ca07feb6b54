package config

import "time"

// Source values recorded in Config.Sources.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)

// Config is the soapkit client configuration.
type Config struct {
	// Endpoint is the SOAP service URL.
	Endpoint string `yaml:"endpoint,omitempty"`

	// SOAPVersion is "1.1" or "1.2".
	SOAPVersion string `yaml:"soapVersion,omitempty"`

	// Timeout bounds a whole call, including reading the response.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`

	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Transform TransformConfig `yaml:"transform,omitempty"`
	Auth      AuthConfig      `yaml:"auth,omitempty"`

	// Sources tracks where each top level setting came from.
	Sources map[string]string `yaml:"-"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// TransformConfig selects the payload transform.
type TransformConfig struct {
	Engine     string `yaml:"engine,omitempty"`
	Stylesheet string `yaml:"stylesheet,omitempty"`
}

// AuthConfig configures request authentication.
type AuthConfig struct {
	JWT *JWTConfig `yaml:"jwt,omitempty"`
}

// JWTConfig configures an HS256 bearer token minted for every call.
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer,omitempty"`
	Subject  string        `yaml:"subject,omitempty"`
	Audience string        `yaml:"audience,omitempty"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		SOAPVersion: "1.1",
		Timeout:     30 * time.Second,
		Logging:     LoggingConfig{Level: "warn", Format: "text"},
		Transform:   TransformConfig{Engine: "rules"},
		Sources: map[string]string{
			"soapVersion": SourceDefault,
			"timeout":     SourceDefault,
			"logging":     SourceDefault,
			"transform":   SourceDefault,
		},
	}
}
