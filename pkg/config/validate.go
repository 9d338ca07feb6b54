package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/getmockd/soapkit/pkg/logging"
	"github.com/getmockd/soapkit/pkg/soap"
	"github.com/getmockd/soapkit/pkg/transform"
)

// Validate checks the configuration. An empty endpoint is allowed; commands
// that call a service check for it themselves.
func (c *Config) Validate() error {
	var problems []string

	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		switch {
		case err != nil:
			problems = append(problems, fmt.Sprintf("endpoint: %v", err))
		case u.Scheme != "http" && u.Scheme != "https":
			problems = append(problems, fmt.Sprintf("endpoint: unsupported scheme %q", u.Scheme))
		case u.Host == "":
			problems = append(problems, "endpoint: missing host")
		}
	}

	if _, err := soap.ParseVersion(c.SOAPVersion); err != nil {
		problems = append(problems, fmt.Sprintf("soapVersion: %v", err))
	}
	if c.Timeout < 0 {
		problems = append(problems, "timeout: must not be negative")
	}
	if _, err := logging.LookupLevel(c.Logging.Level); err != nil {
		problems = append(problems, fmt.Sprintf("logging.level: %v", err))
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != string(logging.FormatText) && f != string(logging.FormatJSON) {
		problems = append(problems, fmt.Sprintf("logging.format: unknown format %q", c.Logging.Format))
	}
	if _, err := transform.Lookup(c.Transform.Engine); err != nil {
		problems = append(problems, fmt.Sprintf("transform.engine: %v", err))
	}
	if jwt := c.Auth.JWT; jwt != nil {
		if jwt.Secret == "" {
			problems = append(problems, "auth.jwt.secret: required")
		}
		if jwt.TTL < 0 {
			problems = append(problems, "auth.jwt.ttl: must not be negative")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
