package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Common errors for configuration loading.
var (
	ErrFileNotFound     = errors.New("configuration file not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidYAML      = errors.New("invalid YAML syntax")
	ErrEmptyFile        = errors.New("configuration file is empty")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Load builds the effective configuration: defaults, then the file at path
// (skipped when path is empty), then environment overrides. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	}
	ApplyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads a configuration file on top of the defaults. It does
// not apply environment overrides or validate.
func LoadFromFile(path string) (*Config, error) {
	cfg := Default()
	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
		}
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}

	if err := parseInto(cfg, data); err != nil {
		return fmt.Errorf("%w in file %s", err, path)
	}

	if s := cfg.Transform.Stylesheet; s != "" && !filepath.IsAbs(s) {
		cfg.Transform.Stylesheet = filepath.Join(filepath.Dir(path), s)
	}
	return nil
}

// Parse decodes YAML configuration on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := parseInto(cfg, data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseInto(cfg *Config, data []byte) error {
	var file Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	cfg.merge(&file, SourceFile)
	return nil
}

// merge copies every non-zero setting of other into c.
func (c *Config) merge(other *Config, source string) {
	if c.Sources == nil {
		c.Sources = make(map[string]string)
	}
	if other.Endpoint != "" {
		c.Endpoint = other.Endpoint
		c.Sources["endpoint"] = source
	}
	if other.SOAPVersion != "" {
		c.SOAPVersion = other.SOAPVersion
		c.Sources["soapVersion"] = source
	}
	if other.Timeout != 0 {
		c.Timeout = other.Timeout
		c.Sources["timeout"] = source
	}
	if len(other.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(other.Headers))
		}
		for k, v := range other.Headers {
			c.Headers[k] = v
		}
		c.Sources["headers"] = source
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
		c.Sources["logging"] = source
	}
	if other.Logging.Format != "" {
		c.Logging.Format = other.Logging.Format
		c.Sources["logging"] = source
	}
	if other.Transform.Engine != "" {
		c.Transform.Engine = other.Transform.Engine
		c.Sources["transform"] = source
	}
	if other.Transform.Stylesheet != "" {
		c.Transform.Stylesheet = other.Transform.Stylesheet
		c.Sources["transform"] = source
	}
	if other.Auth.JWT != nil {
		jwt := *other.Auth.JWT
		c.Auth.JWT = &jwt
		c.Sources["auth"] = source
	}
}
