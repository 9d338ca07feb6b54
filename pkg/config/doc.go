// Package config loads soapkit client configuration.
//
// Configuration comes from a YAML file, then SOAPKIT_* environment variables,
// then command line flags applied by the caller:
//
//	endpoint: https://billing.example.com/services/Account
//	soapVersion: "1.1"
//	timeout: 30s
//	headers:
//	  X-Api-Key: abc
//	logging:
//	  level: info
//	  format: json
//	transform:
//	  engine: rules
//	  stylesheet: ./account-fault.yaml
//	auth:
//	  jwt:
//	    secret: s3cret
//	    issuer: soapkit
//	    ttl: 5m
//
// A relative stylesheet path is resolved against the directory of the
// configuration file.
package config
