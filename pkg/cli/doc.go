// Package cli implements the soapkit command line.
//
// Commands:
//
//	soapkit resolve <file|glob>...        explain saved SOAP fault responses
//	soapkit transform --stylesheet f <f>  rewrite an XML document
//	soapkit validate <stylesheet|glob>... compile stylesheets
//	soapkit call --action a <envelope>    post an envelope to the configured endpoint
//	soapkit version
//
// Configuration comes from --config (or SOAPKIT_CONFIG), then SOAPKIT_*
// environment variables, then flags.
package cli
