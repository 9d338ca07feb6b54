// soapkit CLI - resolve SOAP faults, transform payloads and call SOAP services
package main

import (
	"os"

	"github.com/getmockd/soapkit/pkg/cli"
)

// Build-time variables set via ldflags
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.Commit = Commit
	cli.BuildDate = BuildDate
	os.Exit(cli.Main())
}
