package cli

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"github.com/getmockd/soapkit/pkg/cli/internal/output"
	"github.com/getmockd/soapkit/pkg/client"
	"github.com/getmockd/soapkit/pkg/config"
	"github.com/getmockd/soapkit/pkg/fault"
)

var (
	callAction     string
	callEndpoint   string
	callStylesheet string
)

// CallOutput is the JSON form of a successful call.
type CallOutput struct {
	RequestID string `json:"requestId"`
	Status    int    `json:"status"`
	Payload   string `json:"payload,omitempty"`
}

var callCmd = &cobra.Command{
	Use:   "call [envelope-file|-]",
	Short: "Post a SOAP envelope to the configured endpoint",
	Long: `Posts a ready-made SOAP envelope and prints the response payload. Faults
are explained by the fault resolution pipeline and make the command fail.`,
	Example: `  soapkit call --config soapkit.yaml --action urn:GetAccount request.xml
  soapkit call --endpoint http://localhost:8080/ws --action urn:Ping - < ping.xml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCall,
}

func init() {
	callCmd.Flags().StringVarP(&callAction, "action", "a", "", "SOAP action")
	callCmd.Flags().StringVarP(&callEndpoint, "endpoint", "e", "", "Endpoint URL (overrides config)")
	callCmd.Flags().StringVarP(&callStylesheet, "stylesheet", "s", "", "Transform the payload with this stylesheet (overrides config)")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, args []string) error {
	if callEndpoint != "" {
		cfg.Endpoint = callEndpoint
		cfg.Sources["endpoint"] = config.SourceFlag
	}
	if callStylesheet != "" {
		cfg.Transform.Stylesheet = callStylesheet
		cfg.Sources["transform"] = config.SourceFlag
	}
	c, err := client.NewFromConfig(cfg, nil, nil, client.WithLogger(logger))
	if err != nil {
		return err
	}

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	envelope, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	resp, err := c.Call(cmd.Context(), callAction, envelope, nil)
	if err != nil {
		var fe *fault.Error
		if errors.As(err, &fe) {
			return fmt.Errorf("%w: %s", ErrFaultReceived, fe.Message)
		}
		return err
	}

	var payload string
	if doc, ok := resp.Value.(*etree.Document); ok {
		doc.Indent(2)
		payload, _ = doc.WriteToString()
	}
	if jsonOutput {
		return output.JSON(cmd.OutOrStdout(), CallOutput{
			RequestID: resp.RequestID,
			Status:    resp.StatusCode,
			Payload:   payload,
		})
	}
	fmt.Fprint(cmd.OutOrStdout(), payload)
	return nil
}
