package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"github.com/getmockd/soapkit/pkg/binding"
	"github.com/getmockd/soapkit/pkg/cli/internal/output"
	"github.com/getmockd/soapkit/pkg/fault"
	"github.com/getmockd/soapkit/pkg/soap"
)

var (
	resolveStylesheet string
	resolveEngine     string
	resolveExtract    []string
)

// ResolveResult is the outcome for one input file.
type ResolveResult struct {
	File       string            `json:"file"`
	Message    string            `json:"message,omitempty"`
	Code       string            `json:"code,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Detail     string            `json:"detail,omitempty"`
	Extracted  map[string]string `json:"extracted,omitempty"`
	Suppressed string            `json:"suppressed,omitempty"`
	Error      string            `json:"error,omitempty"`
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <file|glob>...",
	Short: "Explain saved SOAP fault responses",
	Long: `Runs the fault resolution pipeline on saved SOAP fault responses and prints
the diagnostic for each. Globs support ** (quote them to keep the shell away).

With --stylesheet the first detail entry is decoded through the transform
first; the rewritten detail is printed, or the decode failure is shown as
suppressed.

--extract prints the text at an etree path of the fault envelope. A trailing
/@name selects an attribute. Paths without a match print an empty value.`,
	Example: `  soapkit resolve fault.xml
  soapkit resolve 'captures/**/*.xml' --json
  soapkit resolve fault.xml --stylesheet legacy.yaml
  soapkit resolve fault.xml -x //faultstring -x '//Info/@origin'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveStylesheet, "stylesheet", "s", "", "Decode the first detail entry through this stylesheet")
	resolveCmd.Flags().StringVar(&resolveEngine, "engine", "", "Transform engine (default from config)")
	resolveCmd.Flags().StringArrayVarP(&resolveExtract, "extract", "x", nil, "Print the text at this path (repeatable)")
	rootCmd.AddCommand(resolveCmd)
}

func runResolve(cmd *cobra.Command, args []string) error {
	paths, err := expandArgs(args)
	if err != nil {
		return err
	}

	var um binding.Unmarshaller
	if resolveStylesheet != "" {
		tu, err := newTransformer(resolveStylesheet, resolveEngine)
		if err != nil {
			return err
		}
		um = tu
	}

	results := make([]ResolveResult, 0, len(paths))
	failed := false
	for _, path := range paths {
		res := resolveFile(cmd.InOrStdin(), path, um)
		if res.Error != "" {
			failed = true
		}
		results = append(results, res)
	}

	if jsonOutput {
		if err := output.JSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		printResolveResults(cmd.OutOrStdout(), results)
	}
	if failed {
		return ErrSomeFailed
	}
	return nil
}

func resolveFile(stdin io.Reader, path string, um binding.Unmarshaller) ResolveResult {
	res := ResolveResult{File: path}

	data, err := readInput(stdin, path)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	msg, err := soap.ParseMessage(data)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	if !msg.HasFault() {
		res.Error = "not a SOAP fault"
		return res
	}
	res.Code = msg.Fault().Code
	res.Reason = msg.Fault().Reason
	if len(resolveExtract) > 0 {
		res.Extracted = make(map[string]string, len(resolveExtract))
		for _, p := range resolveExtract {
			res.Extracted[p] = msg.Extract(p)
		}
	}

	opts := []fault.Option{fault.WithLogger(logger.With("file", path))}
	if um != nil {
		opts = append(opts, fault.WithDecoder(fault.FuncDecoder{
			Unmarshaller: um,
			Resolve: func(_ fault.Message, decoded any) error {
				if doc, ok := decoded.(*etree.Document); ok {
					res.Detail, _ = doc.WriteToString()
				}
				return nil
			},
		}))
	}

	err = fault.NewResolver(opts...).Resolve(msg)
	var fe *fault.Error
	if !errors.As(err, &fe) {
		res.Error = err.Error()
		return res
	}
	res.Message = fe.Message
	res.Fields = fe.Fields
	if fe.Suppressed != nil {
		res.Suppressed = fe.Suppressed.Error()
	}
	logger.Debug("fault resolved", "file", path, "message", fe.Message)
	return res
}

func printResolveResults(w io.Writer, results []ResolveResult) {
	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "%s: error: %s\n", r.File, r.Error)
			continue
		}
		fmt.Fprintf(w, "%s: %s\n", r.File, r.Message)
		fmt.Fprintf(w, "  code: %s\n", r.Code)
		fmt.Fprintf(w, "  reason: %s\n", r.Reason)
		for _, p := range resolveExtract {
			fmt.Fprintf(w, "  %s: %s\n", p, r.Extracted[p])
		}
		if r.Detail != "" {
			fmt.Fprintf(w, "  detail: %s\n", r.Detail)
		}
		if r.Suppressed != "" {
			fmt.Fprintf(w, "  suppressed: %s\n", r.Suppressed)
		}
	}
}
