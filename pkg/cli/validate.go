package cli

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/getmockd/soapkit/pkg/cli/internal/output"
	"github.com/getmockd/soapkit/pkg/transform"
)

var validateEngine string

// ValidateResult is the outcome for one stylesheet.
type ValidateResult struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

var validateCmd = &cobra.Command{
	Use:   "validate <stylesheet|glob>...",
	Short: "Compile stylesheets and report errors",
	Example: `  soapkit validate legacy.yaml
  soapkit validate 'stylesheets/**/*.yaml' --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateEngine, "engine", "", "Transform engine (default from config)")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	paths, err := expandArgs(args)
	if err != nil {
		return err
	}
	engine := validateEngine
	if engine == "" {
		engine = cfg.Transform.Engine
	}

	results := make([]ValidateResult, 0, len(paths))
	failed := false
	for _, path := range paths {
		res := ValidateResult{File: path, Valid: true}
		if err := compileFile(cmd.InOrStdin(), engine, path); err != nil {
			res.Valid = false
			res.Error = err.Error()
			failed = true
		}
		results = append(results, res)
	}

	if jsonOutput {
		if err := output.JSON(cmd.OutOrStdout(), results); err != nil {
			return err
		}
	} else {
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(cmd.OutOrStdout(), "ok    %s\n", r.File)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %s\n", r.File, r.Error)
			}
		}
	}
	if failed {
		return ErrSomeFailed
	}
	return nil
}

func compileFile(stdin io.Reader, engine, path string) error {
	data, err := readInput(stdin, path)
	if err != nil {
		return err
	}
	_, err = transform.Compile(engine, bytes.NewReader(data))
	return err
}
