package cli

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/spf13/cobra"

	"github.com/getmockd/soapkit/internal/xmltree"
	"github.com/getmockd/soapkit/pkg/binding"
	"github.com/getmockd/soapkit/pkg/soap"
)

var (
	transformStylesheet string
	transformEngine     string
	transformPayload    bool
)

var transformCmd = &cobra.Command{
	Use:   "transform [file|-]",
	Short: "Rewrite an XML document with a stylesheet",
	Long: `Applies a stylesheet to an XML document and prints the result. With
--payload the input is read as a SOAP envelope and the stylesheet runs on the
body payload, or on the first fault detail entry for a fault.

The stylesheet defaults to transform.stylesheet from the configuration.`,
	Example: `  soapkit transform --stylesheet legacy.yaml response.xml
  cat fault.xml | soapkit transform -s legacy.yaml --payload -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringVarP(&transformStylesheet, "stylesheet", "s", "", "Stylesheet file")
	transformCmd.Flags().StringVar(&transformEngine, "engine", "", "Transform engine (default from config)")
	transformCmd.Flags().BoolVar(&transformPayload, "payload", false, "Transform the SOAP body payload or first detail entry")
	rootCmd.AddCommand(transformCmd)
}

// newTransformer compiles the stylesheet at path for engine. Empty values
// fall back to the configuration.
func newTransformer(path, engine string) (*binding.TransformingUnmarshaller, error) {
	if path == "" {
		path = cfg.Transform.Stylesheet
	}
	if path == "" {
		return nil, ErrNoStylesheet
	}
	if engine == "" {
		engine = cfg.Transform.Engine
	}
	um := binding.NewTransformingUnmarshaller(binding.Raw{},
		binding.WithEngine(engine),
		binding.WithLogger(logger),
	)
	if err := um.SetTransformFile(path); err != nil {
		return nil, err
	}
	return um, nil
}

func runTransform(cmd *cobra.Command, args []string) error {
	um, err := newTransformer(transformStylesheet, transformEngine)
	if err != nil {
		return err
	}

	path := "-"
	if len(args) == 1 {
		path = args[0]
	}
	data, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	root, err := inputRoot(data, transformPayload)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	v, err := um.Unmarshal(binding.TreeSource(root), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	doc := v.(*etree.Document)
	doc.Indent(2)
	_, err = doc.WriteTo(cmd.OutOrStdout())
	return err
}

func inputRoot(data []byte, payload bool) (*etree.Element, error) {
	if !payload {
		doc, err := xmltree.Parse(data)
		if err != nil {
			return nil, err
		}
		if doc.Root() == nil {
			return nil, binding.ErrEmptySource
		}
		return doc.Root(), nil
	}

	msg, err := soap.ParseMessage(data)
	if err != nil {
		return nil, err
	}
	if el := msg.Payload(); el != nil {
		return el, nil
	}
	if entries := msg.DetailEntries(); len(entries) > 0 {
		return entries[0], nil
	}
	return nil, ErrNoPayload
}
