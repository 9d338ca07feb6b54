package transform

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// RulesEngine is the name of the built-in YAML rules engine.
const RulesEngine = "rules"

func init() {
	Register(RulesEngine, Rules{})
}

//go:embed stylesheet.schema.json
var stylesheetSchemaJSON string

var stylesheetSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("stylesheet.schema.json", strings.NewReader(stylesheetSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile("stylesheet.schema.json")
})

// Stylesheet is the YAML document compiled by the rules engine.
type Stylesheet struct {
	Version         int    `yaml:"version"`
	Select          string `yaml:"select,omitempty"`
	StripNamespaces bool   `yaml:"stripNamespaces,omitempty"`
	Rules           []Rule `yaml:"rules,omitempty"`
}

// Rule rewrites every element matched by Match, optionally filtered by When.
type Rule struct {
	Match       string            `yaml:"match"`
	When        string            `yaml:"when,omitempty"`
	Rename      string            `yaml:"rename,omitempty"`
	Remove      bool              `yaml:"remove,omitempty"`
	Unwrap      bool              `yaml:"unwrap,omitempty"`
	Text        *string           `yaml:"text,omitempty"`
	TextExpr    string            `yaml:"textExpr,omitempty"`
	SetAttrs    map[string]string `yaml:"setAttrs,omitempty"`
	RemoveAttrs []string          `yaml:"removeAttrs,omitempty"`
}

// ruleEnv is the expression environment for when and textExpr.
type ruleEnv struct {
	Tag    string            `expr:"tag"`
	Prefix string            `expr:"prefix"`
	NS     string            `expr:"ns"`
	Text   string            `expr:"text"`
	Attrs  map[string]string `expr:"attrs"`
	Depth  int               `expr:"depth"`
	Index  int               `expr:"index"`
}

// exprOptions returns the compile options for when and textExpr. Besides the
// expr builtins, title(s) upper-cases the first letter of every word.
func exprOptions(extra ...expr.Option) []expr.Option {
	opts := []expr.Option{
		expr.Env(ruleEnv{}),
		expr.Function("title", func(params ...any) (any, error) {
			return cases.Title(language.Und).String(params[0].(string)), nil
		}, new(func(string) string)),
	}
	return append(opts, extra...)
}

// Rules is the rules engine.
type Rules struct{}

// Compile parses, validates and compiles a YAML stylesheet.
func (Rules) Compile(r io.Reader) (Program, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read stylesheet: %w", err)
	}
	sheet, err := ParseStylesheet(data)
	if err != nil {
		return nil, err
	}
	return compileStylesheet(sheet)
}

// ParseStylesheet decodes and schema-validates a rules stylesheet.
func ParseStylesheet(data []byte) (*Stylesheet, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStylesheet, err)
	}

	// Round trip through JSON so the validator sees JSON types.
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStylesheet, err)
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(js))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStylesheet, err)
	}

	schema, err := stylesheetSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStylesheet, schemaMessage(err))
	}

	var sheet Stylesheet
	if err := yaml.Unmarshal(data, &sheet); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidStylesheet, err)
	}
	return &sheet, nil
}

// schemaMessage flattens a validation error to its leaf causes.
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			loc := e.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msgs = append(msgs, loc+": "+e.Message)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(msgs, "; ")
}

type rulesProgram struct {
	selectPath *etree.Path
	selectSrc  string
	strip      bool
	rules      []compiledRule
}

type compiledRule struct {
	Rule
	num      int
	op       string
	path     etree.Path
	when     *vm.Program
	textExpr *vm.Program
	attrKeys []string
}

func compileStylesheet(sheet *Stylesheet) (*rulesProgram, error) {
	p := &rulesProgram{strip: sheet.StripNamespaces, selectSrc: sheet.Select}
	if sheet.Select != "" {
		path, err := etree.CompilePath(sheet.Select)
		if err != nil {
			return nil, fmt.Errorf("select %q: %w", sheet.Select, err)
		}
		p.selectPath = &path
	}

	for i, r := range sheet.Rules {
		cr := compiledRule{Rule: r, num: i + 1, op: ruleOp(r)}
		path, err := etree.CompilePath(r.Match)
		if err != nil {
			return nil, fmt.Errorf("rule %d: match %q: %w", cr.num, r.Match, err)
		}
		cr.path = path

		if r.When != "" {
			cr.when, err = expr.Compile(r.When, exprOptions(expr.AsBool())...)
			if err != nil {
				return nil, fmt.Errorf("rule %d: when: %w", cr.num, err)
			}
		}
		if r.TextExpr != "" {
			cr.textExpr, err = expr.Compile(r.TextExpr, exprOptions()...)
			if err != nil {
				return nil, fmt.Errorf("rule %d: textExpr: %w", cr.num, err)
			}
		}

		for k := range r.SetAttrs {
			cr.attrKeys = append(cr.attrKeys, k)
		}
		sort.Strings(cr.attrKeys)
		p.rules = append(p.rules, cr)
	}
	return p, nil
}

// ruleOp names a rule for error messages.
func ruleOp(r Rule) string {
	switch {
	case r.Remove:
		return "remove"
	case r.Unwrap:
		return "unwrap"
	case r.Rename != "":
		return "rename"
	case r.Text != nil || r.TextExpr != "":
		return "text"
	default:
		return "attrs"
	}
}

func (p *rulesProgram) NewExecutor() Executor {
	return &rulesExecutor{prog: p}
}
