package transform

import (
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	"github.com/expr-lang/expr"

	"github.com/getmockd/soapkit/internal/xmltree"
)

var (
	errNoSelection = errors.New("no element matches select path")
	errRootRemoval = errors.New("cannot remove or unwrap the root element")
)

type rulesExecutor struct {
	prog *rulesProgram
	doc  *etree.Document
}

// Transform copies root into a private document and applies the program.
func (x *rulesExecutor) Transform(root *etree.Element) (*etree.Document, error) {
	if root == nil {
		return nil, &Error{Op: "input", Err: errors.New("nil root element")}
	}
	x.doc = xmltree.WithRoot(xmltree.Isolate(root))

	if x.prog.strip {
		stripNamespaces(x.doc.Root())
	}

	if x.prog.selectPath != nil {
		match := x.doc.FindElementPath(*x.prog.selectPath)
		if match == nil {
			return nil, &Error{Op: "select", Err: fmt.Errorf("%w: %q", errNoSelection, x.prog.selectSrc)}
		}
		x.doc = xmltree.WithRoot(xmltree.Isolate(match))
	}

	for i := range x.prog.rules {
		if err := x.apply(&x.prog.rules[i]); err != nil {
			return nil, err
		}
	}
	return x.doc, nil
}

func (x *rulesExecutor) apply(r *compiledRule) error {
	matches := x.doc.FindElementsPath(r.path)
	for i, el := range matches {
		if !x.attached(el) {
			continue
		}

		if r.when != nil || r.textExpr != nil {
			env := x.env(el, i)
			if r.when != nil {
				out, err := expr.Run(r.when, env)
				if err != nil {
					return &Error{Rule: r.num, Op: "when", Err: err}
				}
				if ok, _ := out.(bool); !ok {
					continue
				}
			}
			if r.textExpr != nil {
				out, err := expr.Run(r.textExpr, env)
				if err != nil {
					return &Error{Rule: r.num, Op: "textExpr", Err: err}
				}
				s, ok := out.(string)
				if !ok {
					return &Error{Rule: r.num, Op: "textExpr", Err: fmt.Errorf("expression returned %T, want string", out)}
				}
				replaceContent(el, s)
			}
		}

		if r.Text != nil {
			replaceContent(el, *r.Text)
		}
		for _, k := range r.attrKeys {
			el.CreateAttr(k, r.SetAttrs[k])
		}
		for _, k := range r.RemoveAttrs {
			el.RemoveAttr(k)
		}
		if r.Rename != "" {
			if prefix, local, ok := strings.Cut(r.Rename, ":"); ok {
				el.Space, el.Tag = prefix, local
			} else {
				el.Space, el.Tag = "", r.Rename
			}
		}

		switch {
		case r.Remove:
			parent, err := x.parentOf(el)
			if err != nil {
				return &Error{Rule: r.num, Op: r.op, Err: err}
			}
			parent.RemoveChildAt(el.Index())
		case r.Unwrap:
			parent, err := x.parentOf(el)
			if err != nil {
				return &Error{Rule: r.num, Op: r.op, Err: err}
			}
			idx := el.Index()
			children := append([]etree.Token(nil), el.Child...)
			parent.RemoveChildAt(idx)
			for j, c := range children {
				parent.InsertChildAt(idx+j, c)
			}
		}
	}
	return nil
}

func (x *rulesExecutor) parentOf(el *etree.Element) (*etree.Element, error) {
	parent := el.Parent()
	if parent == nil || parent == &x.doc.Element {
		return nil, errRootRemoval
	}
	return parent, nil
}

// attached reports whether el is still part of the working document. An
// earlier match of the same rule may have removed one of its ancestors.
func (x *rulesExecutor) attached(el *etree.Element) bool {
	for p := el; p != nil; p = p.Parent() {
		if p == &x.doc.Element {
			return true
		}
	}
	return false
}

func (x *rulesExecutor) env(el *etree.Element, index int) ruleEnv {
	attrs := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		attrs[a.FullKey()] = a.Value
	}
	depth := 0
	for p := el.Parent(); p != nil && p != &x.doc.Element; p = p.Parent() {
		depth++
	}
	return ruleEnv{
		Tag:    el.Tag,
		Prefix: el.Space,
		NS:     el.NamespaceURI(),
		Text:   xmltree.TextContent(el),
		Attrs:  attrs,
		Depth:  depth,
		Index:  index,
	}
}

// replaceContent drops every child token of el and sets its text.
func replaceContent(el *etree.Element, text string) {
	for len(el.Child) > 0 {
		el.RemoveChildAt(len(el.Child) - 1)
	}
	el.SetText(text)
}

// stripNamespaces removes prefixes and namespace declarations from el and
// its descendants. When several attributes share a local name once their
// prefixes are gone, the first one in document order is kept.
func stripNamespaces(el *etree.Element) {
	el.Space = ""
	attrs := el.Attr[:0]
	seen := make(map[string]struct{}, len(el.Attr))
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		if _, dup := seen[a.Key]; dup {
			continue
		}
		seen[a.Key] = struct{}{}
		a.Space = ""
		attrs = append(attrs, a)
	}
	el.Attr = attrs
	for _, c := range el.ChildElements() {
		stripNamespaces(c)
	}
}
