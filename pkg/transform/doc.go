// Package transform rewrites XML trees before they are bound to Go values.
//
// Engines are registered by name and compile a stylesheet once into an
// immutable Program. Every run creates a fresh Executor from the Program, so a
// single Program can serve any number of concurrent callers.
//
// The built-in "rules" engine reads a YAML stylesheet:
//
//	version: 1
//	stripNamespaces: true
//	select: "//Body/*"
//	rules:
//	  - match: "//LegacyFault"
//	    when: 'attrs["severity"] == "fatal"'
//	    rename: ServiceFault
//	    setAttrs: {kind: legacy}
//	    removeAttrs: [severity]
//	  - match: "//debug"
//	    remove: true
//	  - match: "//Wrapper"
//	    unwrap: true
//
// Stages run in order: namespace stripping, root selection, then each rule.
// Within a rule the text, setAttrs, removeAttrs and rename operations apply
// first, followed by remove or unwrap. Match paths use etree path syntax;
// when and textExpr are expr-lang expressions evaluated with tag, prefix, ns,
// text, attrs, depth and index in scope. Besides the expr builtins, title(s)
// capitalizes every word.
package transform
