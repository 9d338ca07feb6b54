// Package xmltree holds small etree helpers shared by the SOAP message model,
// the binding engine and the transform engines.
//
//   - Parse / NewDocument: charset-aware document reading
//   - Isolate: detach a subtree together with its in-scope namespace declarations
//   - TextContent: concatenated character data of an element and its descendants
package xmltree
