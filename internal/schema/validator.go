// =============================================================================
// SEPA Export - Schema Validator
// =============================================================================
//
// Validates a rendered document against the compiled schema. Two failure
// modes, mirroring the two stages:
//
//   1. The payload does not parse at all -> *MalformedXMLError carrying the
//      underlying parser message.
//   2. The payload parses but violates the schema -> *SchemaError carrying
//      every violation found, not just the first. A file that fails with
//      one missing element and one oversized field reports both.
//
// A document that validates is never touched again; the validator holds no
// state between calls and is safe for concurrent use.
//
// =============================================================================

package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"encoding/xml"

	"github.com/shopspring/decimal"
)

// MalformedXMLError reports a payload the XML parser rejected.
type MalformedXMLError struct {
	Err error
}

func (e *MalformedXMLError) Error() string { return "malformed XML: " + e.Err.Error() }
func (e *MalformedXMLError) Unwrap() error { return e.Err }

// SchemaError reports every schema violation found in a well-formed
// payload.
type SchemaError struct {
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("document violates schema (%d violations):\n%s",
		len(e.Violations), strings.Join(e.Violations, "\n"))
}

// Validator validates documents against one compiled schema.
type Validator struct {
	schema *Schema
}

// NewValidator returns a validator for s.
func NewValidator(s *Schema) *Validator {
	return &Validator{schema: s}
}

// Validate parses data and checks it against the schema. It returns nil, a
// *MalformedXMLError, or a *SchemaError.
func (v *Validator) Validate(data []byte) error {
	root, err := parseDocument(data)
	if err != nil {
		return &MalformedXMLError{Err: err}
	}

	var violations []string
	if root.name != v.schema.root.Name {
		violations = append(violations,
			fmt.Sprintf("/: root element is <%s>, schema expects <%s>", root.name, v.schema.root.Name))
	} else {
		if v.schema.targetNS != "" && root.space != v.schema.targetNS {
			violations = append(violations,
				fmt.Sprintf("/%s: namespace %q, schema expects %q", root.name, root.space, v.schema.targetNS))
		}
		v.validateElement(v.schema.root, root, "/"+root.name, &violations)
	}

	if len(violations) > 0 {
		return &SchemaError{Violations: violations}
	}
	return nil
}

// =============================================================================
// Instance document parsing
// =============================================================================

// node is one element of the parsed instance document.
type node struct {
	name     string
	space    string
	attrs    map[string]string
	children []*node
	text     string
}

// parseDocument builds the element tree for data. Any tokenizer error
// (unclosed tags, bad entities, stray content) surfaces unchanged.
func parseDocument(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var root *node
	var stack []*node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, space: t.Name.Space, attrs: make(map[string]string)}
			for _, a := range t.Attr {
				// Namespace declarations are not schema attributes.
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				n.attrs[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		}
	}
	if root == nil {
		return nil, errors.New("document contains no elements")
	}
	return root, nil
}

// =============================================================================
// Element validation
// =============================================================================

func (v *Validator) validateElement(decl *xsdElement, n *node, path string, errs *[]string) {
	switch {
	case decl.ComplexType != nil:
		v.validateComplex(decl.ComplexType, n, path, errs)
	case decl.SimpleType != nil:
		v.validateSimpleInline(decl.SimpleType, n, path, errs)
	case decl.Type != "":
		if ct, ok := v.schema.complexTypes[decl.Type]; ok {
			v.validateComplex(ct, n, path, errs)
			return
		}
		// Simple-typed element: no children allowed.
		if len(n.children) > 0 {
			*errs = append(*errs, fmt.Sprintf("%s: unexpected child elements in simple-typed element", path))
		}
		v.validateText(n.text, decl.Type, path, errs)
	default:
		*errs = append(*errs, fmt.Sprintf("%s: element <%s> has no type declaration", path, decl.Name))
	}
}

func (v *Validator) validateComplex(ct *xsdComplexType, n *node, path string, errs *[]string) {
	if ct.SimpleContent != nil {
		v.validateSimpleContent(ct.SimpleContent, n, path, errs)
		return
	}
	if ct.Sequence == nil {
		return
	}

	// Element-only content: character data between children is a violation.
	if strings.TrimSpace(n.text) != "" {
		*errs = append(*errs, fmt.Sprintf("%s: unexpected character data", path))
	}
	for name := range n.attrs {
		*errs = append(*errs, fmt.Sprintf("%s: unexpected attribute %q", path, name))
	}
	v.validateSequence(ct.Sequence, n, path, errs)
}

// validateSequence matches the node's children against the declared
// sequence in order, counting occurrences per declaration.
func (v *Validator) validateSequence(seq *xsdSequence, n *node, path string, errs *[]string) {
	i := 0
	for d := range seq.Elements {
		decl := &seq.Elements[d]
		min, max := decl.occurs()

		count := 0
		for i < len(n.children) && n.children[i].name == decl.Name && (max < 0 || count < max) {
			v.validateElement(decl, n.children[i], fmt.Sprintf("%s/%s", path, decl.Name), errs)
			i++
			count++
		}
		if count < min {
			*errs = append(*errs, fmt.Sprintf("%s: missing required element <%s>", path, decl.Name))
		}
	}
	for ; i < len(n.children); i++ {
		*errs = append(*errs, fmt.Sprintf("%s: unexpected element <%s>", path, n.children[i].name))
	}
}

func (v *Validator) validateSimpleContent(sc *xsdSimpleContent, n *node, path string, errs *[]string) {
	ext := sc.Extension
	if ext == nil {
		return
	}
	if len(n.children) > 0 {
		*errs = append(*errs, fmt.Sprintf("%s: unexpected child elements in simple content", path))
	}
	v.validateText(n.text, ext.Base, path, errs)

	declared := make(map[string]bool, len(ext.Attributes))
	for a := range ext.Attributes {
		attr := &ext.Attributes[a]
		declared[attr.Name] = true
		value, ok := n.attrs[attr.Name]
		if !ok {
			if attr.Use == "required" {
				*errs = append(*errs, fmt.Sprintf("%s: missing required attribute %q", path, attr.Name))
			}
			continue
		}
		v.validateText(value, attr.Type, fmt.Sprintf("%s/@%s", path, attr.Name), errs)
	}
	for name := range n.attrs {
		if !declared[name] {
			*errs = append(*errs, fmt.Sprintf("%s: unexpected attribute %q", path, name))
		}
	}
}

// =============================================================================
// Simple type validation
// =============================================================================

func (v *Validator) validateSimpleInline(st *xsdSimpleType, n *node, path string, errs *[]string) {
	if len(n.children) > 0 {
		*errs = append(*errs, fmt.Sprintf("%s: unexpected child elements in simple-typed element", path))
	}
	v.validateRestriction(n.text, st, path, errs)
}

// validateText validates a value against a type reference, which is either
// an xs: built-in or the name of a simple type declared in the schema.
func (v *Validator) validateText(value, typeRef, path string, errs *[]string) {
	if builtin, ok := strings.CutPrefix(typeRef, "xs:"); ok {
		v.validateBuiltin(value, builtin, path, errs)
		return
	}
	st, ok := v.schema.simpleTypes[typeRef]
	if !ok {
		*errs = append(*errs, fmt.Sprintf("%s: unknown type %q", path, typeRef))
		return
	}
	v.validateRestriction(value, st, path, errs)
}

func (v *Validator) validateRestriction(value string, st *xsdSimpleType, path string, errs *[]string) {
	r := st.Restriction
	if r == nil {
		return
	}
	if builtin, ok := strings.CutPrefix(r.Base, "xs:"); ok {
		v.validateBuiltin(value, builtin, path, errs)
	}

	n := utf8.RuneCountInString(value)
	if r.MinLength != nil {
		if min, err := atoiFacet(r.MinLength); err == nil && n < min {
			*errs = append(*errs, fmt.Sprintf("%s: value %q shorter than minLength %d", path, value, min))
		}
	}
	if r.MaxLength != nil {
		if max, err := atoiFacet(r.MaxLength); err == nil && n > max {
			*errs = append(*errs, fmt.Sprintf("%s: value %q exceeds maxLength %d", path, value, max))
		}
	}
	if re, ok := v.schema.patterns[st.Name]; ok && !re.MatchString(value) {
		*errs = append(*errs, fmt.Sprintf("%s: value %q does not match pattern %q", path, value, r.Pattern.Value))
	}
	if len(r.Enumerations) > 0 && !enumContains(r.Enumerations, value) {
		*errs = append(*errs, fmt.Sprintf("%s: value %q not in enumeration", path, value))
	}
	if r.TotalDigits != nil || r.FractionDigits != nil || r.MinInclusive != nil {
		v.validateDecimalFacets(value, r, path, errs)
	}
}

func (v *Validator) validateDecimalFacets(value string, r *xsdRestriction, path string, errs *[]string) {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		// Base type check already reported the parse failure.
		return
	}
	digits := strings.TrimLeft(strings.Replace(d.Abs().String(), ".", "", 1), "0")
	if r.TotalDigits != nil {
		if max, err := atoiFacet(r.TotalDigits); err == nil && len(digits) > max {
			*errs = append(*errs, fmt.Sprintf("%s: value %q has more than %d digits", path, value, max))
		}
	}
	if r.FractionDigits != nil {
		if max, err := atoiFacet(r.FractionDigits); err == nil && int(-d.Exponent()) > max {
			*errs = append(*errs, fmt.Sprintf("%s: value %q has more than %d fraction digits", path, value, max))
		}
	}
	if r.MinInclusive != nil {
		if min, err := decimal.NewFromString(r.MinInclusive.Value); err == nil && d.LessThan(min) {
			*errs = append(*errs, fmt.Sprintf("%s: value %q below minInclusive %s", path, value, r.MinInclusive.Value))
		}
	}
}

func (v *Validator) validateBuiltin(value, builtin, path string, errs *[]string) {
	value = strings.TrimSpace(value)
	switch builtin {
	case "string":
	case "decimal":
		if _, err := decimal.NewFromString(value); err != nil {
			*errs = append(*errs, fmt.Sprintf("%s: value %q is not a valid decimal", path, value))
		}
	case "boolean":
		if value != "true" && value != "false" && value != "1" && value != "0" {
			*errs = append(*errs, fmt.Sprintf("%s: value %q is not a valid boolean", path, value))
		}
	case "date":
		if _, err := time.Parse("2006-01-02", value); err != nil {
			*errs = append(*errs, fmt.Sprintf("%s: value %q is not a valid date", path, value))
		}
	case "dateTime":
		if !validDateTime(value) {
			*errs = append(*errs, fmt.Sprintf("%s: value %q is not a valid dateTime", path, value))
		}
	default:
		*errs = append(*errs, fmt.Sprintf("%s: unsupported built-in type xs:%s", path, builtin))
	}
}

// validDateTime accepts the xs:dateTime shapes the message format emits:
// local, UTC, and offset timestamps, with optional fractional seconds.
func validDateTime(value string) bool {
	for _, layout := range []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05-07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05.999999999Z",
		"2006-01-02T15:04:05.999999999-07:00",
	} {
		if _, err := time.Parse(layout, value); err == nil {
			return true
		}
	}
	return false
}

func atoiFacet(f *xsdFacet) (int, error) {
	var n int
	_, err := fmt.Sscanf(f.Value, "%d", &n)
	return n, err
}

func enumContains(facets []xsdFacet, value string) bool {
	for _, f := range facets {
		if f.Value == value {
			return true
		}
	}
	return false
}
