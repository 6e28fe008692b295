// =============================================================================
// SEPA Export - Message Schema
// =============================================================================
//
// Loads the canonical XSD for the message version (pain.001.001.03) and
// compiles it into the in-memory form the validator walks. The schema file
// is read once from a fixed location and treated as immutable for the
// lifetime of the process.
//
// The compiler covers the schema vocabulary the credit transfer XSD uses:
// named complex types with element sequences, simple content extensions
// with attributes, and named simple types restricting the built-in string,
// decimal, date, dateTime and boolean types with pattern, length, digit,
// and enumeration facets.
//
// =============================================================================

package schema

import (
	"fmt"
	"os"
	"regexp"
	"strconv"

	"encoding/xml"
)

// Schema is a compiled XSD, ready for validation.
type Schema struct {
	targetNS     string
	root         *xsdElement
	complexTypes map[string]*xsdComplexType
	simpleTypes  map[string]*xsdSimpleType
	patterns     map[string]*regexp.Regexp
}

// TargetNamespace returns the namespace the schema declares for its
// instance documents.
func (s *Schema) TargetNamespace() string { return s.targetNS }

// Load reads and compiles the XSD at path.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return Parse(data)
}

// Parse compiles XSD bytes. The first top-level element declaration is the
// document root.
func Parse(data []byte) (*Schema, error) {
	var raw xsdSchema
	if err := xml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	if len(raw.Elements) == 0 {
		return nil, fmt.Errorf("parse schema: no top-level element declaration")
	}

	s := &Schema{
		targetNS:     raw.TargetNamespace,
		root:         &raw.Elements[0],
		complexTypes: make(map[string]*xsdComplexType, len(raw.ComplexTypes)),
		simpleTypes:  make(map[string]*xsdSimpleType, len(raw.SimpleTypes)),
		patterns:     make(map[string]*regexp.Regexp),
	}
	for i := range raw.ComplexTypes {
		s.complexTypes[raw.ComplexTypes[i].Name] = &raw.ComplexTypes[i]
	}
	for i := range raw.SimpleTypes {
		st := &raw.SimpleTypes[i]
		s.simpleTypes[st.Name] = st
		if st.Restriction != nil && st.Restriction.Pattern != nil {
			// XSD patterns match the whole value.
			re, err := regexp.Compile("^(?:" + st.Restriction.Pattern.Value + ")$")
			if err != nil {
				return nil, fmt.Errorf("parse schema: type %s: bad pattern: %w", st.Name, err)
			}
			s.patterns[st.Name] = re
		}
	}
	return s, nil
}

// =============================================================================
// XSD document model
// =============================================================================

type xsdSchema struct {
	XMLName         xml.Name         `xml:"http://www.w3.org/2001/XMLSchema schema"`
	TargetNamespace string           `xml:"targetNamespace,attr"`
	Elements        []xsdElement     `xml:"element"`
	ComplexTypes    []xsdComplexType `xml:"complexType"`
	SimpleTypes     []xsdSimpleType  `xml:"simpleType"`
}

type xsdElement struct {
	Name        string          `xml:"name,attr"`
	Type        string          `xml:"type,attr"`
	MinOccurs   string          `xml:"minOccurs,attr"`
	MaxOccurs   string          `xml:"maxOccurs,attr"`
	ComplexType *xsdComplexType `xml:"complexType"`
	SimpleType  *xsdSimpleType  `xml:"simpleType"`
}

// occurs returns the element's occurrence bounds; max < 0 means unbounded.
func (e *xsdElement) occurs() (min, max int) {
	min, max = 1, 1
	if e.MinOccurs != "" {
		min, _ = strconv.Atoi(e.MinOccurs)
	}
	switch e.MaxOccurs {
	case "":
	case "unbounded":
		max = -1
	default:
		max, _ = strconv.Atoi(e.MaxOccurs)
	}
	return min, max
}

type xsdComplexType struct {
	Name          string            `xml:"name,attr"`
	Sequence      *xsdSequence      `xml:"sequence"`
	SimpleContent *xsdSimpleContent `xml:"simpleContent"`
}

type xsdSequence struct {
	Elements []xsdElement `xml:"element"`
}

type xsdSimpleContent struct {
	Extension *xsdExtension `xml:"extension"`
}

type xsdExtension struct {
	Base       string         `xml:"base,attr"`
	Attributes []xsdAttribute `xml:"attribute"`
}

type xsdAttribute struct {
	Name string `xml:"name,attr"`
	Type string `xml:"type,attr"`
	Use  string `xml:"use,attr"`
}

type xsdSimpleType struct {
	Name        string          `xml:"name,attr"`
	Restriction *xsdRestriction `xml:"restriction"`
}

type xsdRestriction struct {
	Base           string     `xml:"base,attr"`
	Pattern        *xsdFacet  `xml:"pattern"`
	MinLength      *xsdFacet  `xml:"minLength"`
	MaxLength      *xsdFacet  `xml:"maxLength"`
	TotalDigits    *xsdFacet  `xml:"totalDigits"`
	FractionDigits *xsdFacet  `xml:"fractionDigits"`
	MinInclusive   *xsdFacet  `xml:"minInclusive"`
	Enumerations   []xsdFacet `xml:"enumeration"`
}

type xsdFacet struct {
	Value string `xml:"value,attr"`
}
