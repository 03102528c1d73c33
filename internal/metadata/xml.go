package metadata

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/alnah/go-invoice2pdf/internal/dateutil"
)

// UBL namespaces.
const (
	NamespaceCBC = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NamespaceUBL = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
)

// IdentifierLength is the exact rune length of an accepted document identifier.
const IdentifierLength = 16

var (
	ErrNoIssueDate        = errors.New("no issue date element")
	ErrUnknownDateLayout  = errors.New("date has neither '-' nor '.' separator")
	ErrNoIdentifier       = errors.New("no cbc:ID element")
	ErrIdentifierLength   = errors.New("identifier length is not 16")
	ErrMalformedStructure = errors.New("malformed XML")
)

// issueDateTiers are searched in order; the first namespace with any
// IssueDate element wins.
var issueDateTiers = []string{"", NamespaceCBC, NamespaceUBL}

// fallbackDateTags are searched without namespace when no tier yields text.
var fallbackDateTags = []string{"IssueDate", "DüzenlemeTarihi", "düzenlemetarihi", "BelgeTarihi", "belgetarihi"}

type element struct {
	space, local string
	text         string // character data before the first child
	sawChild     bool
}

// Document is a flattened, document-ordered view of an XML file's elements
// below the root.
type Document struct {
	elements []element
}

// ParseDocument reads a whole XML document. Non UTF-8 encodings declared in
// the prolog (e.g. ISO-8859-9) are decoded.
func ParseDocument(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	doc := &Document{}
	var stack []int // indices into doc.elements; -1 marks the root
	sawRoot := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedStructure, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) > 0 {
				if top := stack[len(stack)-1]; top >= 0 {
					doc.elements[top].sawChild = true
				}
			}
			if len(stack) == 0 {
				if sawRoot {
					return nil, fmt.Errorf("%w: more than one root element", ErrMalformedStructure)
				}
				sawRoot = true
				stack = append(stack, -1)
				continue
			}
			doc.elements = append(doc.elements, element{space: t.Name.Space, local: t.Name.Local})
			stack = append(stack, len(doc.elements)-1)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			if top := stack[len(stack)-1]; top >= 0 && !doc.elements[top].sawChild {
				doc.elements[top].text += string(t)
			}
		}
	}
	if !sawRoot || len(stack) != 0 {
		return nil, fmt.Errorf("%w: unexpected end of document", ErrMalformedStructure)
	}
	return doc, nil
}

// first returns the first element with the given namespace and local name.
func (d *Document) first(space, local string) (element, bool) {
	for _, e := range d.elements {
		if e.space == space && e.local == local {
			return e, true
		}
	}
	return element{}, false
}

// IssueDate returns the raw, trimmed issue date text.
// Lookup order: IssueDate without namespace, in cbc, in ubl; then the
// fallback tag list without namespace.
func (d *Document) IssueDate() (string, error) {
	for _, ns := range issueDateTiers {
		if e, ok := d.first(ns, "IssueDate"); ok {
			if text := strings.TrimSpace(e.text); text != "" {
				return text, nil
			}
			break
		}
	}
	for _, tag := range fallbackDateTags {
		if e, ok := d.first("", tag); ok {
			if text := strings.TrimSpace(e.text); text != "" {
				return text, nil
			}
			break
		}
	}
	return "", ErrNoIssueDate
}

// Identifier returns the first cbc:ID text, trimmed, when it is exactly
// IdentifierLength runes long.
func (d *Document) Identifier() (string, error) {
	e, ok := d.first(NamespaceCBC, "ID")
	if !ok {
		return "", ErrNoIdentifier
	}
	id := strings.TrimSpace(e.text)
	if n := utf8.RuneCountInString(id); n != IdentifierLength {
		return "", fmt.Errorf("%w: %q has %d characters", ErrIdentifierLength, id, n)
	}
	return id, nil
}

// ParseIssueDate parses an issue date string: "YYYY-M-D" when it contains
// '-', otherwise "D.M.YYYY" when it contains '.'.
func ParseIssueDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.Contains(s, "-"):
		return dateutil.Parse(dateutil.ISOLoose, s)
	case strings.Contains(s, "."):
		return dateutil.Parse(dateutil.DottedLoose, s)
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownDateLayout, s)
	}
}
