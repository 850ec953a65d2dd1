package soap

import (
	"fmt"

	"github.com/beevik/etree"
	"github.com/go-faster/errors"

	"github.com/arcafe/go-arca-client/arca/model"
)

// Fault is a protocol-level failure: a SOAP fault string, or a nonzero
// global error code inside an otherwise well-formed envelope.
type Fault struct {
	Code    string
	Message string
}

func (f *Fault) Error() string {
	if f.Code != "" {
		return fmt.Sprintf("service error %s: %s", f.Code, f.Message)
	}
	return "SOAP fault: " + f.Message
}

// Parse reads a response body into an XML document.
func Parse(raw string) (*etree.Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(raw); err != nil {
		return nil, errors.Wrap(err, "parse response XML")
	}
	if doc.Root() == nil {
		return nil, errors.New("empty response document")
	}
	return doc, nil
}

// FindField returns the text of the first element whose local name matches
// tag, scanning the whole subtree depth-first in document order. Namespace
// prefixes are ignored: the services are inconsistent about them, so the
// match is on local name only.
func FindField(el *etree.Element, tag string) (string, bool) {
	found := findElement(el, tag)
	if found == nil {
		return "", false
	}
	return trimmedText(found), true
}

func findElement(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func trimmedText(el *etree.Element) string {
	// etree keeps surrounding whitespace from indented envelopes
	text := el.Text()
	start, end := 0, len(text)
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	return text[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// CheckFault fails when the document carries a SOAP fault or a nonzero
// global error code. Business-level Err lists are not checked here; the
// invoicing flow collects those itself.
func CheckFault(doc *etree.Document) error {
	root := doc.Root()
	if fault, ok := FindField(root, "faultstring"); ok && fault != "" {
		code, _ := FindField(root, "faultcode")
		return &Fault{Code: code, Message: fault}
	}
	if code, ok := FindField(root, "ErrCode"); ok && code != "" && code != "0" {
		msg, _ := FindField(root, "ErrMsg")
		return &Fault{Code: code, Message: msg}
	}
	return nil
}

// CollectPairs gathers every (Code, Msg) pair wrapped in an element with the
// given local name, anywhere in the tree, in document order. The service
// scatters Err and Obs blocks across several places of the response; all of
// them matter, not just the first.
func CollectPairs(el *etree.Element, wrapper string) []model.CodeMessage {
	var pairs []model.CodeMessage
	collectPairs(el, wrapper, &pairs)
	return pairs
}

func collectPairs(el *etree.Element, wrapper string, out *[]model.CodeMessage) {
	if el == nil {
		return
	}
	if el.Tag == wrapper {
		code, _ := FindField(el, "Code")
		msg, _ := FindField(el, "Msg")
		if msg != "" {
			*out = append(*out, model.CodeMessage{Code: code, Message: msg})
		}
		return
	}
	for _, child := range el.ChildElements() {
		collectPairs(child, wrapper, out)
	}
}
