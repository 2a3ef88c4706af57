package content

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Document is a fetched JSON metadata document.
type Document struct {
	// Raw is the document as fetched, compacted.
	Raw    json.RawMessage
	values map[string]any
}

// ParseDocument parses raw as JSON. Any JSON value is a valid document; only
// objects carry display fields.
func ParseDocument(raw []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return Document{}, fmt.Errorf("invalid JSON document: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Document{}, fmt.Errorf("invalid JSON document: trailing data")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return Document{}, fmt.Errorf("invalid JSON document: %w", err)
	}

	obj, _ := v.(map[string]any)
	return Document{Raw: buf.Bytes(), values: obj}, nil
}

// DisplayFields are the denormalized listing fields taken from a metadata document.
// A nil field was absent or had an unusable type.
type DisplayFields struct {
	Title       *string
	Description *string
	Category    *string
	Image       *string
	Price       *string
	Currency    *string
	LocationID  *string
	Contact     *string // JSON text
	Tags        *string // JSON text
}

// DisplayFields extracts the denormalized fields.
func (d Document) DisplayFields() DisplayFields {
	return DisplayFields{
		Title:       d.stringField("title"),
		Description: d.stringField("description"),
		Category:    d.stringField("category"),
		Image:       d.stringField("image"),
		Price:       d.priceField(),
		Currency:    d.stringField("currency"),
		LocationID:  d.stringField("locationId"),
		Contact:     d.jsonField("contact", isObjectOrString),
		Tags:        d.jsonField("tags", isArrayOrString),
	}
}

func (d Document) stringField(name string) *string {
	s, ok := d.values[name].(string)
	if !ok {
		return nil
	}
	return &s
}

// price may be published as a string or a JSON number.
func (d Document) priceField() *string {
	switch v := d.values["price"].(type) {
	case string:
		return &v
	case json.Number:
		s := v.String()
		return &s
	default:
		return nil
	}
}

func (d Document) jsonField(name string, accept func(any) bool) *string {
	v, ok := d.values[name]
	if !ok || !accept(v) {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(b)
	return &s
}

func isObjectOrString(v any) bool {
	switch v.(type) {
	case map[string]any, string:
		return true
	}
	return false
}

func isArrayOrString(v any) bool {
	switch v.(type) {
	case []any, string:
		return true
	}
	return false
}
