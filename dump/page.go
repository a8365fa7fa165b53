package dump

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/wikistream/core"
)

// textField collects all character data of an element and its descendants.
// It accepts plain text, CDATA sections and nested markup alike.
type textField struct {
	Value string
}

func (t *textField) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var sb strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch tok := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			sb.Write(tok)
		}
	}
	t.Value = sb.String()
	return nil
}

type xmlRevision struct {
	Text textField `xml:"text"`
}

type xmlPage struct {
	Title     textField     `xml:"title"`
	NS        textField     `xml:"ns"`
	ID        textField     `xml:"id"`
	Redirect  *struct{}     `xml:"redirect"`
	Revisions []xmlRevision `xml:"revision"`
}

// parsePage decodes one complete <page>...</page> element.
func parsePage(element []byte) (core.Page, error) {
	var p xmlPage
	dec := xml.NewDecoder(bytes.NewReader(element))
	dec.Entity = xml.HTMLEntity
	if err := dec.Decode(&p); err != nil {
		return core.Page{}, fmt.Errorf("%w: %w", core.ErrMalformedPage, err)
	}

	id := strings.TrimSpace(p.ID.Value)
	if id == "" {
		return core.Page{}, fmt.Errorf("%w: missing id", core.ErrMalformedPage)
	}

	ns := 0
	if raw := strings.TrimSpace(p.NS.Value); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return core.Page{}, fmt.Errorf("%w: page %s namespace %q", core.ErrMalformedPage, id, raw)
		}
		ns = n
	}

	page := core.Page{
		Title:      strings.TrimSpace(p.Title.Value),
		ID:         id,
		Namespace:  ns,
		IsRedirect: p.Redirect != nil,
	}
	// Dumps with history carry several revisions; the last one is current.
	if n := len(p.Revisions); n > 0 {
		page.RawText = p.Revisions[n-1].Text.Value
	}
	return page, nil
}
