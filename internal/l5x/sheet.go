package l5x

import (
	"encoding/xml"
	"fmt"
)

// ElementKind identifies a sheet element.
type ElementKind int

const (
	ElemIRef ElementKind = iota
	ElemORef
	ElemICon
	ElemOCon
	ElemBlock
	ElemAOI
	ElemWire
	ElemTextBox
)

var elementNames = [...]string{
	ElemIRef:    "IRef",
	ElemORef:    "ORef",
	ElemICon:    "ICon",
	ElemOCon:    "OCon",
	ElemBlock:   "Block",
	ElemAOI:     "AddOnInstruction",
	ElemWire:    "Wire",
	ElemTextBox: "TextBox",
}

// String returns the XML element name.
func (k ElementKind) String() string {
	if k < 0 || int(k) >= len(elementNames) {
		return fmt.Sprintf("ElementKind(%d)", int(k))
	}
	return elementNames[k]
}

func lookupElement(local string) (ElementKind, bool) {
	for k, name := range elementNames {
		if name == local {
			return ElementKind(k), true
		}
	}
	return 0, false
}

// Sheet is one FBD sheet. Items keep document order.
type Sheet struct {
	Number int
	Items  []SheetItem
}

// SheetItem is one element of a sheet. Only the fields relevant to Kind
// are set.
type SheetItem struct {
	Kind ElementKind

	ID      string // IRef, ORef, ICon, OCon, Block, AddOnInstruction
	Operand string // IRef, ORef, Block, AddOnInstruction
	Name    string // ICon, OCon (connector name), AddOnInstruction (definition)
	Type    string // Block
	Visible string // Block, AddOnInstruction: space separated pin names

	Params []InOutParameter // AddOnInstruction

	FromID    string // Wire
	FromParam string
	ToID      string
	ToParam   string

	Text string // TextBox
}

// InOutParameter binds an AOI in-out parameter to a tag argument.
type InOutParameter struct {
	Name     string `xml:"Name,attr"`
	Argument string `xml:"Argument,attr"`
}

type sheetElement struct {
	ID        string           `xml:"ID,attr,omitempty"`
	Name      string           `xml:"Name,attr,omitempty"`
	Type      string           `xml:"Type,attr,omitempty"`
	Operand   string           `xml:"Operand,attr,omitempty"`
	Visible   string           `xml:"VisiblePins,attr,omitempty"`
	FromID    string           `xml:"FromID,attr,omitempty"`
	FromParam string           `xml:"FromParam,attr,omitempty"`
	ToID      string           `xml:"ToID,attr,omitempty"`
	ToParam   string           `xml:"ToParam,attr,omitempty"`
	Params    []InOutParameter `xml:"InOutParameter,omitempty"`
	Text      *Text            `xml:"Text,omitempty"`
}

// UnmarshalXML decodes the sheet's children in document order. Unknown
// child elements are skipped.
func (s *Sheet) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local == "Number" {
			if _, err := fmt.Sscanf(a.Value, "%d", &s.Number); err != nil {
				return fmt.Errorf("sheet number %q: %w", a.Value, err)
			}
		}
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return fmt.Errorf("decode sheet %d: %w", s.Number, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			kind, ok := lookupElement(t.Name.Local)
			if !ok {
				if err := d.Skip(); err != nil {
					return fmt.Errorf("decode sheet %d: %w", s.Number, err)
				}
				continue
			}
			var el sheetElement
			if err := d.DecodeElement(&el, &t); err != nil {
				return fmt.Errorf("decode sheet %d %s: %w", s.Number, t.Name.Local, err)
			}
			s.Items = append(s.Items, el.item(kind))
		case xml.EndElement:
			return nil
		}
	}
}

// MarshalXML encodes the sheet's items in order.
func (s Sheet) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "Sheet"}
	start.Attr = []xml.Attr{{Name: xml.Name{Local: "Number"}, Value: fmt.Sprintf("%d", s.Number)}}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, it := range s.Items {
		el := elementFrom(it)
		if err := e.EncodeElement(el, xml.StartElement{Name: xml.Name{Local: it.Kind.String()}}); err != nil {
			return fmt.Errorf("encode sheet %d %s: %w", s.Number, it.Kind, err)
		}
	}
	return e.EncodeToken(start.End())
}

func (el sheetElement) item(kind ElementKind) SheetItem {
	it := SheetItem{
		Kind:      kind,
		ID:        el.ID,
		Operand:   el.Operand,
		Name:      el.Name,
		Type:      el.Type,
		Visible:   el.Visible,
		Params:    el.Params,
		FromID:    el.FromID,
		FromParam: el.FromParam,
		ToID:      el.ToID,
		ToParam:   el.ToParam,
	}
	if el.Text != nil {
		it.Text = el.Text.Value
	}
	return it
}

func elementFrom(it SheetItem) sheetElement {
	el := sheetElement{
		ID:        it.ID,
		Name:      it.Name,
		Type:      it.Type,
		Operand:   it.Operand,
		Visible:   it.Visible,
		FromID:    it.FromID,
		FromParam: it.FromParam,
		ToID:      it.ToID,
		ToParam:   it.ToParam,
		Params:    it.Params,
	}
	if it.Kind == ElemTextBox {
		el.Text = &Text{Value: it.Text}
	}
	return el
}
