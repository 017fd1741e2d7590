package source

import (
	"fmt"
	"strings"

	"github.com/roach88/l5xst/internal/l5x"
	"github.com/roach88/l5xst/internal/tables"
)

// maxConnectorHops bounds a chain of same-sheet connectors.
const maxConnectorHops = 16

type feed struct {
	sheet int
	id    string
	pin   string
}

// sheetBuilder resolves the sheets of one FBD routine. Connectors are
// resolved across the whole routine, so sheets are built together.
type sheetBuilder struct {
	ctl   *Controller
	field string
	errs  []ValidationError

	in     []l5x.Sheet
	out    []*Sheet
	nodes  []map[string]int          // element id → node index, per sheet
	cons   []map[string]l5x.SheetItem // connector id → connector, per sheet
	feeds  map[string]feed            // connector name → what feeds its OCon
	synths []map[string]int           // connector name → synthesized IRef, per sheet
}

func (b *sheetBuilder) errorf(code string, sheet int, format string, args ...any) {
	b.errs = append(b.errs, ValidationError{
		Field:   fmt.Sprintf("%s.sheets[%d]", b.field, sheet),
		Message: fmt.Sprintf(format, args...),
		Code:    code,
	})
}

func (b *sheetBuilder) build(in []l5x.Sheet) []*Sheet {
	b.in = in
	b.out = make([]*Sheet, len(in))
	b.nodes = make([]map[string]int, len(in))
	b.cons = make([]map[string]l5x.SheetItem, len(in))
	b.synths = make([]map[string]int, len(in))
	b.feeds = make(map[string]feed)

	for si := range in {
		b.declare(si)
	}
	for si := range in {
		b.collectFeeds(si)
	}
	for si := range in {
		b.wire(si)
	}
	for si := range in {
		b.finish(si)
	}
	return b.out
}

// declare creates the arena nodes of sheet si in document order.
func (b *sheetBuilder) declare(si int) {
	ls := b.in[si]
	s := &Sheet{Number: ls.Number}
	b.nodes[si] = make(map[string]int)
	b.cons[si] = make(map[string]l5x.SheetItem)
	b.synths[si] = make(map[string]int)

	for _, it := range ls.Items {
		var kind NodeKind
		switch it.Kind {
		case l5x.ElemIRef:
			kind = NodeIRef
		case l5x.ElemORef:
			kind = NodeORef
		case l5x.ElemBlock:
			kind = NodeBlock
		case l5x.ElemAOI:
			kind = NodeAOI
		case l5x.ElemICon, l5x.ElemOCon:
			if b.taken(si, it.ID) {
				b.errorf(ErrDuplicateID, si, "duplicate element id %q", it.ID)
				continue
			}
			b.cons[si][it.ID] = it
			continue
		default:
			continue
		}
		if b.taken(si, it.ID) {
			b.errorf(ErrDuplicateID, si, "duplicate element id %q", it.ID)
			continue
		}
		n := Node{
			Index:   len(s.Nodes),
			ID:      it.ID,
			Kind:    kind,
			Operand: it.Operand,
			Visible: strings.Fields(it.Visible),
		}
		switch kind {
		case NodeBlock:
			n.Type = strings.ToUpper(it.Type)
			n.Block, _ = tables.LookupBlock(it.Type)
		case NodeAOI:
			n.Type = it.Name
		}
		b.nodes[si][it.ID] = n.Index
		s.Nodes = append(s.Nodes, n)
	}
	b.out[si] = s
}

func (b *sheetBuilder) taken(si int, id string) bool {
	_, isNode := b.nodes[si][id]
	_, isCon := b.cons[si][id]
	return isNode || isCon
}

// collectFeeds records the upstream endpoint of every output connector.
func (b *sheetBuilder) collectFeeds(si int) {
	for _, it := range b.in[si].Items {
		if it.Kind != l5x.ElemWire {
			continue
		}
		con, ok := b.cons[si][it.ToID]
		if !ok || con.Kind != l5x.ElemOCon {
			continue
		}
		name := strings.ToUpper(con.Name)
		if name == "" {
			b.errorf(ErrConnector, si, "output connector %q has no name", con.ID)
			continue
		}
		if _, dup := b.feeds[name]; dup {
			b.errorf(ErrFanIn, si, "connector %q is fed more than once", con.Name)
			continue
		}
		b.feeds[name] = feed{sheet: si, id: it.FromID, pin: it.FromParam}
	}
}

// wire binds every wire that ends in a node of sheet si.
func (b *sheetBuilder) wire(si int) {
	seen := make(map[string]bool)
	for _, it := range b.in[si].Items {
		switch it.Kind {
		case l5x.ElemWire:
		case l5x.ElemAOI:
			b.bindInOut(si, it, seen)
			continue
		default:
			continue
		}
		if con, ok := b.cons[si][it.ToID]; ok {
			if con.Kind != l5x.ElemOCon {
				b.errorf(ErrWireDirection, si, "wire into input connector %q", con.Name)
			}
			continue
		}
		dst, ok := b.nodes[si][it.ToID]
		if !ok {
			b.errorf(ErrUnknownElement, si, "wire into unknown element %q", it.ToID)
			continue
		}
		src, ok := b.resolve(si, it.FromID, it.FromParam, 0)
		if !ok {
			continue
		}
		b.bind(si, dst, it.ToParam, src, seen)
	}
}

// bindInOut wires an AOI in-out argument through a synthesized IRef.
func (b *sheetBuilder) bindInOut(si int, it l5x.SheetItem, seen map[string]bool) {
	dst, ok := b.nodes[si][it.ID]
	if !ok {
		return
	}
	for _, p := range it.Params {
		s := b.out[si]
		ref := Node{Index: len(s.Nodes), ID: it.ID + "." + p.Name, Kind: NodeIRef, Operand: p.Argument}
		s.Nodes = append(s.Nodes, ref)
		b.bind(si, dst, p.Name, WireSource{Node: ref.Index}, seen)
	}
}

func (b *sheetBuilder) bind(si, dst int, pin string, src WireSource, seen map[string]bool) {
	n := &b.out[si].Nodes[dst]
	switch n.Kind {
	case NodeIRef:
		b.errorf(ErrWireDirection, si, "wire into input reference %q", n.Label())
		return
	case NodeORef:
		pin = ""
	case NodeBlock:
		if n.Block != tables.BlockUnknown {
			p, ok := n.Block.Info().Input(pin)
			if !ok {
				b.errorf(ErrUnknownPin, si, "block %s has no input pin %q", n.Label(), pin)
				return
			}
			pin = p.Name
		}
	case NodeAOI:
		if a, ok := b.ctl.AOI(n.Type); ok {
			p, ok := a.Param(pin)
			if !ok || (p.Usage != UsageInput && p.Usage != UsageInOut) {
				b.errorf(ErrUnknownPin, si, "add-on instruction %s has no input %q", n.Type, pin)
				return
			}
			pin = p.Name
		}
	}
	key := fmt.Sprintf("%d/%s", dst, strings.ToUpper(pin))
	if seen[key] {
		b.errorf(ErrFanIn, si, "more than one wire into %s pin %q", n.Label(), pin)
		return
	}
	seen[key] = true
	n.Inputs = append(n.Inputs, Input{Pin: pin, Source: src})
}

// resolve follows connectors back to the node producing a value.
func (b *sheetBuilder) resolve(si int, id, pin string, hops int) (WireSource, bool) {
	if idx, ok := b.nodes[si][id]; ok {
		n := b.out[si].Nodes[idx]
		switch n.Kind {
		case NodeORef:
			b.errorf(ErrWireDirection, si, "wire out of output reference %q", n.Label())
			return WireSource{}, false
		case NodeIRef:
			pin = ""
		}
		return WireSource{Node: idx, Pin: pin}, true
	}
	con, ok := b.cons[si][id]
	if !ok {
		b.errorf(ErrUnknownElement, si, "wire from unknown element %q", id)
		return WireSource{}, false
	}
	if con.Kind != l5x.ElemICon {
		b.errorf(ErrWireDirection, si, "wire out of output connector %q", con.Name)
		return WireSource{}, false
	}
	name := strings.ToUpper(con.Name)
	f, ok := b.feeds[name]
	if !ok {
		b.errorf(ErrConnector, si, "input connector %q has no matching output connector", con.Name)
		return WireSource{}, false
	}
	if hops >= maxConnectorHops {
		b.errorf(ErrConnector, si, "connector %q does not resolve to a block", con.Name)
		return WireSource{}, false
	}
	if f.sheet == si {
		return b.resolve(si, f.id, f.pin, hops+1)
	}
	if idx, ok := b.synths[si][name]; ok {
		return WireSource{Node: idx}, true
	}
	up, ok := b.resolve(f.sheet, f.id, f.pin, hops+1)
	if !ok {
		return WireSource{}, false
	}
	un := b.out[f.sheet].Nodes[up.Node]
	n := Node{ID: "ICon " + con.ID, Kind: NodeIRef, Operand: un.Operand, Type: un.Type, Block: un.Block, Pin: up.Pin}
	if un.Kind == NodeIRef {
		n.Pin = un.Pin
	}
	s := b.out[si]
	n.Index = len(s.Nodes)
	s.Nodes = append(s.Nodes, n)
	b.synths[si][name] = n.Index
	return WireSource{Node: n.Index}, true
}

// finish orders inputs by pin declaration and fills visible unwired pins
// of table blocks with their default literal.
func (b *sheetBuilder) finish(si int) {
	s := b.out[si]
	for i := range s.Nodes {
		n := &s.Nodes[i]
		switch {
		case n.Kind == NodeBlock && n.Block != tables.BlockUnknown:
			var ordered []Input
			for _, p := range n.Block.Info().Inputs {
				if src, ok := n.Input(p.Name); ok {
					ordered = append(ordered, Input{Pin: p.Name, Source: src})
					continue
				}
				if p.Default != "" && n.pinVisible(p.Name) {
					ordered = append(ordered, Input{Pin: p.Name, Source: LiteralSource{Value: p.Default, Kind: p.Kind}})
				}
			}
			n.Inputs = ordered
		case n.Kind == NodeAOI:
			a, ok := b.ctl.AOI(n.Type)
			if !ok {
				continue
			}
			var ordered []Input
			for _, p := range a.Params {
				if src, ok := n.Input(p.Name); ok {
					ordered = append(ordered, Input{Pin: p.Name, Source: src})
				}
			}
			n.Inputs = ordered
		}
	}
}

func (n *Node) pinVisible(pin string) bool {
	for _, v := range n.Visible {
		if strings.EqualFold(v, pin) {
			return true
		}
	}
	return false
}
