package source

import (
	"strings"

	"github.com/roach88/l5xst/internal/ir"
	"github.com/roach88/l5xst/internal/tables"
)

// NodeKind classifies sheet nodes.
type NodeKind uint8

const (
	// NodeIRef reads a tag.
	NodeIRef NodeKind = iota + 1
	// NodeORef writes a tag.
	NodeORef
	// NodeBlock is a built-in instruction block.
	NodeBlock
	// NodeAOI is an add-on instruction instance.
	NodeAOI
)

func (k NodeKind) String() string {
	switch k {
	case NodeIRef:
		return "IRef"
	case NodeORef:
		return "ORef"
	case NodeBlock:
		return "Block"
	case NodeAOI:
		return "AOI"
	}
	return "unknown"
}

// PinSource is where an input pin takes its value from: exactly one of
// WireSource or LiteralSource.
type PinSource interface {
	pinSource()
}

// WireSource reads output Pin of the node at arena index Node. Pin is empty
// for IRef nodes, which have a single unnamed output.
type WireSource struct {
	Node int
	Pin  string
}

// LiteralSource is a constant pin value.
type LiteralSource struct {
	Value string
	Kind  ir.LitKind
}

func (WireSource) pinSource()    {}
func (LiteralSource) pinSource() {}

// Input binds an input pin to its source. Pin is empty for ORef nodes.
type Input struct {
	Pin    string
	Source PinSource
}

// Node is one element of a sheet arena. Index equals the node's position
// in Sheet.Nodes, which is its declaration order.
type Node struct {
	Index   int
	ID      string
	Kind    NodeKind
	Type    string       // block type or AOI name
	Block   tables.Block // resolved block type, BlockUnknown when not in the table
	Operand string       // backing tag (IRef/ORef: the referenced tag)
	Visible []string
	Inputs  []Input

	// Pin is set on IRef nodes synthesized for a connector that crosses
	// sheets: the node then stands for output Pin of the Block-typed
	// upstream instance named by Operand.
	Pin string
}

// Input returns the source bound to pin, if any.
func (n *Node) Input(pin string) (PinSource, bool) {
	for _, in := range n.Inputs {
		if strings.EqualFold(in.Pin, pin) {
			return in.Source, true
		}
	}
	return nil, false
}

// Label names the node in diagnostics.
func (n *Node) Label() string {
	if n.Operand != "" {
		return n.Operand
	}
	return n.Kind.String() + " " + n.ID
}

// Stateful reports whether the node may close a feedback cycle.
func (n *Node) Stateful() bool {
	if n.Kind == NodeAOI {
		return true
	}
	return n.Kind == NodeBlock && n.Block.Info().Stateful
}

// Sheet is one resolved FBD sheet.
type Sheet struct {
	Number int
	Nodes  []Node
}

// Edge is a dependency between two nodes of a sheet.
type Edge struct {
	From, To int
}

// Edges returns every wire of the sheet, ordered by destination node then
// input order.
func (s *Sheet) Edges() []Edge {
	var out []Edge
	for i := range s.Nodes {
		for _, in := range s.Nodes[i].Inputs {
			if w, ok := in.Source.(WireSource); ok {
				out = append(out, Edge{From: w.Node, To: i})
			}
		}
	}
	return out
}
