// Package workflow is the in-memory model of an Alteryx workflow document:
// parsing, serialization, construction, and the configuration field mapping.
//
// The XML tree is the backing store. Node and Edge are views over elements,
// so any structure the model does not interpret survives a round trip.
package workflow

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/agentic-research/yxflow/api"
	"github.com/agentic-research/yxflow/internal/plugins"
)

// Element paths relative to a <Node>.
const (
	pathPlugin        = "GuiSettings"
	pathConfiguration = "Properties/Configuration"
	pathAnnotationTxt = "Properties/Annotation/DefaultAnnotationText"
	pathCaption       = "Properties/Configuration/Caption"
	pathChildNodes    = "ChildNodes"

	// Connection leaves, relative to Properties/Configuration, in lookup order.
	pathFSOConnection  = "FormatSpecificOptions/Connection"
	pathConfConnection = "Connection"
)

// Document is a parsed or freshly built workflow.
type Document struct {
	xml *etree.Document
}

// XML exposes the backing tree.
func (d *Document) XML() *etree.Document { return d.xml }

// Root returns the AlteryxDocument element.
func (d *Document) Root() *etree.Element { return d.xml.Root() }

// Nodes returns the top-level tools in document order.
func (d *Document) Nodes() []*Node {
	root := d.Root()
	if root == nil {
		return nil
	}
	nodes := root.SelectElement("Nodes")
	if nodes == nil {
		return nil
	}
	return wrapNodes(nodes.SelectElements("Node"))
}

// Edges returns the connections between tools. Ports default to
// Output/Input; edges whose tool ids do not parse are skipped.
func (d *Document) Edges() []Edge {
	root := d.Root()
	if root == nil {
		return nil
	}
	conns := root.SelectElement("Connections")
	if conns == nil {
		return nil
	}
	var edges []Edge
	for _, c := range conns.SelectElements("Connection") {
		origin, dest := c.SelectElement("Origin"), c.SelectElement("Destination")
		if origin == nil || dest == nil {
			continue
		}
		oid, err1 := strconv.Atoi(origin.SelectAttrValue("ToolID", ""))
		did, err2 := strconv.Atoi(dest.SelectAttrValue("ToolID", ""))
		if err1 != nil || err2 != nil {
			continue
		}
		edges = append(edges, Edge{
			OriginID:        oid,
			OriginPort:      origin.SelectAttrValue("Connection", api.DefaultOriginPort),
			DestinationID:   did,
			DestinationPort: dest.SelectAttrValue("Connection", api.DefaultDestinationPort),
		})
	}
	return edges
}

// MetaInfo returns Properties/MetaInfo as a field mapping, or nil.
func (d *Document) MetaInfo() *api.Fields {
	root := d.Root()
	if root == nil {
		return nil
	}
	if meta := root.FindElement("Properties/MetaInfo"); meta != nil {
		return ReadFields(meta)
	}
	return nil
}

// Edge connects an output port of one tool to an input port of another.
type Edge struct {
	OriginID        int
	OriginPort      string
	DestinationID   int
	DestinationPort string
}

// Node is one tool instance.
type Node struct {
	el *etree.Element
}

// NewNode wraps a <Node> element.
func NewNode(el *etree.Element) *Node { return &Node{el: el} }

func wrapNodes(els []*etree.Element) []*Node {
	nodes := make([]*Node, len(els))
	for i, el := range els {
		nodes[i] = &Node{el: el}
	}
	return nodes
}

// Element exposes the backing <Node> element.
func (n *Node) Element() *etree.Element { return n.el }

// ID returns the ToolID and whether it parsed as an integer.
func (n *Node) ID() (int, bool) {
	id, err := strconv.Atoi(strings.TrimSpace(n.el.SelectAttrValue("ToolID", "")))
	if err != nil {
		return 0, false
	}
	return id, true
}

// Plugin returns the fully-qualified plugin path, or "".
func (n *Node) Plugin() string {
	gui := n.el.SelectElement(pathPlugin)
	if gui == nil {
		return ""
	}
	return gui.SelectAttrValue("Plugin", "")
}

// ShortName returns the last segment of the plugin path.
func (n *Node) ShortName() string { return plugins.ShortName(n.Plugin()) }

// IsContainer reports whether the node is a ToolContainer.
func (n *Node) IsContainer() bool { return plugins.IsContainer(n.Plugin()) }

// Children returns the nodes nested in a container, in order.
func (n *Node) Children() []*Node {
	if !n.IsContainer() {
		return nil
	}
	child := n.el.SelectElement(pathChildNodes)
	if child == nil {
		return nil
	}
	return wrapNodes(child.SelectElements("Node"))
}

// Annotation returns DefaultAnnotationText, or "" when absent.
func (n *Node) Annotation() string {
	if el := n.el.FindElement(pathAnnotationTxt); el != nil {
		return el.Text()
	}
	return ""
}

// SetAnnotation replaces the annotation text, creating the Properties,
// Annotation and DefaultAnnotationText elements as needed. It returns the
// previous text.
func (n *Node) SetAnnotation(text string) string {
	el := n.el.FindElement(pathAnnotationTxt)
	if el == nil {
		props := ensureChild(n.el, "Properties")
		annot := props.SelectElement("Annotation")
		if annot == nil {
			annot = props.CreateElement("Annotation")
			annot.CreateAttr("DisplayMode", "0")
		}
		el = annot.CreateElement("DefaultAnnotationText")
	}
	old := el.Text()
	el.SetText(text)
	return old
}

// Configuration returns Properties/Configuration, or nil.
func (n *Node) Configuration() *etree.Element {
	return n.el.FindElement(pathConfiguration)
}

// Fields reads the configuration as an ordered mapping. Nodes without a
// configuration yield an empty mapping.
func (n *Node) Fields() *api.Fields {
	cfg := n.Configuration()
	if cfg == nil {
		return api.NewFields()
	}
	return ReadFields(cfg)
}

// Connection returns the connection leaf, looked up under
// FormatSpecificOptions first and directly under the configuration second,
// or nil when the node has neither.
func (n *Node) Connection() *etree.Element {
	cfg := n.Configuration()
	if cfg == nil {
		return nil
	}
	if el := cfg.FindElement(pathFSOConnection); el != nil {
		return el
	}
	return cfg.SelectElement(pathConfConnection)
}

// ConnectionID returns the text of the connection leaf, or "".
func (n *Node) ConnectionID() string {
	if el := n.Connection(); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// Caption returns the container caption, or "".
func (n *Node) Caption() string {
	if el := n.el.FindElement(pathCaption); el != nil {
		return strings.TrimSpace(el.Text())
	}
	return ""
}

// Label names a container in container paths: its caption, or
// Container_<ToolID> when it has none.
func (n *Node) Label() string {
	if c := n.Caption(); c != "" {
		return c
	}
	return "Container_" + n.el.SelectAttrValue("ToolID", "")
}

// ensureChild returns the first child element with tag, creating it if absent.
func ensureChild(parent *etree.Element, tag string) *etree.Element {
	if el := parent.SelectElement(tag); el != nil {
		return el
	}
	return parent.CreateElement(tag)
}
