package workflow

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/agentic-research/yxflow/api"
	"github.com/agentic-research/yxflow/internal/plugins"
)

// Attributes of a freshly built AlteryxDocument.
const (
	DocumentVersion    = "2024.1"
	DefaultPlugin      = "AlteryxSelect"
	DefaultDescription = "Auto-generated workflow"
)

// Build constructs a workflow from tool and edge descriptors. Tools without
// an id get their 1-based position; plugins may be short names. Metadata
// keys are kept in order and Name/Description are appended when missing,
// Name defaulting to outputPath's base name without extension.
func Build(tools []api.ToolSpec, edges []api.EdgeSpec, meta *api.Fields, outputPath string) (*Document, error) {
	doc := etree.NewDocument()
	root := doc.CreateElement("AlteryxDocument")
	root.CreateAttr("yxmdVer", DocumentVersion)
	root.CreateAttr("RunE2", "T")

	nodes := root.CreateElement("Nodes")
	seen := make(map[int]bool, len(tools))
	for i, spec := range tools {
		idx := i + 1
		id := idx
		if spec.ToolID != nil {
			id = *spec.ToolID
		}
		if seen[id] {
			return nil, Errorf(ErrDuplicateID, "Tool ID %d is declared more than once", id)
		}
		seen[id] = true
		buildNode(nodes, spec, id, idx)
	}

	if len(edges) > 0 {
		conns := root.CreateElement("Connections")
		for _, e := range edges {
			c := conns.CreateElement("Connection")
			origin := c.CreateElement("Origin")
			origin.CreateAttr("ToolID", strconv.Itoa(e.Origin))
			origin.CreateAttr("Connection", orDefault(e.OriginPort, api.DefaultOriginPort))
			dest := c.CreateElement("Destination")
			dest.CreateAttr("ToolID", strconv.Itoa(e.Destination))
			dest.CreateAttr("Connection", orDefault(e.DestinationPort, api.DefaultDestinationPort))
		}
	}

	metaInfo := root.CreateElement("Properties").CreateElement("MetaInfo")
	merged := api.NewFields()
	if meta != nil {
		for pair := meta.Oldest(); pair != nil; pair = pair.Next() {
			merged.Set(pair.Key, pair.Value)
		}
	}
	base := filepath.Base(outputPath)
	if _, ok := merged.Get("Name"); !ok {
		merged.Set("Name", strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if _, ok := merged.Get("Description"); !ok {
		merged.Set("Description", DefaultDescription)
	}
	for pair := merged.Oldest(); pair != nil; pair = pair.Next() {
		applyValue(metaInfo, pair.Key, pair.Value)
	}

	return &Document{xml: doc}, nil
}

func buildNode(parent *etree.Element, spec api.ToolSpec, id, idx int) {
	node := parent.CreateElement("Node")
	node.CreateAttr("ToolID", strconv.Itoa(id))

	gui := node.CreateElement("GuiSettings")
	gui.CreateAttr("Plugin", plugins.Resolve(orDefault(spec.Plugin, DefaultPlugin)))
	pos := api.Position{X: float64(100 * idx), Y: 100}
	if spec.Position != nil {
		pos = *spec.Position
	}
	position := gui.CreateElement("Position")
	position.CreateAttr("x", ScalarText(pos.X))
	position.CreateAttr("y", ScalarText(pos.Y))

	props := node.CreateElement("Properties")
	ApplyFields(props.CreateElement("Configuration"), spec.Configuration)

	annotation := props.CreateElement("Annotation")
	annotation.CreateAttr("DisplayMode", "0")
	annotation.CreateElement("Name").SetText("")
	annotation.CreateElement("DefaultAnnotationText").SetText(spec.Annotation)
	annotation.CreateElement("Left").CreateAttr("value", "False")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
