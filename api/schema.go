package api

import orderedmap "github.com/wk8/go-ordered-map/v2"

// Fields is an insertion-ordered configuration mapping. Values are string,
// *Fields, or []any whose items are string or *Fields.
//
// Keys starting with AttrPrefix address attributes of the enclosing element;
// the TextKey key addresses the element's own text.
type Fields = orderedmap.OrderedMap[string, any]

const (
	AttrPrefix = "@"
	TextKey    = "_text"
)

// NewFields returns an empty mapping.
func NewFields() *Fields {
	return orderedmap.New[string, any]()
}

// ToolSpec declares one tool of a workflow to be created.
type ToolSpec struct {
	// ToolID is optional; the 1-based position of the spec is used when nil.
	ToolID *int `json:"tool_id,omitempty"`
	// Plugin is a short name (e.g., "Filter") or a fully-qualified plugin path.
	Plugin string `json:"plugin"`
	// Position on the canvas. Defaults to (100*index, 100).
	Position *Position `json:"position,omitempty"`
	// Configuration becomes Properties/Configuration.
	Configuration *Fields `json:"configuration,omitempty"`
	// Annotation becomes DefaultAnnotationText.
	Annotation string `json:"annotation,omitempty"`
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// EdgeSpec declares a connection between two tools.
type EdgeSpec struct {
	Origin          int    `json:"origin"`
	Destination     int    `json:"destination"`
	OriginPort      string `json:"origin_connection,omitempty"`
	DestinationPort string `json:"destination_connection,omitempty"`
}

// Default port names used when an EdgeSpec leaves them empty.
const (
	DefaultOriginPort      = "Output"
	DefaultDestinationPort = "Input"
)
