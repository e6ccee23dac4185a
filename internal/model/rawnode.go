package model

// RawNodeAttributes holds the attributes the extraction microservice reports
// for a DOM node. Class is the element's class list; Href is present on
// anchor nodes.
type RawNodeAttributes struct {
	Class []string `json:"class,omitempty"`
	Href  string   `json:"href,omitempty"`
}

// RawNode is one node of the tree-shaped payload returned by the extraction
// microservice. Children preserve document order.
type RawNode struct {
	Tag        string            `json:"tag"`
	Text       string            `json:"text,omitempty"`
	Attributes RawNodeAttributes `json:"attributes,omitempty"`
	Children   []RawNode         `json:"children,omitempty"`
}

// HasClass reports whether the node's class list contains any of the given
// class names.
func (n RawNode) HasClass(classes ...string) bool {
	for _, want := range classes {
		for _, have := range n.Attributes.Class {
			if want == have {
				return true
			}
		}
	}
	return false
}
