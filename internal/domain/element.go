package domain

// Kind is the XML tag name of a top-level OSM element.
type Kind string

const (
	KindNode Kind = "node"
	KindWay  Kind = "way"
)

// Child element names inside a node or way.
const (
	ChildTag = "tag"
	ChildNd  = "nd"
)

// Attr is a single XML attribute. Elements keep attributes as a slice so the
// source order survives a round trip through the sample writer.
type Attr struct {
	Name  string
	Value string
}

// Child is a direct child of a node or way, e.g. <tag k="" v=""/> or <nd ref=""/>.
type Child struct {
	Name  string
	Attrs []Attr
}

// Attr returns the value of the named attribute.
func (c Child) Attr(name string) (string, bool) {
	return lookupAttr(c.Attrs, name)
}

// Element is one top-level node or way read from the source document along
// with its direct children in document order.
type Element struct {
	Kind     Kind
	Attrs    []Attr
	Children []Child
}

// Attr returns the value of the named attribute.
func (e Element) Attr(name string) (string, bool) {
	return lookupAttr(e.Attrs, name)
}

// ID returns the element's id attribute, or [MissingValue] when absent.
func (e Element) ID() string {
	if id, ok := e.Attr("id"); ok {
		return id
	}
	return MissingValue
}

func lookupAttr(attrs []Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}
