// Package document loads YAML node trees into weave elements and renders
// their woven state.
package document

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/troopjs/weave"
)

// ErrDuplicateID indicates two nodes of a document share an id.
var ErrDuplicateID = errors.New("document: duplicate node id")

// Node describes one node of a document.
type Node struct {
	ID       string            `yaml:"id,omitempty"`
	Weave    string            `yaml:"weave,omitempty"`
	Unweave  string            `yaml:"unweave,omitempty"`
	Attrs    map[string]string `yaml:"attrs,omitempty"`
	Data     map[string]any    `yaml:"data,omitempty"`
	Children []Node            `yaml:"children,omitempty"`
}

// Document is a tree of elements built from a Node.
type Document struct {
	Root *weave.Element
}

// Load reads and parses the document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a YAML node tree. Nodes without an id receive a generated
// one.
func Parse(data []byte) (*Document, error) {
	var n Node
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	return Build(n)
}

// Build turns n into an element tree.
func Build(n Node) (*Document, error) {
	seen := make(map[string]struct{})
	root, err := build(n, seen)
	if err != nil {
		return nil, err
	}
	return &Document{Root: root}, nil
}

func build(n Node, seen map[string]struct{}) (*weave.Element, error) {
	id := strings.TrimSpace(n.ID)
	if id != "" {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		seen[id] = struct{}{}
	}

	el := weave.NewElement(id)
	for name, value := range n.Attrs {
		el.SetAttr(name, value)
	}
	if n.Weave != "" {
		el.SetAttr(weave.AttrWeave, n.Weave)
	}
	if n.Unweave != "" {
		el.SetAttr(weave.AttrUnweave, n.Unweave)
	}
	for key, value := range n.Data {
		el.SetData(key, value)
	}

	for _, child := range n.Children {
		childEl, err := build(child, seen)
		if err != nil {
			return nil, err
		}
		el.Append(childEl)
	}
	return el, nil
}

// Nodes returns every element of the document in document order.
func (d *Document) Nodes() []weave.Node {
	return d.Root.Find(nil)
}

// Pending returns the elements still carrying directives.
func (d *Document) Pending() []weave.Node {
	return d.Root.Find(weave.HasAttr(weave.AttrWeave))
}

// Lookup returns the element with id, or nil.
func (d *Document) Lookup(id string) *weave.Element {
	found := d.Root.Find(func(el *weave.Element) bool { return el.ID() == id })
	if len(found) == 0 {
		return nil
	}
	return found[0].(*weave.Element)
}
