package format

import (
	"bytes"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	maxUnwrapPasses = 10
	// single-column tables with more uniform content rows than this are data
	dataTableMinRows = 5
)

// elements that never contribute readable body text
var droppedElements = []atom.Atom{atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Template}

var layoutIDHints = []string{"main", "layout", "wrapper", "container"}

// UnwrapTableLayout strips non-content elements and flattens single-column
// tables used for email layout, keeping tables that carry data. Input that
// cannot be parsed or rendered is returned unchanged.
func UnwrapTableLayout(doc []byte) []byte {
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return doc
	}

	dropNonContent(root)

	for range maxUnwrapPasses {
		if !unwrapLayoutTables(root) {
			break
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return doc
	}

	return buf.Bytes()
}

func dropNonContent(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.CommentNode || (c.Type == html.ElementNode && slices.Contains(droppedElements, c.DataAtom)) {
			n.RemoveChild(c)
		} else {
			dropNonContent(c)
		}
		c = next
	}
}

// unwrapLayoutTables works bottom-up and reports whether anything changed.
func unwrapLayoutTables(n *html.Node) bool {
	changed := false
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if unwrapLayoutTables(c) {
			changed = true
		}
		c = next
	}

	if n.Type == html.ElementNode && n.DataAtom == atom.Table && isLayoutTable(n) {
		flattenTable(n)
		changed = true
	}

	return changed
}

type tableShape struct {
	hasHeaders  bool
	maxCells    int
	contentRows int
	rowCells    []int
}

func measureTable(table *html.Node) tableShape {
	var s tableShape

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Th, atom.Thead:
				s.hasHeaders = true
			case atom.Tr:
				cells := countCells(n)
				s.rowCells = append(s.rowCells, cells)
				s.maxCells = max(s.maxCells, cells)
				if hasText(n) {
					s.contentRows++
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(table)

	return s
}

func (s tableShape) uniformRows() bool {
	if len(s.rowCells) < 2 {
		return false
	}
	for _, cells := range s.rowCells[1:] {
		if cells != s.rowCells[0] {
			return false
		}
	}
	return true
}

func isLayoutTable(table *html.Node) bool {
	shape := measureTable(table)
	if shape.hasHeaders || shape.maxCells > 1 {
		return false
	}

	if hasLayoutID(table) {
		return true
	}

	return shape.contentRows <= dataTableMinRows || !shape.uniformRows()
}

func hasLayoutID(n *html.Node) bool {
	for _, attr := range n.Attr {
		if attr.Key != "id" {
			continue
		}
		id := strings.ToLower(attr.Val)
		for _, hint := range layoutIDHints {
			if strings.Contains(id, hint) {
				return true
			}
		}
	}
	return false
}

func countCells(row *html.Node) int {
	cells := 0
	for c := row.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
			cells++
		}
	}
	return cells
}

func hasText(n *html.Node) bool {
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data) != ""
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if hasText(c) {
			return true
		}
	}
	return false
}

// flattenTable replaces table with the content of its cells, one line per row.
func flattenTable(table *html.Node) {
	parent := table.Parent
	if parent == nil {
		return
	}

	var content []*html.Node
	collectCellContent(table, &content)

	for _, node := range content {
		parent.InsertBefore(node, table)
	}
	parent.RemoveChild(table)
}

func collectCellContent(n *html.Node, content *[]*html.Node) {
	switch {
	case n.Type == html.ElementNode && isTablePart(n.DataAtom):
		before := len(*content)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collectCellContent(c, content)
		}
		if n.DataAtom == atom.Tr && len(*content) > before {
			*content = append(*content, &html.Node{Type: html.TextNode, Data: "\n"})
		}
	case n.Type == html.ElementNode:
		*content = append(*content, cloneTree(n))
	case n.Type == html.TextNode && strings.TrimSpace(n.Data) != "":
		*content = append(*content, &html.Node{Type: html.TextNode, Data: n.Data})
	}
}

func isTablePart(a atom.Atom) bool {
	switch a {
	case atom.Table, atom.Tbody, atom.Thead, atom.Tfoot, atom.Tr, atom.Td, atom.Th:
		return true
	default:
		return false
	}
}

func cloneTree(n *html.Node) *html.Node {
	clone := &html.Node{
		Type:     n.Type,
		DataAtom: n.DataAtom,
		Data:     n.Data,
		Attr:     slices.Clone(n.Attr),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		clone.AppendChild(cloneTree(c))
	}
	return clone
}
