package document

import "github.com/beevik/etree"

// ElementVisitor inspects or rewrites one element and reports whether it
// changed anything.
type ElementVisitor func(el *etree.Element) bool

// NodeVisitor is called with either an *etree.Element (whose attributes it may
// rewrite) or an *etree.CharData text node.
type NodeVisitor func(node etree.Token) bool

// VisitElements walks the element tree rooted at root in pre-order. Children
// are collected after the parent was visited, so elements added by the
// visitor are visited too. The result is true if any call reported a change.
func VisitElements(root *etree.Element, visit ElementVisitor) bool {
	if root == nil {
		return false
	}
	changed := visit(root)
	for _, child := range root.ChildElements() {
		if VisitElements(child, visit) {
			changed = true
		}
	}
	return changed
}

// VisitNodes walks elements and text nodes in document order, parent before
// children. Comments, directives and processing instructions are skipped.
func VisitNodes(root *etree.Element, visit NodeVisitor) bool {
	if root == nil {
		return false
	}
	changed := visit(root)
	children := make([]etree.Token, len(root.Child))
	copy(children, root.Child)
	for _, tok := range children {
		switch node := tok.(type) {
		case *etree.Element:
			if VisitNodes(node, visit) {
				changed = true
			}
		case *etree.CharData:
			if visit(node) {
				changed = true
			}
		}
	}
	return changed
}

// RewriteAttributes applies fn to every attribute value of el and stores the
// result. It reports whether any value changed.
func RewriteAttributes(el *etree.Element, fn func(value string) (string, bool)) bool {
	changed := false
	for i := range el.Attr {
		if next, ok := fn(el.Attr[i].Value); ok && next != el.Attr[i].Value {
			el.Attr[i].Value = next
			changed = true
		}
	}
	return changed
}

// RewriteText applies fn to a text node.
func RewriteText(cd *etree.CharData, fn func(value string) (string, bool)) bool {
	if next, ok := fn(cd.Data); ok && next != cd.Data {
		cd.Data = next
		return true
	}
	return false
}
