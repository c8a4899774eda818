// Package position encodes the element under the viewport centre as a
// structural path and persists it, together with the reading progress, so a
// later visit can return to the same spot.
package position

import (
	"golang.org/x/net/html"

	"github.com/v0xg/mangaprogress/internal/dom"
)

// Encode returns the element-child indices leading from root to n. If the
// parent chain ends before root is reached, the path collected so far is
// returned.
func Encode(root, n *html.Node) []int {
	path := []int{}
	cur := n
	for cur != nil && cur != root {
		parent := dom.Parent(cur)
		if parent == nil {
			break
		}
		path = append(path, indexOf(dom.Children(parent), cur))
		cur = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// Decode walks path from root. When an index is out of range the deepest
// ancestor reached so far is returned instead of failing.
func Decode(root *html.Node, path []int) *html.Node {
	cur := root
	for _, idx := range path {
		children := dom.Children(cur)
		if idx < 0 || idx >= len(children) {
			return cur
		}
		cur = children[idx]
	}
	return cur
}

func indexOf(nodes []*html.Node, n *html.Node) int {
	for i, c := range nodes {
		if c == n {
			return i
		}
	}
	return -1
}
