// Package router implements the route trie used to dispatch requests to
// handlers.
//
// Routes are split into '/'-delimited segments. Each level of the tree holds
// literal children keyed by name plus at most one wildcard child ('*') that
// matches any single segment. Resolution prefers the literal child and falls
// back to the wildcard; it never backtracks, so lookup is O(depth).
//
// A Trie is not safe for concurrent registration. Once serving starts it is
// treated as read-only and may be resolved from any number of goroutines.
package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/marmos91/dittohttp/pkg/message"
)

// WildcardSegment is the path segment that matches any single segment.
const WildcardSegment = "*"

var (
	// ErrDuplicateRoute is returned when a (path, method) pair is registered twice.
	ErrDuplicateRoute = errors.New("duplicate route")

	// ErrNotFound is returned when no handler matches a (path, method) pair.
	ErrNotFound = errors.New("route not found")

	// ErrUnsupportedMethod is returned when registering outside the method vocabulary.
	ErrUnsupportedMethod = errors.New("unsupported method")

	// ErrNilHandler is returned when registering a nil handler.
	ErrNilHandler = errors.New("nil handler")
)

// Handler produces the response for a request.
type Handler func(req *message.Request) *message.Response

// Route describes one registered (method, path) pair.
type Route struct {
	Method message.Method
	Path   string
}

func (r Route) String() string {
	return r.Method.String() + " " + r.Path
}

// segmentKind tags a child edge as a literal name or the wildcard.
type segmentKind int

const (
	segmentLiteral segmentKind = iota
	segmentWildcard
)

type segment struct {
	kind segmentKind
	name string
}

func parseSegment(s string) segment {
	if s == WildcardSegment {
		return segment{kind: segmentWildcard}
	}
	return segment{kind: segmentLiteral, name: s}
}

func (s segment) String() string {
	if s.kind == segmentWildcard {
		return WildcardSegment
	}
	return s.name
}

type node struct {
	seg      segment
	fullPath string
	handlers map[message.Method]Handler
	literals map[string]*node
	wildcard *node
}

func newNode(seg segment, parentPath string) *node {
	fullPath := "/"
	if parentPath != "" {
		fullPath = strings.TrimSuffix(parentPath, "/") + "/" + seg.String()
	}
	return &node{
		seg:      seg,
		fullPath: fullPath,
		handlers: make(map[message.Method]Handler),
	}
}

// child returns the existing child for seg without falling back.
func (n *node) child(seg segment) *node {
	if seg.kind == segmentWildcard {
		return n.wildcard
	}
	return n.literals[seg.name]
}

// childOrCreate walks to seg, creating an empty intermediate node if needed.
func (n *node) childOrCreate(seg segment) *node {
	if c := n.child(seg); c != nil {
		return c
	}

	c := newNode(seg, n.fullPath)
	if seg.kind == segmentWildcard {
		n.wildcard = c
		return c
	}
	if n.literals == nil {
		n.literals = make(map[string]*node)
	}
	n.literals[seg.name] = c
	return c
}

// match resolves a concrete request segment: literal first, wildcard second.
func (n *node) match(name string) *node {
	if c, ok := n.literals[name]; ok {
		return c
	}
	return n.wildcard
}

// Trie is the route table. The zero value is not usable; call New.
type Trie struct {
	root *node
}

// New returns an empty trie whose root represents "/".
func New() *Trie {
	return &Trie{root: newNode(segment{kind: segmentLiteral}, "")}
}

// Split breaks a path into its non-empty segments, so "/a//b/" and "/a/b"
// are equivalent and "/" is the empty list.
func Split(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
}

// Register attaches handler to (path, method).
//
// Intermediate nodes are created without handlers as needed. A '*' segment
// registers on the wildcard child of its level. Registering the same
// (path, method) twice fails with ErrDuplicateRoute.
func (t *Trie) Register(path string, method message.Method, handler Handler) error {
	if method == message.MethodUnsupported {
		return fmt.Errorf("%w: cannot register %q", ErrUnsupportedMethod, path)
	}
	if handler == nil {
		return fmt.Errorf("%w: %s %s", ErrNilHandler, method, path)
	}

	current := t.root
	for _, part := range Split(path) {
		current = current.childOrCreate(parseSegment(part))
	}

	if _, exists := current.handlers[method]; exists {
		return fmt.Errorf("%w: %s %s", ErrDuplicateRoute, method, current.fullPath)
	}
	current.handlers[method] = handler
	return nil
}

// Resolve finds the handler for (path, method).
//
// At each level an exact literal child is preferred over the wildcard child.
// Any unmatched segment, or a final node without a handler for method,
// yields ErrNotFound.
func (t *Trie) Resolve(path string, method message.Method) (Handler, error) {
	current := t.root
	for _, part := range Split(path) {
		current = current.match(part)
		if current == nil {
			return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
		}
	}

	h, ok := current.handlers[method]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, method, path)
	}
	return h, nil
}

// Routes lists every registered route ordered by path, then method.
func (t *Trie) Routes() []Route {
	var routes []Route
	collect(t.root, &routes)

	sort.SliceStable(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	return routes
}

func collect(n *node, routes *[]Route) {
	for _, m := range message.Methods {
		if _, ok := n.handlers[m]; ok {
			*routes = append(*routes, Route{Method: m, Path: n.fullPath})
		}
	}
	for _, c := range n.literals {
		collect(c, routes)
	}
	if n.wildcard != nil {
		collect(n.wildcard, routes)
	}
}

// Len returns the number of registered (path, method) pairs.
func (t *Trie) Len() int {
	return count(t.root)
}

func count(n *node) int {
	total := len(n.handlers)
	for _, c := range n.literals {
		total += count(c)
	}
	if n.wildcard != nil {
		total += count(n.wildcard)
	}
	return total
}
