package httpcore

import (
	"strings"

	"github.com/matgreaves/loom/loomerr"
)

// EndpointTrie maps path expressions to endpoints of type T. It is keyed
// by whole path segment rather than by byte: the matcher grammar only
// ever captures or compares a full `/`-delimited segment at a time, so a
// segment-keyed trie produces identical matches with a far smaller node
// count and no byte-scanning in Insert/Match.
type EndpointTrie[T any] struct {
	root trieNode[T]
}

type trieNode[T any] struct {
	endpoint *T
	literal  map[string]*trieNode[T] // key: strings.ToLower(segment)
	wildcard *wildcardEdge[T]
}

type wildcardEdge[T any] struct {
	matcher pathMatcher
	next    *trieNode[T]
}

func newTrieNode[T any]() *trieNode[T] {
	return &trieNode[T]{literal: map[string]*trieNode[T]{}}
}

// NewEndpointTrie returns an empty trie.
func NewEndpointTrie[T any]() *EndpointTrie[T] {
	return &EndpointTrie[T]{root: trieNode[T]{literal: map[string]*trieNode[T]{}}}
}

// Insert compiles path and associates it with endpoint. It raises
// AlreadyExists if path resolves to a node that already carries an
// endpoint, or if a wildcard segment in path conflicts with a different
// wildcard already installed at the same trie position.
func (t *EndpointTrie[T]) Insert(path string, endpoint T) error {
	matchers, err := parseMatchers(path)
	if err != nil {
		return err
	}

	node := &t.root
	for _, m := range matchers {
		if m.isLiteral() {
			key := strings.ToLower(m.chunk())
			child, ok := node.literal[key]
			if !ok {
				child = newTrieNode[T]()
				node.literal[key] = child
			}
			node = child
			continue
		}

		if node.wildcard == nil {
			node.wildcard = &wildcardEdge[T]{matcher: m, next: newTrieNode[T]()}
		} else if node.wildcard.matcher.chunk() != m.chunk() {
			return loomerr.New(loomerr.AlreadyExists,
				"route %q conflicts with an existing wildcard %q at the same position",
				m.chunk(), node.wildcard.matcher.chunk())
		}
		node = node.wildcard.next
	}

	if node.endpoint != nil {
		return loomerr.New(loomerr.AlreadyExists, "route %q already registered", path)
	}
	node.endpoint = &endpoint
	return nil
}

// MatchResult is the outcome of a successful trie match.
type MatchResult[T any] struct {
	Endpoint T
	Params   Headers
}

// Match walks path segment by segment against the trie, preferring a
// literal edge at each step and falling back to the node's wildcard edge.
// On a dead end past a wildcard fork, it backtracks and retries the next
// alternative. A parameter captured down an abandoned wildcard branch is
// scrubbed from Params on backtrack, so a route matched down a different
// branch never leaks a capture made by a dead end that shared the same
// trie prefix.
func (t *EndpointTrie[T]) Match(path string) (*MatchResult[T], bool) {
	segments := splitPathSegments(path)
	params := NewHeaders()
	node, ok := t.matchNode(&t.root, segments, 0, &params)
	if !ok {
		return nil, false
	}
	return &MatchResult[T]{Endpoint: *node.endpoint, Params: params}, true
}

func splitPathSegments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func (t *EndpointTrie[T]) matchNode(node *trieNode[T], segs []string, idx int, params *Headers) (*trieNode[T], bool) {
	if idx == len(segs) {
		if node.endpoint != nil {
			return node, true
		}
		return nil, false
	}

	seg := segs[idx]

	if child, ok := node.literal[strings.ToLower(seg)]; ok {
		if result, ok := t.matchNode(child, segs, idx+1, params); ok {
			return result, true
		}
	}

	if node.wildcard != nil {
		if value, ok := node.wildcard.matcher.match(seg); ok {
			name := node.wildcard.matcher.name()
			prev, hadPrev := params.Get(name)
			params.Set(name, value)
			if result, ok := t.matchNode(node.wildcard.next, segs, idx+1, params); ok {
				return result, true
			}
			// Backtracking past this fork: scrub the capture it made so a
			// sibling branch that never sets the same name doesn't leak it.
			if hadPrev {
				params.Set(name, prev)
			} else {
				params.Del(name)
			}
		}
	}

	return nil, false
}
