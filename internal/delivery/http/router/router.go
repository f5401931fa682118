// Package router implements C6: a method-keyed prefix tree of
// parameterised routes, independent of any HTTP framework's own
// mux so that lookup time is linear in the request path length and
// independent of route count, per spec.md §4.6.
package router

import (
	"strings"

	"github.com/waveless-run/waveless/internal/domain"
)

// LoginEndpointID is the synthetic endpoint id installed for the login
// capture layer when authentication is configured (spec.md §4.6).
const LoginEndpointID = "__waveless_internal_login__"

type node struct {
	literal  map[string]*node
	param    *node
	paramName string
	endpoint *domain.Endpoint
}

func newNode() *node {
	return &node{literal: make(map[string]*node)}
}

// Router is the immutable-after-construction, method-keyed prefix
// tree. Match is a Lookup result: the matched endpoint cloned for
// ownership, plus the {name} captures.
type Router struct {
	trees map[domain.HTTPMethod]*node
}

func New() *Router {
	return &Router{trees: make(map[domain.HTTPMethod]*node)}
}

// segments splits a route template into its path segments, trimming
// surrounding slashes the way spec.md §4.6 specifies for the full path
// ({api_prefix}/{version?}/{route}).
func segments(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func isParam(segment string) (string, bool) {
	if len(segment) >= 2 && segment[0] == '{' && segment[len(segment)-1] == '}' {
		return segment[1 : len(segment)-1], true
	}
	return "", false
}

// Insert adds endpoint under method at fullPath (already prefixed with
// api_prefix and version by the caller).
func (r *Router) Insert(method domain.HTTPMethod, fullPath string, endpoint domain.Endpoint) {
	root, ok := r.trees[method]
	if !ok {
		root = newNode()
		r.trees[method] = root
	}

	cur := root
	for _, seg := range segments(fullPath) {
		if name, ok := isParam(seg); ok {
			if cur.param == nil {
				cur.param = newNode()
			}
			cur.param.paramName = name
			cur = cur.param
			continue
		}
		next, ok := cur.literal[seg]
		if !ok {
			next = newNode()
			cur.literal[seg] = next
		}
		cur = next
	}

	ep := endpoint
	cur.endpoint = &ep
}

// Match is a successful Lookup: the endpoint record (cloned for
// ownership) plus any {name} captures.
type Match struct {
	Endpoint domain.Endpoint
	Params   map[string]string
}

// Lookup finds the endpoint bound to method+path. Matching prefers a
// literal segment over a param capture at each level, backtracking
// into the param branch only when no literal path reaches a leaf —
// this keeps lookup linear in path length since each node visits at
// most two children per segment.
func (r *Router) Lookup(method domain.HTTPMethod, path string) (Match, bool) {
	root, ok := r.trees[method]
	if !ok {
		return Match{}, false
	}

	segs := segments(path)
	params := make(map[string]string)

	var walk func(cur *node, idx int) (*node, bool)
	walk = func(cur *node, idx int) (*node, bool) {
		if idx == len(segs) {
			if cur.endpoint != nil {
				return cur, true
			}
			return nil, false
		}
		seg := segs[idx]

		if next, ok := cur.literal[seg]; ok {
			if found, ok := walk(next, idx+1); ok {
				return found, true
			}
		}

		if cur.param != nil {
			prior, hadPrior := params[cur.param.paramName]
			params[cur.param.paramName] = seg
			if found, ok := walk(cur.param, idx+1); ok {
				return found, true
			}
			if hadPrior {
				params[cur.param.paramName] = prior
			} else {
				delete(params, cur.param.paramName)
			}
		}

		return nil, false
	}

	found, ok := walk(root, 0)
	if !ok {
		return Match{}, false
	}
	return Match{Endpoint: *found.endpoint, Params: params}, true
}

// FullPath builds {api_prefix}/{version?}/{route} with every segment's
// surrounding slashes trimmed, per spec.md §4.6.
func FullPath(apiPrefix string, version *string, route string) string {
	parts := make([]string, 0, 3)
	if apiPrefix != "" {
		parts = append(parts, strings.Trim(apiPrefix, "/"))
	}
	if version != nil && *version != "" {
		parts = append(parts, strings.Trim(*version, "/"))
	}
	if route != "" {
		parts = append(parts, strings.Trim(route, "/"))
	}
	return strings.Join(parts, "/")
}

// Build constructs a Router from every endpoint, plus the synthetic
// login endpoint when auth is configured (spec.md §4.6).
func Build(apiPrefix string, endpoints []domain.Endpoint, authConfigured bool) *Router {
	r := New()
	for _, ep := range endpoints {
		full := FullPath(apiPrefix, ep.Version, ep.Route)
		r.Insert(ep.Method, full, ep)
	}

	if authConfigured {
		loginPath := strings.Trim(apiPrefix, "/") + "/internal/login"
		r.Insert(domain.MethodPost, loginPath, domain.Endpoint{
			ID:               LoginEndpointID,
			Route:            "internal/login",
			Method:           domain.MethodPost,
			CaptureAllParams: true,
			RequireAuth:      false,
		})
	}

	return r
}
