package domain

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ExecuteConfig is the tagged sum naming which executor backend an
// endpoint dispatches to. A nil ExecuteConfig on an Endpoint means the
// runtime handles the request internally (the login endpoint).
type ExecuteConfig interface {
	Kind() string
}

// SQLExecute is the only executor backend the runtime fully implements:
// a parameterised query template evaluated against a Postgres pool.
type SQLExecute struct {
	Query string `toml:"query"`
}

func (SQLExecute) Kind() string { return "sql" }

// ExternalModuleExecute is the reserved extension point every
// executor-like tagged sum carries; it is not wired to a working
// implementation in the core.
type ExternalModuleExecute struct {
	Name string `toml:"name"`
}

func (ExternalModuleExecute) Kind() string { return "external_module" }

// Endpoint is a declarative (method, route, action) triple, either
// authored by the project or synthesised by schema discovery.
type Endpoint struct {
	ID               string
	Route            string
	Version          *string
	Method           HTTPMethod
	TargetDatabase   *string
	Execute          ExecuteConfig
	Description      *string
	Tags             []string
	QueryParams      []string
	BodyParams       []string
	RequireAuth      bool
	AllowedRoles     []string
	InjectUserID     bool
	CaptureAllParams bool
	Deprecated       bool
	AutoGenerated    bool
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s -> (%s, %v)", e.Route, e.Method, e.Version)
}

// trimmedRoute strips leading/trailing slashes the way the router does
// when computing the uniqueness key.
func trimmedRoute(route string) string {
	return strings.Trim(route, "/")
}

// sameKey reports whether two endpoints collide under the uniqueness
// rule of spec invariant 1: same id, or same (method, trimmed route,
// version).
func (e Endpoint) sameKey(other Endpoint) bool {
	if e.ID == other.ID {
		return true
	}
	if e.Method != other.Method {
		return false
	}
	if trimmedRoute(e.Route) != trimmedRoute(other.Route) {
		return false
	}
	return versionEqual(e.Version, other.Version)
}

func versionEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Endpoints is an ordered, duplicate-safe collection of endpoints.
type Endpoints struct {
	items []Endpoint
}

func NewEndpoints() *Endpoints {
	return &Endpoints{}
}

func EndpointsFrom(items []Endpoint) *Endpoints {
	return &Endpoints{items: items}
}

func (e *Endpoints) All() []Endpoint {
	return e.items
}

func (e *Endpoints) Len() int {
	return len(e.items)
}

// Add inserts new_endpoint, rejecting it outright if an equivalent
// endpoint (spec invariant 1) already exists.
func (e *Endpoints) Add(newEndpoint Endpoint) error {
	for _, existing := range e.items {
		if existing.sameKey(newEndpoint) {
			return fmt.Errorf("an equivalent endpoint already exists: you were trying to add %q, but %q is equivalent", newEndpoint, existing)
		}
	}
	e.items = append(e.items, newEndpoint)
	return nil
}

// Merge folds other into e, dropping and warning on any endpoint that
// collides instead of aborting (spec.md §4.4 merge policy).
func (e *Endpoints) Merge(other *Endpoints, logger *zap.Logger) {
	if other == nil {
		return
	}
	for _, endpoint := range other.items {
		if err := e.Add(endpoint); err != nil {
			if logger != nil {
				logger.Warn("cannot add endpoint to the endpoint set",
					zap.String("endpoint_id", endpoint.ID),
					zap.Error(err))
			}
		}
	}
}
