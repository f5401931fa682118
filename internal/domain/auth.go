package domain

import "context"

// AuthenticationMethod is the pluggable credential-check contract of
// spec.md §4.8. Stateless: every call carries the connection it should
// run against.
type AuthenticationMethod interface {
	Name() string
	// Check verifies the supplied name/value entries and returns the
	// matching user id, or false if the credentials don't match.
	Check(ctx context.Context, conn Connection, entries map[string]string) (userID int64, ok bool, err error)
	// Signup creates a new credential entry and returns an opaque
	// signup token/receipt.
	Signup(ctx context.Context, conn Connection, entries map[string]string) (token string, err error)
	// Delete removes the credential entry for userID.
	Delete(ctx context.Context, conn Connection, userID int64) error
}

// SessionBackend is the pluggable session contract of spec.md §4.8.
type SessionBackend interface {
	Name() string
	Check(ctx context.Context, conn Connection, token string) (userID int64, ok bool, err error)
	New(ctx context.Context, conn Connection, userID int64) (token string, err error)
	Invalidate(ctx context.Context, conn Connection, userID int64) error
	RemoveExpired(ctx context.Context, conn Connection) error
	MaxAge() int64 // seconds
}

// RoleBackend is the pluggable role contract of spec.md §4.8.
type RoleBackend interface {
	Name() string
	Get(ctx context.Context, conn Connection, userID int64) (role string, ok bool, err error)
	Set(ctx context.Context, conn Connection, userID int64, role string) error
	Remove(ctx context.Context, conn Connection, userID int64) error
}

// DiscoveryMethod is the pluggable schema-discovery contract of
// spec.md §4.3/§6: reflect a database's schema and report its checksum
// and the CRUD endpoints it implies.
type DiscoveryMethod interface {
	Discover(ctx context.Context, databaseID string, conn Connection, skipTables []string) (DiscoveredSchema, error)
}

// DiscoveredSchema is what a discovery method hands back to the build
// pipeline: the checksum to record, plus the endpoints it synthesised.
type DiscoveredSchema struct {
	Checksum  [4]byte
	Endpoints *Endpoints
}
