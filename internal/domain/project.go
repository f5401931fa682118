package domain

// ConnectionConfig is the tagged sum over database connection kinds.
// Postgres is the only variant the runtime can actually dial;
// ExternalModuleConnection is the reserved extension point.
type ConnectionConfig interface {
	Kind() string
}

type PostgresConnection struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode"`
}

func (PostgresConnection) Kind() string { return "postgres" }

type ExternalModuleConnection struct {
	Name string `toml:"name"`
}

func (ExternalModuleConnection) Kind() string { return "external_module" }

// DiscoveryConfig is the tagged sum over schema-discovery strategies.
type DiscoveryConfig interface {
	Kind() string
}

type PostgresDiscovery struct {
	SkipTables []string `toml:"skip_tables"`
}

func (PostgresDiscovery) Kind() string { return "postgres" }

type ExternalModuleDiscovery struct {
	Name string `toml:"name"`
}

func (ExternalModuleDiscovery) Kind() string { return "external_module" }

// DatabaseConfig describes one configured database: its id, whether it
// is the primary, how to connect, an optional discovery strategy, and
// pool bounds.
type DatabaseConfig struct {
	ID        string
	Primary   bool
	Conn      ConnectionConfig
	Discovery DiscoveryConfig // nil: discovery disabled for this database
	PoolMin   *int
	PoolMax   *int
}

// AuthMethodConfig is the tagged sum over authentication backends.
type AuthMethodConfig interface {
	Kind() string
	DatabaseID() *string
}

type SQLAuthMethod struct {
	DBID          *string
	Table         string
	NameField     string
	PasswordField string
	UserField     string
}

func (m SQLAuthMethod) Kind() string         { return "sql" }
func (m SQLAuthMethod) DatabaseID() *string  { return m.DBID }

type ExternalModuleAuthMethod struct {
	Name string
	DBID *string
}

func (m ExternalModuleAuthMethod) Kind() string        { return "external_module" }
func (m ExternalModuleAuthMethod) DatabaseID() *string { return m.DBID }

// SessionBackendConfig is the tagged sum over session backends.
type SessionBackendConfig interface {
	Kind() string
	DatabaseID() *string
}

type SQLSessionBackend struct {
	DBID          *string
	Table         string
	MaxAgeSeconds int64
}

func (s SQLSessionBackend) Kind() string        { return "sql" }
func (s SQLSessionBackend) DatabaseID() *string { return s.DBID }

// JWTSessionBackend is a second, non-SQL session backend variant:
// tokens are self-contained signed JWTs instead of rows in a table, so
// `check` verifies a signature instead of hitting the database.
type JWTSessionBackend struct {
	DBID          *string
	Secret        string
	MaxAgeSeconds int64
}

func (j JWTSessionBackend) Kind() string        { return "jwt" }
func (j JWTSessionBackend) DatabaseID() *string { return j.DBID }

type ExternalModuleSessionBackend struct {
	Name string
	DBID *string
}

func (e ExternalModuleSessionBackend) Kind() string        { return "external_module" }
func (e ExternalModuleSessionBackend) DatabaseID() *string { return e.DBID }

// RoleBackendConfig is the tagged sum over role backends.
type RoleBackendConfig interface {
	Kind() string
	DatabaseID() *string
}

type SQLRoleBackend struct {
	DBID  *string
	Table string
}

func (r SQLRoleBackend) Kind() string        { return "sql" }
func (r SQLRoleBackend) DatabaseID() *string { return r.DBID }

type ExternalModuleRoleBackend struct {
	Name string
	DBID *string
}

func (e ExternalModuleRoleBackend) Kind() string        { return "external_module" }
func (e ExternalModuleRoleBackend) DatabaseID() *string { return e.DBID }

// AuthConfig bundles the three pluggable auth contracts. A project
// without authentication configured leaves this nil.
type AuthConfig struct {
	Method  AuthMethodConfig
	Session SessionBackendConfig
	Role    RoleBackendConfig
}

// AdminConfig stores the admin-panel's bootstrap credentials. The admin
// panel itself is an external collaborator (spec.md §1); the core only
// carries its settings through the artifact.
type AdminConfig struct {
	Email        string
	PasswordHash string
}

// General is the project identity plus everything the frontend/compiler
// and the runtime both need: databases and auth.
type General struct {
	ProjectName string
	Databases   []DatabaseConfig
	Auth        *AuthConfig
	Admin       AdminConfig
}

// PrimaryDatabase returns the single database flagged primary.
func (g General) PrimaryDatabase() (DatabaseConfig, bool) {
	for _, db := range g.Databases {
		if db.Primary {
			return db, true
		}
	}
	return DatabaseConfig{}, false
}

// Database looks a database config up by id.
func (g General) Database(id string) (DatabaseConfig, bool) {
	for _, db := range g.Databases {
		if db.ID == id {
			return db, true
		}
	}
	return DatabaseConfig{}, false
}

// ExecutorSettings are the run-time knobs of the server: listening
// address, static file root, API prefix, checksum verification and
// cache-control hint.
type ExecutorSettings struct {
	ListenAddr      *string
	StaticRoot      *string
	APIPrefix       string
	VerifyChecksums bool
	HTTPCacheTime   int64
}
