// Package project loads the human-authored project file and endpoint
// files with go-toml/v2 — the TOML-native sibling of the binary artifact
// codec in internal/artifact. The two formats intentionally share no
// code: the artifact always writes every field, the project file uses
// go-toml/v2's own omit/default semantics, so no "binary mode" flag is
// needed to reconcile the two (spec.md §9 redesign note).
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/waveless-run/waveless/internal/domain"
)

var structValidator = validator.New()

// File is the on-disk shape of a project's main TOML file: general
// settings plus executor settings. Endpoints live in separate files
// under an endpoints directory (loaded by LoadEndpoints).
type File struct {
	General          rawGeneral          `toml:"general"`
	ExecutorSettings domain.ExecutorSettings `toml:"executor_settings"`
}

type rawGeneral struct {
	ProjectName string        `toml:"project_name"`
	Databases   []rawDatabase `toml:"databases"`
	Auth        *rawAuth      `toml:"auth"`
	Admin       domain.AdminConfig `toml:"admin"`
}

type rawConnection struct {
	Kind     string `toml:"kind"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"ssl_mode"`
	Name     string `toml:"name"`
}

func (r rawConnection) toDomain() (domain.ConnectionConfig, error) {
	switch r.Kind {
	case "", "postgres":
		return domain.PostgresConnection{Host: r.Host, Port: r.Port, User: r.User, Password: r.Password, Database: r.Database, SSLMode: r.SSLMode}, nil
	case "external_module":
		return domain.ExternalModuleConnection{Name: r.Name}, nil
	default:
		return nil, fmt.Errorf("unknown connection kind %q", r.Kind)
	}
}

type rawDiscovery struct {
	Kind       string   `toml:"kind"`
	SkipTables []string `toml:"skip_tables"`
	Name       string   `toml:"name"`
}

func (r *rawDiscovery) toDomain() (domain.DiscoveryConfig, error) {
	if r == nil {
		return nil, nil
	}
	switch r.Kind {
	case "", "postgres":
		return domain.PostgresDiscovery{SkipTables: r.SkipTables}, nil
	case "external_module":
		return domain.ExternalModuleDiscovery{Name: r.Name}, nil
	default:
		return nil, fmt.Errorf("unknown discovery kind %q", r.Kind)
	}
}

type rawDatabase struct {
	ID        string        `toml:"id" validate:"required"`
	Primary   bool          `toml:"primary"`
	Conn      rawConnection `toml:"conn" validate:"required"`
	Discovery *rawDiscovery `toml:"discovery"`
	PoolMin   *int          `toml:"pool_min" validate:"omitempty,min=1"`
	PoolMax   *int          `toml:"pool_max" validate:"omitempty,min=1"`
}

func (r rawDatabase) toDomain() (domain.DatabaseConfig, error) {
	conn, err := r.Conn.toDomain()
	if err != nil {
		return domain.DatabaseConfig{}, fmt.Errorf("database %q: %w", r.ID, err)
	}
	discovery, err := r.Discovery.toDomain()
	if err != nil {
		return domain.DatabaseConfig{}, fmt.Errorf("database %q: %w", r.ID, err)
	}
	return domain.DatabaseConfig{
		ID:        r.ID,
		Primary:   r.Primary,
		Conn:      conn,
		Discovery: discovery,
		PoolMin:   r.PoolMin,
		PoolMax:   r.PoolMax,
	}, nil
}

type rawAuthMethod struct {
	Kind          string  `toml:"kind"`
	DBID          *string `toml:"database_id"`
	Table         string  `toml:"table"`
	NameField     string  `toml:"name_field"`
	PasswordField string  `toml:"password_field"`
	UserField     string  `toml:"user_field"`
	Name          string  `toml:"name"`
}

func (r rawAuthMethod) toDomain() (domain.AuthMethodConfig, error) {
	switch r.Kind {
	case "sql":
		return domain.SQLAuthMethod{DBID: r.DBID, Table: r.Table, NameField: r.NameField, PasswordField: r.PasswordField, UserField: r.UserField}, nil
	case "external_module":
		return domain.ExternalModuleAuthMethod{Name: r.Name, DBID: r.DBID}, nil
	default:
		return nil, fmt.Errorf("unknown auth method kind %q", r.Kind)
	}
}

type rawSessionBackend struct {
	Kind          string  `toml:"kind"`
	DBID          *string `toml:"database_id"`
	Table         string  `toml:"table"`
	MaxAgeSeconds int64   `toml:"max_age_seconds"`
	Secret        string  `toml:"secret"`
	Name          string  `toml:"name"`
}

func (r rawSessionBackend) toDomain() (domain.SessionBackendConfig, error) {
	switch r.Kind {
	case "sql":
		return domain.SQLSessionBackend{DBID: r.DBID, Table: r.Table, MaxAgeSeconds: r.MaxAgeSeconds}, nil
	case "jwt":
		return domain.JWTSessionBackend{DBID: r.DBID, Secret: r.Secret, MaxAgeSeconds: r.MaxAgeSeconds}, nil
	case "external_module":
		return domain.ExternalModuleSessionBackend{Name: r.Name, DBID: r.DBID}, nil
	default:
		return nil, fmt.Errorf("unknown session backend kind %q", r.Kind)
	}
}

type rawRoleBackend struct {
	Kind  string  `toml:"kind"`
	DBID  *string `toml:"database_id"`
	Table string  `toml:"table"`
	Name  string  `toml:"name"`
}

func (r rawRoleBackend) toDomain() (domain.RoleBackendConfig, error) {
	switch r.Kind {
	case "sql":
		return domain.SQLRoleBackend{DBID: r.DBID, Table: r.Table}, nil
	case "external_module":
		return domain.ExternalModuleRoleBackend{Name: r.Name, DBID: r.DBID}, nil
	default:
		return nil, fmt.Errorf("unknown role backend kind %q", r.Kind)
	}
}

type rawAuth struct {
	Method  rawAuthMethod     `toml:"method"`
	Session rawSessionBackend `toml:"session"`
	Role    rawRoleBackend    `toml:"role"`
}

func (r *rawAuth) toDomain() (*domain.AuthConfig, error) {
	if r == nil {
		return nil, nil
	}
	method, err := r.Method.toDomain()
	if err != nil {
		return nil, err
	}
	session, err := r.Session.toDomain()
	if err != nil {
		return nil, err
	}
	role, err := r.Role.toDomain()
	if err != nil {
		return nil, err
	}
	return &domain.AuthConfig{Method: method, Session: session, Role: role}, nil
}

// LoadGeneral reads and decodes the main project TOML file.
func LoadGeneral(path string) (domain.General, domain.ExecutorSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.General{}, domain.ExecutorSettings{}, fmt.Errorf("reading project file: %w", err)
	}

	var file File
	if err := toml.Unmarshal(data, &file); err != nil {
		return domain.General{}, domain.ExecutorSettings{}, fmt.Errorf("parsing project file: %w", err)
	}

	databases := make([]domain.DatabaseConfig, 0, len(file.General.Databases))
	for _, raw := range file.General.Databases {
		if err := structValidator.Struct(raw); err != nil {
			return domain.General{}, domain.ExecutorSettings{}, fmt.Errorf("database %q: %w", raw.ID, err)
		}
		db, err := raw.toDomain()
		if err != nil {
			return domain.General{}, domain.ExecutorSettings{}, err
		}
		databases = append(databases, db)
	}

	auth, err := file.General.Auth.toDomain()
	if err != nil {
		return domain.General{}, domain.ExecutorSettings{}, err
	}

	general := domain.General{
		ProjectName: file.General.ProjectName,
		Databases:   databases,
		Auth:        auth,
		Admin:       file.General.Admin,
	}

	return general, file.ExecutorSettings, nil
}

type rawExecute struct {
	Kind  string `toml:"kind"`
	Query string `toml:"query"`
	Name  string `toml:"name"`
}

func (r *rawExecute) toDomain() (domain.ExecuteConfig, error) {
	if r == nil {
		return nil, nil
	}
	switch r.Kind {
	case "", "sql":
		return domain.SQLExecute{Query: r.Query}, nil
	case "external_module":
		return domain.ExternalModuleExecute{Name: r.Name}, nil
	default:
		return nil, fmt.Errorf("unknown execute kind %q", r.Kind)
	}
}

type rawEndpoint struct {
	ID               string   `toml:"id" validate:"required"`
	Route            string   `toml:"route" validate:"required"`
	Version          *string  `toml:"version"`
	Method           string   `toml:"method" validate:"required,oneof=get post put delete"`
	TargetDatabase   *string  `toml:"target_database"`
	Execute          *rawExecute `toml:"execute"`
	Description      *string  `toml:"description"`
	Tags             []string `toml:"tags"`
	QueryParams      []string `toml:"query_params"`
	BodyParams       []string `toml:"body_params"`
	RequireAuth      bool     `toml:"require_auth"`
	AllowedRoles     []string `toml:"allowed_roles"`
	InjectUserID     bool     `toml:"inject_user_id"`
	CaptureAllParams bool     `toml:"capture_all_params"`
	Deprecated       bool     `toml:"deprecated"`
}

// tableName derives the default tag spec.md §4.4 supplements dropped
// features with: an endpoint file with no tags defaults to its route's
// first segment, so discovery-style endpoints group sensibly even when
// hand-authored without explicit tags.
func (r rawEndpoint) defaultTags() []string {
	if len(r.Tags) > 0 {
		return r.Tags
	}
	first := strings.SplitN(strings.Trim(r.Route, "/"), "/", 2)[0]
	if first == "" {
		return nil
	}
	return []string{first}
}

func (r rawEndpoint) toDomain() (domain.Endpoint, error) {
	execute, err := r.Execute.toDomain()
	if err != nil {
		return domain.Endpoint{}, fmt.Errorf("endpoint %q: %w", r.ID, err)
	}
	return domain.Endpoint{
		ID:               r.ID,
		Route:            r.Route,
		Version:          r.Version,
		Method:           domain.ParseHTTPMethod(r.Method),
		TargetDatabase:   r.TargetDatabase,
		Execute:          execute,
		Description:      r.Description,
		Tags:             r.defaultTags(),
		QueryParams:      r.QueryParams,
		BodyParams:       r.BodyParams,
		RequireAuth:      r.RequireAuth,
		AllowedRoles:     r.AllowedRoles,
		InjectUserID:     r.InjectUserID,
		CaptureAllParams: r.CaptureAllParams,
		Deprecated:       r.Deprecated,
		AutoGenerated:    false,
	}, nil
}

func fromDomainExecute(cfg domain.ExecuteConfig) *rawExecute {
	if cfg == nil {
		return nil
	}
	switch c := cfg.(type) {
	case domain.SQLExecute:
		return &rawExecute{Kind: "sql", Query: c.Query}
	case domain.ExternalModuleExecute:
		return &rawExecute{Kind: "external_module", Name: c.Name}
	default:
		return nil
	}
}

func fromDomainEndpoint(e domain.Endpoint) rawEndpoint {
	return rawEndpoint{
		ID:               e.ID,
		Route:            e.Route,
		Version:          e.Version,
		Method:           strings.ToLower(e.Method.String()),
		TargetDatabase:   e.TargetDatabase,
		Execute:          fromDomainExecute(e.Execute),
		Description:      e.Description,
		Tags:             e.Tags,
		QueryParams:      e.QueryParams,
		BodyParams:       e.BodyParams,
		RequireAuth:      e.RequireAuth,
		AllowedRoles:     e.AllowedRoles,
		InjectUserID:     e.InjectUserID,
		CaptureAllParams: e.CaptureAllParams,
		Deprecated:       e.Deprecated,
	}
}

// DumpDiscovered writes one TOML file per discovered endpoint into
// dir/{databaseID}/, the sidecar directory spec.md §4.4 step 3 calls
// for before the endpoints are merged into the build's endpoint set.
func DumpDiscovered(dir, databaseID string, endpoints *domain.Endpoints) error {
	if endpoints == nil || endpoints.Len() == 0 {
		return nil
	}
	target := filepath.Join(dir, databaseID)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("creating discovery sidecar directory: %w", err)
	}
	for _, endpoint := range endpoints.All() {
		raw := fromDomainEndpoint(endpoint)
		data, err := toml.Marshal(endpointFile{Endpoints: []rawEndpoint{raw}})
		if err != nil {
			return fmt.Errorf("encoding discovered endpoint %q: %w", endpoint.ID, err)
		}
		name := strings.NewReplacer("/", "_", "{", "", "}", "").Replace(endpoint.ID) + ".toml"
		if err := os.WriteFile(filepath.Join(target, name), data, 0o644); err != nil {
			return fmt.Errorf("writing discovered endpoint %q: %w", endpoint.ID, err)
		}
	}
	return nil
}

// endpointFile is the on-disk shape of a hand-authored endpoint file:
// an `endpoints = [...]` array, per spec.md §6.
type endpointFile struct {
	Endpoints []rawEndpoint `toml:"endpoints"`
}

// LoadEndpoints reads every *.toml file directly under dir and decodes
// each file's `endpoints` array, per spec.md §4.4 step 2 and §6.
func LoadEndpoints(dir string) (*domain.Endpoints, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.NewEndpoints(), nil
		}
		return nil, fmt.Errorf("reading endpoints directory: %w", err)
	}

	endpoints := domain.NewEndpoints()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".toml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		var file endpointFile
		if err := toml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("parsing endpoint file %s: %w", entry.Name(), err)
		}
		for _, raw := range file.Endpoints {
			if err := structValidator.Struct(raw); err != nil {
				return nil, fmt.Errorf("endpoint file %s: %w", entry.Name(), err)
			}
			endpoint, err := raw.toDomain()
			if err != nil {
				return nil, err
			}
			if err := endpoints.Add(endpoint); err != nil {
				return nil, fmt.Errorf("endpoint file %s: %w", entry.Name(), err)
			}
		}
	}
	return endpoints, nil
}
