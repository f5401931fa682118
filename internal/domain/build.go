package domain

import "fmt"

// DatabaseChecksum pairs a database id with the CRC32 digest of its
// reflected schema, as recorded at build time and re-verified at
// startup. DatabaseID is required (spec.md §9(b) resolves the source's
// Option<DatabaseId> oscillation in favour of a required field).
type DatabaseChecksum struct {
	DatabaseID string
	Checksum   [4]byte
}

// Build is the fully resolved, self-contained description of a running
// API: general settings, executor settings, every endpoint, and one
// checksum per discovered database. It is what the binary codec
// encodes and decodes.
type Build struct {
	General          General
	ExecutorSettings ExecutorSettings
	Endpoints        *Endpoints
	DatabaseChecksums []DatabaseChecksum
}

// DefaultBuild is used by the roundtrip test and by `new` scaffolding
// before a real project file exists.
func DefaultBuild() Build {
	return Build{
		General: General{
			ProjectName: "waveless-project",
			Databases: []DatabaseConfig{{
				ID:      "main",
				Primary: true,
				Conn:    PostgresConnection{Host: "localhost", Port: 5432, User: "postgres", Database: "waveless", SSLMode: "disable"},
			}},
		},
		ExecutorSettings: ExecutorSettings{
			APIPrefix:     "api",
			HTTPCacheTime: 0,
		},
		Endpoints:         NewEndpoints(),
		DatabaseChecksums: nil,
	}
}

// Validate enforces spec invariants 2-4: exactly one primary database,
// every checksum references a known database, every endpoint's target
// database (when set) resolves to a known id.
func (b Build) Validate() error {
	primaries := 0
	ids := make(map[string]struct{}, len(b.General.Databases))
	for _, db := range b.General.Databases {
		ids[db.ID] = struct{}{}
		if db.Primary {
			primaries++
		}
	}
	if primaries != 1 {
		return fmt.Errorf("exactly one database must be marked primary, found %d", primaries)
	}

	for _, checksum := range b.DatabaseChecksums {
		if _, ok := ids[checksum.DatabaseID]; !ok {
			return fmt.Errorf("database checksum references unknown database id %q", checksum.DatabaseID)
		}
	}

	if b.Endpoints != nil {
		for _, endpoint := range b.Endpoints.All() {
			if endpoint.TargetDatabase != nil {
				if _, ok := ids[*endpoint.TargetDatabase]; !ok {
					return fmt.Errorf("endpoint %q targets unknown database id %q", endpoint.ID, *endpoint.TargetDatabase)
				}
			}
		}
	}

	return nil
}
