package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveless-run/waveless/internal/domain"
)

func richBuild() domain.Build {
	version := "v1"
	dbID := "main"
	secret := "supersecret"

	endpoints := domain.NewEndpoints()
	mustAdd := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	mustAdd(endpoints.Add(domain.Endpoint{
		ID:             "users.get_one",
		Route:          "users/{id}",
		Version:        &version,
		Method:         domain.MethodGet,
		TargetDatabase: &dbID,
		Execute:        domain.SQLExecute{Query: "SELECT * FROM users WHERE id = {id}"},
		QueryParams:    []string{"id"},
		RequireAuth:    true,
		AllowedRoles:   []string{"admin"},
		InjectUserID:   true,
	}))
	mustAdd(endpoints.Add(domain.Endpoint{
		ID:      "widgets.create",
		Route:   "widgets",
		Method:  domain.MethodPost,
		Execute: domain.ExternalModuleExecute{Name: "custom"},
	}))

	return domain.Build{
		General: domain.General{
			ProjectName: "demo",
			Databases: []domain.DatabaseConfig{
				{
					ID:      "main",
					Primary: true,
					Conn: domain.PostgresConnection{
						Host: "localhost", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable",
					},
					Discovery: domain.PostgresDiscovery{SkipTables: []string{"schema_migrations"}},
				},
			},
			Auth: &domain.AuthConfig{
				Method:  domain.SQLAuthMethod{DBID: &dbID, Table: "users", NameField: "email", PasswordField: "password", UserField: "id"},
				Session: domain.JWTSessionBackend{DBID: &dbID, Secret: secret, MaxAgeSeconds: 3600},
				Role:    domain.SQLRoleBackend{DBID: &dbID, Table: "roles"},
			},
			Admin: domain.AdminConfig{Email: "admin@example.com", PasswordHash: "hash"},
		},
		ExecutorSettings: domain.ExecutorSettings{
			APIPrefix:       "api",
			VerifyChecksums: true,
			HTTPCacheTime:   30,
		},
		Endpoints:         endpoints,
		DatabaseChecksums: []domain.DatabaseChecksum{{DatabaseID: "main", Checksum: [4]byte{1, 2, 3, 4}}},
	}
}

func TestRoundtripDefaultBuild(t *testing.T) {
	build := domain.DefaultBuild()
	body := Encode(build)
	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, build, decoded)
}

func TestRoundtripRichBuild(t *testing.T) {
	build := richBuild()
	body := Encode(build)
	decoded, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, build, decoded)
}

func TestEncodeArtifactStartsWithMagic(t *testing.T) {
	build := richBuild()
	full := EncodeArtifact(build)
	assert.Equal(t, Magic, string(full[:len(Magic)]))

	decoded, err := DecodeArtifact(full)
	require.NoError(t, err)
	assert.Equal(t, build, decoded)
}

func TestDecodeArtifactRejectsBadMagic(t *testing.T) {
	_, err := DecodeArtifact([]byte("not-an-artifact-at-all"))
	assert.ErrorIs(t, err, ErrMagicMismatch)
}

func TestDecodeArtifactRejectsTruncatedBody(t *testing.T) {
	full := EncodeArtifact(richBuild())
	_, err := DecodeArtifact(full[:len(full)-2])
	assert.Error(t, err)
}
