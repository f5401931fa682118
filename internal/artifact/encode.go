package artifact

import (
	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

// Tag bytes for the tagged sums the project model defines. 0xFF is
// reserved for the external_module extension point on every sum, so
// the tag space for real variants never needs to be renumbered to make
// room for it.
const (
	tagExternalModule uint8 = 0xFF

	tagConnPostgres uint8 = 0

	tagDiscoveryPostgres uint8 = 0

	tagAuthSQL uint8 = 0

	tagSessionSQL uint8 = 0
	tagSessionJWT uint8 = 1

	tagRoleSQL uint8 = 0

	tagExecuteSQL uint8 = 0
)

// Encode serialises build into the artifact's binary body (without the
// magic prefix).
func Encode(build domain.Build) []byte {
	w := NewWriter()
	encodeGeneral(w, build.General)
	encodeExecutorSettings(w, build.ExecutorSettings)
	var endpoints []domain.Endpoint
	if build.Endpoints != nil {
		endpoints = build.Endpoints.All()
	}
	WriteSeq(w, endpoints, encodeEndpoint)
	WriteSeq(w, build.DatabaseChecksums, encodeChecksum)
	return w.Bytes()
}

// EncodeArtifact is Encode with the magic prefix prepended, ready to
// write to disk.
func EncodeArtifact(build domain.Build) []byte {
	body := Encode(build)
	out := make([]byte, 0, len(Magic)+len(body))
	out = append(out, []byte(Magic)...)
	out = append(out, body...)
	return out
}

// Decode parses an artifact's binary body (without the magic prefix)
// back into a Build.
func Decode(buf []byte) (domain.Build, error) {
	r := NewReader(buf)

	general, err := decodeGeneral(r)
	if err != nil {
		return domain.Build{}, err
	}

	settings, err := decodeExecutorSettings(r)
	if err != nil {
		return domain.Build{}, err
	}

	endpoints, err := ReadSeq(r, decodeEndpoint)
	if err != nil {
		return domain.Build{}, err
	}

	checksums, err := ReadSeq(r, decodeChecksum)
	if err != nil {
		return domain.Build{}, err
	}

	return domain.Build{
		General:           general,
		ExecutorSettings:  settings,
		Endpoints:         domain.EndpointsFrom(endpoints),
		DatabaseChecksums: checksums,
	}, nil
}

// DecodeArtifact strips and verifies the magic prefix, then decodes the
// body. MagicMismatch/Truncated are both fatal at load time per
// spec.md §4.1.
func DecodeArtifact(buf []byte) (domain.Build, error) {
	if len(buf) < len(Magic) {
		return domain.Build{}, corerr.ErrMagicMismatch
	}
	if string(buf[:len(Magic)]) != Magic {
		return domain.Build{}, corerr.ErrMagicMismatch
	}
	return Decode(buf[len(Magic):])
}

func encodeGeneral(w *Writer, g domain.General) {
	w.WriteString(g.ProjectName)
	WriteSeq(w, g.Databases, encodeDatabaseConfig)

	hasAuth := g.Auth != nil
	w.WriteBool(hasAuth)
	if hasAuth {
		encodeAuthMethod(w, g.Auth.Method)
		encodeSessionBackend(w, g.Auth.Session)
		encodeRoleBackend(w, g.Auth.Role)
	}

	w.WriteString(g.Admin.Email)
	w.WriteString(g.Admin.PasswordHash)
}

func decodeGeneral(r *Reader) (domain.General, error) {
	var g domain.General

	name, err := r.ReadString()
	if err != nil {
		return g, err
	}
	g.ProjectName = name

	dbs, err := ReadSeq(r, decodeDatabaseConfig)
	if err != nil {
		return g, err
	}
	g.Databases = dbs

	hasAuth, err := r.ReadBool()
	if err != nil {
		return g, err
	}
	if hasAuth {
		method, err := decodeAuthMethod(r)
		if err != nil {
			return g, err
		}
		session, err := decodeSessionBackend(r)
		if err != nil {
			return g, err
		}
		role, err := decodeRoleBackend(r)
		if err != nil {
			return g, err
		}
		g.Auth = &domain.AuthConfig{Method: method, Session: session, Role: role}
	}

	email, err := r.ReadString()
	if err != nil {
		return g, err
	}
	hash, err := r.ReadString()
	if err != nil {
		return g, err
	}
	g.Admin = domain.AdminConfig{Email: email, PasswordHash: hash}

	return g, nil
}

func encodeDatabaseConfig(w *Writer, db domain.DatabaseConfig) {
	w.WriteString(db.ID)
	w.WriteBool(db.Primary)
	encodeConnection(w, db.Conn)

	hasDiscovery := db.Discovery != nil
	w.WriteBool(hasDiscovery)
	if hasDiscovery {
		encodeDiscovery(w, db.Discovery)
	}

	w.WriteOptionalInt(db.PoolMin)
	w.WriteOptionalInt(db.PoolMax)
}

func decodeDatabaseConfig(r *Reader) (domain.DatabaseConfig, error) {
	var db domain.DatabaseConfig

	id, err := r.ReadString()
	if err != nil {
		return db, err
	}
	db.ID = id

	primary, err := r.ReadBool()
	if err != nil {
		return db, err
	}
	db.Primary = primary

	conn, err := decodeConnection(r)
	if err != nil {
		return db, err
	}
	db.Conn = conn

	hasDiscovery, err := r.ReadBool()
	if err != nil {
		return db, err
	}
	if hasDiscovery {
		discovery, err := decodeDiscovery(r)
		if err != nil {
			return db, err
		}
		db.Discovery = discovery
	}

	poolMin, err := r.ReadOptionalInt()
	if err != nil {
		return db, err
	}
	db.PoolMin = poolMin

	poolMax, err := r.ReadOptionalInt()
	if err != nil {
		return db, err
	}
	db.PoolMax = poolMax

	return db, nil
}

func encodeConnection(w *Writer, c domain.ConnectionConfig) {
	switch v := c.(type) {
	case domain.PostgresConnection:
		w.WriteUint8(tagConnPostgres)
		w.WriteString(v.Host)
		w.WriteUint32(uint32(v.Port))
		w.WriteString(v.User)
		w.WriteString(v.Password)
		w.WriteString(v.Database)
		w.WriteString(v.SSLMode)
	case domain.ExternalModuleConnection:
		w.WriteUint8(tagExternalModule)
		w.WriteString(v.Name)
	default:
		panic("artifact: unknown ConnectionConfig variant")
	}
}

func decodeConnection(r *Reader) (domain.ConnectionConfig, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagConnPostgres:
		host, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		port, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		user, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		password, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		database, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		sslMode, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.PostgresConnection{Host: host, Port: int(port), User: user, Password: password, Database: database, SSLMode: sslMode}, nil
	case tagExternalModule:
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.ExternalModuleConnection{Name: name}, nil
	default:
		return nil, corerr.Expected(500, "unknown connection kind tag in binary artifact")
	}
}

func encodeDiscovery(w *Writer, d domain.DiscoveryConfig) {
	switch v := d.(type) {
	case domain.PostgresDiscovery:
		w.WriteUint8(tagDiscoveryPostgres)
		w.WriteStringSlice(v.SkipTables)
	case domain.ExternalModuleDiscovery:
		w.WriteUint8(tagExternalModule)
		w.WriteString(v.Name)
	default:
		panic("artifact: unknown DiscoveryConfig variant")
	}
}

func decodeDiscovery(r *Reader) (domain.DiscoveryConfig, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagDiscoveryPostgres:
		skip, err := r.ReadStringSlice()
		if err != nil {
			return nil, err
		}
		return domain.PostgresDiscovery{SkipTables: skip}, nil
	case tagExternalModule:
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.ExternalModuleDiscovery{Name: name}, nil
	default:
		return nil, corerr.Expected(500, "unknown discovery kind tag in binary artifact")
	}
}

func encodeAuthMethod(w *Writer, m domain.AuthMethodConfig) {
	switch v := m.(type) {
	case domain.SQLAuthMethod:
		w.WriteUint8(tagAuthSQL)
		w.WriteOptionalString(v.DBID)
		w.WriteString(v.Table)
		w.WriteString(v.NameField)
		w.WriteString(v.PasswordField)
		w.WriteString(v.UserField)
	case domain.ExternalModuleAuthMethod:
		w.WriteUint8(tagExternalModule)
		w.WriteOptionalString(v.DBID)
		w.WriteString(v.Name)
	default:
		panic("artifact: unknown AuthMethodConfig variant")
	}
}

func decodeAuthMethod(r *Reader) (domain.AuthMethodConfig, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagAuthSQL:
		dbID, err := r.ReadOptionalString()
		if err != nil {
			return nil, err
		}
		table, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		nameField, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		passwordField, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		userField, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.SQLAuthMethod{DBID: dbID, Table: table, NameField: nameField, PasswordField: passwordField, UserField: userField}, nil
	case tagExternalModule:
		dbID, err := r.ReadOptionalString()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.ExternalModuleAuthMethod{DBID: dbID, Name: name}, nil
	default:
		return nil, corerr.Expected(500, "unknown auth method kind tag in binary artifact")
	}
}

func encodeSessionBackend(w *Writer, s domain.SessionBackendConfig) {
	switch v := s.(type) {
	case domain.SQLSessionBackend:
		w.WriteUint8(tagSessionSQL)
		w.WriteOptionalString(v.DBID)
		w.WriteString(v.Table)
		w.WriteInt64(v.MaxAgeSeconds)
	case domain.JWTSessionBackend:
		w.WriteUint8(tagSessionJWT)
		w.WriteOptionalString(v.DBID)
		w.WriteString(v.Secret)
		w.WriteInt64(v.MaxAgeSeconds)
	case domain.ExternalModuleSessionBackend:
		w.WriteUint8(tagExternalModule)
		w.WriteOptionalString(v.DBID)
		w.WriteString(v.Name)
	default:
		panic("artifact: unknown SessionBackendConfig variant")
	}
}

func decodeSessionBackend(r *Reader) (domain.SessionBackendConfig, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagSessionSQL:
		dbID, err := r.ReadOptionalString()
		if err != nil {
			return nil, err
		}
		table, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		maxAge, err := r.ReadInt64()
		if err != nil {
			return nil, err
		}
		return domain.SQLSessionBackend{DBID: dbID, Table: table, MaxAgeSeconds: maxAge}, nil
	case tagSessionJWT:
		dbID, err := r.ReadOptionalString()
		if err != nil {
			return nil, err
		}
		secret, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		maxAge, err := r.ReadInt64()
		if err != nil {
			return nil, err
		}
		return domain.JWTSessionBackend{DBID: dbID, Secret: secret, MaxAgeSeconds: maxAge}, nil
	case tagExternalModule:
		dbID, err := r.ReadOptionalString()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.ExternalModuleSessionBackend{DBID: dbID, Name: name}, nil
	default:
		return nil, corerr.Expected(500, "unknown session backend kind tag in binary artifact")
	}
}

func encodeRoleBackend(w *Writer, role domain.RoleBackendConfig) {
	switch v := role.(type) {
	case domain.SQLRoleBackend:
		w.WriteUint8(tagRoleSQL)
		w.WriteOptionalString(v.DBID)
		w.WriteString(v.Table)
	case domain.ExternalModuleRoleBackend:
		w.WriteUint8(tagExternalModule)
		w.WriteOptionalString(v.DBID)
		w.WriteString(v.Name)
	default:
		panic("artifact: unknown RoleBackendConfig variant")
	}
}

func decodeRoleBackend(r *Reader) (domain.RoleBackendConfig, error) {
	tag, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagRoleSQL:
		dbID, err := r.ReadOptionalString()
		if err != nil {
			return nil, err
		}
		table, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.SQLRoleBackend{DBID: dbID, Table: table}, nil
	case tagExternalModule:
		dbID, err := r.ReadOptionalString()
		if err != nil {
			return nil, err
		}
		name, err := r.ReadString()
		if err != nil {
			return nil, err
		}
		return domain.ExternalModuleRoleBackend{DBID: dbID, Name: name}, nil
	default:
		return nil, corerr.Expected(500, "unknown role backend kind tag in binary artifact")
	}
}

func encodeExecutorSettings(w *Writer, s domain.ExecutorSettings) {
	w.WriteOptionalString(s.ListenAddr)
	w.WriteOptionalString(s.StaticRoot)
	w.WriteString(s.APIPrefix)
	w.WriteBool(s.VerifyChecksums)
	w.WriteInt64(s.HTTPCacheTime)
}

func decodeExecutorSettings(r *Reader) (domain.ExecutorSettings, error) {
	var s domain.ExecutorSettings

	listenAddr, err := r.ReadOptionalString()
	if err != nil {
		return s, err
	}
	s.ListenAddr = listenAddr

	staticRoot, err := r.ReadOptionalString()
	if err != nil {
		return s, err
	}
	s.StaticRoot = staticRoot

	prefix, err := r.ReadString()
	if err != nil {
		return s, err
	}
	s.APIPrefix = prefix

	verify, err := r.ReadBool()
	if err != nil {
		return s, err
	}
	s.VerifyChecksums = verify

	cacheTime, err := r.ReadInt64()
	if err != nil {
		return s, err
	}
	s.HTTPCacheTime = cacheTime

	return s, nil
}

func encodeEndpoint(w *Writer, e domain.Endpoint) {
	w.WriteString(e.ID)
	w.WriteString(e.Route)
	w.WriteOptionalString(e.Version)
	w.WriteUint8(uint8(e.Method))
	w.WriteOptionalString(e.TargetDatabase)

	hasExecute := e.Execute != nil
	w.WriteBool(hasExecute)
	if hasExecute {
		switch v := e.Execute.(type) {
		case domain.SQLExecute:
			w.WriteUint8(tagExecuteSQL)
			w.WriteString(v.Query)
		case domain.ExternalModuleExecute:
			w.WriteUint8(tagExternalModule)
			w.WriteString(v.Name)
		default:
			panic("artifact: unknown ExecuteConfig variant")
		}
	}

	w.WriteOptionalString(e.Description)
	w.WriteStringSlice(e.Tags)
	w.WriteStringSlice(e.QueryParams)
	w.WriteStringSlice(e.BodyParams)
	w.WriteBool(e.RequireAuth)
	w.WriteStringSlice(e.AllowedRoles)
	w.WriteBool(e.InjectUserID)
	w.WriteBool(e.CaptureAllParams)
	w.WriteBool(e.Deprecated)
	w.WriteBool(e.AutoGenerated)
}

func decodeEndpoint(r *Reader) (domain.Endpoint, error) {
	var e domain.Endpoint

	id, err := r.ReadString()
	if err != nil {
		return e, err
	}
	e.ID = id

	route, err := r.ReadString()
	if err != nil {
		return e, err
	}
	e.Route = route

	version, err := r.ReadOptionalString()
	if err != nil {
		return e, err
	}
	e.Version = version

	methodTag, err := r.ReadUint8()
	if err != nil {
		return e, err
	}
	e.Method = domain.HTTPMethod(methodTag)

	targetDB, err := r.ReadOptionalString()
	if err != nil {
		return e, err
	}
	e.TargetDatabase = targetDB

	hasExecute, err := r.ReadBool()
	if err != nil {
		return e, err
	}
	if hasExecute {
		tag, err := r.ReadUint8()
		if err != nil {
			return e, err
		}
		switch tag {
		case tagExecuteSQL:
			query, err := r.ReadString()
			if err != nil {
				return e, err
			}
			e.Execute = domain.SQLExecute{Query: query}
		case tagExternalModule:
			name, err := r.ReadString()
			if err != nil {
				return e, err
			}
			e.Execute = domain.ExternalModuleExecute{Name: name}
		default:
			return e, corerr.Expected(500, "unknown execute kind tag in binary artifact")
		}
	}

	description, err := r.ReadOptionalString()
	if err != nil {
		return e, err
	}
	e.Description = description

	tags, err := r.ReadStringSlice()
	if err != nil {
		return e, err
	}
	e.Tags = tags

	queryParams, err := r.ReadStringSlice()
	if err != nil {
		return e, err
	}
	e.QueryParams = queryParams

	bodyParams, err := r.ReadStringSlice()
	if err != nil {
		return e, err
	}
	e.BodyParams = bodyParams

	requireAuth, err := r.ReadBool()
	if err != nil {
		return e, err
	}
	e.RequireAuth = requireAuth

	allowedRoles, err := r.ReadStringSlice()
	if err != nil {
		return e, err
	}
	e.AllowedRoles = allowedRoles

	injectUserID, err := r.ReadBool()
	if err != nil {
		return e, err
	}
	e.InjectUserID = injectUserID

	captureAll, err := r.ReadBool()
	if err != nil {
		return e, err
	}
	e.CaptureAllParams = captureAll

	deprecated, err := r.ReadBool()
	if err != nil {
		return e, err
	}
	e.Deprecated = deprecated

	autoGenerated, err := r.ReadBool()
	if err != nil {
		return e, err
	}
	e.AutoGenerated = autoGenerated

	return e, nil
}

func encodeChecksum(w *Writer, c domain.DatabaseChecksum) {
	w.WriteString(c.DatabaseID)
	w.WriteRawBytes(c.Checksum[:])
}

func decodeChecksum(r *Reader) (domain.DatabaseChecksum, error) {
	var c domain.DatabaseChecksum
	id, err := r.ReadString()
	if err != nil {
		return c, err
	}
	c.DatabaseID = id
	raw, err := r.ReadRawBytes(4)
	if err != nil {
		return c, err
	}
	copy(c.Checksum[:], raw)
	return c, nil
}
