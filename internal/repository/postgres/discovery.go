package postgres

import (
	"context"
	"fmt"
	"hash/crc32"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/waveless-run/waveless/internal/corerr"
	"github.com/waveless-run/waveless/internal/domain"
)

type column struct {
	name       string
	isPrimary  bool
	ordinal    int
	dataType   string
	isNullable bool
}

type table struct {
	name    string
	columns []column
}

// Discovery is C3's only implementation: it reflects a live Postgres
// schema through information_schema, computes a stable CRC32 over its
// canonical textual rendering, and synthesises the five CRUD endpoints
// spec.md §4.3 specifies for every table outside the skip list.
type Discovery struct{}

func (Discovery) Discover(ctx context.Context, databaseID string, conn domain.Connection, skipTables []string) (domain.DiscoveredSchema, error) {
	tables, err := reflectSchema(ctx, conn)
	if err != nil {
		return domain.DiscoveredSchema{}, corerr.Wrap(500, "schema discovery failed", err)
	}

	skip := make(map[string]bool, len(skipTables))
	for _, t := range skipTables {
		skip[t] = true
	}

	endpoints := domain.NewEndpoints()
	var included []table
	for _, t := range tables {
		if skip[t.name] {
			continue
		}
		if err := addTableEndpoints(endpoints, databaseID, t); err != nil {
			return domain.DiscoveredSchema{}, err
		}
		included = append(included, t)
	}

	return domain.DiscoveredSchema{
		Checksum:  checksum(included),
		Endpoints: endpoints,
	}, nil
}

// reflectSchema loads every base table outside pg_catalog/information_schema
// along with their columns and primary-key membership, ordered
// deterministically so the checksum is stable across runs.
func reflectSchema(ctx context.Context, conn domain.Connection) ([]table, error) {
	rows, err := conn.Query(ctx, `
		SELECT c.table_name, c.column_name, c.ordinal_position, c.data_type, c.is_nullable,
		       COALESCE(pk.is_primary, false) AS is_primary
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT ku.table_name, ku.column_name, true AS is_primary
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage ku
			  ON tc.constraint_name = ku.constraint_name AND tc.table_schema = ku.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = 'public'
		) pk ON pk.table_name = c.table_name AND pk.column_name = c.column_name
		WHERE c.table_schema = 'public'
		ORDER BY c.table_name, c.ordinal_position
	`, nil)
	if err != nil {
		return nil, err
	}

	byTable := make(map[string]*table)
	var order []string
	for _, r := range rows {
		name, _ := r["table_name"].(string)
		if _, ok := byTable[name]; !ok {
			byTable[name] = &table{name: name}
			order = append(order, name)
		}
		t := byTable[name]
		ordinal, _ := r["ordinal_position"].(int32)
		nullable, _ := r["is_nullable"].(string)
		dataType, _ := r["data_type"].(string)
		colName, _ := r["column_name"].(string)
		isPK, _ := r["is_primary"].(bool)
		t.columns = append(t.columns, column{
			name:       colName,
			isPrimary:  isPK,
			ordinal:    int(ordinal),
			dataType:   dataType,
			isNullable: nullable == "YES",
		})
	}

	sort.Strings(order)
	result := make([]table, 0, len(order))
	for _, name := range order {
		result = append(result, *byTable[name])
	}
	return result, nil
}

func primaryKey(t table) (string, bool) {
	for _, c := range t.columns {
		if c.isPrimary {
			return c.name, true
		}
	}
	return "", false
}

// addTableEndpoints builds the five CRUD endpoints of spec.md §4.3 for
// one table: GET one, GET many, POST, PUT, DELETE, all under version
// "v1", all auto_generated, unauthenticated.
func addTableEndpoints(endpoints *domain.Endpoints, databaseID string, t table) error {
	pk, ok := primaryKey(t)
	if !ok {
		return corerr.Expectedf(500, "table %q has no primary key; schema discovery requires one", t.name)
	}

	version := "v1"
	dbID := databaseID
	name := strings.ToLower(t.name)

	var nonPK []string
	for _, c := range t.columns {
		if c.name != pk {
			nonPK = append(nonPK, c.name)
		}
	}

	base := domain.Endpoint{
		Version:        &version,
		TargetDatabase: &dbID,
		RequireAuth:    false,
		AllowedRoles:   []string{},
		AutoGenerated:  true,
	}

	getOne := base
	getOne.ID = fmt.Sprintf("%s.%s.get_one", dbID, name)
	getOne.Route = fmt.Sprintf("%s/{id}", name)
	getOne.Method = domain.MethodGet
	getOne.Execute = domain.SQLExecute{Query: fmt.Sprintf("SELECT * FROM %s WHERE %s = {id}", name, pk)}
	if err := endpoints.Add(getOne); err != nil {
		return err
	}

	getMany := base
	getMany.ID = fmt.Sprintf("%s.%s.get_many", dbID, name)
	getMany.Route = name
	getMany.Method = domain.MethodGet
	getMany.Execute = domain.SQLExecute{Query: fmt.Sprintf("SELECT * FROM %s", name)}
	if err := endpoints.Add(getMany); err != nil {
		return err
	}

	post := base
	post.ID = fmt.Sprintf("%s.%s.create", dbID, name)
	post.Route = name
	post.Method = domain.MethodPost
	post.BodyParams = append([]string(nil), nonPK...)
	placeholders := make([]string, len(nonPK))
	for i, c := range nonPK {
		placeholders[i] = "{" + c + "}"
	}
	post.Execute = domain.SQLExecute{Query: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(nonPK, ", "), strings.Join(placeholders, ", "))}
	if err := endpoints.Add(post); err != nil {
		return err
	}

	put := base
	put.ID = fmt.Sprintf("%s.%s.update", dbID, name)
	put.Route = fmt.Sprintf("%s/{id}", name)
	put.Method = domain.MethodPut
	put.BodyParams = append([]string(nil), nonPK...)
	assignments := make([]string, len(nonPK))
	for i, c := range nonPK {
		assignments[i] = fmt.Sprintf("%s = {%s}", c, c)
	}
	put.Execute = domain.SQLExecute{Query: fmt.Sprintf("UPDATE %s SET %s WHERE %s = {id}", name, strings.Join(assignments, ", "), pk)}
	if err := endpoints.Add(put); err != nil {
		return err
	}

	del := base
	del.ID = fmt.Sprintf("%s.%s.delete", dbID, name)
	del.Route = fmt.Sprintf("%s/{id}", name)
	del.Method = domain.MethodDelete
	del.Execute = domain.SQLExecute{Query: fmt.Sprintf("DELETE FROM %s WHERE %s = {id}", name, pk)}
	return endpoints.Add(del)
}

// checksum renders every included table canonically (table name, then
// each column's name/type/nullability/primary-key flag in ordinal
// order) and CRC32s the result, so the digest only changes when the
// reflected shape actually changes.
func checksum(tables []table) [4]byte {
	var b strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&b, "table %s\n", t.name)
		for _, c := range t.columns {
			fmt.Fprintf(&b, "  %d:%s:%s:nullable=%v:pk=%v\n", c.ordinal, c.name, c.dataType, c.isNullable, c.isPrimary)
		}
	}
	sum := crc32.ChecksumIEEE([]byte(b.String()))
	var out [4]byte
	out[0] = byte(sum >> 24)
	out[1] = byte(sum >> 16)
	out[2] = byte(sum >> 8)
	out[3] = byte(sum)
	return out
}

// OpenSingle dials a one-connection pool (min=max=1) purely for
// discovery, per spec.md §4.3: "opens a single connection".
func OpenSingle(ctx context.Context, conn domain.PostgresConnection) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		conn.User, conn.Password, conn.Host, conn.Port, conn.Database, conn.SSLMode)
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MinConns = 1
	cfg.MaxConns = 1
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
