package domain

import "context"

// ExecuteParamValue is the tagged sum separating client-controlled
// values (bound as prepared-statement parameters) from server-controlled
// internal values (inlined as text). See spec.md §4.9 and the hazard
// noted in §9: a Client value must never be read through the Internal
// arm, so the two are distinct constructors rather than a single
// optional-string-plus-flag struct.
type ExecuteParamValue struct {
	client   *string
	internal *string
}

// ClientParam builds a client-sourced value, possibly absent.
func ClientParam(value *string) ExecuteParamValue {
	return ExecuteParamValue{client: value}
}

// InternalParam builds a server-sourced value. It is never absent: the
// server always knows the value it is injecting (e.g. a session's user
// id) or it would not be injecting it at all.
func InternalParam(value string) ExecuteParamValue {
	return ExecuteParamValue{internal: &value}
}

// IsInternal reports whether v was constructed via InternalParam.
func (v ExecuteParamValue) IsInternal() bool {
	return v.internal != nil
}

// Client returns the client value and whether it is present at all
// (distinct from being present-but-empty).
func (v ExecuteParamValue) Client() (*string, bool) {
	return v.client, v.internal == nil
}

// Internal returns the internal value; panics if IsInternal is false,
// since callers are expected to branch on IsInternal first.
func (v ExecuteParamValue) Internal() string {
	if v.internal == nil {
		panic("corerr: Internal() called on a client ExecuteParamValue")
	}
	return *v.internal
}

// ExecuteInput is what the router/param-extraction layers hand to an
// executor: named parameters plus the raw request body.
type ExecuteInput struct {
	Params map[string]ExecuteParamValue
	Body   []byte
}

// ExecuteOutput is what an executor hands back to the response
// envelope.
type ExecuteOutput struct {
	// Headers, when non-nil, are merged into the HTTP response
	// (e.g. Set-Cookie from the login capture layer).
	Headers map[string]string
	// JSON holds the value to serialise when Raw is nil.
	JSON any
	// Raw, when non-nil, is already-encoded bytes returned verbatim
	// (the ExecuteOutput::Any arm of spec.md §4.9).
	Raw []byte
}

func JSONOutput(value any) ExecuteOutput {
	return ExecuteOutput{JSON: value}
}

func JSONOutputWithHeaders(headers map[string]string, value any) ExecuteOutput {
	return ExecuteOutput{Headers: headers, JSON: value}
}

// Executor is the pluggable contract an endpoint's ExecuteConfig is
// realised by at request time.
type Executor interface {
	Execute(ctx context.Context, method HTTPMethod, conn Connection, input ExecuteInput) (ExecuteOutput, error)
}

// Row is one database row decoded into named columns.
type Row map[string]any

// Connection is the opaque per-database capability every backend
// (executor, auth, session, role, discovery) operates through. It
// deliberately exposes a handful of concrete operations rather than the
// single polymorphic `execute(input) -> output` method spec.md's prose
// describes: Go's lack of downcasting makes a single opaque method a
// worse fit than in the source, so the capability is split into the
// small set of shapes every backend in this codebase actually needs,
// while still being implemented by exactly one concrete type per
// connection kind (*postgres.Conn).
type Connection interface {
	// Exec runs a statement that does not return rows.
	Exec(ctx context.Context, query string, args []any) (rowsAffected int64, err error)
	// Query runs a statement and decodes every returned row.
	Query(ctx context.Context, query string, args []any) ([]Row, error)
	// QueryRow runs a statement expected to return at most one row.
	QueryRow(ctx context.Context, query string, args []any) (Row, bool, error)
}
