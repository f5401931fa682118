package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveless-run/waveless/internal/domain"
)

// recordingConn captures the query and args it was last called with so
// tests can assert on the executor's placeholder translation without a
// real database.
type recordingConn struct {
	query string
	args  []any
}

func (c *recordingConn) Exec(ctx context.Context, query string, args []any) (int64, error) {
	c.query, c.args = query, args
	return 0, nil
}

func (c *recordingConn) Query(ctx context.Context, query string, args []any) ([]domain.Row, error) {
	c.query, c.args = query, args
	return nil, nil
}

func (c *recordingConn) QueryRow(ctx context.Context, query string, args []any) (domain.Row, bool, error) {
	c.query, c.args = query, args
	return nil, false, nil
}

func strp(s string) *string { return &s }

func TestExecutorTranslatesClientPlaceholdersInOrder(t *testing.T) {
	x := &SQLExecutor{Query: "SELECT a FROM t WHERE x = {x} AND y = {y}"}
	conn := &recordingConn{}
	input := domain.ExecuteInput{Params: map[string]domain.ExecuteParamValue{
		"x": domain.ClientParam(strp("1")),
		"y": domain.ClientParam(strp("2")),
	}}

	_, err := x.Execute(context.Background(), domain.MethodGet, conn, input)
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE x = ? AND y = ?", conn.query)
	assert.Equal(t, []any{"1", "2"}, conn.args)
}

func TestExecutorReordersArgsWithTemplate(t *testing.T) {
	x := &SQLExecutor{Query: "SELECT a FROM t WHERE y = {y} AND x = {x}"}
	conn := &recordingConn{}
	input := domain.ExecuteInput{Params: map[string]domain.ExecuteParamValue{
		"x": domain.ClientParam(strp("1")),
		"y": domain.ClientParam(strp("2")),
	}}

	_, err := x.Execute(context.Background(), domain.MethodGet, conn, input)
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE y = ? AND x = ?", conn.query)
	assert.Equal(t, []any{"2", "1"}, conn.args)
}

func TestExecutorPutStripsMissingAssignments(t *testing.T) {
	x := &SQLExecutor{Query: "UPDATE t SET a = {a}, b = {b}, c = {c} WHERE id = {id}"}
	conn := &recordingConn{}
	input := domain.ExecuteInput{Params: map[string]domain.ExecuteParamValue{
		"a":  domain.ClientParam(strp("a-val")),
		"id": domain.ClientParam(strp("7")),
	}}

	_, err := x.Execute(context.Background(), domain.MethodPut, conn, input)
	require.NoError(t, err)
	assert.Equal(t, "UPDATE t SET a = ? WHERE id = ?", conn.query)
	assert.Equal(t, []any{"a-val", "7"}, conn.args)
}

func TestExecutorFailsNonPutOnMissingClientParam(t *testing.T) {
	x := &SQLExecutor{Query: "UPDATE t SET a = {a} WHERE id = {id}"}
	conn := &recordingConn{}
	input := domain.ExecuteInput{Params: map[string]domain.ExecuteParamValue{
		"id": domain.ClientParam(strp("7")),
	}}

	_, err := x.Execute(context.Background(), domain.MethodPost, conn, input)
	assert.Error(t, err)
}

func TestExecutorInlinesInternalAndBindsClient(t *testing.T) {
	x := &SQLExecutor{Query: "SELECT a FROM t WHERE owner = |who| AND x = {x}"}
	conn := &recordingConn{}
	input := domain.ExecuteInput{Params: map[string]domain.ExecuteParamValue{
		"who": domain.InternalParam("42"),
		"x":   domain.ClientParam(strp("7")),
	}}

	_, err := x.Execute(context.Background(), domain.MethodGet, conn, input)
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE owner = 42 AND x = ?", conn.query)
	assert.Equal(t, []any{"7"}, conn.args)
}

func TestExecutorFailsWhenInternalParamMissing(t *testing.T) {
	x := &SQLExecutor{Query: "SELECT a FROM t WHERE owner = |who|"}
	conn := &recordingConn{}

	_, err := x.Execute(context.Background(), domain.MethodGet, conn, domain.ExecuteInput{})
	assert.Error(t, err)
}

func TestExecutorFailsWhenClientValueSuppliedThroughInternalMarker(t *testing.T) {
	x := &SQLExecutor{Query: "SELECT a FROM t WHERE owner = |who|"}
	conn := &recordingConn{}
	input := domain.ExecuteInput{Params: map[string]domain.ExecuteParamValue{
		"who": domain.ClientParam(strp("42")),
	}}

	_, err := x.Execute(context.Background(), domain.MethodGet, conn, input)
	assert.Error(t, err)
}
