package postgres

import (
	"context"
	"strconv"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/uksf/uksf-api/pkg/datacontext"
)

type unit struct {
	datacontext.Base
	Name string `json:"name"`
}

func TestBuildWhere(t *testing.T) {
	filter := datacontext.Eq[*unit]("name", "Alpha").
		And(datacontext.Ne[*unit]("roles.1iC", nil)).
		And(datacontext.Contains[*unit]("members", "m1"))

	where, args, err := buildWhere(filter.Conditions(), 1)
	require.NoError(t, err)
	require.Equal(t,
		"(doc #> $1::text[]) = $2::jsonb"+
			" AND ((doc #> $3::text[]) IS NOT NULL AND (doc #> $3::text[]) <> 'null'::jsonb)"+
			" AND (jsonb_typeof((doc #> $4::text[])) = 'array' AND (doc #> $4::text[]) @> jsonb_build_array($5::jsonb))",
		where)
	require.Equal(t, []any{
		[]string{"name"}, `"Alpha"`,
		[]string{"roles", "1iC"},
		[]string{"members"}, `"m1"`,
	}, args)
}

func TestBuildWhere_Empty(t *testing.T) {
	where, args, err := buildWhere(nil, 1)
	require.NoError(t, err)
	require.Equal(t, "TRUE", where)
	require.Empty(t, args)
}

func TestBuildUpdateExpr(t *testing.T) {
	expr, args, ok, err := buildUpdateExpr(datacontext.Set("reviews.abc", "Approved").Unset("secondary"), 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "(jsonb_set(doc, $2::text[], $3::jsonb, true) #- $4::text[])", expr)
	require.Equal(t, []any{[]string{"reviews", "abc"}, `"Approved"`, []string{"secondary"}}, args)
}

func TestBuildUpdateExpr_ArrayOpsNeedRow(t *testing.T) {
	_, _, ok, err := buildUpdateExpr(datacontext.Set("name", "x").AddToSet("members", "m1"), 2)
	require.NoError(t, err)
	require.False(t, ok)

	_, _, _, err = buildUpdateExpr(datacontext.Set("id", "x"), 2)
	require.Error(t, err)
}

type stubDB struct {
	execs    []string
	execArgs [][]any
	affected int64
	queryRow func(sql string, args ...any) pgx.Row
}

func (s *stubDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execs = append(s.execs, sql)
	s.execArgs = append(s.execArgs, args)
	return pgconn.NewCommandTag("UPDATE " + strconv.FormatInt(s.affected, 10)), nil
}

func (s *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not used")
}

func (s *stubDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	return s.queryRow(sql, args...)
}

func (s *stubDB) Begin(context.Context) (pgx.Tx, error) {
	panic("not used")
}

type stubRow struct {
	scan func(dest ...any) error
}

func (r stubRow) Scan(dest ...any) error {
	return r.scan(dest...)
}

func TestCollection_ModifyPushesDownSet(t *testing.T) {
	db := &stubDB{affected: 2}
	col := New(db, "uksf_").Collection("units")

	n, err := col.Modify(context.Background(), []string{"a", "b"}, datacontext.Set("name", "x"))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Len(t, db.execs, 2)
	require.Contains(t, db.execs[0], `CREATE TABLE IF NOT EXISTS "uksf_units"`)
	require.Equal(t, `UPDATE "uksf_units" SET doc = jsonb_set(doc, $2::text[], $3::jsonb, true) WHERE id = ANY($1)`, db.execs[1])
	require.Equal(t, []any{[]string{"a", "b"}, []string{"name"}, `"x"`}, db.execArgs[1])
}

func TestCollection_PutMissingIsNotFound(t *testing.T) {
	db := &stubDB{affected: 0}
	col := New(db, "").Collection("units")

	err := col.Put(context.Background(), "a", []byte(`{"id":"a"}`))
	require.ErrorIs(t, err, datacontext.ErrNotFound)
}

func TestCollection_GetMissingIsNotFound(t *testing.T) {
	db := &stubDB{queryRow: func(sql string, args ...any) pgx.Row {
		require.Equal(t, `SELECT doc FROM "units" WHERE id = $1`, sql)
		require.Equal(t, []any{"a"}, args)
		return stubRow{scan: func(...any) error { return pgx.ErrNoRows }}
	}}
	col := New(db, "").Collection("units")

	_, err := col.Get(context.Background(), "a")
	require.ErrorIs(t, err, datacontext.ErrNotFound)
}
